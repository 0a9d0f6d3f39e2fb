package statistics

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/lox/horserace/internal/race"
)

// ConditionBuckets splits the 1-100 condition range into tens.
const ConditionBuckets = 10

// PodiumPlaces is how many ranks count as a podium finish.
const PodiumPlaces = 3

// Times accumulates finish times in milliseconds
type Times struct {
	Count  int
	Sum    float64
	SumSq  float64   // Sum of squares for variance calculation
	Values []float64 // Store all values for median/percentile calculation
}

// Add records one finish time
func (t *Times) Add(ms float64) {
	t.Count++
	t.Sum += ms
	t.SumSq += ms * ms
	t.Values = append(t.Values, ms)
}

// Mean returns the arithmetic mean
func (t *Times) Mean() float64 {
	if t.Count == 0 {
		return 0
	}
	return t.Sum / float64(t.Count)
}

// Variance returns the sample variance
func (t *Times) Variance() float64 {
	if t.Count < 2 {
		return 0
	}
	mean := t.Mean()
	return (t.SumSq - float64(t.Count)*mean*mean) / float64(t.Count-1)
}

// StdDev returns the sample standard deviation
func (t *Times) StdDev() float64 {
	return math.Sqrt(math.Max(t.Variance(), 0))
}

// Median returns the median value
func (t *Times) Median() float64 {
	return t.Percentile(0.5)
}

// Percentile returns the value at the given percentile (0.0 to 1.0), linearly
// interpolated between neighbours.
func (t *Times) Percentile(p float64) float64 {
	if len(t.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(t.Values))
	copy(sorted, t.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// HorseStats tracks one roster slot across every race it ran
type HorseStats struct {
	ID           int
	Name         string
	Starts       int
	Wins         int
	Podiums      int
	SumRank      int
	SumCondition int
	Times        Times
}

// WinRate is wins per start
func (h *HorseStats) WinRate() float64 {
	if h.Starts == 0 {
		return 0
	}
	return float64(h.Wins) / float64(h.Starts)
}

// AverageRank returns the mean finishing position
func (h *HorseStats) AverageRank() float64 {
	if h.Starts == 0 {
		return 0
	}
	return float64(h.SumRank) / float64(h.Starts)
}

// AverageCondition is the mean condition the horse raced with. Conditions are
// redrawn each session, so this varies between tournaments.
func (h *HorseStats) AverageCondition() float64 {
	if h.Starts == 0 {
		return 0
	}
	return float64(h.SumCondition) / float64(h.Starts)
}

// BucketStats tracks results for horses whose condition fell in one bucket
type BucketStats struct {
	Starts int
	Wins   int
}

// WinRate is wins per start within the bucket
func (b BucketStats) WinRate() float64 {
	if b.Starts == 0 {
		return 0
	}
	return float64(b.Wins) / float64(b.Starts)
}

// Tally aggregates completed races. It is safe for concurrent use, so batch
// workers can feed it directly.
type Tally struct {
	mu sync.Mutex

	Tournaments int
	Races       int
	Starts      int

	horses   map[int]*HorseStats
	buckets  [ConditionBuckets]BucketStats
	winTimes map[int]*Times // keyed by distance
}

// NewTally creates an empty tally
func NewTally() *Tally {
	return &Tally{
		horses:   make(map[int]*HorseStats),
		winTimes: make(map[int]*Times),
	}
}

// BucketFor maps a condition in [1,100] to its bucket index. Out of range
// values are clamped.
func BucketFor(condition int) int {
	b := (condition - 1) / (100 / ConditionBuckets)
	if b < 0 {
		return 0
	}
	if b >= ConditionBuckets {
		return ConditionBuckets - 1
	}
	return b
}

// AddTournament records every completed race of one tournament
func (t *Tally) AddTournament(races []race.Race) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Tournaments++
	for i := range races {
		t.addRace(&races[i])
	}
}

// AddRace records a single completed race. Races without results are ignored.
func (t *Tally) AddRace(r race.Race) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addRace(&r)
}

func (t *Tally) addRace(r *race.Race) {
	if !r.IsCompleted() || len(r.Results) == 0 {
		return
	}
	t.Races++

	for _, result := range r.Results {
		horse := r.Horse(result.HorseID)
		if horse == nil {
			continue
		}
		t.Starts++

		hs, ok := t.horses[result.HorseID]
		if !ok {
			hs = &HorseStats{ID: result.HorseID, Name: result.HorseName}
			t.horses[result.HorseID] = hs
		}
		hs.Starts++
		hs.SumRank += result.Rank
		hs.SumCondition += horse.Condition
		hs.Times.Add(result.Time)
		if result.Rank <= PodiumPlaces {
			hs.Podiums++
		}

		bucket := &t.buckets[BucketFor(horse.Condition)]
		bucket.Starts++
		if result.Rank == 1 {
			hs.Wins++
			bucket.Wins++
		}
	}

	winTimes, ok := t.winTimes[r.Distance]
	if !ok {
		winTimes = &Times{}
		t.winTimes[r.Distance] = winTimes
	}
	winTimes.Add(r.Results[0].Time)
}

// Horses returns per-horse statistics sorted by wins, then average rank, then
// id. The values are copies.
func (t *Tally) Horses() []HorseStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]HorseStats, 0, len(t.horses))
	for _, hs := range t.horses {
		c := *hs
		c.Times.Values = append([]float64(nil), hs.Times.Values...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		if ri, rj := out[i].AverageRank(), out[j].AverageRank(); ri != rj {
			return ri < rj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Buckets returns win rates by condition bucket; index 0 covers 1-10.
func (t *Tally) Buckets() [ConditionBuckets]BucketStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buckets
}

// WinningTimes returns a copy of the winning-time distribution for a distance
func (t *Tally) WinningTimes(distance int) Times {
	t.mu.Lock()
	defer t.mu.Unlock()

	wt, ok := t.winTimes[distance]
	if !ok {
		return Times{}
	}
	c := *wt
	c.Values = append([]float64(nil), wt.Values...)
	return c
}

// Distances returns the distances seen, shortest first
func (t *Tally) Distances() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	distances := make([]int, 0, len(t.winTimes))
	for d := range t.winTimes {
		distances = append(distances, d)
	}
	sort.Ints(distances)
	return distances
}

// Validate checks that the tallies agree with each other
func (t *Tally) Validate() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	wins, starts := 0, 0
	for _, hs := range t.horses {
		wins += hs.Wins
		starts += hs.Starts
		if hs.Wins > hs.Podiums {
			return fmt.Errorf("horse %d has %d wins but only %d podiums", hs.ID, hs.Wins, hs.Podiums)
		}
	}
	if wins != t.Races {
		return fmt.Errorf("total wins (%d) does not match races (%d)", wins, t.Races)
	}
	if starts != t.Starts {
		return fmt.Errorf("horse starts (%d) does not match total starts (%d)", starts, t.Starts)
	}

	bucketStarts := 0
	for _, b := range t.buckets {
		bucketStarts += b.Starts
	}
	if bucketStarts != t.Starts {
		return fmt.Errorf("bucket starts (%d) does not match total starts (%d)", bucketStarts, t.Starts)
	}
	return nil
}
