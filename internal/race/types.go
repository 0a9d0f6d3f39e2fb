package race

// Status is the lifecycle of a single race within the program.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

func (s Status) String() string {
	return string(s)
}

// Horse is a competitor. The roster owns the canonical copy; each race holds
// its own copy so Position and FinishTime never leak between rounds.
type Horse struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Condition int    `json:"condition"` // 1-100, fixed for the tournament
	Color     string `json:"color"`

	Position   float64 `json:"position"`    // progress 0-100 within the active race
	FinishTime float64 `json:"finish_time"` // milliseconds, zero until simulated
}

// HasFinishTime reports whether the outcome simulator has set a finish time.
func (h Horse) HasFinishTime() bool {
	return h.FinishTime > 0
}

// Result is one line of a completed race's ranking.
type Result struct {
	Rank      int     `json:"rank"`
	HorseName string  `json:"horse_name"`
	HorseID   int     `json:"horse_id"`
	Time      float64 `json:"time"` // milliseconds
}

// Race is one round of the program.
type Race struct {
	Round    int      `json:"round"`    // 1-based
	Distance int      `json:"distance"` // meters
	Horses   []Horse  `json:"horses"`
	Status   Status   `json:"status"`
	Results  []Result `json:"results,omitempty"`
}

// IsPending reports whether the race has not been started yet.
func (r *Race) IsPending() bool {
	return r.Status == StatusPending
}

// IsRunning reports whether the race is the one currently being animated.
func (r *Race) IsRunning() bool {
	return r.Status == StatusRunning
}

// IsCompleted reports whether results have been recorded.
func (r *Race) IsCompleted() bool {
	return r.Status == StatusCompleted && r.Results != nil
}

// Horse returns a pointer to the participant with the given id, or nil.
func (r *Race) Horse(id int) *Horse {
	for i := range r.Horses {
		if r.Horses[i].ID == id {
			return &r.Horses[i]
		}
	}
	return nil
}

// Clone returns a deep copy, used for history snapshots and read models.
func (r *Race) Clone() Race {
	c := *r
	c.Horses = append([]Horse(nil), r.Horses...)
	if r.Results != nil {
		c.Results = append([]Result(nil), r.Results...)
	}
	return c
}

// RankResults turns a fastest-first ordering into ranked results.
func RankResults(ordering []Horse) []Result {
	results := make([]Result, len(ordering))
	for i, h := range ordering {
		results[i] = Result{
			Rank:      i + 1,
			HorseName: h.Name,
			HorseID:   h.ID,
			Time:      h.FinishTime,
		}
	}
	return results
}
