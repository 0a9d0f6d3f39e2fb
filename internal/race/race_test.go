package race

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/horserace/internal/randutil"
)

// fixedSource returns the same float for every draw and never shuffles.
type fixedSource struct {
	f float64
}

func (s fixedSource) IntN(n int) int                     { return int(s.f * float64(n)) }
func (s fixedSource) Float64() float64                   { return s.f }
func (s fixedSource) Shuffle(n int, swap func(i, j int)) {}

func TestGenerateRoster(t *testing.T) {
	for seed := int64(0); seed < 25; seed++ {
		roster := GenerateRoster(randutil.New(seed))
		require.Len(t, roster, RosterSize)

		names := make(map[string]bool)
		for i, h := range roster {
			assert.Equal(t, i+1, h.ID)
			assert.GreaterOrEqual(t, h.Condition, 1)
			assert.LessOrEqual(t, h.Condition, 100)
			assert.Equal(t, Palette[i], h.Color)
			assert.Zero(t, h.Position)
			assert.False(t, h.HasFinishTime())
			assert.False(t, names[h.Name], "duplicate name %s", h.Name)
			names[h.Name] = true
		}
	}
}

func TestGenerateRosterConditionBounds(t *testing.T) {
	low := GenerateRoster(fixedSource{f: 0})
	high := GenerateRoster(fixedSource{f: 0.999999})
	for i := range low {
		assert.Equal(t, 1, low[i].Condition)
		assert.Equal(t, 100, high[i].Condition)
	}
}

func TestColorForFallsBack(t *testing.T) {
	assert.Equal(t, "#FF6B6B", ColorFor(0))
	assert.Equal(t, FallbackColor, ColorFor(len(Palette)))
	assert.Equal(t, FallbackColor, ColorFor(-1))
}

func TestBuildProgram(t *testing.T) {
	rng := randutil.New(3)
	roster := GenerateRoster(rng)
	before := append([]Horse(nil), roster...)

	program := BuildProgram(roster, rng)
	require.Len(t, program, len(Distances))

	rosterIDs := make(map[int]bool)
	for _, h := range roster {
		rosterIDs[h.ID] = true
	}

	for i, r := range program {
		assert.Equal(t, i+1, r.Round)
		assert.Equal(t, []int{1200, 1400, 1600, 1800, 2000, 2200}[i], r.Distance)
		assert.Equal(t, StatusPending, r.Status)
		assert.Nil(t, r.Results)
		require.Len(t, r.Horses, FieldSize)

		seen := make(map[int]bool)
		for _, h := range r.Horses {
			assert.True(t, rosterIDs[h.ID], "horse %d not in roster", h.ID)
			assert.False(t, seen[h.ID], "horse %d sampled twice", h.ID)
			seen[h.ID] = true
			assert.Zero(t, h.Position)
			assert.Zero(t, h.FinishTime)
		}
	}

	assert.Equal(t, before, roster, "roster must not be reordered or modified")
}

func TestSelectHorsesSmallRoster(t *testing.T) {
	roster := GenerateRoster(randutil.New(1))[:4]
	field := SelectHorses(roster, FieldSize, randutil.New(2))
	assert.Len(t, field, 4)

	assert.Empty(t, SelectHorses(nil, FieldSize, randutil.New(2)))
}

func TestSelectHorsesResetsRaceScopedFields(t *testing.T) {
	roster := GenerateRoster(randutil.New(1))
	for i := range roster {
		roster[i].Position = 55
		roster[i].FinishTime = 1234
	}

	field := SelectHorses(roster, FieldSize, randutil.New(9))
	for _, h := range field {
		assert.Zero(t, h.Position)
		assert.Zero(t, h.FinishTime)
	}
	assert.Equal(t, 55.0, roster[0].Position, "copies only")
}

func TestSimulateOrdering(t *testing.T) {
	rng := randutil.New(11)
	roster := GenerateRoster(rng)
	for _, r := range BuildProgram(roster, rng) {
		snapshot := r.Clone()
		ordering := Simulate(r, rng)

		require.Len(t, ordering, len(r.Horses))
		for i, h := range ordering {
			assert.Greater(t, h.FinishTime, 0.0)
			assert.Zero(t, h.Position)
			if i > 0 {
				assert.LessOrEqual(t, ordering[i-1].FinishTime, h.FinishTime)
			}
		}
		assert.Equal(t, snapshot, r.Clone(), "input race must not change")
	}
}

func TestSimulateFormula(t *testing.T) {
	tests := []struct {
		name      string
		condition int
		distance  int
		draw      float64
		expected  float64
	}{
		// speed = 1.0 * 1.0 * 0.8
		{name: "reference distance minimum draws", condition: 50, distance: 1700, draw: 0, expected: 13600 / 0.8},
		// speed = 1.5 * (1 + 0.05 + 0.15) * 1.0
		{name: "long race midpoint draws", condition: 100, distance: 2200, draw: 0.5, expected: 17600 / (1.5 * 1.2 * 1.0)},
		// speed = 0.51 * (1 - 0.05) * 0.8
		{name: "short race weakest horse", condition: 1, distance: 1200, draw: 0, expected: 9600 / (0.51 * 0.95 * 0.8)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Race{Distance: tt.distance, Horses: []Horse{{ID: 1, Condition: tt.condition}}}
			ordering := Simulate(r, fixedSource{f: tt.draw})
			require.Len(t, ordering, 1)
			assert.InDelta(t, tt.expected, ordering[0].FinishTime, 1e-6)
		})
	}
}

func TestSimulateStableForTies(t *testing.T) {
	r := &Race{Distance: 1600, Horses: []Horse{
		{ID: 3, Condition: 40},
		{ID: 1, Condition: 40},
		{ID: 2, Condition: 40},
	}}
	ordering := Simulate(r, fixedSource{f: 0.25})
	assert.Equal(t, []int{3, 1, 2}, []int{ordering[0].ID, ordering[1].ID, ordering[2].ID})
}

func TestRankResults(t *testing.T) {
	ordering := []Horse{
		{ID: 7, Name: "Ken Thompson", FinishTime: 900},
		{ID: 2, Name: "Grace Hopper", FinishTime: 950},
	}
	results := RankResults(ordering)
	assert.Equal(t, []Result{
		{Rank: 1, HorseName: "Ken Thompson", HorseID: 7, Time: 900},
		{Rank: 2, HorseName: "Grace Hopper", HorseID: 2, Time: 950},
	}, results)
}

func TestRaceHelpers(t *testing.T) {
	r := &Race{Round: 1, Distance: 1200, Status: StatusPending, Horses: []Horse{{ID: 4}, {ID: 9}}}
	assert.True(t, r.IsPending())
	assert.NotNil(t, r.Horse(9))
	assert.Nil(t, r.Horse(10))

	clone := r.Clone()
	clone.Horses[0].Position = 50
	assert.Zero(t, r.Horses[0].Position)

	assert.Equal(t, 0.0, SlowestFinishTime(nil))
	assert.Equal(t, 30.0, SlowestFinishTime([]Horse{{FinishTime: 10}, {FinishTime: 30}, {FinishTime: 20}}))
}
