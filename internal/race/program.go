package race

import "github.com/lox/horserace/internal/randutil"

// FieldSize is the maximum number of runners per race.
const FieldSize = 10

// Distances is the fixed, ascending sequence of round distances in meters.
var Distances = []int{1200, 1400, 1600, 1800, 2000, 2200}

// BuildProgram returns one pending race per entry in Distances, each with its
// own sample of runners. The roster is not modified.
func BuildProgram(roster []Horse, rng randutil.Source) []*Race {
	program := make([]*Race, len(Distances))
	for i, distance := range Distances {
		program[i] = &Race{
			Round:    i + 1,
			Distance: distance,
			Horses:   SelectHorses(roster, FieldSize, rng),
			Status:   StatusPending,
		}
	}
	return program
}

// SelectHorses draws min(count, len(roster)) horses without replacement using
// a Fisher-Yates shuffle of a copy. Race-scoped fields are reset on the copies.
func SelectHorses(roster []Horse, count int, rng randutil.Source) []Horse {
	if count > len(roster) {
		count = len(roster)
	}
	if count <= 0 {
		return []Horse{}
	}

	shuffled := make([]Horse, len(roster))
	copy(shuffled, roster)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	field := shuffled[:count:count]
	for i := range field {
		field[i].Position = 0
		field[i].FinishTime = 0
	}
	return field
}
