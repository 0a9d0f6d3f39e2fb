package race

import "github.com/lox/horserace/internal/randutil"

// RosterSize is the number of horses in every session.
const RosterSize = 20

// FallbackColor is used for roster positions beyond the palette.
const FallbackColor = "#999999"

var horseNames = [RosterSize]string{
	"Ada Lovelace",
	"Grace Hopper",
	"Alan Turing",
	"Margaret Hamilton",
	"Donald Knuth",
	"John von Neumann",
	"Claude Shannon",
	"Barbara Liskov",
	"Edsger Dijkstra",
	"Frances Allen",
	"Tim Berners-Lee",
	"Dennis Ritchie",
	"Ken Thompson",
	"Joan Clarke",
	"Hedy Lamarr",
	"Katherine Johnson",
	"Annie Easley",
	"Ada Yonath",
	"Rear Admiral Hopper",
	"Dorothy Vaughan",
}

// Palette is indexed by roster position.
var Palette = []string{
	"#FF6B6B", // red
	"#4ECDC4", // teal
	"#FFE66D", // yellow
	"#A8E6CF", // mint
	"#FF8B94", // pink
	"#C7CEEA", // lavender
	"#FFDAC1", // peach
	"#B4F8C8", // light green
	"#FBE7C6", // cream
	"#A0E7E5", // aqua
	"#FFAEBC", // rose
	"#B4A7D6", // purple
	"#FFD3B6", // apricot
	"#DCEDC1", // lime
	"#FFA8A8", // coral
	"#A8DADC", // sky blue
	"#F4ACB7", // salmon
	"#D4A5A5", // dusty rose
	"#9EE09E", // sage
	"#FFB6B9", // blush
}

// GenerateRoster returns the session's horses with ids 1..RosterSize and a
// condition drawn uniformly from [1,100] for each.
func GenerateRoster(rng randutil.Source) []Horse {
	roster := make([]Horse, RosterSize)
	for i, name := range horseNames {
		roster[i] = Horse{
			ID:        i + 1,
			Name:      name,
			Condition: rng.IntN(100) + 1,
			Color:     ColorFor(i),
		}
	}
	return roster
}

// ColorFor cycles through the palette by roster index.
func ColorFor(index int) string {
	if index < 0 || index >= len(Palette) {
		return FallbackColor
	}
	return Palette[index]
}
