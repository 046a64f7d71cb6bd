package room

import "math/rand/v2"

var Palette = []string{
	"#EF4444",
	"#F59E0B",
	"#10B981",
	"#3B82F6",
	"#8B5CF6",
	"#EC4899",
	"#14B8A6",
	"#F97316",
	"#84CC16",
	"#6366F1",
}

// pickColor returns the first palette entry nobody holds, or a random
// entry once the palette is exhausted.
func pickColor(held map[string]bool, intn func(int) int) string {
	for _, c := range Palette {
		if !held[c] {
			return c
		}
	}
	if intn == nil {
		intn = rand.IntN
	}
	return Palette[intn(len(Palette))]
}
