package render

import (
	"math"

	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/drawing"
)

// FillTolerance is the exclusive per-channel distance from the seed color
// that still counts as the same region.
const FillTolerance = 15

type pixel struct {
	x, y int
}

// FloodFill repaints the 4-connected region around at with hex, opaque.
// Pixels are compared in straight alpha. It reports whether anything
// changed. Seeds outside the canvas and seeds already showing the opaque
// fill color are no-ops.
func (c *Canvas) FloodFill(at drawing.Point, hex string) bool {
	x, y := int(math.Floor(at.X)), int(math.Floor(at.Y))
	if !c.inBounds(x, y) {
		return false
	}

	data := c.pixmap.Data()
	fill := rgbaBytes(hex)
	i := c.offset(x, y)
	target := unpremultiply(data[i : i+4])
	if target == fill {
		return false
	}

	visited := make([]bool, c.width*c.height)
	stack := []pixel{{x, y}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !c.inBounds(p.x, p.y) {
			continue
		}
		k := p.y*c.width + p.x
		if visited[k] {
			continue
		}
		visited[k] = true

		o := k * 4
		if !near(unpremultiply(data[o:o+4]), target) {
			continue
		}
		// opaque, so premultiplied and straight bytes coincide
		copy(data[o:o+4], fill[:])

		stack = append(stack,
			pixel{p.x, p.y + 1},
			pixel{p.x, p.y - 1},
			pixel{p.x + 1, p.y},
			pixel{p.x - 1, p.y},
		)
	}
	return true
}

func near(px, target [4]uint8) bool {
	for ch := range 4 {
		d := int(px[ch]) - int(target[ch])
		if d <= -FillTolerance || d >= FillTolerance {
			return false
		}
	}
	return true
}
