package render

import (
	"fmt"

	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/drawing"
	"github.com/gogpu/gg"
	"github.com/rs/zerolog/log"
)

// Render replays actions, strictly in order, onto a fresh transparent
// canvas. Identical input always yields identical pixels.
func Render(width, height int, actions []drawing.Action) *Canvas {
	c := NewCanvas(width, height)
	c.Replay(actions)
	c.Close()
	return c
}

// Replay applies actions on top of the current pixels. Invalid actions
// are skipped.
func (c *Canvas) Replay(actions []drawing.Action) {
	for i, a := range actions {
		if err := c.Apply(a); err != nil {
			log.Warn().Err(err).Int("index", i).Msg("skipping action during replay")
		}
	}
}

func (c *Canvas) Apply(a drawing.Action) error {
	if err := a.Validate(); err != nil {
		return err
	}

	switch a.Tool {
	case drawing.ToolBrush:
		dc := c.context()
		dc.SetHexColor(a.Color)
		return trace(dc, a)
	case drawing.ToolEraser:
		return c.erase(a)
	case drawing.ToolFill:
		c.FloodFill(*a.FillPoint, a.Color)
		return nil
	}
	return fmt.Errorf("%w: unknown tool %q", drawing.ErrMalformedAction, a.Tool)
}

// trace paints a stroke with the context's current color: a disc for a
// single point, otherwise a round-capped round-joined polyline.
func trace(dc *gg.Context, a drawing.Action) error {
	size := float64(a.Size)
	first := a.Points[0]

	if len(a.Points) == 1 {
		dc.DrawCircle(first.X, first.Y, size/2)
		return dc.Fill()
	}

	dc.SetLineWidth(size)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	dc.MoveTo(first.X, first.Y)
	for _, p := range a.Points[1:] {
		dc.LineTo(p.X, p.Y)
	}
	return dc.Stroke()
}

// erase is destination-out: every premultiplied channel is scaled by the
// inverse of the stroke's coverage.
func (c *Canvas) erase(a drawing.Action) error {
	mask, mdc := c.maskContext()
	mask.Clear(gg.Transparent)

	mdc.SetRGBA(1, 1, 1, 1)
	if err := trace(mdc, a); err != nil {
		return err
	}

	dst := c.pixmap.Data()
	cov := mask.Data()
	for i := 3; i < len(dst); i += 4 {
		m := cov[i]
		if m == 0 || dst[i] == 0 {
			continue
		}
		keep := uint32(255 - m)
		for j := i - 3; j <= i; j++ {
			dst[j] = uint8((uint32(dst[j])*keep + 127) / 255)
		}
		if dst[i] == 0 {
			dst[i-3], dst[i-2], dst[i-1] = 0, 0, 0
		}
	}
	return nil
}
