package render

import "github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/drawing"

// Scratch draws an in-progress stroke over a committed canvas without
// touching the committed pixels. The buffer is reused between frames.
type Scratch struct {
	committed *Canvas
	buf       *Canvas
}

func NewScratch(committed *Canvas) *Scratch {
	return &Scratch{
		committed: committed,
		buf:       NewCanvas(committed.Width(), committed.Height()),
	}
}

// Draw returns the committed raster with stroke on top. The returned
// canvas is only valid until the next call.
func (s *Scratch) Draw(stroke drawing.Action) (*Canvas, error) {
	s.buf.CopyFrom(s.committed)
	if len(stroke.Points) == 0 {
		return s.buf, nil
	}
	if err := s.buf.Apply(stroke); err != nil {
		return s.buf, err
	}
	return s.buf, nil
}

// Rebase points the scratch at a new committed canvas, for example after
// a full replay.
func (s *Scratch) Rebase(committed *Canvas) {
	if committed.Width() != s.buf.Width() || committed.Height() != s.buf.Height() {
		s.buf.Close()
		s.buf = NewCanvas(committed.Width(), committed.Height())
	}
	s.committed = committed
}

func (s *Scratch) Close() error {
	return s.buf.Close()
}
