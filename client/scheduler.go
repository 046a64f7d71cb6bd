package client

// Scheduler coalesces redraw requests. Any number of MarkDirty calls between
// two ticks produce a single draw; a MarkDirty issued while drawing is kept
// for the next tick.
type Scheduler struct {
	dirty   bool
	draw    func()
	redraws uint64
}

func NewScheduler(draw func()) *Scheduler {
	return &Scheduler{draw: draw}
}

func (s *Scheduler) MarkDirty() {
	s.dirty = true
}

func (s *Scheduler) Dirty() bool {
	return s.dirty
}

// Tick redraws if something changed since the last tick.
func (s *Scheduler) Tick() bool {
	if !s.dirty {
		return false
	}
	s.dirty = false
	s.redraws++
	s.draw()
	return true
}

func (s *Scheduler) Redraws() uint64 {
	return s.redraws
}
