package client

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const DefaultCursorInterval = 16 * time.Millisecond

// CursorThrottle forwards cursor positions at most once per interval. Moves
// arriving inside the window overwrite each other and the latest one is sent
// when the window closes. Move never blocks.
type CursorThrottle struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	send    func(x, y float64)
	timer   *time.Timer
	pending bool
	stopped bool
	x, y    float64
}

func NewCursorThrottle(interval time.Duration, send func(x, y float64)) *CursorThrottle {
	return &CursorThrottle{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		send:    send,
	}
}

func (c *CursorThrottle) Move(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.x, c.y = x, y
	if c.pending {
		return
	}

	delay := c.limiter.Reserve().Delay()
	if delay == 0 {
		c.send(x, y)
		return
	}
	c.pending = true
	c.timer = time.AfterFunc(delay, c.flush)
}

func (c *CursorThrottle) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = false
	if c.stopped {
		return
	}
	c.send(c.x, c.y)
}

// Stop discards any pending position.
func (c *CursorThrottle) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
	}
}
