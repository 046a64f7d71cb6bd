package room

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultSendBuffer   = 256
	DefaultPingInterval = 30 * time.Second
)

type WebsocketConnection interface {
	Close(code string)
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
}

// Connection is one client socket. Outbound frames share a single ordered
// queue; reliable frames may fill it completely, best-effort frames are
// dropped once it is past its high-water mark.
type Connection struct {
	id           string
	outbox       chan []byte
	highWater    int
	pingInterval time.Duration

	done      chan struct{}
	closeOnce sync.Once
	closeCode string
}

func NewConnection(id string, bufferSize int, pingInterval time.Duration) *Connection {
	if bufferSize < 1 {
		bufferSize = DefaultSendBuffer
	}
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}
	return &Connection{
		id:           id,
		outbox:       make(chan []byte, bufferSize),
		highWater:    bufferSize * 3 / 4,
		pingInterval: pingInterval,
		done:         make(chan struct{}),
	}
}

func (c *Connection) ID() string {
	return c.id
}

// SendReliable never blocks. A full queue means the peer cannot keep up,
// so the caller is expected to close the connection.
func (c *Connection) SendReliable(data []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.outbox <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendBestEffort never blocks and reports whether the frame was queued.
func (c *Connection) SendBestEffort(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	if len(c.outbox) >= c.highWater {
		return false
	}
	select {
	case c.outbox <- data:
		return true
	default:
		return false
	}
}

// Close asks the write pump to shut the socket down with code. Safe to call
// from any goroutine, including while a room lock is held.
func (c *Connection) Close(code string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		close(c.done)
	})
}

func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// ReadPump feeds every inbound frame to handle until the socket fails or
// the connection is closed.
func (c *Connection) ReadPump(socket WebsocketConnection, handle func([]byte)) {
	defer c.Close("")
	for {
		data, err := socket.Read()
		if err != nil {
			log.Debug().Err(err).Str("conn", c.id).Msg("read pump stopped")
			return
		}
		select {
		case <-c.done:
			return
		default:
		}
		handle(data)
	}
}

func (c *Connection) WritePump(socket WebsocketConnection) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case data := <-c.outbox:
			if err := socket.Write(data); err != nil {
				log.Debug().Err(err).Str("conn", c.id).Msg("write failed")
				break loop
			}
		case <-ticker.C:
			if err := socket.Ping(); err != nil {
				log.Debug().Err(err).Str("conn", c.id).Msg("ping failed")
				break loop
			}
		case <-c.done:
			break loop
		}
	}

	c.Close("")
	socket.Close(c.closeCode)
}
