package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Env struct {
	Port           int           `env:"PORT,default=5000"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS,required"`
	Debug          bool          `env:"DEBUG,default=false"`
	LogPretty      bool          `env:"LOG_PRETTY,default=false"`
	RoomCapacity   int           `env:"ROOM_CAPACITY,default=5"`
	CanvasWidth    int           `env:"CANVAS_WIDTH,default=1280"`
	CanvasHeight   int           `env:"CANVAS_HEIGHT,default=800"`
	PublicURL      string        `env:"PUBLIC_URL"`
	TLSDomain      string        `env:"TLS_DOMAIN"`
	ACMEEmail      string        `env:"ACME_EMAIL"`
	MDNSAdvertise  bool          `env:"MDNS_ADVERTISE,default=false"`
	SendBuffer     int           `env:"SEND_BUFFER,default=256"`
	PingInterval   time.Duration `env:"PING_INTERVAL,default=30s"`
}

func Load(ctx context.Context) (Env, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (Env, error) {
	env := Env{}
	if err := envconfig.ProcessWith(ctx, &env, l); err != nil {
		return env, err
	}
	if err := env.validate(); err != nil {
		return env, err
	}
	return env, nil
}

func (e Env) validate() error {
	switch {
	case e.Port < 1 || e.Port > 65535:
		return fmt.Errorf("PORT %d out of range", e.Port)
	case e.RoomCapacity < 1:
		return fmt.Errorf("ROOM_CAPACITY must be positive, got %d", e.RoomCapacity)
	case e.CanvasWidth < 1 || e.CanvasHeight < 1:
		return fmt.Errorf("canvas size %dx%d is not drawable", e.CanvasWidth, e.CanvasHeight)
	case e.SendBuffer < 4:
		return fmt.Errorf("SEND_BUFFER must be at least 4, got %d", e.SendBuffer)
	case e.PingInterval < time.Second:
		return fmt.Errorf("PING_INTERVAL %s is too short", e.PingInterval)
	}
	return nil
}

// InviteBase is the origin invite links point at: PUBLIC_URL when set,
// otherwise the first allowed origin.
func (e Env) InviteBase() string {
	if e.PublicURL != "" {
		return e.PublicURL
	}
	if len(e.AllowedOrigins) > 0 {
		return e.AllowedOrigins[0]
	}
	return fmt.Sprintf("http://localhost:%d", e.Port)
}
