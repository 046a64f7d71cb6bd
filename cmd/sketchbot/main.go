// Command sketchbot joins a canvas room as a headless member, draws a few
// strokes and a fill, and optionally saves the resulting canvas as PNG.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/bootstrap"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/client"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/discovery"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/drawing"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/export"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/logger"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/protocol"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type options struct {
	server  string
	origin  string
	room    string
	name    string
	strokes int
	width   int
	height  int
	seed    uint64
	output  string
	linger  time.Duration
}

func main() {
	var o options
	flag.StringVar(&o.server, "server", "", "relay websocket url; discovered on the LAN when empty")
	flag.StringVar(&o.origin, "origin", "http://localhost:3000", "Origin header sent to the relay")
	flag.StringVar(&o.room, "room", "", "room to join; a fresh one is created when empty")
	flag.StringVar(&o.name, "name", "", "display name; a random one when empty")
	flag.IntVar(&o.strokes, "strokes", 5, "number of strokes to draw")
	flag.IntVar(&o.width, "width", 1280, "canvas width")
	flag.IntVar(&o.height, "height", 800, "canvas height")
	flag.Uint64Var(&o.seed, "seed", uint64(time.Now().UnixNano()), "random seed for the drawing")
	flag.StringVar(&o.output, "output", "", "write the final canvas to this PNG file")
	flag.DurationVar(&o.linger, "linger", time.Second, "how long to stay after drawing")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	logger.Setup(*debug, true)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	if err := run(ctx, o); err != nil {
		log.Fatal().Err(err).Msg("sketchbot failed")
	}
}

func run(ctx context.Context, o options) error {
	if o.server == "" {
		addr, err := discovery.Browse(ctx, 3*time.Second)
		if err != nil {
			return fmt.Errorf("no -server given and discovery failed: %w", err)
		}
		o.server = "ws://" + addr + "/ws"
	}

	roomID, generated := bootstrap.RoomID(url.Values{"room": {o.room}})
	if generated {
		invite, err := bootstrap.InviteLink(o.origin, roomID)
		if err != nil {
			return err
		}
		log.Info().Str("room", roomID).Str("invite", invite).Msg("created a new room")
	}
	if o.name == "" {
		o.name = bootstrap.DisplayName(nil)
	}

	transport := client.NewTransport(o.server, client.WithOrigin(o.origin))
	session := client.NewSession(transport, client.SessionConfig{
		RoomID:   roomID,
		Username: o.name,
		OnChat: func(m protocol.ChatMessage) {
			log.Info().Str("from", m.Username).Str("at", m.Timestamp).Msg(m.Message)
		},
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return transport.Run(gctx) })
	g.Go(func() error { return session.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		return sketch(gctx, session, o)
	})

	return g.Wait()
}

func sketch(ctx context.Context, s *client.Session, o options) error {
	view, err := waitJoined(ctx, s)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, client.ErrSessionClosed) {
			return nil
		}
		return err
	}
	log.Info().Str("user", view.SelfID).Str("color", view.Color).Int("actions", len(view.Actions)).Msg("drawing")

	rng := rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15))
	for range o.strokes {
		stroke := randomStroke(rng, view.Color, o.width, o.height)
		for _, p := range stroke.Points {
			s.MoveCursor(p.X, p.Y)
			if !pause(ctx, 10*time.Millisecond) {
				return nil
			}
		}
		if err := s.Draw(stroke); err != nil {
			return err
		}
	}

	fill := drawing.NewFill(view.Color, 1, drawing.Point{X: float64(o.width - 1), Y: float64(o.height - 1)})
	if err := s.Draw(fill); err != nil {
		return err
	}
	if err := s.SendChat(fmt.Sprintf("%s drew %d strokes", view.Color, o.strokes)); errors.Is(err, client.ErrNotJoined) {
		log.Warn().Msg("connection lost, summary not posted")
	} else if err != nil {
		return err
	}

	if !pause(ctx, o.linger) {
		return nil
	}
	if o.output != "" {
		if err := save(ctx, s, o); err != nil {
			return err
		}
	}
	return s.Leave()
}

func waitJoined(ctx context.Context, s *client.Session) (client.View, error) {
	for {
		view, err := s.View(ctx)
		if err != nil {
			return client.View{}, err
		}
		switch view.State {
		case client.StateJoined:
			return view, nil
		case client.StateRejected:
			return client.View{}, fmt.Errorf("%w: %s", client.ErrRejected, view.Rejection)
		}
		if !pause(ctx, 50*time.Millisecond) {
			return client.View{}, ctx.Err()
		}
	}
}

func randomStroke(rng *rand.Rand, color string, width, height int) drawing.Action {
	n := 8 + rng.IntN(24)
	points := make([]drawing.Point, n)
	x, y := rng.Float64()*float64(width), rng.Float64()*float64(height)
	for i := range points {
		x = clamp(x+rng.NormFloat64()*12, 0, float64(width-1))
		y = clamp(y+rng.NormFloat64()*12, 0, float64(height-1))
		points[i] = drawing.Point{X: x, Y: y}
	}
	return drawing.NewStroke(drawing.ToolBrush, color, 2+rng.IntN(10), points...)
}

func save(ctx context.Context, s *client.Session, o options) error {
	view, err := s.View(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(o.output)
	if err != nil {
		return err
	}
	if err := export.PNG(f, view.Actions, o.width, o.height); err != nil {
		return errors.Join(err, f.Close())
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info().Str("file", o.output).Int("actions", len(view.Actions)).Msg("canvas saved")
	return nil
}

func pause(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
