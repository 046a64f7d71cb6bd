package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/bootstrap"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/config"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/discovery"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/logger"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/room"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// CreateServer builds the engine with the Origin allow-list and CORS.
// Routes mounted by public are registered ahead of both and stay reachable
// without an Origin header.
func CreateServer(allowedOrigins []string, public ...func(gin.IRouter)) *gin.Engine {
	r := gin.New()
	r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	r.GET("/health", func(ctx *gin.Context) { ctx.String(200, "healthy") })
	for _, mount := range public {
		mount(r)
	}

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

// NewRouter wires the canvas endpoints onto CreateServer.
func NewRouter(env config.Env, relay *room.Relay) *gin.Engine {
	handler := room.NewHandler(relay, room.HandlerConfig{
		SendBuffer:   env.SendBuffer,
		PingInterval: env.PingInterval,
		CanvasWidth:  env.CanvasWidth,
		CanvasHeight: env.CanvasHeight,
	})

	r := CreateServer(env.AllowedOrigins, handler.RegisterExportRoutes)
	handler.RegisterRoutes(r)
	r.GET("/invite", bootstrap.InviteHandler(env.InviteBase()))
	return r
}

func run(ctx context.Context, env config.Env) error {
	relay := room.NewRelay(room.NewRegistry(env.RoomCapacity))

	tlsConfig, err := TLSConfig(env.TLSDomain, env.ACMEEmail)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:      fmt.Sprintf(":%d", env.Port),
		Handler:   NewRouter(env, relay),
		TLSConfig: tlsConfig,
	}

	if env.MDNSAdvertise {
		adv, err := discovery.Advertise(env.Port)
		if err != nil {
			log.Warn().Err(err).Msg("local network advertisement disabled")
		} else {
			//goland:noinspection GoUnhandledErrorResult
			defer adv.Shutdown()
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("address", server.Addr).Bool("tls", tlsConfig != nil).Int("capacity", env.RoomCapacity).Msg("server started")

		var err error
		if server.TLSConfig != nil {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Warn().Msg("shutting down, closing all connections")
		relay.CloseAll("server-shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	env, err := config.Load(ctx)
	if err != nil {
		logger.Setup(false, false)
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Setup(env.Debug, env.LogPretty)
	if !env.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(ctx, env); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("shut down cleanly")
}
