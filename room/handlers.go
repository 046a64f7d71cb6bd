package room

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/export"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"
)

type HandlerConfig struct {
	SendBuffer   int
	PingInterval time.Duration
	CanvasWidth  int
	CanvasHeight int
}

type Handler struct {
	relay    *Relay
	config   HandlerConfig
	upgrader websocket.Upgrader
	newID    func() string
}

func NewHandler(relay *Relay, config HandlerConfig) *Handler {
	if config.PingInterval <= 0 {
		config.PingInterval = DefaultPingInterval
	}
	if config.SendBuffer < 1 {
		config.SendBuffer = DefaultSendBuffer
	}
	if config.CanvasWidth < 1 || config.CanvasHeight < 1 {
		config.CanvasWidth, config.CanvasHeight = 1280, 800
	}
	return &Handler{
		relay:  relay,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// origins are enforced by the router middleware
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		newID: func() string { return ksuid.New().String() },
	}
}

// WebsocketHandler serves one client for the lifetime of its socket.
func (h *Handler) WebsocketHandler(ctx *gin.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("ip", ctx.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	socket := NewGorillaWebSocketWrapper(conn, 2*h.config.PingInterval)
	c := NewConnection(h.newID(), h.config.SendBuffer, h.config.PingInterval)
	h.relay.Attach(c)
	log.Info().Str("conn", c.ID()).Str("ip", ctx.ClientIP()).Msg("client connected")

	wg := sync.WaitGroup{}
	wg.Go(func() {
		c.WritePump(socket)
	})
	c.ReadPump(socket, func(data []byte) {
		h.relay.HandleRaw(c.ID(), data)
	})

	h.relay.Detach(c.ID())
	wg.Wait()
	log.Info().Str("conn", c.ID()).Msg("client disconnected")
}

func (h *Handler) RoomInfoHandler(ctx *gin.Context) {
	info, ok := h.relay.Registry().Info(ctx.Param("roomid"))
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": ErrRoomNotFound.Error()})
		return
	}
	ctx.JSON(http.StatusOK, info)
}

func (h *Handler) StatsHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.relay.Registry().Stats())
}

func (h *Handler) ExportPNGHandler(ctx *gin.Context) {
	roomID := ctx.Param("roomid")
	actions, ok := h.relay.Registry().Snapshot(roomID)
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": ErrRoomNotFound.Error()})
		return
	}

	var buf bytes.Buffer
	if err := export.PNG(&buf, actions, h.config.CanvasWidth, h.config.CanvasHeight); err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("png export failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "export-failed"})
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="canvas-%s.png"`, roomID))
	ctx.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (h *Handler) ExportPDFHandler(ctx *gin.Context) {
	roomID := ctx.Param("roomid")
	actions, ok := h.relay.Registry().Snapshot(roomID)
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": ErrRoomNotFound.Error()})
		return
	}

	var buf bytes.Buffer
	title := fmt.Sprintf("Canvas %s", roomID)
	if err := export.PDF(&buf, actions, h.config.CanvasWidth, h.config.CanvasHeight, title); err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("pdf export failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "export-failed"})
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="canvas-%s.pdf"`, roomID))
	ctx.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// RegisterRoutes mounts the websocket and room info endpoints on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws", h.WebsocketHandler)
	r.GET("/rooms", h.StatsHandler)
	r.GET("/rooms/:roomid", h.RoomInfoHandler)
}

// RegisterExportRoutes mounts the PNG and PDF downloads. A plain navigation
// sends no Origin header, so mount these ahead of any Origin check.
func (h *Handler) RegisterExportRoutes(r gin.IRouter) {
	rooms := r.Group("/rooms/:roomid")
	rooms.GET("/export.png", h.ExportPNGHandler)
	rooms.GET("/export.pdf", h.ExportPDFHandler)
}
