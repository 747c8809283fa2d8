package transport

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/example/alertvoice/internal/protocol"
)

const writeTimeout = 5 * time.Second

// Dispatch is the subset of internal/dispatcher.Dispatcher used by the
// websocket handler to react to inbound client messages.
type Dispatch interface {
	PlayComplete(id string)
	ClientError(id string)
	Snapshot() *protocol.Message
	Skip()
	Clear()
}

// Handler serves the overlay websocket endpoint, fanning Hub broadcasts
// out to each connection and feeding inbound acks to the dispatcher
// (spec.md §4.7/§6).
type Handler struct {
	hub        *Hub
	dispatcher Dispatch
	upgrader   websocket.Upgrader
}

// NewHandler creates a websocket handler bound to hub and dispatcher.
func NewHandler(hub *Hub, dispatcher Dispatch) *Handler {
	return &Handler{
		hub:        hub,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
}

// Register binds the websocket route on an Echo router.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket upgrades one request and serves it until disconnect.
func (h *Handler) HandleWebSocket(c echo.Context) error {
	remoteAddr := c.RealIP()
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("transport: ws upgrade failed", "remote", remoteAddr, "err", err)
		return fmt.Errorf("upgrade websocket: %w", err)
	}
	h.serveConn(conn, remoteAddr)
	return nil
}

func (h *Handler) serveConn(conn *websocket.Conn, remoteAddr string) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Time{})
	conn.SetReadLimit(1 << 16)

	id, send := h.hub.Register()
	defer h.hub.Unregister(id)
	slog.Info("transport: overlay client connected", "client_id", id, "remote", remoteAddr)
	defer slog.Info("transport: overlay client disconnected", "client_id", id, "remote", remoteAddr)

	go func() {
		for out := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(out); err != nil {
				slog.Debug("transport: ws write error", "client_id", id, "type", out.Type, "err", err)
				return
			}
		}
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteJSON(protocol.Message{Type: protocol.TypeSnapshot})
	snapshot := h.dispatcher.Snapshot()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteJSON(snapshot)

	for {
		var in protocol.Message
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("transport: ws unexpected close", "client_id", id, "err", err)
			}
			return
		}
		h.handleInbound(in)
	}
}

func (h *Handler) handleInbound(in protocol.Message) {
	switch in.Type {
	case protocol.TypePlayComplete:
		h.dispatcher.PlayComplete(in.ID)

	case protocol.TypeError:
		slog.Debug("transport: client reported playback error", "id", in.ID, "error", in.Error)
		h.dispatcher.ClientError(in.ID)

	case protocol.TypeReady:
		// acknowledged; no action required

	default:
		slog.Warn("transport: unknown inbound message type", "type", in.Type)
	}
}
