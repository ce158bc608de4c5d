// Package signal is the WebSocket signaling adapter. It authorizes the
// handshake before upgrading, then pumps JSON events between the peer
// and the live session coordinator.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/carelink/telesignal/internal/app"
	"github.com/carelink/telesignal/internal/auth"
	"github.com/carelink/telesignal/internal/core"
	"github.com/carelink/telesignal/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Gate  *auth.Gate
	Coord *app.Coordinator

	ReadLimit  int64
	PingPeriod time.Duration
}

// wsConn implements core.SignalSender over a gorilla connection.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// client is the per-connection state: the verified principal plus the
// room the connection was authorized for. joined flips only inside the
// read pump goroutine.
type client struct {
	socketID      string
	principal     domain.Principal
	appointmentID string
	roomCode      string
	conn          *wsConn
	joined        bool
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal validates {token, appointmentId, roomId} and only then
// upgrades. A rejected handshake answers plain HTTP with the distinct
// reason; no event handler ever runs for it.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.Query("token")
	appointmentID := c.Query("appointmentId")
	roomID := c.Query("roomId")
	if appointmentID == "" || roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "appointmentId and roomId required"})
		return
	}

	principal, err := ctl.Gate.Authorize(c.Request.Context(), token, appointmentID, roomID)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").
			Str("appointment", appointmentID).Str("room", roomID).
			Msg("handshake rejected")
		c.JSON(rejectStatus(err), gin.H{"error": err.Error()})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	cl := &client{
		socketID:      uuid.NewString(),
		principal:     *principal,
		appointmentID: appointmentID,
		roomCode:      roomID,
		conn: &wsConn{
			conn: ws,
			send: make(chan core.Frame, 32),
		},
	}
	log.Info().Str("module", "signal").
		Str("socket", cl.socketID).Str("user", principal.UserID).
		Str("room", roomID).Msg("ws connection established")

	connCtx, cancel := context.WithCancel(ctx)
	go ctl.writePump(connCtx, cl.conn)
	go ctl.readPump(connCtx, cancel, cl)
}

func rejectStatus(err error) int {
	switch {
	case domain.IsAuthentication(err):
		return http.StatusUnauthorized
	case domain.IsAuthorization(err):
		return http.StatusForbidden
	case domain.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
