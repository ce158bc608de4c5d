package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/carelink/telesignal/internal/core"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	pingPeriod := ctl.PingPeriod
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump processes events from one connection in arrival order. Its
// exit is the only leave path: the deferred disconnect drives removal,
// promotion and fanout.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, cl *client) {
	defer func() {
		log.Info().Str("module", "signal").Str("socket", cl.socketID).Msg("readPump closing")
		ctl.onDisconnect(cl)
		cancel()
		cl.conn.Close()
	}()

	if ctl.PingPeriod > 0 {
		readWait := ctl.PingPeriod + writeWait
		_ = cl.conn.conn.SetReadDeadline(time.Now().Add(readWait))
		cl.conn.conn.SetPongHandler(func(string) error {
			return cl.conn.conn.SetReadDeadline(time.Now().Add(readWait))
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := cl.conn.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("socket", cl.socketID).Msg("readPump read error")
				return
			}
			ctl.dispatch(cl, data)
		}
	}
}

func (ctl *Controller) dispatch(cl *client, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		ctl.sendError(cl.conn, "malformed event payload")
		return
	}

	switch env.Type {
	case evtJoinRoom:
		ctl.handleJoin(cl, data)
	case evtOffer, evtAnswer, evtICECandidate, evtReady:
		ctl.handleRelay(cl, env.Type, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal event")
		ctl.sendError(cl.conn, "unknown event type")
	}
}

func (ctl *Controller) sendJSON(c core.SignalSender, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("sendJSON dropped")
	}
}

func (ctl *Controller) sendError(c core.SignalSender, msg string) {
	ctl.sendJSON(c, errorEvent{Type: evtError, Message: msg})
}
