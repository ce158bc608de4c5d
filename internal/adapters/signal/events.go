package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/carelink/telesignal/internal/core"
	"github.com/carelink/telesignal/internal/domain"
)

// Client -> server event types.
const (
	evtJoinRoom     = "joinRoom"
	evtOffer        = "offer"
	evtAnswer       = "answer"
	evtICECandidate = "iceCandidate"
	evtReady        = "ready"
)

// Server -> client event types.
const (
	evtJoinAck           = "joinAck"
	evtRoomFull          = "roomFull"
	evtParticipantJoined = "participantJoined"
	evtRoomUpdate        = "roomUpdate"
	evtPeerLeft          = "peerLeft"
	evtRoleChanged       = "roleChanged"
	evtError             = "error"
)

type joinPayload struct {
	AppointmentID string `json:"appointmentId"`
	RoomID        string `json:"roomId"`
}

// relayPayload covers offer/answer/iceCandidate. The body is carried
// as raw JSON: the coordinator relays it verbatim and never inspects
// SDP or ICE semantics.
type relayPayload struct {
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

type joinAckEvent struct {
	Type             string        `json:"type"`
	Success          bool          `json:"success"`
	IsInitiator      bool          `json:"isInitiator,omitempty"`
	Role             core.CallRole `json:"role,omitempty"`
	ParticipantCount int           `json:"participantCount,omitempty"`
	Error            string        `json:"error,omitempty"`
}

type participantJoinedEvent struct {
	Type        string        `json:"type"`
	SocketID    string        `json:"socketId"`
	UserID      string        `json:"userId"`
	UserRole    domain.Role   `json:"userRole"`
	Role        core.CallRole `json:"role"`
	IsInitiator bool          `json:"isInitiator"`
}

type roomUpdateEvent struct {
	Type             string `json:"type"`
	ParticipantCount int    `json:"participantCount"`
	MaxParticipants  int    `json:"maxParticipants"`
}

type relayEvent struct {
	Type      string          `json:"type"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	From      string          `json:"from"`
}

type peerLeftEvent struct {
	Type                  string      `json:"type"`
	SocketID              string      `json:"socketId"`
	UserID                string      `json:"userId"`
	UserRole              domain.Role `json:"userRole"`
	Reason                string      `json:"reason"`
	RemainingParticipants int         `json:"remainingParticipants"`
}

type roleChangedEvent struct {
	Type        string        `json:"type"`
	NewRole     core.CallRole `json:"newRole"`
	IsInitiator bool          `json:"isInitiator"`
	Reason      string        `json:"reason"`
}

type roomFullEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (ctl *Controller) handleJoin(cl *client, data []byte) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.AppointmentID == "" || p.RoomID == "" {
		ctl.sendError(cl.conn, "malformed join payload")
		return
	}
	if cl.joined {
		ctl.sendError(cl.conn, "already joined a room")
		return
	}
	// A join for any room other than the one this connection was
	// authorized for is rejected without mutation.
	if p.AppointmentID != cl.appointmentID || p.RoomID != cl.roomCode {
		ctl.sendError(cl.conn, domain.ErrRoomMismatch.Error())
		return
	}

	member := &core.Member{
		SocketID: cl.socketID,
		UserID:   cl.principal.UserID,
		Role:     cl.principal.Role,
		Conn:     cl.conn,
	}
	res, err := ctl.Coord.Join(cl.roomCode, member)
	if err != nil {
		// Capacity is reported synchronously; the socket stays open.
		ctl.sendJSON(cl.conn, joinAckEvent{Type: evtJoinAck, Success: false, Error: err.Error()})
		ctl.sendJSON(cl.conn, roomFullEvent{Type: evtRoomFull, Message: err.Error()})
		return
	}
	cl.joined = true

	ctl.sendJSON(cl.conn, joinAckEvent{
		Type:             evtJoinAck,
		Success:          true,
		IsInitiator:      res.IsInitiator,
		Role:             res.Role,
		ParticipantCount: res.ParticipantCount,
	})

	if res.Peer != nil {
		// Mutual introduction: each side needs the other's socket id to
		// target offer/answer relay.
		ctl.sendJSON(res.Peer.Conn, participantJoinedEvent{
			Type:        evtParticipantJoined,
			SocketID:    cl.socketID,
			UserID:      cl.principal.UserID,
			UserRole:    cl.principal.Role,
			Role:        core.CallRoleGuest,
			IsInitiator: false,
		})
		ctl.sendJSON(cl.conn, participantJoinedEvent{
			Type:        evtParticipantJoined,
			SocketID:    res.Peer.SocketID,
			UserID:      res.Peer.UserID,
			UserRole:    res.Peer.Role,
			Role:        core.CallRoleHost,
			IsInitiator: true,
		})
	}

	update := roomUpdateEvent{
		Type:             evtRoomUpdate,
		ParticipantCount: res.ParticipantCount,
		MaxParticipants:  core.MaxParticipants,
	}
	ctl.sendJSON(cl.conn, update)
	for _, peer := range ctl.Coord.Peers(cl.roomCode, cl.socketID) {
		ctl.sendJSON(peer.Conn, update)
	}
}

// handleRelay forwards offer/answer/iceCandidate/ready verbatim to the
// other members of the caller's room, tagged with the sender's socket
// id. Relay into an empty room is a silent no-op: signaling is
// best-effort and renegotiation recovers from dropped messages.
func (ctl *Controller) handleRelay(cl *client, kind string, data []byte) {
	if !cl.joined {
		ctl.sendError(cl.conn, "join a room before signaling")
		return
	}

	var p relayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(cl.conn, "malformed signaling payload")
		return
	}
	out := relayEvent{Type: kind, From: cl.socketID}
	switch kind {
	case evtOffer:
		if len(p.Offer) == 0 {
			ctl.sendError(cl.conn, "offer payload required")
			return
		}
		out.Offer = p.Offer
	case evtAnswer:
		if len(p.Answer) == 0 {
			ctl.sendError(cl.conn, "answer payload required")
			return
		}
		out.Answer = p.Answer
	case evtICECandidate:
		if len(p.Candidate) == 0 {
			ctl.sendError(cl.conn, "candidate payload required")
			return
		}
		out.Candidate = p.Candidate
	case evtReady:
	}

	for _, peer := range ctl.Coord.Peers(cl.roomCode, cl.socketID) {
		ctl.sendJSON(peer.Conn, out)
	}
}

// onDisconnect is the only leave path; there is no explicit leave
// event. The survivor, if any, is promoted to host.
func (ctl *Controller) onDisconnect(cl *client) {
	if !cl.joined {
		return
	}
	res, ok := ctl.Coord.Leave(cl.roomCode, cl.socketID)
	if !ok {
		return
	}

	left := peerLeftEvent{
		Type:                  evtPeerLeft,
		SocketID:              res.Left.SocketID,
		UserID:                res.Left.UserID,
		UserRole:              res.Left.Role,
		Reason:                "disconnected",
		RemainingParticipants: res.ParticipantCount,
	}
	update := roomUpdateEvent{
		Type:             evtRoomUpdate,
		ParticipantCount: res.ParticipantCount,
		MaxParticipants:  core.MaxParticipants,
	}
	for _, m := range res.Remaining {
		ctl.sendJSON(m.Conn, left)
		ctl.sendJSON(m.Conn, update)
	}
	if res.Promoted != nil {
		ctl.sendJSON(res.Promoted.Conn, roleChangedEvent{
			Type:        evtRoleChanged,
			NewRole:     core.CallRoleHost,
			IsInitiator: true,
			Reason:      "peer_disconnected",
		})
	}
	log.Info().Str("module", "signal").
		Str("socket", cl.socketID).Str("room", cl.roomCode).
		Int("remaining", res.ParticipantCount).Msg("disconnect handled")
}
