package core

import "github.com/carelink/telesignal/internal/domain"

// Frame is a raw signaling payload already encoded for the wire.
type Frame []byte

// SignalSender abstracts a member's signaling transport.
// Owned by the adapter; the adapter must Close() it.
type SignalSender interface {
	TrySend(Frame) error
	Close()
}

// Member is the ephemeral, in-memory record of one admitted socket.
// It is never persisted; a process restart loses all of them while
// Room and SessionLog rows survive.
type Member struct {
	SocketID string
	UserID   string
	Role     domain.Role
	IsHost   bool
	Conn     SignalSender
}

// CallRole is the room-level role, distinct from the clinical role.
type CallRole string

const (
	CallRoleHost  CallRole = "host"
	CallRoleGuest CallRole = "guest"
)

const MaxParticipants = 2

// JoinResult is the acknowledgement for a join plus the snapshot the
// adapter needs for the mutual introduction.
type JoinResult struct {
	IsInitiator      bool
	Role             CallRole
	ParticipantCount int

	// Peer is a snapshot of the already-present member, set only when
	// the caller was admitted as guest.
	Peer *Member
}

// LeaveResult describes the state after a disconnect-driven removal.
type LeaveResult struct {
	Left             Member
	Promoted         *Member
	Remaining        []Member
	ParticipantCount int
	Emptied          bool
}
