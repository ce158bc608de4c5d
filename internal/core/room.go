package core

import (
	"errors"
	"sync"

	"github.com/carelink/telesignal/internal/domain"
	"github.com/rs/zerolog/log"
)

// ErrRoomClosed means the room entry was emptied and removed between
// lookup and join; the coordinator retries with a fresh entry.
var ErrRoomClosed = errors.New("room entry closed")

// Room is the in-memory membership table for one room code. All
// mutations go through its mutex so the member-count check and the
// role assignment are atomic; the mutation itself never performs I/O.
type Room struct {
	code string

	mu      sync.Mutex
	members []*Member
	closed  bool
}

func NewRoom(code string) *Room {
	return &Room{code: code, members: make([]*Member, 0, MaxParticipants)}
}

func (r *Room) Code() string { return r.code }

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Join admits m as host if the room is empty, as guest if it has one
// member, and fails with domain.ErrRoomFull otherwise (no mutation).
func (r *Room) Join(m *Member) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return JoinResult{}, ErrRoomClosed
	}
	if len(r.members) >= MaxParticipants {
		return JoinResult{}, domain.ErrRoomFull
	}

	res := JoinResult{ParticipantCount: len(r.members) + 1}
	if len(r.members) == 0 {
		m.IsHost = true
		res.IsInitiator = true
		res.Role = CallRoleHost
	} else {
		m.IsHost = false
		res.Role = CallRoleGuest
		peer := *r.members[0]
		res.Peer = &peer
	}
	r.members = append(r.members, m)

	log.Info().Str("module", "core.room").Str("room", r.code).
		Str("socket", m.SocketID).Str("user", m.UserID).
		Bool("host", m.IsHost).Int("count", len(r.members)).
		Msg("member joined")
	return res, nil
}

// Leave removes the socket and promotes the survivor, if any, to host
// in the same critical section so there is no window where a two-member
// room has zero or two hosts. Returns false if the socket was not a
// member.
func (r *Room) Leave(socketID string) (LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, m := range r.members {
		if m.SocketID == socketID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return LeaveResult{}, false
	}

	res := LeaveResult{Left: *r.members[idx]}
	r.members = append(r.members[:idx], r.members[idx+1:]...)
	res.ParticipantCount = len(r.members)

	if len(r.members) == 1 {
		survivor := r.members[0]
		if !survivor.IsHost {
			survivor.IsHost = true
			promoted := *survivor
			res.Promoted = &promoted
		}
	}
	for _, m := range r.members {
		res.Remaining = append(res.Remaining, *m)
	}
	if len(r.members) == 0 {
		r.closed = true
		res.Emptied = true
	}

	log.Info().Str("module", "core.room").Str("room", r.code).
		Str("socket", socketID).Int("count", len(r.members)).
		Bool("promoted", res.Promoted != nil).
		Msg("member left")
	return res, true
}

// Others returns a snapshot of every member except fromSocket, taken
// under the same lock used for writes so relays never fan out to a
// stale peer set.
func (r *Room) Others(fromSocket string) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		if m.SocketID == fromSocket {
			continue
		}
		out = append(out, *m)
	}
	return out
}
