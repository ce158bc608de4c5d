// Package app wires the live session coordinator: one service instance
// owning the map from room code to in-memory room, constructed once in
// main and passed by reference.
package app

import (
	"errors"
	"sync"

	"github.com/carelink/telesignal/internal/core"
	"github.com/rs/zerolog/log"
)

// Coordinator serializes all membership mutations per room code while
// unrelated rooms proceed fully in parallel. Authorization and every
// other I/O happen before any of its methods are called; nothing here
// blocks while a room lock is held.
type Coordinator struct {
	mu    sync.RWMutex
	rooms map[string]*core.Room
}

func NewCoordinator() *Coordinator {
	return &Coordinator{rooms: make(map[string]*core.Room)}
}

func (c *Coordinator) getOrCreate(code string) *core.Room {
	c.mu.RLock()
	room, ok := c.rooms[code]
	c.mu.RUnlock()
	if ok {
		return room
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if room, ok = c.rooms[code]; ok {
		return room
	}
	room = core.NewRoom(code)
	c.rooms[code] = room
	return room
}

// Join admits the member into the room for code. A room entry that was
// emptied concurrently is replaced and the join retried.
func (c *Coordinator) Join(code string, m *core.Member) (core.JoinResult, error) {
	for {
		room := c.getOrCreate(code)
		res, err := room.Join(m)
		if errors.Is(err, core.ErrRoomClosed) {
			c.drop(code, room)
			continue
		}
		return res, err
	}
}

// Leave removes the socket from the room's membership, clearing the
// in-memory entry entirely when the last member goes. The persisted
// Room row is untouched and expires on its own TTL.
func (c *Coordinator) Leave(code, socketID string) (core.LeaveResult, bool) {
	c.mu.RLock()
	room, ok := c.rooms[code]
	c.mu.RUnlock()
	if !ok {
		return core.LeaveResult{}, false
	}
	res, ok := room.Leave(socketID)
	if ok && res.Emptied {
		c.drop(code, room)
		log.Info().Str("module", "app.coordinator").Str("room", code).Msg("room entry cleared")
	}
	return res, ok
}

// Peers returns a consistent snapshot of the other members of code's
// room. A missing room yields an empty slice: relaying into an empty
// room is deliberately a silent no-op.
func (c *Coordinator) Peers(code, fromSocket string) []core.Member {
	c.mu.RLock()
	room, ok := c.rooms[code]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	return room.Others(fromSocket)
}

// MemberCount reports the live membership of a room, 0 if absent.
func (c *Coordinator) MemberCount(code string) int {
	c.mu.RLock()
	room, ok := c.rooms[code]
	c.mu.RUnlock()
	if !ok {
		return 0
	}
	return room.MemberCount()
}

// drop removes the map entry only if it still points at room, so a
// fresh entry created by a concurrent join is never evicted.
func (c *Coordinator) drop(code string, room *core.Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.rooms[code]; ok && cur == room {
		delete(c.rooms, code)
	}
}
