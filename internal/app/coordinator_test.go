package app

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/telesignal/internal/core"
	"github.com/carelink/telesignal/internal/domain"
)

type stubSender struct{}

func (stubSender) TrySend(core.Frame) error { return nil }
func (stubSender) Close()                   {}

func member(socketID string) *core.Member {
	return &core.Member{SocketID: socketID, UserID: "u-" + socketID, Role: domain.RolePatient, Conn: stubSender{}}
}

func TestJoinLeaveClearsRoomEntry(t *testing.T) {
	c := NewCoordinator()

	_, err := c.Join("AB12CD", member("s1"))
	require.NoError(t, err)
	assert.Equal(t, 1, c.MemberCount("AB12CD"))

	res, ok := c.Leave("AB12CD", "s1")
	require.True(t, ok)
	assert.True(t, res.Emptied)
	assert.Equal(t, 0, c.MemberCount("AB12CD"))

	// A fresh join after the entry was cleared starts a new room with a
	// new host, not a closed leftover.
	got, err := c.Join("AB12CD", member("s2"))
	require.NoError(t, err)
	assert.True(t, got.IsInitiator)
	assert.Equal(t, 1, got.ParticipantCount)
}

func TestLeaveUnknownRoom(t *testing.T) {
	c := NewCoordinator()
	_, ok := c.Leave("ZZZZZZ", "s1")
	assert.False(t, ok)
}

func TestPeersOfAbsentRoomIsEmpty(t *testing.T) {
	c := NewCoordinator()
	assert.Empty(t, c.Peers("ZZZZZZ", "s1"))
}

func TestRoomsAreIndependent(t *testing.T) {
	c := NewCoordinator()

	const rooms = 16
	var wg sync.WaitGroup
	for i := 0; i < rooms; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code := fmt.Sprintf("ROOM%02d", i)
			_, err := c.Join(code, member(code+"-a"))
			assert.NoError(t, err)
			_, err = c.Join(code, member(code+"-b"))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < rooms; i++ {
		code := fmt.Sprintf("ROOM%02d", i)
		assert.Equal(t, 2, c.MemberCount(code))
		assert.Len(t, c.Peers(code, code+"-a"), 1)
	}
}

func TestConcurrentJoinAndLeaveSameRoom(t *testing.T) {
	c := NewCoordinator()

	// Churn one room code: parallel join-then-leave pairs must never
	// corrupt the membership table or strand a closed entry.
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sock := fmt.Sprintf("s%d", i)
			if _, err := c.Join("CHURN1", member(sock)); err == nil {
				c.Leave("CHURN1", sock)
			}
		}(i)
	}
	wg.Wait()

	// Whatever interleaving happened, a fresh join must succeed as host.
	res, err := c.Join("CHURN1", member("final"))
	require.NoError(t, err)
	assert.True(t, res.IsInitiator)
}
