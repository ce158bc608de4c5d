package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/carelink/telesignal/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenDB("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	return db
}

type fakeRooms struct {
	rooms map[string]*domain.Room
}

func (f fakeRooms) Lookup(_ context.Context, appointmentID, code string) (*domain.Room, error) {
	if r, ok := f.rooms[appointmentID+"/"+code]; ok {
		return r, nil
	}
	return nil, domain.ErrRoomNotFound
}

func testLogStore(t *testing.T) (*SessionLogStore, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	rooms := fakeRooms{rooms: map[string]*domain.Room{
		"appt-1/AB12CD": {
			AppointmentID: "appt-1",
			DoctorID:      "doc-1",
			PatientID:     "pat-1",
			Code:          "AB12CD",
			ExpiresAt:     time.Now().Add(time.Hour),
		},
	}}
	return NewSessionLogStore(db, rooms), db
}

func TestStartAndEndComputesDuration(t *testing.T) {
	logs, db := testLogStore(t)
	ctx := context.Background()

	entry, err := logs.Start(ctx, "appt-1", "AB12CD", "doc-1", domain.RoleDoctor)
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
	assert.Nil(t, entry.LeftAt)
	assert.Nil(t, entry.DurationMinutes)

	// Backdate the join so the duration rounds to 2 minutes (125s).
	joined := time.Now().Add(-125 * time.Second)
	require.NoError(t, db.Model(&domain.SessionLog{}).
		Where("id = ?", entry.ID).
		Update("joined_at", joined).Error)

	closed, err := logs.End(ctx, entry.ID, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, closed.LeftAt)
	require.NotNil(t, closed.DurationMinutes)
	assert.Equal(t, 2, *closed.DurationMinutes)
	assert.False(t, closed.LeftAt.Before(joined))
}

func TestEndImmediatelyIsZeroMinutes(t *testing.T) {
	logs, _ := testLogStore(t)
	ctx := context.Background()

	entry, err := logs.Start(ctx, "appt-1", "AB12CD", "pat-1", domain.RolePatient)
	require.NoError(t, err)

	closed, err := logs.End(ctx, entry.ID, "pat-1")
	require.NoError(t, err)
	assert.Equal(t, 0, *closed.DurationMinutes)
}

func TestEndByOtherUserRejected(t *testing.T) {
	logs, _ := testLogStore(t)
	ctx := context.Background()

	entry, err := logs.Start(ctx, "appt-1", "AB12CD", "doc-1", domain.RoleDoctor)
	require.NoError(t, err)

	_, err = logs.End(ctx, entry.ID, "pat-1")
	assert.ErrorIs(t, err, domain.ErrLogOwnership)
}

func TestEndTwiceRejected(t *testing.T) {
	logs, _ := testLogStore(t)
	ctx := context.Background()

	entry, err := logs.Start(ctx, "appt-1", "AB12CD", "doc-1", domain.RoleDoctor)
	require.NoError(t, err)

	_, err = logs.End(ctx, entry.ID, "doc-1")
	require.NoError(t, err)
	_, err = logs.End(ctx, entry.ID, "doc-1")
	assert.ErrorIs(t, err, domain.ErrLogClosed)
}

func TestEndUnknownLog(t *testing.T) {
	logs, _ := testLogStore(t)
	_, err := logs.End(context.Background(), 4242, "doc-1")
	assert.ErrorIs(t, err, domain.ErrLogNotFound)
}

func TestStartValidatesRoomParties(t *testing.T) {
	logs, _ := testLogStore(t)
	ctx := context.Background()

	_, err := logs.Start(ctx, "appt-1", "AB12CD", "doc-9", domain.RoleDoctor)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)

	// Right user, wrong role claim.
	_, err = logs.Start(ctx, "appt-1", "AB12CD", "doc-1", domain.RolePatient)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)

	_, err = logs.Start(ctx, "appt-1", "ZZZZZZ", "doc-1", domain.RoleDoctor)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestListByAppointmentOrdersByJoin(t *testing.T) {
	logs, db := testLogStore(t)
	ctx := context.Background()

	first, err := logs.Start(ctx, "appt-1", "AB12CD", "doc-1", domain.RoleDoctor)
	require.NoError(t, err)
	second, err := logs.Start(ctx, "appt-1", "AB12CD", "pat-1", domain.RolePatient)
	require.NoError(t, err)

	// Force distinct, inverted insertion order vs join order.
	require.NoError(t, db.Model(&domain.SessionLog{}).
		Where("id = ?", first.ID).
		Update("joined_at", time.Now().Add(-10*time.Minute)).Error)
	require.NoError(t, db.Model(&domain.SessionLog{}).
		Where("id = ?", second.ID).
		Update("joined_at", time.Now().Add(-20*time.Minute)).Error)

	entries, err := logs.ListByAppointment(ctx, "appt-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second.ID, entries[0].ID)
	assert.Equal(t, first.ID, entries[1].ID)
}
