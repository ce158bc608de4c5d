package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/carelink/telesignal/internal/domain"
)

// roomLookup is the slice of the registry the log store needs.
type roomLookup interface {
	Lookup(ctx context.Context, appointmentID, code string) (*domain.Room, error)
}

// SessionLogStore is the audit trail of join/leave times. It is
// deliberately decoupled from the live coordinator: a row can exist
// without a signaling connection ever being established, and vice
// versa.
type SessionLogStore struct {
	db    *gorm.DB
	rooms roomLookup
}

func NewSessionLogStore(db *gorm.DB, rooms roomLookup) *SessionLogStore {
	return &SessionLogStore{db: db, rooms: rooms}
}

// Start validates the identity against the room's recorded parties and
// inserts an open row with JoinedAt=now.
func (s *SessionLogStore) Start(ctx context.Context, appointmentID, code, userID string, role domain.Role) (*domain.SessionLog, error) {
	room, err := s.rooms.Lookup(ctx, appointmentID, code)
	if err != nil {
		return nil, err
	}
	if !room.PartyWithRole(userID, role) {
		return nil, domain.ErrNotParticipant
	}

	entry := &domain.SessionLog{
		AppointmentID: appointmentID,
		RoomCode:      code,
		UserID:        userID,
		Role:          role,
		JoinedAt:      time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("create session log: %w", err)
	}
	log.Info().Str("module", "store.sessionlogs").
		Uint("log", entry.ID).Str("user", userID).Str("room", code).
		Msg("session log opened")
	return entry, nil
}

// End closes an open row. Only its creator may close it, and only once.
func (s *SessionLogStore) End(ctx context.Context, logID uint, userID string) (*domain.SessionLog, error) {
	var entry domain.SessionLog
	err := s.db.WithContext(ctx).First(&entry, logID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrLogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session log: %w", err)
	}
	if entry.UserID != userID {
		return nil, domain.ErrLogOwnership
	}
	if entry.Closed() {
		return nil, domain.ErrLogClosed
	}

	entry.Close(time.Now())
	if err := s.db.WithContext(ctx).Model(&entry).
		Updates(map[string]any{
			"left_at":          entry.LeftAt,
			"duration_minutes": entry.DurationMinutes,
		}).Error; err != nil {
		return nil, fmt.Errorf("close session log: %w", err)
	}
	log.Info().Str("module", "store.sessionlogs").
		Uint("log", entry.ID).Int("duration_min", *entry.DurationMinutes).
		Msg("session log closed")
	return &entry, nil
}

// ListByAppointment returns the appointment's audit entries in join
// order.
func (s *SessionLogStore) ListByAppointment(ctx context.Context, appointmentID string) ([]domain.SessionLog, error) {
	var entries []domain.SessionLog
	err := s.db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("joined_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list session logs: %w", err)
	}
	return entries, nil
}
