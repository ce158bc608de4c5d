package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/carelink/telesignal/internal/domain"
)

// AppointmentStore is the read-side adapter over the portal's
// appointment table. Booking writes happen elsewhere.
type AppointmentStore struct {
	db *gorm.DB
}

func NewAppointmentStore(db *gorm.DB) *AppointmentStore {
	return &AppointmentStore{db: db}
}

func (s *AppointmentStore) Get(ctx context.Context, id string) (*domain.Appointment, error) {
	var appt domain.Appointment
	err := s.db.WithContext(ctx).First(&appt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return &appt, nil
}
