package auth

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carelink/telesignal/internal/domain"
)

// AppointmentSource resolves booked appointments; backed by the portal
// database.
type AppointmentSource interface {
	Get(ctx context.Context, id string) (*domain.Appointment, error)
}

// RoomSource resolves live room records; backed by the room registry.
type RoomSource interface {
	Lookup(ctx context.Context, appointmentID, code string) (*domain.Room, error)
}

// Gate runs the hard fail-closed admission checks. There is no partial
// admission: any failing step rejects the attempt with its own reason
// before a single room event is processed.
type Gate struct {
	Secret       []byte
	Appointments AppointmentSource
	Rooms        RoomSource
}

// Authorize validates token, appointment membership and room validity
// and returns the verified principal for the connection's lifetime.
func (g *Gate) Authorize(ctx context.Context, token, appointmentID, roomCode string) (*domain.Principal, error) {
	principal, err := ParseToken(g.Secret, token)
	if err != nil {
		return nil, err
	}

	appt, err := g.Appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	role, ok := appt.Party(principal.UserID)
	if !ok || role != principal.Role {
		log.Warn().Str("module", "auth.gate").
			Str("user", principal.UserID).Str("appointment", appointmentID).
			Msg("identity is not a party to the appointment")
		return nil, domain.ErrNotParticipant
	}

	room, err := g.Rooms.Lookup(ctx, appointmentID, roomCode)
	if err != nil {
		return nil, err
	}
	if room.Expired(time.Now()) {
		return nil, domain.ErrRoomExpired
	}

	log.Info().Str("module", "auth.gate").
		Str("user", principal.UserID).Str("role", string(principal.Role)).
		Str("appointment", appointmentID).Str("room", roomCode).
		Msg("connection authorized")
	return principal, nil
}
