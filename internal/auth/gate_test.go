package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/telesignal/internal/domain"
)

var testSecret = []byte("unit-test-secret")

type stubAppointments struct {
	appt *domain.Appointment
}

func (s stubAppointments) Get(_ context.Context, id string) (*domain.Appointment, error) {
	if s.appt != nil && s.appt.ID == id {
		return s.appt, nil
	}
	return nil, domain.ErrAppointmentNotFound
}

type stubRooms struct {
	room *domain.Room
}

func (s stubRooms) Lookup(_ context.Context, appointmentID, code string) (*domain.Room, error) {
	if s.room != nil && s.room.AppointmentID == appointmentID && s.room.Code == code {
		return s.room, nil
	}
	return nil, domain.ErrRoomNotFound
}

func testGate(t *testing.T, ttl time.Duration) (*Gate, string, string) {
	t.Helper()
	appt := &domain.Appointment{ID: "appt-1", DoctorID: "doc-1", PatientID: "pat-1"}
	room := &domain.Room{
		AppointmentID: "appt-1",
		DoctorID:      "doc-1",
		PatientID:     "pat-1",
		Code:          "AB12CD",
		CreatedAt:     time.Now(),
		ExpiresAt:     time.Now().Add(ttl),
	}
	gate := &Gate{Secret: testSecret, Appointments: stubAppointments{appt}, Rooms: stubRooms{room}}

	docToken, err := IssueToken(testSecret, "doc-1", domain.RoleDoctor, time.Hour)
	require.NoError(t, err)
	patToken, err := IssueToken(testSecret, "pat-1", domain.RolePatient, time.Hour)
	require.NoError(t, err)
	return gate, docToken, patToken
}

func TestAuthorizeAdmitsBothParties(t *testing.T) {
	gate, docToken, patToken := testGate(t, time.Hour)

	p, err := gate.Authorize(context.Background(), docToken, "appt-1", "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", p.UserID)
	assert.Equal(t, domain.RoleDoctor, p.Role)

	p, err = gate.Authorize(context.Background(), patToken, "appt-1", "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, domain.RolePatient, p.Role)
}

func TestAuthorizeMissingToken(t *testing.T) {
	gate, _, _ := testGate(t, time.Hour)
	_, err := gate.Authorize(context.Background(), "", "appt-1", "AB12CD")
	assert.ErrorIs(t, err, domain.ErrTokenMissing)
}

func TestAuthorizeGarbageToken(t *testing.T) {
	gate, _, _ := testGate(t, time.Hour)
	_, err := gate.Authorize(context.Background(), "not-a-jwt", "appt-1", "AB12CD")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestAuthorizeWrongSecret(t *testing.T) {
	gate, _, _ := testGate(t, time.Hour)
	forged, err := IssueToken([]byte("other-secret"), "doc-1", domain.RoleDoctor, time.Hour)
	require.NoError(t, err)
	_, err = gate.Authorize(context.Background(), forged, "appt-1", "AB12CD")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestAuthorizeExpiredToken(t *testing.T) {
	gate, _, _ := testGate(t, time.Hour)
	expired, err := IssueToken(testSecret, "doc-1", domain.RoleDoctor, -time.Minute)
	require.NoError(t, err)
	_, err = gate.Authorize(context.Background(), expired, "appt-1", "AB12CD")
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestAuthorizeDisallowedRole(t *testing.T) {
	gate, _, _ := testGate(t, time.Hour)
	token, err := IssueToken(testSecret, "doc-1", domain.Role("admin"), time.Hour)
	require.NoError(t, err)
	_, err = gate.Authorize(context.Background(), token, "appt-1", "AB12CD")
	assert.ErrorIs(t, err, domain.ErrBadRole)
}

func TestAuthorizeUnknownAppointment(t *testing.T) {
	gate, docToken, _ := testGate(t, time.Hour)
	_, err := gate.Authorize(context.Background(), docToken, "appt-2", "AB12CD")
	assert.ErrorIs(t, err, domain.ErrAppointmentNotFound)
}

func TestAuthorizeStrangerRejected(t *testing.T) {
	gate, _, _ := testGate(t, time.Hour)
	stranger, err := IssueToken(testSecret, "doc-9", domain.RoleDoctor, time.Hour)
	require.NoError(t, err)
	_, err = gate.Authorize(context.Background(), stranger, "appt-1", "AB12CD")
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
}

func TestAuthorizeRoleIdentityMismatch(t *testing.T) {
	gate, _, _ := testGate(t, time.Hour)
	// The doctor's id presented with a patient role claim is not a
	// valid party match.
	token, err := IssueToken(testSecret, "doc-1", domain.RolePatient, time.Hour)
	require.NoError(t, err)
	_, err = gate.Authorize(context.Background(), token, "appt-1", "AB12CD")
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
}

func TestAuthorizeUnknownRoom(t *testing.T) {
	gate, docToken, _ := testGate(t, time.Hour)
	_, err := gate.Authorize(context.Background(), docToken, "appt-1", "ZZZZZZ")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestAuthorizeExpiredRoom(t *testing.T) {
	gate, docToken, _ := testGate(t, -time.Minute)
	_, err := gate.Authorize(context.Background(), docToken, "appt-1", "AB12CD")
	assert.ErrorIs(t, err, domain.ErrRoomExpired)
}
