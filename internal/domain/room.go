package domain

import "time"

const RoomCodeLen = 6

// Room is the persisted, short-lived call room record. It is stored
// with a TTL and becomes invisible to lookup once past ExpiresAt; live
// connection state is never part of it.
type Room struct {
	AppointmentID string    `json:"appointmentId"`
	DoctorID      string    `json:"doctorId"`
	PatientID     string    `json:"patientId"`
	Code          string    `json:"roomCode"`
	CreatedAt     time.Time `json:"createdAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

func (r *Room) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// PartyWithRole checks that userID holds exactly the given role on this
// room's appointment parties.
func (r *Room) PartyWithRole(userID string, role Role) bool {
	switch role {
	case RoleDoctor:
		return userID == r.DoctorID
	case RolePatient:
		return userID == r.PatientID
	}
	return false
}
