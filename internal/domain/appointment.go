// Package domain contains entity without logic, just meta-data
package domain

import "time"

type AppointmentStatus string

const (
	AppointmentBooked    AppointmentStatus = "booked"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment is the read model of a booked consultation. Booking,
// reschedule and cancellation live in the surrounding portal; this
// service only asks "does it exist and who are its two parties".
type Appointment struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	DoctorID  string            `gorm:"size:36;index;not null" json:"doctorId"`
	PatientID string            `gorm:"size:36;index;not null" json:"patientId"`
	Status    AppointmentStatus `gorm:"size:20;default:'booked'" json:"status"`
	StartsAt  time.Time         `json:"startsAt"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Party reports whether the given user is one of the appointment's
// two parties and, if so, with which role.
func (a *Appointment) Party(userID string) (Role, bool) {
	switch userID {
	case a.DoctorID:
		return RoleDoctor, true
	case a.PatientID:
		return RolePatient, true
	}
	return "", false
}
