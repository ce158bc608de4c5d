package domain

import (
	"math"
	"time"
)

// SessionLog is the persistent audit trail of a participant's presence
// in a call room. It is decoupled from live signaling state: rows are
// created and closed by explicit REST calls from the client.
type SessionLog struct {
	ID              uint       `gorm:"primaryKey" json:"logId"`
	AppointmentID   string     `gorm:"size:36;index;not null" json:"appointmentId"`
	RoomCode        string     `gorm:"size:6;not null" json:"roomCode"`
	UserID          string     `gorm:"size:36;index;not null" json:"userId"`
	Role            Role       `gorm:"size:10;not null" json:"role"`
	JoinedAt        time.Time  `json:"joinedAt"`
	LeftAt          *time.Time `json:"leftAt,omitempty"`
	DurationMinutes *int       `json:"durationMinutes,omitempty"`
}

func (l *SessionLog) Closed() bool { return l.LeftAt != nil }

// Close sets LeftAt and the derived duration, rounded to the nearest
// minute and floored at zero.
func (l *SessionLog) Close(leftAt time.Time) {
	if leftAt.Before(l.JoinedAt) {
		leftAt = l.JoinedAt
	}
	mins := int(math.Round(leftAt.Sub(l.JoinedAt).Minutes()))
	if mins < 0 {
		mins = 0
	}
	l.LeftAt = &leftAt
	l.DurationMinutes = &mins
}
