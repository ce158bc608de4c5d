package domain

import "errors"

// Every rejection carries a distinct human-readable reason so callers
// can tell "room full" from "unauthorized" from "expired".
var (
	// Authentication: identity could not be established.
	ErrTokenMissing = errors.New("authentication token required")
	ErrTokenInvalid = errors.New("invalid authentication token")
	ErrTokenExpired = errors.New("authentication token expired")

	// Authorization: identity is valid but not allowed here.
	ErrBadRole        = errors.New("role is not permitted in video calls")
	ErrNotParticipant = errors.New("not a participant in this appointment")

	// Not found / expired.
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomExpired         = errors.New("room has expired")
	ErrLogNotFound         = errors.New("session log not found")

	// Capacity: reported via the join acknowledgement, connection stays open.
	ErrRoomFull = errors.New("room is full")

	// Validation.
	ErrRoomMismatch = errors.New("room does not match the authorized session")
	ErrLogClosed    = errors.New("session log already closed")
	ErrLogOwnership = errors.New("session log belongs to another user")

	ErrCodeExhausted = errors.New("could not allocate a unique room code")
)

// IsAuthentication reports whether err means the caller's identity
// could not be established at all.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrTokenMissing) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired)
}

// IsAuthorization reports whether err means a valid identity was
// refused access.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrBadRole) ||
		errors.Is(err, ErrNotParticipant) ||
		errors.Is(err, ErrLogOwnership)
}

// IsNotFound reports whether err maps to an absent or expired record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAppointmentNotFound) ||
		errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrRoomExpired) ||
		errors.Is(err, ErrLogNotFound)
}
