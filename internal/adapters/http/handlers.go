// Package http is the REST façade over the room registry and the
// session log, plus the signaling upgrade endpoint.
package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/carelink/telesignal/internal/auth"
	"github.com/carelink/telesignal/internal/domain"
	"github.com/carelink/telesignal/internal/store"
)

type Facade struct {
	Appointments *store.AppointmentStore
	Rooms        store.RoomStore
	Logs         *store.SessionLogStore

	DefaultTTL time.Duration
	MaxTTL     time.Duration
}

// AuthRequired validates the bearer token and stores the principal in
// the request context.
func AuthRequired(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := ""
		if len(header) > 7 && header[:7] == "Bearer " {
			token = header[7:]
		}
		principal, err := auth.ParseToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set("principal", *principal)
		c.Next()
	}
}

func principalFrom(c *gin.Context) domain.Principal {
	return c.MustGet("principal").(domain.Principal)
}

func statusFor(err error) int {
	switch {
	case domain.IsAuthentication(err):
		return http.StatusUnauthorized
	case domain.IsAuthorization(err):
		return http.StatusForbidden
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRoomFull), errors.Is(err, domain.ErrLogClosed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRoomMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (f *Facade) fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// requireParty loads the appointment and checks the caller is one of
// its two parties with the claimed role.
func (f *Facade) requireParty(c *gin.Context, appointmentID string) (*domain.Appointment, bool) {
	p := principalFrom(c)
	appt, err := f.Appointments.Get(c.Request.Context(), appointmentID)
	if err != nil {
		f.fail(c, err)
		return nil, false
	}
	role, ok := appt.Party(p.UserID)
	if !ok || role != p.Role {
		f.fail(c, domain.ErrNotParticipant)
		return nil, false
	}
	return appt, true
}

// CreateRoom handles POST /api/rooms.
func (f *Facade) CreateRoom(c *gin.Context) {
	var req struct {
		AppointmentID    string `json:"appointmentId" binding:"required"`
		ExpiresInMinutes int    `json:"expiresInMinutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "appointmentId required"})
		return
	}
	appt, ok := f.requireParty(c, req.AppointmentID)
	if !ok {
		return
	}

	ttl := f.DefaultTTL
	if req.ExpiresInMinutes > 0 {
		ttl = time.Duration(req.ExpiresInMinutes) * time.Minute
	}
	if f.MaxTTL > 0 && ttl > f.MaxTTL {
		ttl = f.MaxTTL
	}

	room, err := f.Rooms.Create(c.Request.Context(), appt.ID, appt.DoctorID, appt.PatientID, ttl)
	if err != nil {
		f.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"roomId":    room.Code,
		"expiresAt": room.ExpiresAt,
	})
}

// RoomToken handles GET /api/appointments/:id/room-token; the other
// party retrieves the same code the creator received.
func (f *Facade) RoomToken(c *gin.Context) {
	appointmentID := c.Param("id")
	if _, ok := f.requireParty(c, appointmentID); !ok {
		return
	}
	room, err := f.Rooms.ByAppointment(c.Request.Context(), appointmentID)
	if err != nil {
		f.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"roomId":    room.Code,
		"expiresAt": room.ExpiresAt,
	})
}

// LogStart handles POST /api/session-logs.
func (f *Facade) LogStart(c *gin.Context) {
	var req struct {
		AppointmentID string `json:"appointmentId" binding:"required"`
		RoomID        string `json:"roomId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "appointmentId and roomId required"})
		return
	}
	p := principalFrom(c)
	entry, err := f.Logs.Start(c.Request.Context(), req.AppointmentID, req.RoomID, p.UserID, p.Role)
	if err != nil {
		f.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"logId":    entry.ID,
		"joinedAt": entry.JoinedAt,
	})
}

// LogEnd handles PUT /api/session-logs/:id/end.
func (f *Facade) LogEnd(c *gin.Context) {
	logID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid log id"})
		return
	}
	p := principalFrom(c)
	entry, err := f.Logs.End(c.Request.Context(), uint(logID), p.UserID)
	if err != nil {
		f.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"leftAt":          entry.LeftAt,
		"durationMinutes": entry.DurationMinutes,
	})
}

// Logs handles GET /api/appointments/:id/session-logs.
func (f *Facade) ListLogs(c *gin.Context) {
	appointmentID := c.Param("id")
	if _, ok := f.requireParty(c, appointmentID); !ok {
		return
	}
	entries, err := f.Logs.ListByAppointment(c.Request.Context(), appointmentID)
	if err != nil {
		f.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries})
}

// Health reports persistence reachability.
type Health struct {
	DB  *gorm.DB
	RDB *redis.Client
}

func (h *Health) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	out := gin.H{"db": "ok", "redis": "ok"}
	if sqlDB, err := h.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		out["db"] = "down"
		status = http.StatusServiceUnavailable
	}
	if h.RDB != nil {
		if err := h.RDB.Ping(ctx).Err(); err != nil {
			out["redis"] = "down"
			status = http.StatusServiceUnavailable
		}
	}
	if status != http.StatusOK {
		log.Warn().Str("module", "adapters.http").Interface("health", out).Msg("health check degraded")
	}
	c.JSON(status, out)
}
