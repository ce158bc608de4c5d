package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/carelink/telesignal/internal/adapters/signal"
	"github.com/carelink/telesignal/internal/auth"
	"github.com/carelink/telesignal/internal/config"
	"github.com/carelink/telesignal/internal/domain"
)

func SetupRouter(ctx context.Context, cfg *config.Config, facade *Facade, signalCtl *signal.Controller, health *Health) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", health.Check)

	secret := []byte(cfg.Secret)
	api := r.Group("/api")
	api.Use(AuthRequired(secret))

	api.POST("/rooms", facade.CreateRoom)
	api.GET("/appointments/:id/room-token", facade.RoomToken)
	api.POST("/session-logs", facade.LogStart)
	api.PUT("/session-logs/:id/end", facade.LogEnd)
	api.GET("/appointments/:id/session-logs", facade.ListLogs)

	// The signaling handshake carries its token as a query param; the
	// gate runs inside the controller before the upgrade.
	r.GET("/ws/signal", func(c *gin.Context) {
		signalCtl.HandleSignal(ctx, c)
	})

	if cfg.Mode == "debug" {
		// Token mint for local development only; the portal's auth
		// service issues tokens in production.
		r.POST("/dev/token", func(c *gin.Context) {
			var req struct {
				UserID string      `json:"userId" binding:"required"`
				Role   domain.Role `json:"role" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil || !req.Role.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "userId and role (doctor|patient) required"})
				return
			}
			token, err := auth.IssueToken(secret, req.UserID, req.Role, 24*time.Hour)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign token"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token})
		})
	}

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
