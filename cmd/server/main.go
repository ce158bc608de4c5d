package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/carelink/telesignal/internal/adapters/http"
	signalws "github.com/carelink/telesignal/internal/adapters/signal"
	"github.com/carelink/telesignal/internal/app"
	"github.com/carelink/telesignal/internal/auth"
	"github.com/carelink/telesignal/internal/config"
	"github.com/carelink/telesignal/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Secret == "" {
		log.Fatal().Msg("no token secret configured")
	}

	db, err := store.OpenDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	rdb, err := store.OpenRedis(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open redis")
	}

	appointments := store.NewAppointmentStore(db)
	rooms := store.NewRedisRoomStore(rdb)
	logs := store.NewSessionLogStore(db, rooms)

	gate := &auth.Gate{
		Secret:       []byte(cfg.Secret),
		Appointments: appointments,
		Rooms:        rooms,
	}
	coordinator := app.NewCoordinator()

	facade := &router.Facade{
		Appointments: appointments,
		Rooms:        rooms,
		Logs:         logs,
		DefaultTTL:   time.Duration(cfg.RoomTTLMinutes) * time.Minute,
		MaxTTL:       time.Duration(cfg.RoomMaxTTLMinutes) * time.Minute,
	}
	signalCtl := &signalws.Controller{
		Gate:       gate,
		Coord:      coordinator,
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
	}
	health := &router.Health{DB: db, RDB: rdb}

	r := router.SetupRouter(ctx, cfg, facade, signalCtl, health)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("telesignal server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
