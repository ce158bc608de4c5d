package store

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/carelink/telesignal/internal/domain"
)

// RoomStore is the persistent room registry. Expired rows vanish from
// lookup on their own; no sweeper runs in this process.
type RoomStore interface {
	Create(ctx context.Context, appointmentID, doctorID, patientID string, ttl time.Duration) (*domain.Room, error)
	Lookup(ctx context.Context, appointmentID, code string) (*domain.Room, error)
	ByAppointment(ctx context.Context, appointmentID string) (*domain.Room, error)
}

const (
	codeAlphabet     = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	createMaxRetries = 10

	codeKeyPrefix = "room:code:"
	apptKeyPrefix = "room:appt:"
)

// NewRoomCode returns a random 6-character uppercase alphanumeric code.
func NewRoomCode() string {
	b := make([]byte, domain.RoomCodeLen)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}

// RedisRoomStore keeps each room under two TTL-bearing keys: one per
// code (the uniqueness claim) and one per appointment (token lookup).
type RedisRoomStore struct {
	rdb *redis.Client
}

func NewRedisRoomStore(rdb *redis.Client) *RedisRoomStore {
	return &RedisRoomStore{rdb: rdb}
}

// Create generates a candidate code and claims it atomically with
// SETNX; on collision it regenerates, giving up after a bounded number
// of attempts rather than looping forever.
func (s *RedisRoomStore) Create(ctx context.Context, appointmentID, doctorID, patientID string, ttl time.Duration) (*domain.Room, error) {
	now := time.Now()
	room := &domain.Room{
		AppointmentID: appointmentID,
		DoctorID:      doctorID,
		PatientID:     patientID,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}

	for attempt := 0; attempt < createMaxRetries; attempt++ {
		room.Code = NewRoomCode()
		payload, err := json.Marshal(room)
		if err != nil {
			return nil, fmt.Errorf("marshal room: %w", err)
		}

		claimed, err := s.rdb.SetNX(ctx, codeKeyPrefix+room.Code, payload, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("claim room code: %w", err)
		}
		if !claimed {
			log.Debug().Str("module", "store.rooms").Str("code", room.Code).Msg("room code collision, regenerating")
			continue
		}

		if err := s.rdb.Set(ctx, apptKeyPrefix+appointmentID, payload, ttl).Err(); err != nil {
			return nil, fmt.Errorf("store room by appointment: %w", err)
		}
		log.Info().Str("module", "store.rooms").
			Str("appointment", appointmentID).Str("code", room.Code).
			Time("expires_at", room.ExpiresAt).Msg("room created")
		return room, nil
	}
	return nil, domain.ErrCodeExhausted
}

// Lookup returns the room for (appointmentID, code); a TTL-expired key
// is simply a miss.
func (s *RedisRoomStore) Lookup(ctx context.Context, appointmentID, code string) (*domain.Room, error) {
	room, err := s.get(ctx, codeKeyPrefix+code)
	if err != nil {
		return nil, err
	}
	if room.AppointmentID != appointmentID {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// ByAppointment returns the current live room for an appointment, used
// by REST token retrieval.
func (s *RedisRoomStore) ByAppointment(ctx context.Context, appointmentID string) (*domain.Room, error) {
	return s.get(ctx, apptKeyPrefix+appointmentID)
}

func (s *RedisRoomStore) get(ctx context.Context, key string) (*domain.Room, error) {
	val, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("room lookup: %w", err)
	}
	var room domain.Room
	if err := json.Unmarshal(val, &room); err != nil {
		return nil, fmt.Errorf("unmarshal room: %w", err)
	}
	return &room, nil
}
