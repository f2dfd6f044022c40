// Package chat composes the room registry, the message log and the event bus
// into the room service, and runs the expiry sweeper that enforces TTLs.
package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bert4lyf/chit-chat/internal/bus"
	"github.com/bert4lyf/chit-chat/internal/metrics"
	"github.com/bert4lyf/chit-chat/internal/models"
	"github.com/bert4lyf/chit-chat/internal/store"
)

// DestroyReason labels why a room was destroyed.
type DestroyReason string

const (
	ReasonManual  DestroyReason = "manual"
	ReasonExpired DestroyReason = "expired"
)

// Publisher is the write side of the event bus.
type Publisher interface {
	Publish(evt bus.Event)
}

// Service orchestrates room operations. All mutation of a room's state goes
// through the store's MarkDestroyed/Append entry points; the service never
// keeps its own copy of room state.
type Service struct {
	store  store.Store
	bus    Publisher
	logger zerolog.Logger
	ttl    time.Duration
}

// NewService creates the room service. ttl applies to every room; there is no
// extension path.
func NewService(st store.Store, pub Publisher, logger zerolog.Logger, ttl time.Duration) *Service {
	return &Service{
		store:  st,
		bus:    pub,
		logger: logger.With().Str("component", "chat").Logger(),
		ttl:    ttl,
	}
}

// TTL returns the fixed room lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// CreateRoom allocates a fresh room. No message or event side effects.
func (s *Service) CreateRoom(ctx context.Context) (*models.Room, error) {
	room, err := s.store.Create(ctx, s.ttl)
	if err != nil {
		return nil, err
	}

	metrics.RoomsCreated.Inc()
	s.logger.Info().
		Str("room_id", room.ID).
		Time("expires_at", room.ExpiresAt).
		Msg("room created")

	return room, nil
}

// RemainingTTL returns whole seconds until the room expires.
func (s *Service) RemainingTTL(ctx context.Context, roomID string) (int64, error) {
	return s.store.RemainingTTL(ctx, roomID)
}

// PostMessage appends to the room's log and, on success, wakes subscribers
// with a message event. Log rejections propagate unchanged.
func (s *Service) PostMessage(ctx context.Context, roomID, sender, text string) (*models.Message, error) {
	msg, err := s.store.Append(ctx, roomID, sender, text)
	if err != nil {
		return nil, err
	}

	metrics.MessagesPosted.Inc()
	s.bus.Publish(bus.Event{
		Room:      roomID,
		Kind:      bus.KindMessage,
		MessageID: msg.ID,
	})

	return msg, nil
}

// ListMessages returns a snapshot of the room's messages in total order.
func (s *Service) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	return s.store.List(ctx, roomID)
}

// DestroyRoom destroys a room. Idempotent: destroying an already-destroyed or
// unknown room is a successful no-op, which absorbs races between manual
// destroy requests and the sweeper. The destroy event fires only on the call
// that actually performed the transition, so it is published exactly once per
// room no matter how many callers race.
func (s *Service) DestroyRoom(ctx context.Context, roomID string, reason DestroyReason) error {
	transitioned, err := s.store.MarkDestroyed(ctx, roomID)
	if err != nil {
		return err
	}
	if !transitioned {
		return nil
	}

	if err := s.store.Purge(ctx, roomID); err != nil {
		// The room is already terminal; a failed purge only delays reclaim
		// until the backend's own expiry catches it.
		s.logger.Warn().Err(err).Str("room_id", roomID).Msg("purge failed")
	}

	s.bus.Publish(bus.Event{Room: roomID, Kind: bus.KindDestroy})

	metrics.RoomsDestroyed.WithLabelValues(string(reason)).Inc()
	s.logger.Info().
		Str("room_id", roomID).
		Str("reason", string(reason)).
		Msg("room destroyed")

	return nil
}
