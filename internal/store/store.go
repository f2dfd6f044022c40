package store

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/bert4lyf/chit-chat/internal/models"
)

// Sentinel errors for room and message operations. All four are
// recoverable-by-caller conditions, never process-fatal.
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomDestroyed  = errors.New("room destroyed")
	ErrInvalidMessage = errors.New("invalid message")
	ErrTimeout        = errors.New("operation timed out")
)

const (
	// MaxTextBytes bounds a message body.
	MaxTextBytes = 2000
	// MaxSenderBytes bounds a display name.
	MaxSenderBytes = 100

	// tombstoneTTL is how long a destroyed room stays distinguishable from a
	// room that never existed.
	tombstoneTTL = 5 * time.Minute
)

// Registry is the authoritative record of room existence and lifecycle.
type Registry interface {
	// Create allocates a fresh room with a collision-free id and the given
	// TTL. Identifier collisions are retried internally, never surfaced.
	Create(ctx context.Context, ttl time.Duration) (*models.Room, error)
	// Get returns the room, or ErrRoomNotFound.
	Get(ctx context.Context, id string) (*models.Room, error)
	// RemainingTTL returns max(0, expiresAt-now) in whole seconds.
	RemainingTTL(ctx context.Context, id string) (int64, error)
	// MarkDestroyed transitions active -> destroyed exactly once and reports
	// whether this call performed the transition. Already-destroyed and
	// unknown rooms return false with no error.
	MarkDestroyed(ctx context.Context, id string) (bool, error)
	// Expired returns ids of active rooms whose deadline has passed.
	Expired(ctx context.Context, now time.Time) ([]string, error)
	// Compact drops bookkeeping for long-destroyed rooms. Safe to call on
	// every sweep tick.
	Compact(ctx context.Context) error
}

// MessageLog is the per-room append-only ordered message sequence.
type MessageLog interface {
	// Append validates, assigns the next id and timestamp, and stores the
	// message. Fails with ErrRoomNotFound, ErrRoomDestroyed or
	// ErrInvalidMessage. An append either fully commits or does not happen.
	Append(ctx context.Context, roomID, sender, text string) (*models.Message, error)
	// List returns a snapshot of all messages in total order.
	List(ctx context.Context, roomID string) ([]models.Message, error)
	// Purge discards all messages for a room. Idempotent; unknown rooms are
	// a no-op.
	Purge(ctx context.Context, roomID string) error
}

// Store combines the registry and log over one backend.
// Both MemoryStore and RedisStore implement this interface.
type Store interface {
	Registry
	MessageLog

	Close() error
	Ping(ctx context.Context) error
}

// checkCtx maps an exceeded deadline or cancellation to the store taxonomy so
// an operation fails before mutating anything.
func checkCtx(ctx context.Context) error {
	switch {
	case ctx.Err() == nil:
		return nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrTimeout
	default:
		return ctx.Err()
	}
}

// normalizeMessage sanitizes sender and text and enforces size bounds.
// Returns the cleaned values or ErrInvalidMessage.
func normalizeMessage(sender, text string) (string, string, error) {
	sender = stripControl(strings.TrimSpace(sender))
	if sender == "" || len(sender) > MaxSenderBytes {
		return "", "", ErrInvalidMessage
	}

	text = strings.TrimSpace(text)
	if text == "" || len(text) > MaxTextBytes || !utf8.ValidString(text) {
		return "", "", ErrInvalidMessage
	}

	return sender, text, nil
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
