package models

import "time"

// RoomState is the lifecycle state of a room. The transition is monotonic:
// active -> destroyed, never back.
type RoomState string

const (
	RoomActive    RoomState = "active"
	RoomDestroyed RoomState = "destroyed"
)

// Room is an ephemeral conversation scope. It exists from creation until
// either its TTL deadline passes or it is destroyed explicitly, whichever
// comes first.
type Room struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	State     RoomState `json:"state"`
}

// Expired reports whether the room's TTL deadline has passed.
func (r *Room) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// RemainingTTL returns whole seconds until the deadline, never negative.
// Zero means "about to expire or already expired", not an error.
func (r *Room) RemainingTTL(now time.Time) int64 {
	secs := int64(r.ExpiresAt.Sub(now) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}
