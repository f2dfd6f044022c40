package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/bert4lyf/chit-chat/internal/models"
)

// MemoryStore keeps rooms and their messages in process memory. This is the
// default backend: rooms never outlive the process, which is exactly the
// lifetime an ephemeral room is allowed to have.
//
// Locking is two-level: the store mutex guards the room map, each entry's
// mutex serializes the room's own state and message sequence. Appends to
// different rooms never contend.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*roomEntry
}

type roomEntry struct {
	mu          sync.Mutex
	room        models.Room
	messages    []models.Message
	destroyedAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]*roomEntry)}
}

// Close implements Store. Nothing to release.
func (s *MemoryStore) Close() error { return nil }

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error { return checkCtx(ctx) }

// Create allocates a fresh active room. UUIDv4 gives 122 random bits, so a
// collision means the id generator is broken; regenerate rather than surface.
func (s *MemoryStore) Create(ctx context.Context, ttl time.Duration) (*models.Room, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	for {
		id = uuid.NewString()
		if _, exists := s.rooms[id]; !exists {
			break
		}
	}

	room := models.Room{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		State:     models.RoomActive,
	}
	s.rooms[id] = &roomEntry{room: room}

	return &room, nil
}

// Get returns a copy of the room, or ErrRoomNotFound.
func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Room, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	entry := s.entry(id)
	if entry == nil {
		return nil, ErrRoomNotFound
	}

	entry.mu.Lock()
	room := entry.room
	entry.mu.Unlock()

	return &room, nil
}

// RemainingTTL returns whole seconds until the room's deadline.
func (s *MemoryStore) RemainingTTL(ctx context.Context, id string) (int64, error) {
	if err := checkCtx(ctx); err != nil {
		return 0, err
	}

	entry := s.entry(id)
	if entry == nil {
		return 0, ErrRoomNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.room.State != models.RoomActive {
		return 0, ErrRoomNotFound
	}
	return entry.room.RemainingTTL(time.Now()), nil
}

// MarkDestroyed performs the active -> destroyed transition under the entry
// lock, so exactly one caller ever observes true no matter how many race.
// Messages are dropped immediately; the entry itself lingers as a tombstone
// until Compact reaps it.
func (s *MemoryStore) MarkDestroyed(ctx context.Context, id string) (bool, error) {
	if err := checkCtx(ctx); err != nil {
		return false, err
	}

	entry := s.entry(id)
	if entry == nil {
		return false, nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.room.State != models.RoomActive {
		return false, nil
	}
	entry.room.State = models.RoomDestroyed
	entry.messages = nil
	entry.destroyedAt = time.Now()

	return true, nil
}

// Expired returns ids of active rooms past their deadline.
func (s *MemoryStore) Expired(ctx context.Context, now time.Time) ([]string, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entries := make([]*roomEntry, 0, len(s.rooms))
	for _, e := range s.rooms {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var expired []string
	for _, e := range entries {
		e.mu.Lock()
		if e.room.State == models.RoomActive && e.room.Expired(now) {
			expired = append(expired, e.room.ID)
		}
		e.mu.Unlock()
	}
	return expired, nil
}

// Compact removes tombstones older than the retention window. After that a
// destroyed room is indistinguishable from one that never existed, which the
// contract allows.
func (s *MemoryStore) Compact(ctx context.Context) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	cutoff := time.Now().Add(-tombstoneTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.rooms {
		e.mu.Lock()
		reap := e.room.State == models.RoomDestroyed && e.destroyedAt.Before(cutoff)
		e.mu.Unlock()
		if reap {
			delete(s.rooms, id)
		}
	}
	return nil
}

// Append validates and stores a message. Id and timestamp are assigned under
// the room's lock, so concurrent appends to one room serialize and their ULIDs
// are strictly increasing.
func (s *MemoryStore) Append(ctx context.Context, roomID, sender, text string) (*models.Message, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	sender, text, err := normalizeMessage(sender, text)
	if err != nil {
		return nil, err
	}

	entry := s.entry(roomID)
	if entry == nil {
		return nil, ErrRoomNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.room.State != models.RoomActive {
		return nil, ErrRoomDestroyed
	}
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	msg := models.Message{
		ID:        ulid.Make().String(),
		RoomID:    roomID,
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
	entry.messages = append(entry.messages, msg)

	return &msg, nil
}

// List returns a snapshot of the room's messages in append order.
func (s *MemoryStore) List(ctx context.Context, roomID string) ([]models.Message, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	entry := s.entry(roomID)
	if entry == nil {
		return nil, ErrRoomNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.room.State != models.RoomActive {
		return nil, ErrRoomNotFound
	}

	out := make([]models.Message, len(entry.messages))
	copy(out, entry.messages)
	return out, nil
}

// Purge discards the room's messages. Idempotent.
func (s *MemoryStore) Purge(ctx context.Context, roomID string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	entry := s.entry(roomID)
	if entry == nil {
		return nil
	}

	entry.mu.Lock()
	entry.messages = nil
	entry.mu.Unlock()

	return nil
}

func (s *MemoryStore) entry(id string) *roomEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[id]
}
