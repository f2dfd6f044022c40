package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bert4lyf/chit-chat/internal/models"
)

// RedisStore keeps rooms and messages in Redis so several gateway instances
// can share one room space. Ephemerality is enforced by key TTLs: every key a
// room owns expires no later than the room's deadline plus the tombstone
// window, so even a crashed sweeper leaves no trace behind.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

const activeRoomsKey = "rooms:active"

func roomKey(roomID string) string {
	return fmt.Sprintf("room:%s", roomID)
}

func destroyedKey(roomID string) string {
	return fmt.Sprintf("room:%s:destroyed", roomID)
}

func messagesKey(roomID string) string {
	return fmt.Sprintf("room:%s:messages", roomID)
}

func seqKey(roomID string) string {
	return fmt.Sprintf("room:%s:seq", roomID)
}

// Create stores a new room hash and registers it in the active set.
func (s *RedisStore) Create(ctx context.Context, ttl time.Duration) (*models.Room, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	now := time.Now()
	room := models.Room{
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		State:     models.RoomActive,
	}

	// Retry on the (practically impossible) id collision instead of surfacing.
	for {
		room.ID = uuid.NewString()
		ok, err := s.client.HSetNX(ctx, roomKey(room.ID), "created_at", now.UnixMilli()).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, roomKey(room.ID), "expires_at", room.ExpiresAt.UnixMilli())
	pipe.ExpireAt(ctx, roomKey(room.ID), room.ExpiresAt.Add(tombstoneTTL))
	pipe.SAdd(ctx, activeRoomsKey, room.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	return &room, nil
}

// Get returns the room, or ErrRoomNotFound once every key has expired.
func (s *RedisStore) Get(ctx context.Context, id string) (*models.Room, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	fields, err := s.client.HGetAll(ctx, roomKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrRoomNotFound
	}

	room := &models.Room{ID: id, State: models.RoomActive}
	if ms, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		room.CreatedAt = time.UnixMilli(ms)
	}
	if ms, err := strconv.ParseInt(fields["expires_at"], 10, 64); err == nil {
		room.ExpiresAt = time.UnixMilli(ms)
	}

	destroyed, err := s.client.Exists(ctx, destroyedKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if destroyed > 0 {
		room.State = models.RoomDestroyed
	}

	return room, nil
}

// RemainingTTL returns whole seconds until the room's deadline.
func (s *RedisStore) RemainingTTL(ctx context.Context, id string) (int64, error) {
	room, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if room.State != models.RoomActive {
		return 0, ErrRoomNotFound
	}
	return room.RemainingTTL(time.Now()), nil
}

// MarkDestroyed claims the destroyed tombstone with SETNX, which is atomic
// across every gateway instance and the sweeper: exactly one caller gets true.
func (s *RedisStore) MarkDestroyed(ctx context.Context, id string) (bool, error) {
	if err := checkCtx(ctx); err != nil {
		return false, err
	}

	exists, err := s.client.Exists(ctx, roomKey(id)).Result()
	if err != nil {
		return false, err
	}
	if exists == 0 {
		return false, nil
	}

	claimed, err := s.client.SetNX(ctx, destroyedKey(id), "1", tombstoneTTL).Result()
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	pipe := s.client.Pipeline()
	pipe.SRem(ctx, activeRoomsKey, id)
	pipe.Expire(ctx, roomKey(id), tombstoneTTL)
	pipe.Del(ctx, seqKey(id))
	_, err = pipe.Exec(ctx)
	return true, err
}

// Expired scans the active set for rooms past their deadline. Members whose
// room hash already expired are unregistered on the spot.
func (s *RedisStore) Expired(ctx context.Context, now time.Time) ([]string, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	ids, err := s.client.SMembers(ctx, activeRoomsKey).Result()
	if err != nil {
		return nil, err
	}

	var expired []string
	for _, id := range ids {
		val, err := s.client.HGet(ctx, roomKey(id), "expires_at").Result()
		if err == redis.Nil {
			s.client.SRem(ctx, activeRoomsKey, id)
			continue
		}
		if err != nil {
			return expired, err
		}
		ms, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			continue
		}
		if !now.Before(time.UnixMilli(ms)) {
			expired = append(expired, id)
		}
	}
	return expired, nil
}

// Compact is a no-op: key TTLs reap tombstones without help.
func (s *RedisStore) Compact(ctx context.Context) error {
	return checkCtx(ctx)
}

// Append stores a message in the room's sorted set, scored by a Redis-side
// sequence counter so concurrent appends from any instance get a total order.
func (s *RedisStore) Append(ctx context.Context, roomID, sender, text string) (*models.Message, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	sender, text, err := normalizeMessage(sender, text)
	if err != nil {
		return nil, err
	}

	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.State != models.RoomActive {
		return nil, ErrRoomDestroyed
	}

	seq, err := s.client.Incr(ctx, seqKey(roomID)).Result()
	if err != nil {
		return nil, err
	}

	msg := models.Message{
		ID:        ulid.Make().String(),
		RoomID:    roomID,
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(&msg)
	if err != nil {
		return nil, err
	}

	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, messagesKey(roomID), redis.Z{
		Score:  float64(seq),
		Member: string(data),
	})
	pipe.ExpireAt(ctx, messagesKey(roomID), room.ExpiresAt.Add(tombstoneTTL))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	// A destroy between the state check and the ZADD would leave one message
	// behind; undo the append if the tombstone appeared meanwhile.
	destroyed, err := s.client.Exists(ctx, destroyedKey(roomID)).Result()
	if err == nil && destroyed > 0 {
		s.client.Del(ctx, messagesKey(roomID))
		return nil, ErrRoomDestroyed
	}

	return &msg, nil
}

// List returns the room's messages in sequence order.
func (s *RedisStore) List(ctx context.Context, roomID string) ([]models.Message, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.State != models.RoomActive {
		return nil, ErrRoomNotFound
	}

	results, err := s.client.ZRange(ctx, messagesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(results))
	for _, data := range results {
		var msg models.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Purge discards the room's messages. Idempotent.
func (s *RedisStore) Purge(ctx context.Context, roomID string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	return s.client.Del(ctx, messagesKey(roomID)).Err()
}
