package store

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bert4lyf/chit-chat/internal/models"
)

func TestCreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	room, err := s.Create(ctx, 10*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, room.ID)
	assert.Equal(t, models.RoomActive, room.State)
	assert.Equal(t, room.CreatedAt.Add(10*time.Minute), room.ExpiresAt)

	got, err := s.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)

	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRemainingTTL(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	room, err := s.Create(ctx, 10*time.Minute)
	require.NoError(t, err)

	first, err := s.RemainingTTL(ctx, room.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, first, int64(600))
	assert.Greater(t, first, int64(590))

	time.Sleep(10 * time.Millisecond)

	second, err := s.RemainingTTL(ctx, room.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, second, first, "remaining TTL must never increase")

	_, err = s.RemainingTTL(ctx, "nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRemainingTTLFloorsAtZero(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	room, err := s.Create(ctx, time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	ttl, err := s.RemainingTTL(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ttl)
}

func TestMarkDestroyed(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	room, err := s.Create(ctx, time.Minute)
	require.NoError(t, err)

	did, err := s.MarkDestroyed(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, did)

	did, err = s.MarkDestroyed(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, did, "second destroy must not transition again")

	did, err = s.MarkDestroyed(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, did, "unknown room is a no-op, not an error")

	got, err := s.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomDestroyed, got.State)
}

func TestConcurrentDestroyExactlyOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	room, err := s.Create(ctx, time.Minute)
	require.NoError(t, err)

	const callers = 32
	var wg sync.WaitGroup
	results := make(chan bool, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			did, err := s.MarkDestroyed(ctx, room.ID)
			require.NoError(t, err)
			results <- did
		}()
	}
	wg.Wait()
	close(results)

	transitions := 0
	for did := range results {
		if did {
			transitions++
		}
	}
	assert.Equal(t, 1, transitions, "exactly one caller may perform the transition")
}

func TestAppendAndList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	room, err := s.Create(ctx, time.Minute)
	require.NoError(t, err)

	before := time.Now().UnixMilli()
	msg, err := s.Append(ctx, room.ID, "alice", "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "alice", msg.Sender)
	assert.Equal(t, "hello", msg.Text)
	assert.GreaterOrEqual(t, msg.Timestamp, before)

	_, err = s.Append(ctx, room.ID, "bob", "hi alice")
	require.NoError(t, err)

	messages, err := s.List(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[0].Text)
	assert.Equal(t, "hi alice", messages[1].Text)
}

func TestAppendValidation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	room, err := s.Create(ctx, time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name   string
		sender string
		text   string
	}{
		{"empty text", "alice", ""},
		{"whitespace text", "alice", "   "},
		{"oversized text", "alice", strings.Repeat("x", MaxTextBytes+1)},
		{"invalid utf8", "alice", string([]byte{0xff, 0xfe})},
		{"empty sender", "", "hello"},
		{"oversized sender", strings.Repeat("a", MaxSenderBytes+1), "hello"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Append(ctx, room.ID, tc.sender, tc.text)
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}

	// Control characters are stripped from the display name, not rejected.
	msg, err := s.Append(ctx, room.ID, "al\x00ice", "hello")
	require.NoError(t, err)
	assert.Equal(t, "alice", msg.Sender)
}

func TestAppendRejectsDeadRooms(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Append(ctx, "nope", "alice", "hello")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	room, err := s.Create(ctx, time.Minute)
	require.NoError(t, err)
	_, err = s.MarkDestroyed(ctx, room.ID)
	require.NoError(t, err)

	_, err = s.Append(ctx, room.ID, "alice", "hello")
	assert.ErrorIs(t, err, ErrRoomDestroyed)

	_, err = s.List(ctx, room.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestConcurrentAppendsTotalOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	room, err := s.Create(ctx, time.Minute)
	require.NoError(t, err)

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			sender := string(rune('a' + w))
			for i := 0; i < perWriter; i++ {
				_, err := s.Append(ctx, room.ID, sender, "msg")
				require.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	first, err := s.List(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, first, writers*perWriter)

	// Ids are strictly increasing in stored order.
	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1].ID, first[i].ID)
	}

	// Re-listing never reorders previously observed messages.
	second, err := s.List(ctx, room.ID)
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestPurgeIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	room, err := s.Create(ctx, time.Minute)
	require.NoError(t, err)
	_, err = s.Append(ctx, room.ID, "alice", "hello")
	require.NoError(t, err)

	require.NoError(t, s.Purge(ctx, room.ID))
	require.NoError(t, s.Purge(ctx, room.ID))
	require.NoError(t, s.Purge(ctx, "nope"))

	messages, err := s.List(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestExpired(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	old, err := s.Create(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	fresh, err := s.Create(ctx, time.Minute)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	ids, err := s.Expired(ctx, time.Now())
	require.NoError(t, err)
	assert.Contains(t, ids, old.ID)
	assert.NotContains(t, ids, fresh.ID)

	// Destroyed rooms are not reported again.
	_, err = s.MarkDestroyed(ctx, old.ID)
	require.NoError(t, err)
	ids, err = s.Expired(ctx, time.Now())
	require.NoError(t, err)
	assert.NotContains(t, ids, old.ID)
}

func TestCompactReapsOldTombstones(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	room, err := s.Create(ctx, time.Minute)
	require.NoError(t, err)
	_, err = s.MarkDestroyed(ctx, room.ID)
	require.NoError(t, err)

	// Fresh tombstone survives.
	require.NoError(t, s.Compact(ctx))
	_, err = s.Get(ctx, room.ID)
	require.NoError(t, err)

	// Age the tombstone past retention.
	s.mu.Lock()
	s.rooms[room.ID].destroyedAt = time.Now().Add(-2 * tombstoneTTL)
	s.mu.Unlock()

	require.NoError(t, s.Compact(ctx))
	_, err = s.Get(ctx, room.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestDeadlineMapsToTimeout(t *testing.T) {
	s := NewMemoryStore()

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := s.Create(ctx, time.Minute)
	assert.ErrorIs(t, err, ErrTimeout)

	room, err := s.Create(context.Background(), time.Minute)
	require.NoError(t, err)

	_, err = s.Append(ctx, room.ID, "alice", "hello")
	assert.ErrorIs(t, err, ErrTimeout)

	messages, err := s.List(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Empty(t, messages, "timed-out append must not partially commit")
}
