package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bert4lyf/chit-chat/internal/bus"
	"github.com/bert4lyf/chit-chat/internal/chat"
	"github.com/bert4lyf/chit-chat/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := store.NewMemoryStore()
	eventBus := bus.New()
	logger := zerolog.New(io.Discard)
	svc := chat.NewService(st, eventBus, logger, 10*time.Minute)

	srv := httptest.NewServer(NewRouter(logger, svc, eventBus, st))
	t.Cleanup(srv.Close)
	return srv
}

func createRoom(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/room", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		ID  string `json:"id"`
		TTL int64  `json:"ttl"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.ID)
	assert.Equal(t, int64(600), body.TTL)
	return body.ID
}

func postMessage(t *testing.T, srv *httptest.Server, roomID, sender, text string) *http.Response {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"sender": sender, "text": text})
	resp, err := http.Post(srv.URL+"/room/"+roomID+"/messages", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func TestRoomLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	roomID := createRoom(t, srv)

	// TTL countdown read
	resp, err := http.Get(srv.URL + "/room/" + roomID + "/ttl")
	require.NoError(t, err)
	var ttl struct {
		TTL int64 `json:"ttl"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ttl))
	resp.Body.Close()
	assert.LessOrEqual(t, ttl.TTL, int64(600))
	assert.Positive(t, ttl.TTL)

	// Post and list
	resp = postMessage(t, srv, roomID, "alice", "hello")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var posted struct {
		ID string `json:"id"`
		TS int64  `json:"ts"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&posted))
	resp.Body.Close()
	assert.NotEmpty(t, posted.ID)

	resp = postMessage(t, srv, roomID, "bob", "hi alice")
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/room/" + roomID + "/messages")
	require.NoError(t, err)
	var listed struct {
		Messages []struct {
			Sender string `json:"sender"`
			Text   string `json:"text"`
		} `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	require.Len(t, listed.Messages, 2)
	assert.Equal(t, "alice", listed.Messages[0].Sender)
	assert.Equal(t, "hi alice", listed.Messages[1].Text)

	// Destroy, twice; both acknowledge
	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/room/"+roomID, nil)
		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	// Gone for reads, 410 for writes
	resp, err = http.Get(srv.URL + "/room/" + roomID + "/messages")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postMessage(t, srv, roomID, "alice", "too late")
	resp.Body.Close()
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	// Unknown room
	resp, err := http.Get(srv.URL + "/room/does-not-exist/ttl")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Invalid message
	roomID := createRoom(t, srv)
	resp = postMessage(t, srv, roomID, "alice", strings.Repeat("x", store.MaxTextBytes+1))
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Malformed body
	resp, err = http.Post(srv.URL+"/room/"+roomID+"/messages", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Wrong content type
	resp, err = http.Post(srv.URL+"/room/"+roomID+"/messages", "text/plain", strings.NewReader("hello"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestEventStream(t *testing.T) {
	srv := newTestServer(t)
	roomID := createRoom(t, srv)

	resp, err := http.Get(srv.URL + "/room/" + roomID + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "event: ") {
				events <- strings.TrimPrefix(line, "event: ")
			}
		}
		close(events)
	}()

	waitEvent := func(want string) {
		t.Helper()
		select {
		case got, ok := <-events:
			require.True(t, ok, "stream ended before %q arrived", want)
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	postMessage(t, srv, roomID, "alice", "hello").Body.Close()
	waitEvent("chat.message")

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/room/"+roomID, nil)
	dresp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	dresp.Body.Close()
	waitEvent("chat.destroy")

	// Destroy is terminal: the stream ends.
	select {
	case _, ok := <-events:
		assert.False(t, ok, "no events may follow destroy")
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after destroy")
	}
}

func TestEventStreamUnknownRoom(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/room/nope/events")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"status":"healthy"`)
}

func TestEndToEndExpiry(t *testing.T) {
	st := store.NewMemoryStore()
	eventBus := bus.New()
	logger := zerolog.New(io.Discard)
	svc := chat.NewService(st, eventBus, logger, 30*time.Millisecond)
	sweeper := chat.NewSweeper(svc, st, 10*time.Millisecond, logger)

	srv := httptest.NewServer(NewRouter(logger, svc, eventBus, st))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sweeper.Run(ctx)

	resp, err := http.Post(srv.URL+"/room", "application/json", nil)
	require.NoError(t, err)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	// No manual call: the sweeper alone takes the room down.
	require.Eventually(t, func() bool {
		r, err := http.Get(fmt.Sprintf("%s/room/%s/ttl", srv.URL, created.ID))
		if err != nil {
			return false
		}
		defer r.Body.Close()
		return r.StatusCode == http.StatusNotFound
	}, 2*time.Second, 10*time.Millisecond)
}
