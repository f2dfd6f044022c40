// Package chitchat provides a client for the chit-chat ephemeral room API.
package chitchat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a chit-chat API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request.
func (c *Client) doRequest(method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("chit-chat error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}

// Room is the response from creating a room.
type Room struct {
	ID  string `json:"id"`
	TTL int64  `json:"ttl"` // seconds
}

// CreateRoom creates a fresh self-destructing room.
func (c *Client) CreateRoom() (*Room, error) {
	respBody, err := c.doRequest("POST", "/room", nil)
	if err != nil {
		return nil, err
	}

	var resp Room
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TTL returns seconds until the room self-destructs.
func (c *Client) TTL(roomID string) (int64, error) {
	respBody, err := c.doRequest("GET", "/room/"+roomID+"/ttl", nil)
	if err != nil {
		return 0, err
	}

	var resp struct {
		TTL int64 `json:"ttl"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return 0, err
	}
	return resp.TTL, nil
}

// Message represents a chat message.
type Message struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"ts"`
}

// GetMessages retrieves all messages in the room, oldest first.
func (c *Client) GetMessages(roomID string) ([]Message, error) {
	respBody, err := c.doRequest("GET", "/room/"+roomID+"/messages", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Messages []Message `json:"messages"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// PostMessageResponse is the response from posting a message.
type PostMessageResponse struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PostMessage posts a message to a room.
func (c *Client) PostMessage(roomID, sender, text string) (*PostMessageResponse, error) {
	reqBody, _ := json.Marshal(map[string]string{"sender": sender, "text": text})

	respBody, err := c.doRequest("POST", "/room/"+roomID+"/messages", reqBody)
	if err != nil {
		return nil, err
	}

	var resp PostMessageResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DestroyRoom destroys a room. Destroying a room that is already gone still
// succeeds.
func (c *Client) DestroyRoom(roomID string) error {
	_, err := c.doRequest("DELETE", "/room/"+roomID, nil)
	return err
}

// Event is a room event from the live stream.
type Event struct {
	Room      string `json:"room"`
	Kind      string `json:"event"` // "chat.message" or "chat.destroy"
	MessageID string `json:"message_id,omitempty"`
}

// Subscribe opens the room's event stream and invokes onEvent per event until
// the context is cancelled or the room is destroyed. A destroy event is
// terminal: once seen, no later event for the room means anything.
func (c *Client) Subscribe(ctx context.Context, roomID string, onEvent func(Event)) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/room/"+roomID+"/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout: the stream lives as long as the room.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("chit-chat error %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var evt Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt); err != nil {
			continue
		}
		onEvent(evt)

		if evt.Kind == "chat.destroy" {
			return nil
		}
	}
	return scanner.Err()
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Checks    map[string]interface{} `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// Health checks server health.
func (c *Client) Health() (*HealthResponse, error) {
	respBody, err := c.doRequest("GET", "/health", nil)
	if err != nil {
		return nil, err
	}

	var resp HealthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
