package models

// Message is a single chat message. The log that owns the room assigns ID and
// Timestamp at append time; clients never supply either.
type Message struct {
	ID        string `json:"id"` // ULID, strictly increasing per room
	RoomID    string `json:"room_id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"ts"` // Unix ms, server-assigned
}
