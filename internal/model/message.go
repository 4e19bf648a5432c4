package model

import "time"

// Message is a single chat message. Field names on the wire follow the
// platform's column names, which is why the casing is uneven.
//
// Messages are insert-only: nothing in this application mutates or deletes
// them. Whether a deleted room's messages are cascaded is the platform's
// concern.
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"RoomId"`
	SenderID  string    `json:"SenderId"`
	Content   string    `json:"Content"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomEvent is an out-of-band signal on a room's broadcast channel, distinct
// from persisted row-change notifications.
type RoomEvent struct {
	Type     string `json:"type"`
	SenderID string `json:"senderId"`
}

// EventRoomDeleted announces that a member is deleting the room.
const EventRoomDeleted = "room-deleted"
