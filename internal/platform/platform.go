// Package platform declares the contract this application consumes from the
// hosted backend: an authenticated-user accessor, a row-level data API over
// the Chatroom and Messages tables, the atomic join_chatroom remote
// procedure, and a publish/subscribe channel abstraction. Authentication,
// persistence, and realtime fan-out all live behind these interfaces;
// drivers under platform/ are thin clients of external services.
package platform

import (
	"context"

	"github.com/Anmol-345/Arcanus/internal/model"
)

// Auth wraps the platform's auth service. Tokens are opaque to the
// application beyond the claims the platform signs into them.
type Auth interface {
	// User resolves the access token to its user, or ErrUnauthorized.
	User(ctx context.Context, accessToken string) (model.User, error)
	// SignOut revokes the session behind the access token.
	SignOut(ctx context.Context, accessToken string) error
}

// Store is the row-insert/select/delete data API over the two tables.
type Store interface {
	// CreateChatroom inserts a Chatroom row with no client-supplied fields;
	// the platform generates and returns the token.
	CreateChatroom(ctx context.Context) (model.Chatroom, error)
	ChatroomByToken(ctx context.Context, token string) (model.Chatroom, error)
	DeleteChatroom(ctx context.Context, token string) error

	// InsertMessage persists a message and returns the committed row with
	// the platform-assigned id and timestamp.
	InsertMessage(ctx context.Context, msg model.Message) (model.Message, error)
	// MessagesByRoom returns all messages for a room ascending by timestamp.
	MessagesByRoom(ctx context.Context, room string) ([]model.Message, error)
}

// RPC exposes the platform's remote procedures.
type RPC interface {
	// JoinChatroom reports whether the room exists and is joinable. A false
	// result with a nil error means full or invalid, distinct from a
	// transport failure. The capacity check itself is the platform's.
	JoinChatroom(ctx context.Context, token string) (bool, error)
}

// MessageSub is a live feed of row-insert notifications for one room.
type MessageSub interface {
	C() <-chan model.Message
	// Close releases the subscription. The channel is closed afterwards.
	Close()
}

// EventSub is a live feed of a room's broadcast channel.
type EventSub interface {
	C() <-chan model.RoomEvent
	Close()
}

// Realtime is the pub/sub collaborator. Delivery is whatever the platform
// offers, assumed at-least-once and unordered across publishers.
type Realtime interface {
	SubscribeMessages(ctx context.Context, room string) (MessageSub, error)
	SubscribeEvents(ctx context.Context, room string) (EventSub, error)
	PublishMessage(ctx context.Context, room string, msg model.Message) error
	Broadcast(ctx context.Context, room string, evt model.RoomEvent) error
}

// Client bundles the four collaborator surfaces for injection.
type Client struct {
	Auth     Auth
	Store    Store
	RPC      RPC
	Realtime Realtime
}
