// Package model defines data structure.
package model

import "time"

// User is the identity supplied by the auth platform. The application never
// creates or mutates users; a session ends when the platform revokes it.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Chatroom is an ephemeral room. The token is generated by the platform and
// is the sole external handle: it appears in URLs and in the join RPC.
type Chatroom struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}
