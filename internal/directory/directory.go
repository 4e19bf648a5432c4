// Package directory implements the home-screen operations: create a room,
// join a room by token, and log out.
package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/Anmol-345/Arcanus/internal/model"
	"github.com/Anmol-345/Arcanus/internal/platform"
	"github.com/Anmol-345/Arcanus/internal/report"
	"github.com/Anmol-345/Arcanus/internal/session"
)

// Service wires the directory operations to the platform.
type Service struct {
	store    platform.Store
	rpc      platform.RPC
	sessions *session.Store
}

func New(store platform.Store, rpc platform.RPC, sessions *session.Store) *Service {
	return &Service{store: store, rpc: rpc, sessions: sessions}
}

// RoomPath is the navigation target for a room token.
func RoomPath(token string) string { return "/chatroom/" + token }

// CreateRoom inserts a Chatroom with no client-supplied fields and returns
// the platform-generated token. No retry on failure; the caller logs through
// the report boundary and aborts.
func (s *Service) CreateRoom(ctx context.Context, user model.User) (model.Chatroom, error) {
	if user.ID == "" {
		return model.Chatroom{}, platform.ErrUnauthorized
	}
	room, err := s.store.CreateChatroom(ctx)
	if err != nil {
		return model.Chatroom{}, fmt.Errorf("directory: create room: %w", err)
	}
	return room, nil
}

// JoinRoom invokes the atomic join procedure. A semantic refusal (room full
// or invalid) surfaces as platform.ErrRoomUnavailable so the UI can raise a
// blocking alert, distinct from a transport failure.
func (s *Service) JoinRoom(ctx context.Context, user model.User, token string) error {
	if user.ID == "" {
		return platform.ErrUnauthorized
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return report.Invalid("room token is required")
	}
	joined, err := s.rpc.JoinChatroom(ctx, token)
	if err != nil {
		return fmt.Errorf("directory: join room: %w", err)
	}
	if !joined {
		return platform.ErrRoomUnavailable
	}
	return nil
}

// Logout revokes the session; the caller redirects to the login screen.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	return s.sessions.SignOut(ctx, accessToken)
}
