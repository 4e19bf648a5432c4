package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Anmol-345/Arcanus/internal/model"
	"github.com/Anmol-345/Arcanus/internal/platform"
	"github.com/Anmol-345/Arcanus/internal/platform/memory"
	"github.com/Anmol-345/Arcanus/internal/report"
	"github.com/Anmol-345/Arcanus/internal/session"
)

func newService(p *memory.Platform) *Service {
	return New(p, p, session.New(p, ""))
}

func TestRoomPath(t *testing.T) {
	if got := RoomPath("abc123"); got != "/chatroom/abc123" {
		t.Errorf("RoomPath() = %q", got)
	}
}

func TestCreateRoom(t *testing.T) {
	user := model.User{ID: uuid.NewString(), Email: "dummy@test.com"}

	t.Run("returns_a_platform_token", func(t *testing.T) {
		p := memory.New()
		svc := newService(p)

		room, err := svc.CreateRoom(context.Background(), user)
		if err != nil {
			t.Fatalf("CreateRoom() error = %+v", err)
		}
		if room.Token == "" {
			t.Fatal("CreateRoom() returned an empty token")
		}

		if _, err := p.ChatroomByToken(context.Background(), room.Token); err != nil {
			t.Errorf("created room not fetchable: %+v", err)
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		svc := newService(memory.New())
		_, err := svc.CreateRoom(context.Background(), model.User{})
		if !errors.Is(err, platform.ErrUnauthorized) {
			t.Fatalf("want ErrUnauthorized, got %+v", err)
		}
	})
}

func TestJoinRoom(t *testing.T) {
	user := model.User{ID: uuid.NewString(), Email: "dummy@test.com"}

	t.Run("existing_room", func(t *testing.T) {
		p := memory.New()
		svc := newService(p)
		room, err := p.CreateChatroom(context.Background())
		if err != nil {
			t.Fatalf("CreateChatroom() error = %+v", err)
		}

		if err := svc.JoinRoom(context.Background(), user, room.Token); err != nil {
			t.Fatalf("JoinRoom() error = %+v", err)
		}
	})

	t.Run("token_gets_trimmed", func(t *testing.T) {
		p := memory.New()
		svc := newService(p)
		room, err := p.CreateChatroom(context.Background())
		if err != nil {
			t.Fatalf("CreateChatroom() error = %+v", err)
		}

		if err := svc.JoinRoom(context.Background(), user, "  "+room.Token+" \n"); err != nil {
			t.Fatalf("JoinRoom() with padded token error = %+v", err)
		}
	})

	t.Run("empty_token", func(t *testing.T) {
		svc := newService(memory.New())
		err := svc.JoinRoom(context.Background(), user, "   ")
		var verr *report.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("want a validation error, got %+v", err)
		}
	})

	t.Run("unknown_room", func(t *testing.T) {
		svc := newService(memory.New())
		err := svc.JoinRoom(context.Background(), user, "no-such-room")
		if !errors.Is(err, platform.ErrRoomUnavailable) {
			t.Fatalf("want ErrRoomUnavailable, got %+v", err)
		}
	})

	t.Run("full_room", func(t *testing.T) {
		p := memory.New()
		p.RoomCapacity = 1
		svc := newService(p)
		room, err := p.CreateChatroom(context.Background())
		if err != nil {
			t.Fatalf("CreateChatroom() error = %+v", err)
		}

		if err := svc.JoinRoom(context.Background(), user, room.Token); err != nil {
			t.Fatalf("first join error = %+v", err)
		}
		err = svc.JoinRoom(context.Background(), user, room.Token)
		if !errors.Is(err, platform.ErrRoomUnavailable) {
			t.Fatalf("want ErrRoomUnavailable on a full room, got %+v", err)
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		svc := newService(memory.New())
		err := svc.JoinRoom(context.Background(), model.User{}, "whatever")
		if !errors.Is(err, platform.ErrUnauthorized) {
			t.Fatalf("want ErrUnauthorized, got %+v", err)
		}
	})
}

func TestLogout(t *testing.T) {
	p := memory.New()
	user := model.User{ID: uuid.NewString(), Email: "dummy@test.com"}
	p.AddSession("opaque-token", user)

	sessions := session.New(p, "")
	svc := New(p, p, sessions)

	if _, err := sessions.Current(context.Background(), "opaque-token"); err != nil {
		t.Fatalf("Current() error = %+v", err)
	}
	if err := svc.Logout(context.Background(), "opaque-token"); err != nil {
		t.Fatalf("Logout() error = %+v", err)
	}
	if _, err := sessions.Current(context.Background(), "opaque-token"); !errors.Is(err, platform.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized after logout, got %+v", err)
	}
}
