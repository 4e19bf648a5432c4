package room

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Anmol-345/Arcanus/internal/model"
	"github.com/Anmol-345/Arcanus/internal/platform"
	"github.com/Anmol-345/Arcanus/internal/platform/memory"
)

// raceStore returns a fixed history and lets the test interleave work with
// the fetch, the way a live insert lands mid-load.
type raceStore struct {
	platform.Store
	history []model.Message
	onFetch func()
}

func (s *raceStore) MessagesByRoom(ctx context.Context, room string) ([]model.Message, error) {
	if s.onFetch != nil {
		s.onFetch()
	}
	out := make([]model.Message, len(s.history))
	copy(out, s.history)
	return out, nil
}

// flakyStore fails the first fetch, then reports the room gone.
type flakyStore struct {
	platform.Store
	mu    sync.Mutex
	calls int
}

func (s *flakyStore) ChatroomByToken(ctx context.Context, token string) (model.Chatroom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls == 1 {
		return model.Chatroom{}, errors.New("connection reset")
	}
	return model.Chatroom{}, platform.ErrNotFound
}

// fastLifecycle keeps the peer-side timings short enough for tests.
var fastLifecycle = LifecycleConfig{
	RedirectDelay:   20 * time.Millisecond,
	ConfirmInterval: 10 * time.Millisecond,
	ConfirmAttempts: 5,
}

func newRoom(t *testing.T, p *memory.Platform) model.Chatroom {
	t.Helper()
	chatroom, err := p.CreateChatroom(context.Background())
	if err != nil {
		t.Fatalf("CreateChatroom() error = %+v", err)
	}
	return chatroom
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestSend(t *testing.T) {
	user := model.User{ID: uuid.NewString(), Email: "dummy@test.com"}

	t.Run("whitespace_only_is_noop", func(t *testing.T) {
		p := memory.New()
		chatroom := newRoom(t, p)

		for _, text := range []string{"", "   ", "\n\t "} {
			if err := Send(context.Background(), p, p, chatroom.Token, user, text); err != nil {
				t.Fatalf("Send(%q) error = %+v", text, err)
			}
		}

		rows, err := p.MessagesByRoom(context.Background(), chatroom.Token)
		if err != nil {
			t.Fatalf("MessagesByRoom() error = %+v", err)
		}
		if len(rows) != 0 {
			t.Errorf("want no rows, got %d", len(rows))
		}
	})

	t.Run("unauthenticated_sender", func(t *testing.T) {
		p := memory.New()
		chatroom := newRoom(t, p)

		err := Send(context.Background(), p, p, chatroom.Token, model.User{}, "hello")
		if !errors.Is(err, platform.ErrUnauthorized) {
			t.Fatalf("want ErrUnauthorized, got %+v", err)
		}
	})

	t.Run("markup_is_stripped", func(t *testing.T) {
		p := memory.New()
		chatroom := newRoom(t, p)

		if err := Send(context.Background(), p, p, chatroom.Token, user, `<script>alert(1)</script>hi`); err != nil {
			t.Fatalf("Send() error = %+v", err)
		}

		rows, _ := p.MessagesByRoom(context.Background(), chatroom.Token)
		if len(rows) != 1 {
			t.Fatalf("want 1 row, got %d", len(rows))
		}
		if rows[0].Content != "hi" {
			t.Errorf("want sanitized content %q, got %q", "hi", rows[0].Content)
		}
	})

	t.Run("missing_room", func(t *testing.T) {
		p := memory.New()
		err := Send(context.Background(), p, p, "no-such-room", user, "hello")
		if !errors.Is(err, platform.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %+v", err)
		}
	})

	t.Run("committed_row_reaches_subscribers", func(t *testing.T) {
		p := memory.New()
		chatroom := newRoom(t, p)

		sub, err := p.SubscribeMessages(context.Background(), chatroom.Token)
		if err != nil {
			t.Fatalf("SubscribeMessages() error = %+v", err)
		}
		defer sub.Close()

		if err := Send(context.Background(), p, p, chatroom.Token, user, "hello"); err != nil {
			t.Fatalf("Send() error = %+v", err)
		}

		select {
		case msg := <-sub.C():
			if msg.ID == "" {
				t.Error("published message has no id; must be the committed row")
			}
			if msg.SenderID != user.ID {
				t.Errorf("want sender %s, got %s", user.ID, msg.SenderID)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for the published message")
		}
	})
}

func TestFeed(t *testing.T) {
	user := model.User{ID: uuid.NewString(), Email: "dummy@test.com"}

	t.Run("history_then_live_order", func(t *testing.T) {
		p := memory.New()
		chatroom := newRoom(t, p)

		for _, text := range []string{"first", "second"} {
			if err := Send(context.Background(), p, p, chatroom.Token, user, text); err != nil {
				t.Fatalf("Send() error = %+v", err)
			}
		}

		appended := make(chan model.Message, 8)
		feed, err := OpenFeed(context.Background(), p, p, chatroom.Token, func(m model.Message) {
			appended <- m
		})
		if err != nil {
			t.Fatalf("OpenFeed() error = %+v", err)
		}
		defer feed.Close()

		if err := Send(context.Background(), p, p, chatroom.Token, user, "third"); err != nil {
			t.Fatalf("Send() error = %+v", err)
		}

		want := []string{"first", "second", "third"}
		for _, content := range want {
			select {
			case m := <-appended:
				if m.Content != content {
					t.Fatalf("want %q appended, got %q", content, m.Content)
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("timed out waiting for %q", content)
			}
		}

		history := feed.History()
		if len(history) != len(want) {
			t.Fatalf("want %d messages, got %d", len(want), len(history))
		}
		for i, content := range want {
			if history[i].Content != content {
				t.Errorf("history[%d] = %q, want %q", i, history[i].Content, content)
			}
		}
	})

	t.Run("duplicate_ids_merge", func(t *testing.T) {
		p := memory.New()
		chatroom := newRoom(t, p)

		feed, err := OpenFeed(context.Background(), p, p, chatroom.Token, nil)
		if err != nil {
			t.Fatalf("OpenFeed() error = %+v", err)
		}
		defer feed.Close()

		committed, err := p.InsertMessage(context.Background(), model.Message{
			RoomID:   chatroom.Token,
			SenderID: user.ID,
			Content:  "once",
		})
		if err != nil {
			t.Fatalf("InsertMessage() error = %+v", err)
		}

		// The same row delivered twice, as the load/first-event overlap
		// would produce.
		for i := 0; i < 2; i++ {
			if err := p.PublishMessage(context.Background(), chatroom.Token, committed); err != nil {
				t.Fatalf("PublishMessage() error = %+v", err)
			}
		}

		deadline := time.Now().Add(2 * time.Second)
		for len(feed.History()) == 0 {
			if time.Now().After(deadline) {
				t.Fatal("timed out waiting for the message")
			}
			time.Sleep(5 * time.Millisecond)
		}
		time.Sleep(20 * time.Millisecond)

		if got := len(feed.History()); got != 1 {
			t.Errorf("want 1 message after duplicate delivery, got %d", got)
		}
	})

	t.Run("live_row_during_history_fetch_keeps_order", func(t *testing.T) {
		p := memory.New()
		chatroom := newRoom(t, p)

		m1 := model.Message{ID: "1", RoomID: chatroom.Token, SenderID: user.ID, Content: "first"}
		m2 := model.Message{ID: "2", RoomID: chatroom.Token, SenderID: user.ID, Content: "second"}
		m3 := model.Message{ID: "3", RoomID: chatroom.Token, SenderID: user.ID, Content: "third"}

		// The newest row is published while the history fetch is in flight
		// and also comes back as the history tail. It must render once, at
		// the tail, never ahead of the older rows.
		store := &raceStore{history: []model.Message{m1, m2, m3}}
		store.onFetch = func() {
			if err := p.PublishMessage(context.Background(), chatroom.Token, m3); err != nil {
				t.Errorf("PublishMessage() error = %+v", err)
			}
		}

		feed, err := OpenFeed(context.Background(), store, p, chatroom.Token, nil)
		if err != nil {
			t.Fatalf("OpenFeed() error = %+v", err)
		}
		defer feed.Close()

		// Let the buffered live delivery run through the merge.
		time.Sleep(50 * time.Millisecond)

		history := feed.History()
		if len(history) != 3 {
			t.Fatalf("want 3 messages, got %d: %+v", len(history), history)
		}
		for i, want := range []string{"first", "second", "third"} {
			if history[i].Content != want {
				t.Errorf("history[%d] = %q, want %q", i, history[i].Content, want)
			}
		}
	})

	t.Run("close_is_idempotent", func(t *testing.T) {
		p := memory.New()
		chatroom := newRoom(t, p)

		feed, err := OpenFeed(context.Background(), p, p, chatroom.Token, nil)
		if err != nil {
			t.Fatalf("OpenFeed() error = %+v", err)
		}
		feed.Close()
		feed.Close()
	})
}

func TestDelete(t *testing.T) {
	user := model.User{ID: uuid.NewString(), Email: "dummy@test.com"}

	t.Run("broadcast_precedes_delete", func(t *testing.T) {
		p := memory.New()
		chatroom := newRoom(t, p)

		sub, err := p.SubscribeEvents(context.Background(), chatroom.Token)
		if err != nil {
			t.Fatalf("SubscribeEvents() error = %+v", err)
		}
		defer sub.Close()

		if err := Delete(context.Background(), p, p, chatroom.Token, user); err != nil {
			t.Fatalf("Delete() error = %+v", err)
		}

		select {
		case evt := <-sub.C():
			if evt.Type != model.EventRoomDeleted {
				t.Errorf("want event %q, got %q", model.EventRoomDeleted, evt.Type)
			}
			if evt.SenderID != user.ID {
				t.Errorf("want sender %s, got %s", user.ID, evt.SenderID)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for the deletion broadcast")
		}

		_, err = p.ChatroomByToken(context.Background(), chatroom.Token)
		if !errors.Is(err, platform.ErrNotFound) {
			t.Fatalf("want ErrNotFound after delete, got %+v", err)
		}
	})

	t.Run("unauthenticated_initiator", func(t *testing.T) {
		p := memory.New()
		chatroom := newRoom(t, p)

		err := Delete(context.Background(), p, p, chatroom.Token, model.User{})
		if !errors.Is(err, platform.ErrUnauthorized) {
			t.Fatalf("want ErrUnauthorized, got %+v", err)
		}
	})
}

func TestLifecycle(t *testing.T) {
	initiator := model.User{ID: uuid.NewString(), Email: "a@test.com"}
	peer := model.User{ID: uuid.NewString(), Email: "b@test.com"}

	t.Run("peer_goes_terminal_then_redirects", func(t *testing.T) {
		p := memory.New()
		chatroom := newRoom(t, p)

		deleted := make(chan struct{})
		redirected := make(chan struct{})

		lc, err := OpenLifecycle(context.Background(), p, p, chatroom.Token, peer,
			func() { close(deleted) },
			func() { close(redirected) },
			fastLifecycle)
		if err != nil {
			t.Fatalf("OpenLifecycle() error = %+v", err)
		}
		defer lc.Close()

		if err := Delete(context.Background(), p, p, chatroom.Token, initiator); err != nil {
			t.Fatalf("Delete() error = %+v", err)
		}

		waitSignal(t, deleted, "the terminal notice")
		if !lc.Deleted() {
			t.Error("Deleted() = false after the terminal notice")
		}
		waitSignal(t, redirected, "the redirect")
	})

	t.Run("initiator_ignores_own_broadcast", func(t *testing.T) {
		p := memory.New()
		chatroom := newRoom(t, p)

		deleted := make(chan struct{}, 1)
		lc, err := OpenLifecycle(context.Background(), p, p, chatroom.Token, initiator,
			func() { deleted <- struct{}{} },
			nil,
			fastLifecycle)
		if err != nil {
			t.Fatalf("OpenLifecycle() error = %+v", err)
		}
		defer lc.Close()

		if err := lc.Delete(context.Background()); err != nil {
			t.Fatalf("Delete() error = %+v", err)
		}

		select {
		case <-deleted:
			t.Fatal("the initiating view must not self-transition")
		case <-time.After(150 * time.Millisecond):
		}
		if lc.Deleted() {
			t.Error("Deleted() = true on the initiator")
		}
	})

	t.Run("transient_confirm_error_consumes_one_attempt", func(t *testing.T) {
		p := memory.New()
		chatroom := newRoom(t, p)

		deleted := make(chan struct{})
		store := &flakyStore{}
		lc, err := OpenLifecycle(context.Background(), store, p, chatroom.Token, peer,
			func() { close(deleted) },
			nil,
			fastLifecycle)
		if err != nil {
			t.Fatalf("OpenLifecycle() error = %+v", err)
		}
		defer lc.Close()

		evt := model.RoomEvent{Type: model.EventRoomDeleted, SenderID: initiator.ID}
		if err := p.Broadcast(context.Background(), chatroom.Token, evt); err != nil {
			t.Fatalf("Broadcast() error = %+v", err)
		}

		// The first confirmation fetch fails; the retry must still find the
		// room gone and go terminal.
		waitSignal(t, deleted, "the terminal notice after a fetch blip")
	})

	t.Run("broadcast_without_delete_ignored", func(t *testing.T) {
		p := memory.New()
		chatroom := newRoom(t, p)

		deleted := make(chan struct{}, 1)
		lc, err := OpenLifecycle(context.Background(), p, p, chatroom.Token, peer,
			func() { deleted <- struct{}{} },
			nil,
			LifecycleConfig{
				RedirectDelay:   20 * time.Millisecond,
				ConfirmInterval: 5 * time.Millisecond,
				ConfirmAttempts: 3,
			})
		if err != nil {
			t.Fatalf("OpenLifecycle() error = %+v", err)
		}
		defer lc.Close()

		// Announcement with no matching delete; the room keeps existing, so
		// every confirmation fetch still finds it.
		evt := model.RoomEvent{Type: model.EventRoomDeleted, SenderID: initiator.ID}
		if err := p.Broadcast(context.Background(), chatroom.Token, evt); err != nil {
			t.Fatalf("Broadcast() error = %+v", err)
		}

		select {
		case <-deleted:
			t.Fatal("view transitioned without the room being gone")
		case <-time.After(150 * time.Millisecond):
		}
	})

	t.Run("close_cancels_pending_redirect", func(t *testing.T) {
		p := memory.New()
		chatroom := newRoom(t, p)

		deleted := make(chan struct{})
		redirected := make(chan struct{}, 1)

		lc, err := OpenLifecycle(context.Background(), p, p, chatroom.Token, peer,
			func() { close(deleted) },
			func() { redirected <- struct{}{} },
			LifecycleConfig{
				RedirectDelay:   200 * time.Millisecond,
				ConfirmInterval: 10 * time.Millisecond,
				ConfirmAttempts: 5,
			})
		if err != nil {
			t.Fatalf("OpenLifecycle() error = %+v", err)
		}

		if err := Delete(context.Background(), p, p, chatroom.Token, initiator); err != nil {
			t.Fatalf("Delete() error = %+v", err)
		}

		waitSignal(t, deleted, "the terminal notice")
		lc.Close()

		select {
		case <-redirected:
			t.Fatal("redirect fired after Close()")
		case <-time.After(300 * time.Millisecond):
		}
	})
}

func TestView(t *testing.T) {
	user := model.User{ID: uuid.NewString(), Email: "dummy@test.com"}

	t.Run("missing_room", func(t *testing.T) {
		p := memory.New()
		_, err := Open(context.Background(), p.Client(), "no-such-room", user, Callbacks{}, fastLifecycle)
		if !errors.Is(err, platform.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %+v", err)
		}
	})

	t.Run("send_echoes_through_the_feed", func(t *testing.T) {
		p := memory.New()
		chatroom := newRoom(t, p)

		appended := make(chan model.Message, 4)
		view, err := Open(context.Background(), p.Client(), chatroom.Token, user, Callbacks{
			OnAppend: func(m model.Message) { appended <- m },
		}, fastLifecycle)
		if err != nil {
			t.Fatalf("Open() error = %+v", err)
		}
		defer view.Close()

		if err := view.Send(context.Background(), "hello"); err != nil {
			t.Fatalf("Send() error = %+v", err)
		}

		select {
		case m := <-appended:
			if m.Content != "hello" || m.SenderID != user.ID {
				t.Errorf("unexpected echo: %+v", m)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for the echo")
		}
	})

	t.Run("peer_view_sees_the_deletion", func(t *testing.T) {
		p := memory.New()
		chatroom := newRoom(t, p)
		peer := model.User{ID: uuid.NewString(), Email: "peer@test.com"}

		deleted := make(chan struct{})
		peerView, err := Open(context.Background(), p.Client(), chatroom.Token, peer, Callbacks{
			OnDeleted: func() { close(deleted) },
		}, fastLifecycle)
		if err != nil {
			t.Fatalf("Open() peer error = %+v", err)
		}
		defer peerView.Close()

		ownView, err := Open(context.Background(), p.Client(), chatroom.Token, user, Callbacks{}, fastLifecycle)
		if err != nil {
			t.Fatalf("Open() error = %+v", err)
		}
		defer ownView.Close()

		if err := ownView.Delete(context.Background()); err != nil {
			t.Fatalf("Delete() error = %+v", err)
		}

		waitSignal(t, deleted, "the peer's terminal notice")
		if !peerView.Deleted() {
			t.Error("peer view not terminal after deletion")
		}
		if ownView.Deleted() {
			t.Error("initiating view must not self-transition")
		}
	})
}
