// Package room implements a mounted room view: the live message feed and the
// deletion lifecycle, both scoped to the view and released on unmount.
package room

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Anmol-345/Arcanus/internal/model"
	"github.com/Anmol-345/Arcanus/internal/platform"
)

// Messages pass through the strict policy before insert to keep markup out
// of the feed. Policies are safe for concurrent use once built.
var sanitize = bluemonday.StrictPolicy()

// Send inserts a message and publishes the committed row to the room's
// subscribers. A whitespace-only text is a no-op: no insert, no state
// change. The sender is not rendered optimistically; their own message
// appears through the live-subscription echo.
func Send(ctx context.Context, store platform.Store, realtime platform.Realtime, roomToken string, user model.User, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if user.ID == "" {
		return platform.ErrUnauthorized
	}

	msg := model.Message{
		RoomID:   roomToken,
		SenderID: user.ID,
		Content:  sanitize.Sanitize(text),
	}

	committed, err := store.InsertMessage(ctx, msg)
	if err != nil {
		return fmt.Errorf("room: insert message: %w", err)
	}
	if err := realtime.PublishMessage(ctx, roomToken, committed); err != nil {
		return fmt.Errorf("room: publish message: %w", err)
	}
	return nil
}

// Feed is the ordered message sequence for one room view. The subscription
// is established before the history fetch and live events merge by message
// id, so the load/first-event race can neither drop nor duplicate a row.
type Feed struct {
	store    platform.Store
	realtime platform.Realtime
	room     string
	onAppend func(model.Message)

	sub platform.MessageSub

	mu       sync.Mutex
	seen     map[string]struct{}
	messages []model.Message
	closed   bool
	done     chan struct{}
}

// OpenFeed subscribes to the room's row-insert notifications, then loads
// history. onAppend fires once per newly merged message, in display order;
// the web layer turns it into the scroll-to-bottom push.
func OpenFeed(ctx context.Context, store platform.Store, realtime platform.Realtime, roomToken string, onAppend func(model.Message)) (*Feed, error) {
	f := &Feed{
		store:    store,
		realtime: realtime,
		room:     roomToken,
		onAppend: onAppend,
		seen:     make(map[string]struct{}),
		done:     make(chan struct{}),
	}

	// Subscribe first: anything inserted while history is in flight arrives
	// as a live event and the id merge sorts out the overlap.
	sub, err := realtime.SubscribeMessages(ctx, roomToken)
	if err != nil {
		return nil, fmt.Errorf("room: subscribe messages: %w", err)
	}
	f.sub = sub

	history, err := store.MessagesByRoom(ctx, roomToken)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("room: load history: %w", err)
	}
	for _, msg := range history {
		f.append(msg)
	}

	// Only start draining live events once history holds its positions;
	// anything delivered meanwhile waits in the subscription buffer, so it
	// lands after the loaded rows and the id merge drops the overlap.
	go f.consume()

	return f, nil
}

func (f *Feed) consume() {
	for {
		select {
		case msg, ok := <-f.sub.C():
			if !ok {
				return
			}
			f.append(msg)
		case <-f.done:
			return
		}
	}
}

// append merges one message by id; the tail position assumes live inserts
// sort after loaded history, which holds because history is fetched sorted
// and the platform assigns timestamps at commit.
func (f *Feed) append(msg model.Message) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	if _, dup := f.seen[msg.ID]; dup {
		f.mu.Unlock()
		return
	}
	f.seen[msg.ID] = struct{}{}
	f.messages = append(f.messages, msg)
	onAppend := f.onAppend
	f.mu.Unlock()

	if onAppend != nil {
		onAppend(msg)
	}
}

// History returns the rendered sequence: history order concatenated with
// arrival order of live events.
func (f *Feed) History() []model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Message, len(f.messages))
	copy(out, f.messages)
	return out
}

// Send inserts a message through the feed's room.
func (f *Feed) Send(ctx context.Context, user model.User, text string) error {
	return Send(ctx, f.store, f.realtime, f.room, user, text)
}

// Close releases the subscription. Safe to call more than once.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()

	close(f.done)
	f.sub.Close()
}
