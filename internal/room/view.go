package room

import (
	"context"
	"fmt"

	"github.com/Anmol-345/Arcanus/internal/model"
	"github.com/Anmol-345/Arcanus/internal/platform"
)

// Callbacks are what the view pushes back to its presentation layer.
type Callbacks struct {
	// OnAppend fires once per message merged into the feed, in display
	// order. The presentation layer scrolls to the bottom on every call.
	OnAppend func(model.Message)
	// OnDeleted shows the terminal "room deleted" notice.
	OnDeleted func()
	// OnRedirect navigates the peer home, RedirectDelay after OnDeleted.
	OnRedirect func()
}

// View is one user's mounted room view: feed plus lifecycle, acquired
// together on mount and released together on unmount. That scoped
// acquire/release is the only resource-lifetime discipline in the
// application.
type View struct {
	Room model.Chatroom
	User model.User

	feed      *Feed
	lifecycle *Lifecycle
}

// Open mounts a room view. The room must exist; a missing token surfaces
// platform.ErrNotFound before any subscription is acquired.
func Open(ctx context.Context, client platform.Client, roomToken string, user model.User, cb Callbacks, cfg LifecycleConfig) (*View, error) {
	chatroom, err := client.Store.ChatroomByToken(ctx, roomToken)
	if err != nil {
		return nil, fmt.Errorf("room: open %q: %w", roomToken, err)
	}

	lifecycle, err := OpenLifecycle(ctx, client.Store, client.Realtime, roomToken, user, cb.OnDeleted, cb.OnRedirect, cfg)
	if err != nil {
		return nil, err
	}

	feed, err := OpenFeed(ctx, client.Store, client.Realtime, roomToken, cb.OnAppend)
	if err != nil {
		lifecycle.Close()
		return nil, err
	}

	return &View{
		Room:      chatroom,
		User:      user,
		feed:      feed,
		lifecycle: lifecycle,
	}, nil
}

// History returns the current rendered message sequence.
func (v *View) History() []model.Message { return v.feed.History() }

// Send inserts a message as the view's user.
func (v *View) Send(ctx context.Context, text string) error {
	return v.feed.Send(ctx, v.User, text)
}

// Delete broadcasts the deletion then removes the room. Any member may call
// it; authorization, if any, is the platform's concern.
func (v *View) Delete(ctx context.Context) error {
	return v.lifecycle.Delete(ctx)
}

// Deleted reports whether the view reached the terminal display.
func (v *View) Deleted() bool { return v.lifecycle.Deleted() }

// Close unmounts the view, releasing both subscriptions.
func (v *View) Close() {
	v.feed.Close()
	v.lifecycle.Close()
}
