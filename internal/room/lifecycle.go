package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Anmol-345/Arcanus/internal/model"
	"github.com/Anmol-345/Arcanus/internal/platform"
)

// Lifecycle states. DELETED is terminal.
const (
	stateActive int = iota
	stateDeleted
	stateClosed
)

const (
	// DefaultRedirectDelay is how long the terminal notice stays up before
	// the peer is sent home.
	DefaultRedirectDelay = 3 * time.Second

	defaultConfirmInterval = 500 * time.Millisecond
	defaultConfirmAttempts = 5
)

// Lifecycle tracks one view's ACTIVE -> DELETED transition and the deletion
// broadcast that drives it on peers.
type Lifecycle struct {
	store    platform.Store
	realtime platform.Realtime
	room     string
	user     model.User

	onDeleted  func()
	onRedirect func()

	redirectDelay   time.Duration
	confirmInterval time.Duration
	confirmAttempts int

	sub platform.EventSub

	mu    sync.Mutex
	state int
	timer *time.Timer
	done  chan struct{}
}

// LifecycleConfig tunes the peer-side timings. Zero values take defaults.
type LifecycleConfig struct {
	RedirectDelay   time.Duration
	ConfirmInterval time.Duration
	ConfirmAttempts int
}

// OpenLifecycle subscribes to the room's broadcast channel. onDeleted shows
// the terminal notice; onRedirect fires RedirectDelay later.
func OpenLifecycle(ctx context.Context, store platform.Store, realtime platform.Realtime, roomToken string, user model.User, onDeleted, onRedirect func(), cfg LifecycleConfig) (*Lifecycle, error) {
	l := &Lifecycle{
		store:           store,
		realtime:        realtime,
		room:            roomToken,
		user:            user,
		onDeleted:       onDeleted,
		onRedirect:      onRedirect,
		redirectDelay:   cfg.RedirectDelay,
		confirmInterval: cfg.ConfirmInterval,
		confirmAttempts: cfg.ConfirmAttempts,
		done:            make(chan struct{}),
	}
	if l.redirectDelay == 0 {
		l.redirectDelay = DefaultRedirectDelay
	}
	if l.confirmInterval == 0 {
		l.confirmInterval = defaultConfirmInterval
	}
	if l.confirmAttempts == 0 {
		l.confirmAttempts = defaultConfirmAttempts
	}

	sub, err := realtime.SubscribeEvents(ctx, roomToken)
	if err != nil {
		return nil, fmt.Errorf("room: subscribe events: %w", err)
	}
	l.sub = sub

	go l.watch()

	return l, nil
}

func (l *Lifecycle) watch() {
	for {
		select {
		case evt, ok := <-l.sub.C():
			if !ok {
				return
			}
			// The initiating view never self-transitions; it navigates
			// immediately on its own Delete call.
			if evt.Type != model.EventRoomDeleted || evt.SenderID == l.user.ID {
				continue
			}
			l.confirmAndTransition()
		case <-l.done:
			return
		}
	}
}

// confirmAndTransition treats the broadcast as an announcement of intent:
// the peer only goes terminal once a re-fetch confirms the room is gone.
// The broadcast is sent before the delete, so the first fetch may still see
// the row.
func (l *Lifecycle) confirmAndTransition() {
	ctx := context.Background()
	for attempt := 0; attempt < l.confirmAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(l.confirmInterval):
			case <-l.done:
				return
			}
		}
		_, err := l.store.ChatroomByToken(ctx, l.room)
		if errors.Is(err, platform.ErrNotFound) {
			l.transition()
			return
		}
		// A transient fetch failure consumes the attempt; the next tick
		// retries rather than stranding the view in ACTIVE.
		if err != nil {
			slog.Warn("could not confirm room deletion", "room", l.room, "error", err)
		}
	}
	slog.Warn("room still present after deletion notice, ignoring", "room", l.room)
}

func (l *Lifecycle) transition() {
	l.mu.Lock()
	if l.state != stateActive {
		l.mu.Unlock()
		return
	}
	l.state = stateDeleted
	l.timer = time.AfterFunc(l.redirectDelay, func() {
		if l.onRedirect != nil {
			l.onRedirect()
		}
	})
	l.mu.Unlock()

	if l.onDeleted != nil {
		l.onDeleted()
	}
}

// Deleted reports whether the view has reached the terminal display.
func (l *Lifecycle) Deleted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == stateDeleted
}

// Delete broadcasts the room-deleted event, then deletes the Chatroom row.
// The ordering is deliberate: peers are notified while the record still
// logically exists. The initiator does not wait for its own echo; the caller
// navigates immediately.
func Delete(ctx context.Context, store platform.Store, realtime platform.Realtime, roomToken string, user model.User) error {
	if user.ID == "" {
		return platform.ErrUnauthorized
	}
	evt := model.RoomEvent{Type: model.EventRoomDeleted, SenderID: user.ID}
	if err := realtime.Broadcast(ctx, roomToken, evt); err != nil {
		return fmt.Errorf("room: broadcast deletion: %w", err)
	}
	if err := store.DeleteChatroom(ctx, roomToken); err != nil {
		return fmt.Errorf("room: delete chatroom: %w", err)
	}
	return nil
}

// Delete runs the deletion as the view's user.
func (l *Lifecycle) Delete(ctx context.Context) error {
	return Delete(ctx, l.store, l.realtime, l.room, l.user)
}

// Close releases the subscription and any pending redirect. Navigating away
// cancels interest; an in-flight delete is not aborted.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	if l.state == stateClosed {
		l.mu.Unlock()
		return
	}
	l.state = stateClosed
	if l.timer != nil {
		l.timer.Stop()
	}
	l.mu.Unlock()

	close(l.done)
	l.sub.Close()
}
