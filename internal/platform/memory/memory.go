// Package memory is an in-process implementation of the platform contract.
// It backs the dev backend and the test suites; nothing about it is
// production fan-out.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Anmol-345/Arcanus/internal/model"
	"github.com/Anmol-345/Arcanus/internal/platform"
)

// DefaultRoomCapacity mirrors the platform's join_chatroom capacity check.
const DefaultRoomCapacity = 2

// Platform implements Auth, Store, RPC and Realtime over process memory.
type Platform struct {
	mu       sync.RWMutex
	users    map[string]model.User // access token -> user
	rooms    map[string]model.Chatroom
	messages map[string][]model.Message // room token -> rows, insert order
	members  map[string]map[string]struct{}

	msgSubs map[string][]*msgSub
	evtSubs map[string][]*evtSub

	// RoomCapacity bounds JoinChatroom. Zero means DefaultRoomCapacity.
	RoomCapacity int
}

func New() *Platform {
	return &Platform{
		users:    make(map[string]model.User),
		rooms:    make(map[string]model.Chatroom),
		messages: make(map[string][]model.Message),
		members:  make(map[string]map[string]struct{}),
		msgSubs:  make(map[string][]*msgSub),
		evtSubs:  make(map[string][]*evtSub),
	}
}

// Client wraps the platform into the injectable bundle.
func (p *Platform) Client() platform.Client {
	return platform.Client{Auth: p, Store: p, RPC: p, Realtime: p}
}

// AddSession registers an access token for a user, standing in for the
// hosted provider's sign-in flow.
func (p *Platform) AddSession(token string, user model.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[token] = user
}

func (p *Platform) User(ctx context.Context, accessToken string) (model.User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	user, ok := p.users[accessToken]
	if !ok {
		return model.User{}, platform.ErrUnauthorized
	}
	return user, nil
}

func (p *Platform) SignOut(ctx context.Context, accessToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.users, accessToken)
	return nil
}

func (p *Platform) CreateChatroom(ctx context.Context) (model.Chatroom, error) {
	room := model.Chatroom{
		Token:     strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		CreatedAt: time.Now().UTC(),
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rooms[room.Token] = room
	return room, nil
}

func (p *Platform) ChatroomByToken(ctx context.Context, token string) (model.Chatroom, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	room, ok := p.rooms[token]
	if !ok {
		return model.Chatroom{}, platform.ErrNotFound
	}
	return room, nil
}

func (p *Platform) DeleteChatroom(ctx context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.rooms[token]; !ok {
		return platform.ErrNotFound
	}
	delete(p.rooms, token)
	delete(p.members, token)
	return nil
}

func (p *Platform) InsertMessage(ctx context.Context, msg model.Message) (model.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.rooms[msg.RoomID]; !ok {
		return model.Message{}, platform.ErrNotFound
	}
	msg.ID = uuid.NewString()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	p.messages[msg.RoomID] = append(p.messages[msg.RoomID], msg)
	return msg, nil
}

func (p *Platform) MessagesByRoom(ctx context.Context, room string) ([]model.Message, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rows := p.messages[room]
	out := make([]model.Message, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// JoinChatroom applies the same contract as the hosted procedure: true when
// the room exists and has capacity, false (not an error) otherwise.
func (p *Platform) JoinChatroom(ctx context.Context, token string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.rooms[token]; !ok {
		return false, nil
	}
	capacity := p.RoomCapacity
	if capacity == 0 {
		capacity = DefaultRoomCapacity
	}
	if len(p.members[token]) >= capacity {
		return false, nil
	}
	if p.members[token] == nil {
		p.members[token] = make(map[string]struct{})
	}
	p.members[token][uuid.NewString()] = struct{}{}
	return true, nil
}

type msgSub struct {
	p    *Platform
	room string
	ch   chan model.Message
	once sync.Once
}

func (s *msgSub) C() <-chan model.Message { return s.ch }

func (s *msgSub) Close() {
	s.once.Do(func() {
		s.p.mu.Lock()
		defer s.p.mu.Unlock()
		subs := s.p.msgSubs[s.room]
		for i, sub := range subs {
			if sub == s {
				s.p.msgSubs[s.room] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(s.ch)
	})
}

type evtSub struct {
	p    *Platform
	room string
	ch   chan model.RoomEvent
	once sync.Once
}

func (s *evtSub) C() <-chan model.RoomEvent { return s.ch }

func (s *evtSub) Close() {
	s.once.Do(func() {
		s.p.mu.Lock()
		defer s.p.mu.Unlock()
		subs := s.p.evtSubs[s.room]
		for i, sub := range subs {
			if sub == s {
				s.p.evtSubs[s.room] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(s.ch)
	})
}

func (p *Platform) SubscribeMessages(ctx context.Context, room string) (platform.MessageSub, error) {
	sub := &msgSub{p: p, room: room, ch: make(chan model.Message, 64)}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgSubs[room] = append(p.msgSubs[room], sub)
	return sub, nil
}

func (p *Platform) SubscribeEvents(ctx context.Context, room string) (platform.EventSub, error) {
	sub := &evtSub{p: p, room: room, ch: make(chan model.RoomEvent, 16)}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evtSubs[room] = append(p.evtSubs[room], sub)
	return sub, nil
}

func (p *Platform) PublishMessage(ctx context.Context, room string, msg model.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, sub := range p.msgSubs[room] {
		select {
		case sub.ch <- msg:
		default:
			// Slow subscriber; at-least-once only from the platform's side.
		}
	}
	return nil
}

func (p *Platform) Broadcast(ctx context.Context, room string, evt model.RoomEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, sub := range p.evtSubs[room] {
		select {
		case sub.ch <- evt:
		default:
		}
	}
	return nil
}
