// Package redisrt backs the platform's pub/sub contract with Redis Pub/Sub.
// Delivery is fire-and-forget per channel, which matches what the
// application assumes of the collaborator.
package redisrt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/Anmol-345/Arcanus/internal/model"
	"github.com/Anmol-345/Arcanus/internal/platform"
)

func messageChannel(room string) string { return "arcanus:room:" + room + ":messages" }
func eventChannel(room string) string   { return "arcanus:room:" + room + ":events" }

// Realtime implements platform.Realtime over one Redis client.
type Realtime struct {
	client *redis.Client
}

func New(client *redis.Client) *Realtime {
	return &Realtime{client: client}
}

func (r *Realtime) PublishMessage(ctx context.Context, room string, msg model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("platform/redisrt: encode message: %w", err)
	}
	if err := r.client.Publish(ctx, messageChannel(room), data).Err(); err != nil {
		return fmt.Errorf("platform/redisrt: publish message: %w", err)
	}
	return nil
}

func (r *Realtime) Broadcast(ctx context.Context, room string, evt model.RoomEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("platform/redisrt: encode event: %w", err)
	}
	if err := r.client.Publish(ctx, eventChannel(room), data).Err(); err != nil {
		return fmt.Errorf("platform/redisrt: publish event: %w", err)
	}
	return nil
}

type msgSub struct {
	pubsub *redis.PubSub
	ch     chan model.Message
}

func (s *msgSub) C() <-chan model.Message { return s.ch }
func (s *msgSub) Close()                  { s.pubsub.Close() }

func (r *Realtime) SubscribeMessages(ctx context.Context, room string) (platform.MessageSub, error) {
	pubsub := r.client.Subscribe(ctx, messageChannel(room))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("platform/redisrt: subscribe messages: %w", err)
	}

	sub := &msgSub{pubsub: pubsub, ch: make(chan model.Message, 64)}
	go func() {
		defer close(sub.ch)
		for m := range pubsub.Channel() {
			var payload model.Message
			if err := json.Unmarshal([]byte(m.Payload), &payload); err != nil {
				slog.Warn("dropping undecodable message payload", "channel", m.Channel, "error", err)
				continue
			}
			sub.ch <- payload
		}
	}()
	return sub, nil
}

type evtSub struct {
	pubsub *redis.PubSub
	ch     chan model.RoomEvent
}

func (s *evtSub) C() <-chan model.RoomEvent { return s.ch }
func (s *evtSub) Close()                    { s.pubsub.Close() }

func (r *Realtime) SubscribeEvents(ctx context.Context, room string) (platform.EventSub, error) {
	pubsub := r.client.Subscribe(ctx, eventChannel(room))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("platform/redisrt: subscribe events: %w", err)
	}

	sub := &evtSub{pubsub: pubsub, ch: make(chan model.RoomEvent, 16)}
	go func() {
		defer close(sub.ch)
		for m := range pubsub.Channel() {
			var evt model.RoomEvent
			if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
				slog.Warn("dropping undecodable room event", "channel", m.Channel, "error", err)
				continue
			}
			sub.ch <- evt
		}
	}()
	return sub, nil
}
