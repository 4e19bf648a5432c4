// Package natsrt backs the platform's pub/sub contract with NATS. Persisted
// row-insert notifications ride JetStream so subscribers shed nothing the
// broker accepted; room-deleted broadcasts are transient signaling and ride
// core NATS.
package natsrt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Anmol-345/Arcanus/internal/model"
	"github.com/Anmol-345/Arcanus/internal/platform"
)

const StreamName = "ARCANUS"

func messageSubject(room string) string { return StreamName + ".room." + room + ".messages" }
func eventSubject(room string) string   { return StreamName + "-events.room." + room }

// Realtime implements platform.Realtime over one NATS connection.
type Realtime struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
}

func New(ctx context.Context, conn *nats.Conn) (*Realtime, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("platform/natsrt: create jetstream instance: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{StreamName + ".room.>"},
		MaxBytes: 1 << 30, // 1GB max storage
	})
	if err != nil {
		return nil, fmt.Errorf("platform/natsrt: create/update stream: %w", err)
	}

	return &Realtime{conn: conn, js: js, stream: stream}, nil
}

func (r *Realtime) PublishMessage(ctx context.Context, room string, msg model.Message) error {
	p, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("platform/natsrt: could not encode payload to JSON: %w", err)
	}
	_, err = r.js.Publish(ctx, messageSubject(room), p, jetstream.WithMsgID(uuid.NewString()))
	if err != nil {
		return fmt.Errorf("platform/natsrt: failed to publish to stream [%s]: %w", messageSubject(room), err)
	}
	return nil
}

func (r *Realtime) Broadcast(ctx context.Context, room string, evt model.RoomEvent) error {
	p, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("platform/natsrt: could not encode event to JSON: %w", err)
	}
	if err := r.conn.Publish(eventSubject(room), p); err != nil {
		return fmt.Errorf("platform/natsrt: failed to broadcast on [%s]: %w", eventSubject(room), err)
	}
	return nil
}

// pipe decouples broker callbacks from the subscriber-facing channel: the
// callback hands off on in, and only the pump goroutine touches out, so Close
// cannot race a delivery.
type pipe[T any] struct {
	in   chan T
	out  chan T
	done chan struct{}
	once sync.Once
	stop func()
}

func newPipe[T any](buf int, stop func()) *pipe[T] {
	p := &pipe[T]{
		in:   make(chan T, buf),
		out:  make(chan T, buf),
		done: make(chan struct{}),
		stop: stop,
	}
	go p.run()
	return p
}

func (p *pipe[T]) run() {
	for {
		select {
		case v := <-p.in:
			select {
			case p.out <- v:
			default:
				log.Println("skipping payload - channel full or subscriber slow")
			}
		case <-p.done:
			close(p.out)
			return
		}
	}
}

func (p *pipe[T]) deliver(v T) {
	select {
	case p.in <- v:
	case <-p.done:
	}
}

func (p *pipe[T]) C() <-chan T { return p.out }

func (p *pipe[T]) Close() {
	p.once.Do(func() {
		if p.stop != nil {
			p.stop()
		}
		close(p.done)
	})
}

// SubscribeMessages delivers only inserts committed after the subscription
// is established; history belongs to the data API.
func (r *Realtime) SubscribeMessages(ctx context.Context, room string) (platform.MessageSub, error) {
	consumer, err := r.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject: messageSubject(room),
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("platform/natsrt: failed to create or update consumer: %w", err)
	}

	var consume jetstream.ConsumeContext
	sub := newPipe[model.Message](64, func() {
		if consume != nil {
			consume.Stop()
		}
	})

	handler := func(msg jetstream.Msg) {
		var payload model.Message
		if err := json.Unmarshal(msg.Data(), &payload); err != nil {
			msg.Term()
			log.Printf("could not decode payload: %v", err)
			return
		}
		msg.Ack()
		sub.deliver(payload)
	}

	errHandler := jetstream.ConsumeErrHandler(func(cc jetstream.ConsumeContext, err error) {
		log.Printf("consumer error: %v", err)
	})

	consume, err = consumer.Consume(handler, errHandler)
	if err != nil {
		sub.Close()
		return nil, fmt.Errorf("platform/natsrt: failed to start consuming messages: %w", err)
	}

	return sub, nil
}

func (r *Realtime) SubscribeEvents(ctx context.Context, room string) (platform.EventSub, error) {
	var ns *nats.Subscription
	sub := newPipe[model.RoomEvent](16, func() {
		if ns != nil {
			if err := ns.Unsubscribe(); err != nil {
				log.Printf("failed to unsubscribe: %v", err)
			}
		}
	})

	ns, err := r.conn.Subscribe(eventSubject(room), func(msg *nats.Msg) {
		var evt model.RoomEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			log.Printf("could not decode event: %v", err)
			return
		}
		sub.deliver(evt)
	})
	if err != nil {
		sub.Close()
		return nil, fmt.Errorf("platform/natsrt: subscribe [%s]: %w", eventSubject(room), err)
	}

	return sub, nil
}
