package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/Anmol-345/Arcanus/internal/metrics"
	"github.com/Anmol-345/Arcanus/internal/model"
	"github.com/Anmol-345/Arcanus/internal/room"
)

// wsEvent is what the browser receives over the room socket.
type wsEvent struct {
	Type    string         `json:"type"`
	Message *model.Message `json:"message,omitempty"`
	UserID  string         `json:"userId,omitempty"`
	Email   string         `json:"email,omitempty"`
	Room    string         `json:"room,omitempty"`
	To      string         `json:"to,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	ch   chan wsEvent
}

func newWsClient(conn *websocket.Conn) *wsClient {
	return &wsClient{conn: conn, ch: make(chan wsEvent, 256)}
}

// push never blocks a room callback; a slow browser drops events the same
// way the platform drops them for a slow subscriber.
func (c *wsClient) push(evt wsEvent) {
	select {
	case c.ch <- evt:
	default:
		log.Println("skipping ws payload - channel full or client slow")
	}
}

// writePump drains the event channel into the socket.
func (c *wsClient) writePump(ctx context.Context) {
	for {
		select {
		case evt, ok := <-c.ch:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			w, err := c.conn.Writer(writeCtx, websocket.MessageText)
			if err != nil {
				cancel()
				continue
			}
			if err := json.NewEncoder(w).Encode(evt); err != nil {
				log.Printf("failed to encode ws event: %v", err)
			}
			w.Close()
			cancel()

		case <-ctx.Done():
			c.conn.Close(websocket.StatusGoingAway, "context cancelled")
			return
		}
	}
}

// serveWs mounts a room view for this user and streams its events to the
// browser. The view's subscriptions are released when the socket goes away:
// the handler returning cancels the request context.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := UserFromContext(ctx)
	token := chi.URLParam(r, "token")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("failed to upgrade connection: %v", err)
		return
	}

	c := newWsClient(conn)
	go c.writePump(ctx)

	c.push(wsEvent{Type: "init", UserID: user.ID, Email: user.Email, Room: token})

	view, err := room.Open(ctx, s.Platform, token, user, room.Callbacks{
		OnAppend: func(m model.Message) {
			msg := m
			c.push(wsEvent{Type: "message", Message: &msg})
		},
		OnDeleted: func() {
			c.push(wsEvent{Type: model.EventRoomDeleted})
		},
		OnRedirect: func() {
			c.push(wsEvent{Type: "redirect", To: "/"})
		},
	}, s.Lifecycle)
	if err != nil {
		s.Reporter.Report(ctx, "open room view", err)
		conn.Close(websocket.StatusPolicyViolation, "room unavailable")
		return
	}
	defer view.Close()

	metrics.WsConnections.Inc()
	defer metrics.WsConnections.Dec()

	// The browser never sends application data on this socket; reading
	// here just observes the close.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure &&
				status != websocket.StatusGoingAway &&
				status != -1 {
				log.Printf("%v", err)
			}
			return
		}
	}
}
