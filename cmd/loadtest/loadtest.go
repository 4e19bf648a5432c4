// Command loadtest drives a running instance with synthetic chat traffic:
// sign in, create a room, attach websocket listeners, and send message
// bursts through the HTTP API. Dev-backend instances only; it relies on the
// local sign-in shortcut.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

var (
	baseURL  = flag.String("url", "http://localhost:8080", "server base URL")
	rooms    = flag.Int("rooms", 4, "rooms to create")
	peers    = flag.Int("peers", 2, "listeners per room")
	messages = flag.Int("messages", 50, "messages per room")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var sent, received atomic.Int64
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < *rooms; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := runRoom(ctx, n, &sent, &received); err != nil {
				log.Printf("room %d: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	log.Printf("sent %d, received %d across %d rooms in %s",
		sent.Load(), received.Load(), *rooms, time.Since(start).Round(time.Millisecond))
}

func runRoom(ctx context.Context, n int, sent, received *atomic.Int64) error {
	owner, err := signIn(ctx, fmt.Sprintf("load-%d-owner@test.local", n))
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	var room struct {
		Token string `json:"token"`
	}
	if err := owner.postJSON(ctx, "/api/rooms", nil, &room); err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	listenCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()

	var wg sync.WaitGroup
	for p := 0; p < *peers; p++ {
		peer, err := signIn(ctx, fmt.Sprintf("load-%d-peer-%d@test.local", n, p))
		if err != nil {
			return fmt.Errorf("peer sign in: %w", err)
		}
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			if err := c.listen(listenCtx, room.Token, received); err != nil {
				log.Printf("room %s listener: %v", room.Token, err)
			}
		}(peer)
	}

	for m := 0; m < *messages; m++ {
		body := map[string]string{"content": fmt.Sprintf("load message %d", m)}
		if err := owner.postJSON(ctx, "/api/chatroom/"+room.Token+"/messages", body, nil); err != nil {
			log.Printf("room %s send: %v", room.Token, err)
			continue
		}
		sent.Add(1)
		// Stay under the per-user send throttle.
		time.Sleep(2100 * time.Millisecond)
	}

	// Let the last messages land before tearing the listeners down.
	time.Sleep(time.Second)
	stopListening()
	wg.Wait()
	return nil
}

type client struct {
	http   *http.Client
	cookie string
}

func signIn(ctx context.Context, email string) (*client, error) {
	c := &client{http: http.DefaultClient}
	buf, _ := json.Marshal(map[string]string{"email": email})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *baseURL+"/auth/dev-login", bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dev-login status %d", resp.StatusCode)
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == "arcanus_session" {
			c.cookie = ck.Name + "=" + ck.Value
		}
	}
	if c.cookie == "" {
		return nil, fmt.Errorf("no session cookie in dev-login response")
	}
	return c, nil
}

func (c *client) postJSON(ctx context.Context, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", c.cookie)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) listen(ctx context.Context, roomToken string, received *atomic.Int64) error {
	wsURL := strings.Replace(*baseURL, "http", "ws", 1) + "/api/chatroom/" + roomToken + "/ws"
	header := http.Header{}
	header.Set("Cookie", c.cookie)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var evt struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &evt); err != nil {
			continue
		}
		if evt.Type == "message" {
			received.Add(1)
		}
	}
}
