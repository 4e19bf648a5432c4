package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anmol-345/Arcanus/internal/model"
	"github.com/Anmol-345/Arcanus/internal/platform"
)

const testAPIKey = "anon-key"

// fakePlatform stands in for the hosted project's data and auth services.
func fakePlatform(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, testAPIKey)
}

func TestHeaders(t *testing.T) {
	var gotAPIKey, gotAuth string
	c := fakePlatform(t, func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]model.Chatroom{{Token: "abc123"}})
	})

	_, err := c.ChatroomByToken(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, testAPIKey, gotAPIKey)
	// Row access without a user token falls back to the API key.
	assert.Equal(t, "Bearer "+testAPIKey, gotAuth)
}

func TestUser(t *testing.T) {
	t.Run("forwards_the_access_token", func(t *testing.T) {
		c := fakePlatform(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/v1/user", r.URL.Path)
			assert.Equal(t, "Bearer user-access-token", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(model.User{ID: "user-1", Email: "dummy@test.com"})
		})

		user, err := c.User(context.Background(), "user-access-token")
		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
		assert.Equal(t, "dummy@test.com", user.Email)
	})

	t.Run("revoked_token", func(t *testing.T) {
		c := fakePlatform(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := c.User(context.Background(), "stale-token")
		assert.ErrorIs(t, err, platform.ErrUnauthorized)
	})
}

func TestCreateChatroom(t *testing.T) {
	c := fakePlatform(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/Chatroom", r.URL.Path)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode([]model.Chatroom{{Token: "abc123def456"}})
	})

	room, err := c.CreateChatroom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123def456", room.Token)
}

func TestChatroomByToken(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		c := fakePlatform(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "eq.abc123", r.URL.Query().Get("token"))
			_ = json.NewEncoder(w).Encode([]model.Chatroom{{Token: "abc123"}})
		})

		room, err := c.ChatroomByToken(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, "abc123", room.Token)
	})

	t.Run("empty_result_set", func(t *testing.T) {
		c := fakePlatform(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode([]model.Chatroom{})
		})

		_, err := c.ChatroomByToken(context.Background(), "gone")
		assert.ErrorIs(t, err, platform.ErrNotFound)
	})
}

func TestInsertMessage(t *testing.T) {
	c := fakePlatform(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "room-1", body["RoomId"])
		assert.Equal(t, "user-1", body["SenderId"])
		assert.Equal(t, "hello", body["Content"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode([]model.Message{{
			ID: "11", RoomID: "room-1", SenderID: "user-1", Content: "hello",
		}})
	})

	msg, err := c.InsertMessage(context.Background(), model.Message{
		RoomID: "room-1", SenderID: "user-1", Content: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "11", msg.ID)
}

func TestMessagesByRoom(t *testing.T) {
	c := fakePlatform(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.room-1", r.URL.Query().Get("RoomId"))
		assert.Equal(t, "timestamp.asc", r.URL.Query().Get("order"))
		_ = json.NewEncoder(w).Encode([]model.Message{
			{ID: "1", Content: "first"},
			{ID: "2", Content: "second"},
		})
	})

	rows, err := c.MessagesByRoom(context.Background(), "room-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "first", rows[0].Content)
}

func TestJoinChatroom(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"joined", "true", true},
		{"refused", "false", false},
		{"unknown_room_returns_null", "null", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := fakePlatform(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/rest/v1/rpc/join_chatroom", r.URL.Path)
				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "abc123", body["room_token"])
				_, _ = w.Write([]byte(tt.body))
			})

			joined, err := c.JoinChatroom(context.Background(), "abc123")
			require.NoError(t, err)
			assert.Equal(t, tt.want, joined)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, platform.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, platform.ErrUnauthorized},
		{"not_found", http.StatusNotFound, platform.ErrNotFound},
		{"not_acceptable", http.StatusNotAcceptable, platform.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := fakePlatform(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := c.ChatroomByToken(context.Background(), "abc123")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("other_4xx_keeps_the_body", func(t *testing.T) {
		c := fakePlatform(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"malformed filter"}`))
		})
		_, err := c.ChatroomByToken(context.Background(), "abc123")
		require.Error(t, err)
		assert.False(t, errors.Is(err, platform.ErrNotFound))
		assert.Contains(t, err.Error(), "malformed filter")
	})
}
