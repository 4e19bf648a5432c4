package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/Anmol-345/Arcanus/internal/metrics"
	"github.com/Anmol-345/Arcanus/internal/model"
	"github.com/Anmol-345/Arcanus/internal/report"
	"github.com/Anmol-345/Arcanus/internal/room"
)

var (
	msgLimOnce sync.Once
	msgLims    *limiterTable
)

// messageLimiter rations sends per user, not per IP; a shared NAT should not
// throttle a whole office because one user is chatty.
func messageLimiter(userID string) *rate.Limiter {
	msgLimOnce.Do(func() {
		msgLims = &limiterTable{
			m:   make(map[string]*keyLimiter),
			r:   rate.Every(2 * time.Second),
			b:   15,
			ttl: 10 * time.Minute,
		}
		go msgLims.gc()
	})
	return msgLims.get(userID)
}

// listMessages serves the room's full history ascending by timestamp.
func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	msgs, err := s.Platform.Store.MessagesByRoom(r.Context(), token)
	if err != nil {
		s.writeError(w, r, "list messages", err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	s.writeJSON(w, http.StatusOK, msgs)
}

// sendMessage inserts one message. The response carries no body: the sender
// sees their message through the live-subscription echo, not an optimistic
// render.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	token := chi.URLParam(r, "token")

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, "send message", report.Invalid("invalid payload"))
		return
	}

	if !messageLimiter(user.ID).Allow() {
		s.writeJSON(w, http.StatusTooManyRequests, report.Feedback{
			Level:   "warning",
			Message: "Slow down a little.",
		})
		return
	}

	if err := room.Send(r.Context(), s.Platform.Store, s.Platform.Realtime, token, user, req.Content); err != nil {
		s.writeError(w, r, "send message", err)
		return
	}

	metrics.MessagesTotal.Inc()
	w.WriteHeader(http.StatusAccepted)
}

// deleteRoom broadcasts the deletion then removes the room. The initiator
// navigates immediately; it never sees the terminal notice.
func (s *Server) deleteRoom(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	token := chi.URLParam(r, "token")

	if err := room.Delete(r.Context(), s.Platform.Store, s.Platform.Realtime, token, user); err != nil {
		s.writeError(w, r, "delete room", err)
		return
	}

	metrics.RoomsDeletedTotal.Inc()
	s.writeJSON(w, http.StatusOK, map[string]string{"path": "/"})
}
