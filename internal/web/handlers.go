package web

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Anmol-345/Arcanus/internal/directory"
	"github.com/Anmol-345/Arcanus/internal/model"
	"github.com/Anmol-345/Arcanus/internal/report"
)

const sessionCookieMaxAge = 7 * 24 * 60 * 60

func (s *Server) page(name string) string {
	return filepath.Join(s.StaticDir, name)
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.page("index.html"))
}

func (s *Server) serveLogin(w http.ResponseWriter, r *http.Request) {
	// An authenticated visitor has nothing to do on the login screen.
	if _, err := s.Sessions.Current(r.Context(), sessionToken(r)); err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.ServeFile(w, r, s.page("login.html"))
}

func (s *Server) serveRoomPage(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.page("room.html"))
}

// createSession accepts the access token handed back by the hosted auth
// provider's redirect and binds it to a cookie.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessToken == "" {
		s.writeError(w, r, "create session", report.Invalid("access_token is required"))
		return
	}

	user, err := s.Sessions.Current(r.Context(), req.AccessToken)
	if err != nil {
		s.writeError(w, r, "create session", err)
		return
	}

	setSessionCookie(w, req.AccessToken, sessionCookieMaxAge)
	s.writeJSON(w, http.StatusOK, user)
}

// devLogin mints a throwaway identity against the memory backend. Only
// mounted when the dev platform is active.
func (s *Server) devLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		s.writeError(w, r, "dev login", report.Invalid("email is required"))
		return
	}

	user := model.User{ID: uuid.NewString(), Email: req.Email}
	token := uuid.NewString()
	s.Dev.AddSession(token, user)

	setSessionCookie(w, token, sessionCookieMaxAge)
	s.writeJSON(w, http.StatusOK, user)
}

// logout revokes the session and clears the cookie. The cookie goes away
// even when the platform call fails; auth failures are never fatal here.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := s.Directory.Logout(r.Context(), token); err != nil {
			s.Reporter.Report(r.Context(), "logout", err)
		}
	}
	setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) serveMe(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	chatroom, err := s.Directory.CreateRoom(r.Context(), user)
	if err != nil {
		s.writeError(w, r, "create room", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{
		"token": chatroom.Token,
		"path":  directory.RoomPath(chatroom.Token),
	})
}

func (s *Server) joinRoom(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, "join room", report.Invalid("invalid payload"))
		return
	}

	if err := s.Directory.JoinRoom(r.Context(), user, req.Token); err != nil {
		s.writeError(w, r, "join room", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"path": directory.RoomPath(req.Token),
	})
}
