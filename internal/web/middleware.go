// Package web serves the application's URL surface: the three pages, the
// JSON API, and the websocket that pushes room events to the browser.
package web

import (
	"context"
	"net/http"

	"github.com/Anmol-345/Arcanus/internal/model"
)

type ctxKey string

const userKey ctxKey = "user"

// SessionCookie carries the platform access token between requests.
const SessionCookie = "arcanus_session"

// UserFromContext returns the authenticated user placed by requireUser.
func UserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(userKey).(model.User)
	return user, ok
}

func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// requireUser resolves the session cookie to a user and rejects the request
// with a uniform feedback payload when it cannot.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.Sessions.Current(r.Context(), sessionToken(r))
		if err != nil {
			s.writeError(w, r, "authenticate", err)
			return
		}
		r = r.WithContext(context.WithValue(r.Context(), userKey, user))
		next.ServeHTTP(w, r)
	})
}

// requirePage is the page variant: an unauthenticated visitor is sent to the
// login screen instead of receiving JSON.
func (s *Server) requirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.Sessions.Current(r.Context(), sessionToken(r))
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		r = r.WithContext(context.WithValue(r.Context(), userKey, user))
		next.ServeHTTP(w, r)
	})
}

func setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
