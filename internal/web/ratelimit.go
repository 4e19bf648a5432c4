package web

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type keyLimiter struct {
	lim *rate.Limiter
	ts  time.Time
}

type limiterTable struct {
	mu  sync.Mutex
	m   map[string]*keyLimiter
	r   rate.Limit
	b   int
	ttl time.Duration
}

func (t *limiterTable) get(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	kl, ok := t.m[key]
	if ok {
		kl.ts = time.Now()
		return kl.lim
	}
	lim := rate.NewLimiter(t.r, t.b)
	t.m[key] = &keyLimiter{lim: lim, ts: time.Now()}
	return lim
}

func (t *limiterTable) gc() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		t.mu.Lock()
		for k, v := range t.m {
			if now.Sub(v.ts) > t.ttl {
				delete(t.m, k)
			}
		}
		t.mu.Unlock()
	}
}

// rateLimit is a token-bucket middleware keyed by client IP and path.
func rateLimit(r rate.Limit, burst int) func(http.Handler) http.Handler {
	table := &limiterTable{m: make(map[string]*keyLimiter), r: r, b: burst, ttl: 2 * time.Minute}
	go table.gc()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			key := clientIP(req.RemoteAddr) + "|" + req.URL.Path
			if !table.get(key).Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"level":"warning","message":"too many requests"}`))
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func clientIP(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}
