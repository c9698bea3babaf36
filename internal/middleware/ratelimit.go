package middleware

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"chess-coach/internal/config"
)

// Named limits served by the router.
const (
	LimitPlayers   = "players"
	LimitEngine    = "engine"
	LimitGames     = "games"
	LimitUnlock    = "unlock"
	LimitWebSocket = "ws"
)

// Limit caps the requests one client makes within a fixed window.
type Limit struct {
	MaxRequests int
	Window      time.Duration
	// PerPlayer counts requests that carry a player token against that
	// player rather than the client IP. It needs an auth middleware in front.
	PerPlayer bool
}

// DefaultLimits returns a fresh copy of the built-in limits.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		LimitPlayers:   {MaxRequests: 10, Window: time.Hour},
		LimitEngine:    {MaxRequests: 60, Window: time.Minute, PerPlayer: true},
		LimitGames:     {MaxRequests: 10, Window: time.Minute, PerPlayer: true},
		LimitUnlock:    {MaxRequests: 10, Window: 15 * time.Minute},
		LimitWebSocket: {MaxRequests: 20, Window: time.Minute},
	}
}

// ApplyLimits overrides entries of limits from the rateLimits config section.
// Names that are not in limits are rejected.
func ApplyLimits(limits map[string]Limit, overrides map[string]config.RateLimit) error {
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		l, ok := limits[name]
		if !ok {
			return fmt.Errorf("unknown rate limit %q", name)
		}
		o := overrides[name]
		if o.MaxRequests > 0 {
			l.MaxRequests = o.MaxRequests
		}
		if o.WindowSeconds > 0 {
			l.Window = time.Duration(o.WindowSeconds) * time.Second
		}
		limits[name] = l
	}
	return nil
}

type window struct {
	count int
	ends  time.Time
}

// RateLimiter counts requests per limit and client. Expired windows are
// swept every few minutes.
type RateLimiter struct {
	limits map[string]Limit
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window

	stopOnce sync.Once
	stop     chan struct{}
}

func NewRateLimiter(limits map[string]Limit) *RateLimiter {
	rl := &RateLimiter{
		limits:  limits,
		now:     time.Now,
		windows: make(map[string]*window),
		stop:    make(chan struct{}),
	}
	go rl.sweep(5 * time.Minute)
	return rl
}

// Stop ends the sweeper. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			now := rl.now()
			rl.mu.Lock()
			for key, w := range rl.windows {
				if !now.Before(w.ends) {
					delete(rl.windows, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Allow counts one request for key under l. It returns whether the request
// fits, how many remain and when the window ends.
func (rl *RateLimiter) Allow(key string, l Limit) (bool, int, time.Time) {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok || !now.Before(w.ends) {
		w = &window{ends: now.Add(l.Window)}
		rl.windows[key] = w
	}
	if w.count >= l.MaxRequests {
		return false, 0, w.ends
	}
	w.count++
	return true, l.MaxRequests - w.count, w.ends
}

// clientKey names the counter a request is charged to.
func clientKey(name string, l Limit, r *http.Request) string {
	if l.PerPlayer {
		if id, ok := GetPlayerFromContext(r.Context()); ok {
			return name + "|player:" + id
		}
	}
	return name + "|ip:" + GetClientIP(r)
}

// Limit returns the middleware enforcing the named limit. An unknown name is
// a wiring mistake and panics when the router is built.
func (rl *RateLimiter) Limit(name string) func(http.Handler) http.Handler {
	l, ok := rl.limits[name]
	if !ok {
		panic(fmt.Sprintf("middleware: no rate limit named %q", name))
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, reset := rl.Allow(clientKey(name, l, r), l)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.MaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", reset.Format(time.RFC3339))

			if !allowed {
				retryAfter := max(int(reset.Sub(rl.now()).Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":      "Rate limit exceeded",
					"retryAfter": retryAfter,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClientIP returns the first address of X-Forwarded-For, then X-Real-IP,
// then the connection's remote address.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if host, _, err := net.SplitHostPort(first); err == nil {
			first = host
		}
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
