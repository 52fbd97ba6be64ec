// ABOUTME: Write-security guard run on every mutating request before business logic
// ABOUTME: Same-origin enforcement plus per-client token-bucket rate limiting

package guard

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Idle limiter entries are swept once the map grows past the threshold, so a
// long-running server doesn't accumulate one entry per client forever. An
// entry idle this long has a full token bucket again; dropping it loses no
// rate-limiting state.
const (
	limiterIdleAfter    = 10 * time.Minute
	limiterSweepMinSize = 1024
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Rejection is the guard's verdict on a request it refuses. The status and
// message are written as the final response; no handler runs after one.
type Rejection struct {
	Status  int
	Message string
}

// Guard screens mutating requests. It is a pure decision over the request and
// runs before session resolution, so rejected traffic never touches the store.
type Guard struct {
	host  string // host of the configured base URL, e.g. "hearth.example.com:8080"
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*clientLimiter
}

// New creates a guard that accepts browser traffic only from baseURL's host
// and rate-limits clients to ratePerSecond with the given burst.
func New(baseURL string, ratePerSecond float64, burst int) (*Guard, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	// Zero means no rate limiting
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}

	return &Guard{
		host:     strings.ToLower(u.Host),
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*clientLimiter),
	}, nil
}

// Check screens a request. A nil result means proceed. memberID may be empty
// when the caller has no session yet; the rate limit then keys on remote IP.
func (g *Guard) Check(r *http.Request, memberID string) *Rejection {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	}

	if !g.sameOrigin(r) {
		return &Rejection{Status: http.StatusForbidden, Message: "cross-origin request rejected"}
	}

	if !g.allow(clientKey(r, memberID)) {
		return &Rejection{Status: http.StatusTooManyRequests, Message: "rate limit exceeded"}
	}

	return nil
}

// sameOrigin checks the Origin header, falling back to Referer. Requests that
// send neither pass: non-browser clients carry no origin, and the session
// cookie's SameSite attribute covers them.
func (g *Guard) sameOrigin(r *http.Request) bool {
	source := r.Header.Get("Origin")
	if source == "" {
		source = r.Header.Get("Referer")
	}
	if source == "" {
		return true
	}

	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, g.host)
}

func clientKey(r *http.Request, memberID string) string {
	if memberID != "" {
		return "member:" + memberID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func (g *Guard) allow(key string) bool {
	now := time.Now()

	g.mu.Lock()
	if len(g.limiters) >= limiterSweepMinSize {
		g.sweepLocked(now)
	}
	entry, ok := g.limiters[key]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(g.limit, g.burst)}
		g.limiters[key] = entry
	}
	entry.lastSeen = now
	g.mu.Unlock()

	return entry.limiter.Allow()
}

func (g *Guard) sweepLocked(now time.Time) {
	for key, entry := range g.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleAfter {
			delete(g.limiters, key)
		}
	}
}
