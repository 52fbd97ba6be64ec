// ABOUTME: Tests for the write-security guard
// ABOUTME: Covers origin matching, safe-method bypass, and rate limiting

package guard

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestGuard(t *testing.T, ratePerSecond float64, burst int) *Guard {
	t.Helper()
	g, err := New("https://hearth.example.com", ratePerSecond, burst)
	require.NoError(t, err)
	return g
}

func TestGuard_SafeMethodsPass(t *testing.T) {
	g := newTestGuard(t, 1, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/threads", nil)
	req.Header.Set("Origin", "https://evil.example.org")

	assert.Nil(t, g.Check(req, ""), "reads are never guarded")
}

func TestGuard_MatchingOriginPasses(t *testing.T) {
	g := newTestGuard(t, 100, 100)

	req := httptest.NewRequest(http.MethodPost, "/api/join", nil)
	req.Header.Set("Origin", "https://hearth.example.com")

	assert.Nil(t, g.Check(req, ""))
}

func TestGuard_MismatchedOriginRejected(t *testing.T) {
	g := newTestGuard(t, 100, 100)

	req := httptest.NewRequest(http.MethodPost, "/api/join", nil)
	req.Header.Set("Origin", "https://evil.example.org")

	rej := g.Check(req, "")
	require.NotNil(t, rej)
	assert.Equal(t, http.StatusForbidden, rej.Status)
}

func TestGuard_RefererFallback(t *testing.T) {
	g := newTestGuard(t, 100, 100)

	req := httptest.NewRequest(http.MethodPatch, "/api/todos/1/status", nil)
	req.Header.Set("Referer", "https://hearth.example.com/todos")
	assert.Nil(t, g.Check(req, "m1"))

	req = httptest.NewRequest(http.MethodPatch, "/api/todos/1/status", nil)
	req.Header.Set("Referer", "https://evil.example.org/todos")
	rej := g.Check(req, "m1")
	require.NotNil(t, rej)
	assert.Equal(t, http.StatusForbidden, rej.Status)
}

func TestGuard_NoOriginHeadersPass(t *testing.T) {
	g := newTestGuard(t, 100, 100)

	// curl-style clients send neither Origin nor Referer
	req := httptest.NewRequest(http.MethodPost, "/api/join", nil)
	assert.Nil(t, g.Check(req, ""))
}

func TestGuard_RateLimitPerClient(t *testing.T) {
	g := newTestGuard(t, 1, 2)

	req := httptest.NewRequest(http.MethodPost, "/api/threads", nil)

	assert.Nil(t, g.Check(req, "member-a"))
	assert.Nil(t, g.Check(req, "member-a"))

	rej := g.Check(req, "member-a")
	require.NotNil(t, rej, "burst exhausted")
	assert.Equal(t, http.StatusTooManyRequests, rej.Status)

	// A different client has its own bucket
	assert.Nil(t, g.Check(req, "member-b"))
}

func TestGuard_RateLimitKeysOnIPWithoutSession(t *testing.T) {
	g := newTestGuard(t, 1, 1)

	reqA := httptest.NewRequest(http.MethodPost, "/api/join", nil)
	reqA.RemoteAddr = "10.0.0.1:4321"
	reqB := httptest.NewRequest(http.MethodPost, "/api/join", nil)
	reqB.RemoteAddr = "10.0.0.2:4321"

	assert.Nil(t, g.Check(reqA, ""))
	require.NotNil(t, g.Check(reqA, ""), "same IP throttled")
	assert.Nil(t, g.Check(reqB, ""), "other IP unaffected")
}

func TestGuard_IdleLimitersSwept(t *testing.T) {
	g := newTestGuard(t, 100, 100)

	// Fill the map past the sweep threshold with long-idle clients.
	stale := time.Now().Add(-2 * limiterIdleAfter)
	g.mu.Lock()
	for i := 0; i < limiterSweepMinSize; i++ {
		g.limiters[fmt.Sprintf("ip:10.0.%d.%d", i/256, i%256)] = &clientLimiter{
			limiter:  rate.NewLimiter(g.limit, g.burst),
			lastSeen: stale,
		}
	}
	g.mu.Unlock()

	req := httptest.NewRequest(http.MethodPost, "/api/join", nil)
	assert.Nil(t, g.Check(req, "member-a"))

	g.mu.Lock()
	size := len(g.limiters)
	g.mu.Unlock()
	assert.Equal(t, 1, size, "only the active client survives the sweep")
}

func TestGuard_ActiveLimitersSurviveSweep(t *testing.T) {
	g := newTestGuard(t, 1, 2)
	req := httptest.NewRequest(http.MethodPost, "/api/threads", nil)

	// Exhaust member-a's bucket, then pad the map with stale entries so the
	// next call sweeps. member-a stays throttled afterwards.
	assert.Nil(t, g.Check(req, "member-a"))
	assert.Nil(t, g.Check(req, "member-a"))

	stale := time.Now().Add(-2 * limiterIdleAfter)
	g.mu.Lock()
	for i := 0; i < limiterSweepMinSize; i++ {
		g.limiters[fmt.Sprintf("ip:10.1.%d.%d", i/256, i%256)] = &clientLimiter{
			limiter:  rate.NewLimiter(g.limit, g.burst),
			lastSeen: stale,
		}
	}
	g.mu.Unlock()

	rej := g.Check(req, "member-a")
	require.NotNil(t, rej, "recently seen bucket is not reset by the sweep")
	assert.Equal(t, http.StatusTooManyRequests, rej.Status)
}
