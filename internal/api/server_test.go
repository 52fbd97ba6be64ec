// ABOUTME: Test harness for the API server plus guard and health checks
// ABOUTME: Spins up the full stack against a temp-dir SQLite store

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth-dev/hearth/internal/guard"
	"github.com/hearth-dev/hearth/internal/session"
	"github.com/hearth-dev/hearth/internal/store"
	"github.com/hearth-dev/hearth/internal/views"
)

type testEnv struct {
	handler http.Handler
	store   *store.SQLiteStore
	codec   *session.Codec
	views   *views.Cache

	group  *store.Group
	member *store.Member
	cookie *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.NewSQLiteStore(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	codec := session.NewCodec([]byte("test-secret-key-at-least-32-bytes-long"), time.Hour)
	g, err := guard.New("http://hearth.test", 1000, 1000)
	require.NoError(t, err)
	vc := views.NewCache(nil, nil)

	srv := New(st, codec, g, vc, nil, nil)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	ctx := context.Background()
	group := &store.Group{ID: uuid.NewString(), Name: "test group", CreatedAt: time.Now()}
	require.NoError(t, st.CreateGroup(ctx, group))

	invite := &store.InviteCode{
		ID:        uuid.NewString(),
		GroupID:   group.ID,
		Code:      "SEED0001",
		CreatedAt: time.Now(),
	}
	require.NoError(t, st.CreateInvite(ctx, invite))
	member, err := st.RedeemInvite(ctx, "SEED0001", "Seed Member")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, codec.Issue(rec, member.ID, member.GroupID))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	return &testEnv{
		handler: mux,
		store:   st,
		codec:   codec,
		views:   vc,
		group:   group,
		member:  member,
		cookie:  cookies[0],
	}
}

// seedInvite creates an unused invite in the env's group.
func (e *testEnv) seedInvite(t *testing.T, code string, mutate func(*store.InviteCode)) *store.InviteCode {
	t.Helper()
	invite := &store.InviteCode{
		ID:        uuid.NewString(),
		GroupID:   e.group.ID,
		Code:      code,
		CreatedAt: time.Now(),
	}
	if mutate != nil {
		mutate(invite)
	}
	require.NoError(t, e.store.CreateInvite(context.Background(), invite))
	return invite
}

// otherGroupSession creates a second group with one member and returns that
// member's session cookie.
func (e *testEnv) otherGroupSession(t *testing.T) *http.Cookie {
	t.Helper()
	ctx := context.Background()

	group := &store.Group{ID: uuid.NewString(), Name: "other group", CreatedAt: time.Now()}
	require.NoError(t, e.store.CreateGroup(ctx, group))

	invite := &store.InviteCode{
		ID:        uuid.NewString(),
		GroupID:   group.ID,
		Code:      "OTHER001",
		CreatedAt: time.Now(),
	}
	require.NoError(t, e.store.CreateInvite(ctx, invite))
	member, err := e.store.RedeemInvite(ctx, "OTHER001", "Other Member")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, e.codec.Issue(rec, member.ID, member.GroupID))
	return rec.Result().Cookies()[0]
}

// do performs a request against the env's handler and decodes the JSON body.
func (e *testEnv) do(t *testing.T, method, path, body string, cookie *http.Cookie) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec.Code, decoded
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestGuard_CrossOriginMutationRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvite(t, "GUARD001", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/join",
		strings.NewReader(`{"code":"GUARD001","displayName":"Mallory"}`))
	req.Header.Set("Origin", "http://evil.test")

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The guard short-circuited before the store was touched
	invite, err := env.store.GetInviteByCode(context.Background(), "GUARD001")
	require.NoError(t, err)
	assert.Nil(t, invite.UsedAt)
}

func TestGuard_DoesNotBlockReads(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/threads", nil)
	req.Header.Set("Origin", "http://evil.test")
	req.AddCookie(env.cookie)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/api/me", "", env.cookie)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, env.member.ID, body["memberId"])
	assert.Equal(t, env.group.ID, body["groupId"])
	assert.Equal(t, "Seed Member", body["displayName"])

	status, _ = env.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLeave_ClearsCookie(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/leave", nil)
	req.AddCookie(env.cookie)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}
