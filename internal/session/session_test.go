// ABOUTME: Tests for the session cookie codec
// ABOUTME: Covers issue/resolve round-trips, expiry, tampering, and clearing

package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-bytes-long"

func issueCookie(t *testing.T, codec *Codec, memberID, groupID string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, codec.Issue(rec, memberID, groupID))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestCodec_IssueAndResolve(t *testing.T) {
	codec := NewCodec([]byte(testSecret), time.Hour)
	cookie := issueCookie(t, codec, "member-1", "group-1")

	assert.Equal(t, CookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly, "cookie must not be script-readable")
	assert.Equal(t, "/", cookie.Path)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)

	sess, ok := codec.Resolve(req)
	require.True(t, ok)
	assert.Equal(t, "member-1", sess.MemberID)
	assert.Equal(t, "group-1", sess.GroupID)
}

func TestCodec_Resolve_NoCookie(t *testing.T) {
	codec := NewCodec([]byte(testSecret), time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	_, ok := codec.Resolve(req)
	assert.False(t, ok)
}

func TestCodec_Resolve_Expired(t *testing.T) {
	codec := NewCodec([]byte(testSecret), -time.Minute)
	cookie := issueCookie(t, codec, "member-1", "group-1")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)

	_, ok := codec.Resolve(req)
	assert.False(t, ok)
}

func TestCodec_Resolve_WrongSecret(t *testing.T) {
	codec := NewCodec([]byte(testSecret), time.Hour)
	forger := NewCodec([]byte("another-secret-key-also-32-bytes-xx"), time.Hour)
	cookie := issueCookie(t, forger, "member-1", "group-1")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)

	_, ok := codec.Resolve(req)
	assert.False(t, ok)
}

func TestCodec_Resolve_GarbageValue(t *testing.T) {
	codec := NewCodec([]byte(testSecret), time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-jwt"})

	_, ok := codec.Resolve(req)
	assert.False(t, ok)
}

func TestCodec_Resolve_MissingGroupClaim(t *testing.T) {
	codec := NewCodec([]byte(testSecret), time.Hour)

	// A token signed with our secret but lacking the grp claim is rejected
	claims := jwt.MapClaims{
		"sub": "member-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: signed})

	_, ok := codec.Resolve(req)
	assert.False(t, ok)
}

func TestCodec_Clear(t *testing.T) {
	codec := NewCodec([]byte(testSecret), time.Hour)

	rec := httptest.NewRecorder()
	codec.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
