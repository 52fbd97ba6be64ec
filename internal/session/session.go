// ABOUTME: Cookie-based session codec using HS256 signed JWTs
// ABOUTME: Issues, resolves, and clears the hearth_session cookie

package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the session cookie set on join and cleared on leave.
const CookieName = "hearth_session"

// Session errors
var (
	ErrInvalidSession = errors.New("invalid session")
	ErrExpiredSession = errors.New("session expired")
	ErrMissingClaim   = errors.New("missing required claim")
)

// Session identifies the calling member and the group their membership
// belongs to. Both come from the signed cookie, never from the request body.
type Session struct {
	MemberID string
	GroupID  string
}

// Codec signs and verifies session cookies.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec creates a session codec with the given signing secret and lifetime.
func NewCodec(secret []byte, ttl time.Duration) *Codec {
	return &Codec{secret: secret, ttl: ttl}
}

// Issue signs a session for the member and sets the cookie on the response.
func (c *Codec) Issue(w http.ResponseWriter, memberID, groupID string) error {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": memberID,
		"grp": groupID,
		"iat": now.Unix(),
		"exp": now.Add(c.ttl).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return fmt.Errorf("signing session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Resolve extracts and verifies the session cookie from a request.
//
// A missing, malformed, expired, or forged cookie all resolve to (nil, false);
// callers treat every failure the same way, so there is nothing useful to
// report about why.
func (c *Codec) Resolve(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	sess, err := c.verify(cookie.Value)
	if err != nil {
		return nil, false
	}
	return sess, true
}

func (c *Codec) verify(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredSession
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !token.Valid {
		return nil, ErrInvalidSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidSession
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	grp, ok := claims["grp"].(string)
	if !ok || grp == "" {
		return nil, fmt.Errorf("%w: grp", ErrMissingClaim)
	}

	return &Session{MemberID: sub, GroupID: grp}, nil
}

// Clear expires the session cookie on the response.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
