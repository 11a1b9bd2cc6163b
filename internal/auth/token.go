// Package auth provides the token codec and the password hashing primitives.
// Tokens are opaque strings to every other package; only the codec knows their
// internal structure.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Closed set of verification failures. Callers switch on these instead of
// inspecting library error types: an expired refresh token triggers logout
// cleanup while a malformed or tampered token is simply rejected.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrTokenExpired   = errors.New("token expired")
)

// Claims is the decoded content of a verified token.
type Claims struct {
	UserID    uint64
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec signs and verifies the two token domains. Access and refresh tokens
// use independent secrets and TTLs so leaking one domain's key does not
// compromise the other.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	// Now is the codec's clock; tests override it to drive expiry.
	Now func() time.Time
}

// NewCodec builds a codec from the two secrets and TTL policies.
func NewCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

// AccessTTL returns the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess signs a short-lived access token for the user and returns the
// token along with its expiry.
func (c *Codec) IssueAccess(userID uint64) (string, time.Time, error) {
	return c.issue(userID, c.accessSecret, c.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the user. The caller is
// responsible for persisting the returned token so it can be revoked later.
func (c *Codec) IssueRefresh(userID uint64) (string, time.Time, error) {
	return c.issue(userID, c.refreshSecret, c.refreshTTL)
}

// VerifyAccess checks signature and expiry of an access token and returns its
// claims. Validity is determined purely by the token itself; no storage lookup.
func (c *Codec) VerifyAccess(token string) (Claims, error) {
	return c.verify(token, c.accessSecret)
}

// VerifyRefresh checks signature and expiry of a refresh token and returns its
// claims. Callers must additionally consult the refresh token store.
func (c *Codec) VerifyRefresh(token string) (Claims, error) {
	return c.verify(token, c.refreshSecret)
}

func (c *Codec) issue(userID uint64, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := c.Now()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (c *Codec) verify(token string, secret []byte) (Claims, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC; accepting the token's
		// own alg claim would let a client pick "none".
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return secret, nil
	}, jwt.WithTimeFunc(c.Now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrTokenMalformed
		default:
			return Claims{}, ErrTokenInvalid
		}
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrTokenInvalid
	}
	uid, ok := subjectID(mc["sub"])
	if !ok || uid == 0 {
		return Claims{}, ErrTokenInvalid
	}
	out := Claims{UserID: uid}
	if v, ok := mc["iat"].(float64); ok {
		out.IssuedAt = time.Unix(int64(v), 0).UTC()
	}
	if v, ok := mc["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(v), 0).UTC()
	}
	return out, nil
}

// subjectID converts the sub claim to a user ID. JSON numbers decode as
// float64; string subjects are tolerated for compatibility.
func subjectID(v interface{}) (uint64, bool) {
	switch s := v.(type) {
	case float64:
		if s < 0 {
			return 0, false
		}
		return uint64(s), true
	case string:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
