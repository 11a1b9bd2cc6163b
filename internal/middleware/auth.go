// Package middleware provides the per-request authorization gates: the access
// gate, the refresh gate and the role gate, plus the Redis-backed rate
// limiter.
package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-auth-service/internal/apperr"
	"github.com/iliyamo/user-auth-service/internal/auth"
	"github.com/iliyamo/user-auth-service/internal/model"
	"github.com/iliyamo/user-auth-service/internal/repository"
)

// Context keys used by the gates.
const (
	identityKey     = "identity"
	refreshTokenKey = "refresh_token"
)

// Identity is the authenticated caller attached to the request context by the
// access gate. It is owned by the request and never shared across requests.
type Identity struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserLookup is the single read the access gate needs from storage.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Authenticate returns the access gate. It requires a Bearer access token,
// verifies it with the codec, then re-fetches the user's current email and
// role from storage so mid-session role changes take effect immediately. A
// token whose subject no longer exists is rejected rather than trusted.
func Authenticate(codec *auth.Codec, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return apperr.New(apperr.KindUnauthorized, "authorization token required")
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := codec.VerifyAccess(raw)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					return apperr.New(apperr.KindUnauthorized, "token expired")
				}
				return apperr.New(apperr.KindUnauthorized, "invalid token")
			}

			user, err := users.GetByID(c.Request().Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperr.New(apperr.KindUnauthorized, "user not found")
				}
				return apperr.Wrap(apperr.KindUnavailable, "service unavailable", err)
			}

			c.Set(identityKey, Identity{ID: user.ID, Email: user.Email, Role: user.Role})
			return next(c)
		}
	}
}

// CurrentIdentity returns the identity attached by the access gate, if any.
func CurrentIdentity(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

// RequireRole returns the role gate. It assumes the access gate already ran;
// a missing identity or a role outside the allowed set fails Forbidden.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := CurrentIdentity(c)
			if !ok || !allowed[id.Role] {
				return apperr.New(apperr.KindForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}
