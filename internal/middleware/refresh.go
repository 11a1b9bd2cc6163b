package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-auth-service/internal/apperr"
)

// refreshBody is the JSON fallback for clients that cannot send cookies.
type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

// RequireRefreshToken returns the refresh gate. The token is read from the
// refresh_token cookie first, falling back to a refresh_token body field; the
// cookie wins when both are present. The raw token is attached to the context
// for the handler, which delegates validation to the session service.
func RequireRefreshToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := ""
			if cookie, err := c.Cookie(refreshTokenKey); err == nil {
				raw = strings.TrimSpace(cookie.Value)
			}
			if raw == "" {
				var body refreshBody
				if err := c.Bind(&body); err == nil {
					raw = strings.TrimSpace(body.RefreshToken)
				}
			}
			if raw == "" {
				return apperr.New(apperr.KindUnauthorized, "refresh token required")
			}
			c.Set(refreshTokenKey, raw)
			return next(c)
		}
	}
}

// RefreshTokenFromContext returns the raw refresh token stored by the gate.
func RefreshTokenFromContext(c echo.Context) string {
	raw, _ := c.Get(refreshTokenKey).(string)
	return raw
}
