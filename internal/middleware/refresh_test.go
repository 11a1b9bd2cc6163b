package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/user-auth-service/internal/apperr"
)

func newRefreshContext(t *testing.T, cookie, body string) echo.Context {
	t.Helper()
	e := echo.New()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "refresh_token", Value: cookie})
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestRefreshGateFromCookie(t *testing.T) {
	c := newRefreshContext(t, "cookie-token", "")
	require.NoError(t, RequireRefreshToken()(okHandler)(c))
	require.Equal(t, "cookie-token", RefreshTokenFromContext(c))
}

func TestRefreshGateBodyFallback(t *testing.T) {
	c := newRefreshContext(t, "", `{"refresh_token":"body-token"}`)
	require.NoError(t, RequireRefreshToken()(okHandler)(c))
	require.Equal(t, "body-token", RefreshTokenFromContext(c))
}

func TestRefreshGateCookieWinsOverBody(t *testing.T) {
	c := newRefreshContext(t, "cookie-token", `{"refresh_token":"body-token"}`)
	require.NoError(t, RequireRefreshToken()(okHandler)(c))
	require.Equal(t, "cookie-token", RefreshTokenFromContext(c))
}

func TestRefreshGateMissingToken(t *testing.T) {
	c := newRefreshContext(t, "", "")
	err := RequireRefreshToken()(okHandler)(c)
	require.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
}
