package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-auth-service/internal/service"
)

// Cookie names shared with the refresh gate.
const (
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"
)

func authCookie(name, value string, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// setSessionCookies attaches both tokens of a fresh pair.
func setSessionCookies(c echo.Context, pair service.TokenPair, secure bool) {
	c.SetCookie(authCookie(accessCookieName, pair.AccessToken, pair.AccessExpires, secure))
	c.SetCookie(authCookie(refreshCookieName, pair.RefreshToken, pair.RefreshExpires, secure))
}

// setAccessCookie replaces only the access token cookie after a refresh.
func setAccessCookie(c echo.Context, token string, expires time.Time, secure bool) {
	c.SetCookie(authCookie(accessCookieName, token, expires, secure))
}

// clearSessionCookies expires both auth cookies, telling the client to drop
// its session state.
func clearSessionCookies(c echo.Context, secure bool) {
	past := time.Unix(0, 0)
	for _, name := range []string{accessCookieName, refreshCookieName} {
		cookie := authCookie(name, "", past, secure)
		cookie.MaxAge = -1
		c.SetCookie(cookie)
	}
}
