package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-auth-service/internal/apperr"
	"github.com/iliyamo/user-auth-service/internal/middleware"
	"github.com/iliyamo/user-auth-service/internal/model"
	"github.com/iliyamo/user-auth-service/internal/service"
)

// dbTimeout bounds every storage call made on behalf of a request.
const dbTimeout = 5 * time.Second

// AuthHandler exposes the session lifecycle endpoints.
type AuthHandler struct {
	Auth         *service.AuthService
	CookieSecure bool
}

func NewAuthHandler(auth *service.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Auth: auth, CookieSecure: cookieSecure}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// Register creates an account and starts a session: both token cookies are
// set and the created user is returned.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	user, pair, err := h.Auth.Register(ctx, service.RegisterInput{
		Email: req.Email, Name: req.Name, Password: req.Password,
	})
	if err != nil {
		return err
	}

	setSessionCookies(c, pair, h.CookieSecure)
	return c.JSON(http.StatusCreated, echo.Map{
		"status": "success",
		"data":   echo.Map{"user": toUserPart(user)},
	})
}

// Login verifies credentials, replaces any prior session and sets fresh
// cookies. The access token is also returned in the body for non-cookie
// clients.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	user, pair, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}

	setSessionCookies(c, pair, h.CookieSecure)
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data": echo.Map{
			"user":         toUserPart(user),
			"access_token": pair.AccessToken,
		},
	})
}

// Refresh exchanges the refresh token (already extracted by the refresh gate)
// for a new access token. The refresh token is not rotated. When the session
// is gone — invalid, revoked or expired — both cookies are cleared so the
// client drops its state.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := middleware.RefreshTokenFromContext(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	access, expires, err := h.Auth.Refresh(ctx, raw)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindUnauthorized, apperr.KindRefreshExpired:
			clearSessionCookies(c, h.CookieSecure)
		}
		return err
	}

	setAccessCookie(c, access, expires, h.CookieSecure)
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"access_token": access},
	})
}

// Logout revokes the session's refresh record and clears both cookies. The
// refresh token is read from the cookie first, then a body fallback; logging
// out without one still clears cookies (idempotent logout).
func (h *AuthHandler) Logout(c echo.Context) error {
	raw := ""
	if cookie, err := c.Cookie(refreshCookieName); err == nil {
		raw = cookie.Value
	}
	if raw == "" {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.Bind(&body); err == nil {
			raw = body.RefreshToken
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Auth.Logout(ctx, raw); err != nil {
		return err
	}

	clearSessionCookies(c, h.CookieSecure)
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"message": "logged out successfully",
	})
}

// Me returns the authenticated caller's identity.
func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"user": id},
	})
}
