// Package service implements the business operations behind the HTTP
// handlers: the session lifecycle (register, login, refresh, logout) and the
// admin user management surface.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/user-auth-service/internal/apperr"
	"github.com/iliyamo/user-auth-service/internal/auth"
	"github.com/iliyamo/user-auth-service/internal/model"
	"github.com/iliyamo/user-auth-service/internal/queue"
	"github.com/iliyamo/user-auth-service/internal/repository"
)

// UserStore is the slice of user storage the services need.
type UserStore interface {
	Create(ctx context.Context, email, name, passwordHash, role string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context, limit, offset int) ([]model.User, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, id uint64, upd model.UserUpdate) error
	Delete(ctx context.Context, id uint64) error
}

// TokenStore persists refresh token records.
type TokenStore interface {
	Store(ctx context.Context, userID uint64, token string, expiresAt time.Time) error
	ReplaceForUser(ctx context.Context, userID uint64, token string, expiresAt time.Time) error
	FindValid(ctx context.Context, token string) (model.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// EventPublisher emits auth lifecycle events. Publishing is best-effort;
// failures are logged and never fail the request.
type EventPublisher interface {
	Publish(ctx context.Context, event queue.AuthEvent) error
}

// TokenPair is the access+refresh pair handed to a freshly authenticated user.
type TokenPair struct {
	AccessToken    string
	AccessExpires  time.Time
	RefreshToken   string
	RefreshExpires time.Time
}

// RegisterInput is the validated payload for Register.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// AuthService orchestrates the session lifecycle over the token codec, the
// refresh token store and user storage.
type AuthService struct {
	users      UserStore
	tokens     TokenStore
	codec      *auth.Codec
	events     EventPublisher
	log        *zap.Logger
	bcryptCost int
}

func NewAuthService(users UserStore, tokens TokenStore, codec *auth.Codec,
	events EventPublisher, log *zap.Logger, bcryptCost int) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		codec:      codec,
		events:     events,
		log:        log,
		bcryptCost: bcryptCost,
	}
}

// Register creates a user and returns it with a fresh token pair. A duplicate
// email fails with Conflict and leaves the existing account untouched.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.User, TokenPair, error) {
	email := normalizeEmail(in.Email)

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, TokenPair{}, apperr.Wrap(apperr.KindInternal, "hash password", err)
	}

	id, err := s.users.Create(ctx, email, in.Name, hash, model.RoleUser)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			s.log.Warn("registration attempt with existing email", zap.String("email", email))
			return model.User{}, TokenPair{}, apperr.New(apperr.KindConflict, "user already exists")
		}
		return model.User{}, TokenPair{}, apperr.Wrap(apperr.KindUnavailable, "service unavailable", err)
	}

	user := model.User{ID: id, Email: email, Name: in.Name, Role: model.RoleUser}
	pair, err := s.issuePair(ctx, id, false)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}

	s.log.Info("user registered", zap.Uint64("user_id", id), zap.String("email", email))
	s.publish(ctx, queue.AuthEvent{Type: queue.EventUserRegistered, UserID: id, Email: email})
	return user, pair, nil
}

// Login verifies credentials and returns the user with a fresh token pair.
// An unknown email and a wrong password yield the identical Unauthorized error
// so the response carries no enumeration signal. Prior refresh sessions are
// invalidated: only one concurrent session per user is permitted.
func (s *AuthService) Login(ctx context.Context, email, password string) (model.User, TokenPair, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, TokenPair{}, errInvalidCredentials()
		}
		return model.User{}, TokenPair{}, apperr.Wrap(apperr.KindUnavailable, "service unavailable", err)
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		s.log.Warn("login attempt with invalid password", zap.Uint64("user_id", user.ID))
		return model.User{}, TokenPair{}, errInvalidCredentials()
	}

	pair, err := s.issuePair(ctx, user.ID, true)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}

	s.log.Info("user logged in", zap.Uint64("user_id", user.ID))
	s.publish(ctx, queue.AuthEvent{Type: queue.EventUserLoggedIn, UserID: user.ID, Email: user.Email})
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new access token. The refresh
// token itself is not rotated: the stored record remains the session handle
// until logout, expiry or a replacing login. A stored record past its expiry
// is revoked on sight and the call fails with RefreshExpired, which the HTTP
// layer translates into cleared session cookies.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	if _, err := s.codec.VerifyRefresh(refreshToken); err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			// Embedded expiry lapsed; clean up the stored record too.
			_ = s.tokens.Revoke(ctx, refreshToken)
			return "", time.Time{}, apperr.New(apperr.KindRefreshExpired, "refresh token expired")
		}
		return "", time.Time{}, apperr.New(apperr.KindUnauthorized, "invalid refresh token")
	}

	rec, err := s.tokens.FindValid(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", time.Time{}, apperr.New(apperr.KindUnauthorized, "invalid refresh token")
		}
		return "", time.Time{}, apperr.Wrap(apperr.KindUnavailable, "service unavailable", err)
	}

	if time.Now().UTC().After(rec.ExpiresAt) {
		if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
			s.log.Error("revoke expired refresh token", zap.Uint64("user_id", rec.UserID), zap.Error(err))
		}
		s.log.Warn("expired refresh token used", zap.Uint64("user_id", rec.UserID), zap.Uint64("token_id", rec.ID))
		s.publish(ctx, queue.AuthEvent{Type: queue.EventSessionRevoked, UserID: rec.UserID})
		return "", time.Time{}, apperr.New(apperr.KindRefreshExpired, "refresh token expired")
	}

	access, exp, err := s.codec.IssueAccess(rec.UserID)
	if err != nil {
		return "", time.Time{}, apperr.Wrap(apperr.KindInternal, "issue access token", err)
	}
	s.log.Info("access token refreshed", zap.Uint64("user_id", rec.UserID))
	return access, exp, nil
}

// Logout revokes the matching refresh record. Absence of a matching record is
// not an error; logging out twice is fine.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "service unavailable", err)
	}
	s.log.Info("user logged out", zap.String("token_prefix", tokenPrefix(refreshToken)))
	return nil
}

// RevokeAllSessions force-logs-out a user everywhere. Used when an admin
// deletes or demotes the account.
func (s *AuthService) RevokeAllSessions(ctx context.Context, userID uint64) error {
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "service unavailable", err)
	}
	s.log.Info("all sessions revoked", zap.Uint64("user_id", userID))
	s.publish(ctx, queue.AuthEvent{Type: queue.EventSessionRevoked, UserID: userID})
	return nil
}

// issuePair mints a new access+refresh pair and persists the refresh record.
// Persistence is best-effort: if the store keeps failing after its bounded
// retries, the login still succeeds with a valid access token and the failure
// is logged. replace controls whether prior sessions are invalidated first.
func (s *AuthService) issuePair(ctx context.Context, userID uint64, replace bool) (TokenPair, error) {
	access, accessExp, err := s.codec.IssueAccess(userID)
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.KindInternal, "issue access token", err)
	}
	refresh, refreshExp, err := s.codec.IssueRefresh(userID)
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.KindInternal, "issue refresh token", err)
	}

	if replace {
		err = s.tokens.ReplaceForUser(ctx, userID, refresh, refreshExp)
	} else {
		err = s.tokens.Store(ctx, userID, refresh, refreshExp)
	}
	if err != nil {
		s.log.Error("persist refresh token failed, session will not survive access expiry",
			zap.Uint64("user_id", userID), zap.Error(err))
	}

	return TokenPair{
		AccessToken:    access,
		AccessExpires:  accessExp,
		RefreshToken:   refresh,
		RefreshExpires: refreshExp,
	}, nil
}

func (s *AuthService) publish(ctx context.Context, ev queue.AuthEvent) {
	if s.events == nil {
		return
	}
	ev.At = time.Now().UTC()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish auth event failed", zap.String("type", ev.Type), zap.Error(err))
	}
}

func errInvalidCredentials() error {
	return apperr.New(apperr.KindUnauthorized, "invalid credentials")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// tokenPrefix returns a short, log-safe prefix of a token.
func tokenPrefix(token string) string {
	if len(token) <= 10 {
		return token
	}
	return token[:10] + "..."
}
