package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/user-auth-service/internal/apperr"
	"github.com/iliyamo/user-auth-service/internal/auth"
	"github.com/iliyamo/user-auth-service/internal/model"
	"github.com/iliyamo/user-auth-service/internal/queue"
	"github.com/iliyamo/user-auth-service/internal/repository"
)

// Pagination clamps: page is 1-based, limit capped to keep list responses
// bounded.
const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Page describes pagination metadata returned alongside list results.
type Page struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// CreateUserInput is the validated payload for admin user creation.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	Role     string
}

// UpdateUserInput is the validated payload for admin user update. Nil fields
// are left unchanged.
type UpdateUserInput struct {
	Email    *string
	Name     *string
	Password *string
	Role     *string
}

// UserService implements the admin-gated CRUD over user records.
type UserService struct {
	users      UserStore
	tokens     TokenStore
	events     EventPublisher
	log        *zap.Logger
	bcryptCost int
}

func NewUserService(users UserStore, tokens TokenStore, events EventPublisher,
	log *zap.Logger, bcryptCost int) *UserService {
	return &UserService{
		users:      users,
		tokens:     tokens,
		events:     events,
		log:        log,
		bcryptCost: bcryptCost,
	}
}

// Create inserts a user with an admin-assigned role.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (model.User, error) {
	email := normalizeEmail(in.Email)
	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	if !model.ValidRole(role) {
		return model.User{}, apperr.New(apperr.KindValidation, "invalid role")
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, apperr.Wrap(apperr.KindInternal, "hash password", err)
	}
	id, err := s.users.Create(ctx, email, in.Name, hash, role)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, apperr.New(apperr.KindConflict, "user with this email already exists")
		}
		return model.User{}, apperr.Wrap(apperr.KindUnavailable, "service unavailable", err)
	}

	s.log.Info("user created by admin",
		zap.Uint64("user_id", id), zap.String("email", email), zap.String("role", role))
	return model.User{ID: id, Email: email, Name: in.Name, Role: role}, nil
}

// List returns a page of users plus pagination metadata. Page and limit are
// clamped to sane bounds rather than rejected.
func (s *UserService) List(ctx context.Context, page, limit int) ([]model.User, Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, Page{}, apperr.Wrap(apperr.KindUnavailable, "service unavailable", err)
	}
	users, err := s.users.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, Page{}, apperr.Wrap(apperr.KindUnavailable, "service unavailable", err)
	}

	totalPages := (total + limit - 1) / limit
	return users, Page{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}, nil
}

// Get fetches a single user by id.
func (s *UserService) Get(ctx context.Context, id uint64) (model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, apperr.New(apperr.KindNotFound, "user not found")
		}
		return model.User{}, apperr.Wrap(apperr.KindUnavailable, "service unavailable", err)
	}
	return user, nil
}

// Update applies a partial update. Changing the email re-checks uniqueness; a
// new password is re-hashed; a role change force-logs-out the user so the new
// role takes effect on next login.
func (s *UserService) Update(ctx context.Context, id uint64, in UpdateUserInput) (model.User, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	upd := model.UserUpdate{Name: in.Name}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != existing.Email {
			if _, err := s.users.GetByEmail(ctx, email); err == nil {
				return model.User{}, apperr.New(apperr.KindConflict, "email already in use")
			} else if !errors.Is(err, repository.ErrNotFound) {
				return model.User{}, apperr.Wrap(apperr.KindUnavailable, "service unavailable", err)
			}
		}
		upd.Email = &email
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password, s.bcryptCost)
		if err != nil {
			return model.User{}, apperr.Wrap(apperr.KindInternal, "hash password", err)
		}
		upd.PasswordHash = &hash
	}
	roleChanged := false
	if in.Role != nil {
		if !model.ValidRole(*in.Role) {
			return model.User{}, apperr.New(apperr.KindValidation, "invalid role")
		}
		roleChanged = *in.Role != existing.Role
		upd.Role = in.Role
	}

	if err := s.users.Update(ctx, id, upd); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return model.User{}, apperr.New(apperr.KindConflict, "email already in use")
		case errors.Is(err, repository.ErrNotFound):
			return model.User{}, apperr.New(apperr.KindNotFound, "user not found")
		default:
			return model.User{}, apperr.Wrap(apperr.KindUnavailable, "service unavailable", err)
		}
	}

	if roleChanged {
		// Live sessions were issued under the old role; end them.
		if err := s.tokens.RevokeAllForUser(ctx, id); err != nil {
			s.log.Error("revoke sessions after role change", zap.Uint64("user_id", id), zap.Error(err))
		} else {
			s.publish(ctx, queue.AuthEvent{Type: queue.EventSessionRevoked, UserID: id})
		}
	}

	s.log.Info("user updated by admin", zap.Uint64("user_id", id))
	return s.Get(ctx, id)
}

// Delete removes a user after revoking every refresh session they hold.
func (s *UserService) Delete(ctx context.Context, id uint64) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tokens.RevokeAllForUser(ctx, id); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "service unavailable", err)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.KindNotFound, "user not found")
		}
		return apperr.Wrap(apperr.KindUnavailable, "service unavailable", err)
	}

	s.log.Info("user deleted by admin", zap.Uint64("user_id", id), zap.String("email", user.Email))
	s.publish(ctx, queue.AuthEvent{Type: queue.EventUserDeleted, UserID: id, Email: user.Email})
	return nil
}

func (s *UserService) publish(ctx context.Context, ev queue.AuthEvent) {
	if s.events == nil {
		return
	}
	ev.At = time.Now().UTC()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish auth event failed", zap.String("type", ev.Type), zap.Error(err))
	}
}
