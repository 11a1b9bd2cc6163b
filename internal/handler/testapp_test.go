package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/user-auth-service/internal/auth"
	"github.com/iliyamo/user-auth-service/internal/handler"
	"github.com/iliyamo/user-auth-service/internal/middleware"
	"github.com/iliyamo/user-auth-service/internal/model"
	"github.com/iliyamo/user-auth-service/internal/repository"
	"github.com/iliyamo/user-auth-service/internal/router"
	"github.com/iliyamo/user-auth-service/internal/service"
)

// fakeUsers / fakeTokens are in-memory stores backing the handler tests.

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{rows: map[uint64]model.User{}} }

func (f *fakeUsers) Create(_ context.Context, email, name, passwordHash, role string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	f.nextID++
	f.rows[f.nextID] = model.User{
		ID: f.nextID, Email: email, Name: name, PasswordHash: passwordHash, Role: role,
	}
	return f.nextID, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) List(_ context.Context, limit, offset int) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for id := uint64(1); id <= f.nextID; id++ {
		if u, ok := f.rows[id]; ok {
			out = append(out, u)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeUsers) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows), nil
}

func (f *fakeUsers) Update(_ context.Context, id uint64, upd model.UserUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	f.rows[id] = u
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeTokens struct {
	mu   sync.Mutex
	rows []model.RefreshToken
}

func (f *fakeTokens) Store(_ context.Context, userID uint64, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, model.RefreshToken{UserID: userID, Token: token, ExpiresAt: expiresAt})
	return nil
}

func (f *fakeTokens) ReplaceForUser(ctx context.Context, userID uint64, token string, expiresAt time.Time) error {
	_ = f.RevokeAllForUser(ctx, userID)
	return f.Store(ctx, userID, token, expiresAt)
}

func (f *fakeTokens) FindValid(_ context.Context, token string) (model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Token == token && !r.IsRevoked {
			return r, nil
		}
	}
	return model.RefreshToken{}, repository.ErrNotFound
}

func (f *fakeTokens) Revoke(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].Token == token {
			f.rows[i].IsRevoked = true
		}
	}
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].UserID == userID {
			f.rows[i].IsRevoked = true
		}
	}
	return nil
}

// testApp is a fully wired application over in-memory storage.
type testApp struct {
	e     *echo.Echo
	codec *auth.Codec
	users *fakeUsers
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	users := newFakeUsers()
	tokens := &fakeTokens{}
	codec := auth.NewCodec("app-access-secret-0123456789", "app-refresh-secret-0123456789",
		15*time.Minute, 7*24*time.Hour)
	log := zap.NewNop()

	authSvc := service.NewAuthService(users, tokens, codec, nil, log, bcrypt.MinCost)
	userSvc := service.NewUserService(users, tokens, nil, log, bcrypt.MinCost)

	e := echo.New()
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(log, "test")
	e.Use(echomw.RequestID())

	passthrough := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	router.Register(e, router.Deps{
		Auth:        handler.NewAuthHandler(authSvc, false),
		Users:       handler.NewUserHandler(userSvc),
		AccessGate:  middleware.Authenticate(codec, users),
		RefreshGate: middleware.RequireRefreshToken(),
		RateLimit:   passthrough,
	})
	return &testApp{e: e, codec: codec, users: users}
}

// advanceClock shifts the codec's view of time so a refreshed access token
// carries a different iat than the original.
func (a *testApp) advanceClock(d time.Duration) {
	a.codec.Now = func() time.Time { return time.Now().UTC().Add(d) }
}

// do runs one request through the app and returns the recorder.
func (a *testApp) do(method, path, body, bearer string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// cookieNamed extracts a Set-Cookie value from a response.
func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	res := http.Response{Header: rec.Header()}
	for _, cookie := range res.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}
