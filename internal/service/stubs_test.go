package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/user-auth-service/internal/model"
	"github.com/iliyamo/user-auth-service/internal/queue"
	"github.com/iliyamo/user-auth-service/internal/repository"
)

var errStorage = errors.New("storage down")

// memUserStore is an in-memory UserStore used by the service tests.
type memUserStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[uint64]model.User{}}
}

func (m *memUserStore) Create(_ context.Context, email, name, passwordHash, role string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	m.nextID++
	now := time.Now().UTC()
	m.users[m.nextID] = model.User{
		ID: m.nextID, Email: email, Name: name, PasswordHash: passwordHash,
		Role: role, CreatedAt: now, UpdatedAt: now,
	}
	return m.nextID, nil
}

func (m *memUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUserStore) List(_ context.Context, limit, offset int) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for id := uint64(1); id <= m.nextID; id++ {
		if u, ok := m.users[id]; ok {
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

func (m *memUserStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memUserStore) Update(_ context.Context, id uint64, upd model.UserUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
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
	u.UpdatedAt = time.Now().UTC()
	m.users[id] = u
	return nil
}

func (m *memUserStore) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// memTokenStore is an in-memory TokenStore. failStores makes the next N
// Store/ReplaceForUser calls fail, exercising the best-effort persistence path.
type memTokenStore struct {
	mu         sync.Mutex
	nextID     uint64
	records    []model.RefreshToken
	failStores int
}

func newMemTokenStore() *memTokenStore { return &memTokenStore{} }

func (m *memTokenStore) Store(_ context.Context, userID uint64, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failStores > 0 {
		m.failStores--
		return errStorage
	}
	m.insert(userID, token, expiresAt)
	return nil
}

func (m *memTokenStore) ReplaceForUser(_ context.Context, userID uint64, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failStores > 0 {
		m.failStores--
		return errStorage
	}
	now := time.Now().UTC()
	for i := range m.records {
		if m.records[i].UserID == userID && !m.records[i].IsRevoked {
			m.records[i].IsRevoked = true
			m.records[i].RevokedAt = &now
		}
	}
	m.insert(userID, token, expiresAt)
	return nil
}

func (m *memTokenStore) insert(userID uint64, token string, expiresAt time.Time) {
	m.nextID++
	m.records = append(m.records, model.RefreshToken{
		ID: m.nextID, UserID: userID, Token: token,
		ExpiresAt: expiresAt, CreatedAt: time.Now().UTC(),
	})
}

func (m *memTokenStore) FindValid(_ context.Context, token string) (model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Token == token && !r.IsRevoked {
			return r, nil
		}
	}
	return model.RefreshToken{}, repository.ErrNotFound
}

func (m *memTokenStore) Revoke(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for i := range m.records {
		if m.records[i].Token == token && !m.records[i].IsRevoked {
			m.records[i].IsRevoked = true
			m.records[i].RevokedAt = &now
		}
	}
	return nil
}

func (m *memTokenStore) RevokeAllForUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for i := range m.records {
		if m.records[i].UserID == userID && !m.records[i].IsRevoked {
			m.records[i].IsRevoked = true
			m.records[i].RevokedAt = &now
		}
	}
	return nil
}

// validCount returns the number of unrevoked records for a user.
func (m *memTokenStore) validCount(userID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.UserID == userID && !r.IsRevoked {
			n++
		}
	}
	return n
}

// setExpiry backdates or postdates a stored record, simulating clock movement.
func (m *memTokenStore) setExpiry(token string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].Token == token {
			m.records[i].ExpiresAt = expiresAt
		}
	}
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.AuthEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}
