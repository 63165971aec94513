package userstore

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/gatekeeper"
	"github.com/google/uuid"
)

// Memory is a concurrency-safe in-process user store.
type Memory struct {
	mu           sync.RWMutex
	byID         map[string]gatekeeper.UserRecord
	byIdentifier map[string]string
	now          func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		byID:         make(map[string]gatekeeper.UserRecord),
		byIdentifier: make(map[string]string),
		now:          time.Now,
	}
}

// WithClock replaces the clock used for created/updated timestamps.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	if now != nil {
		m.now = now
	}
	return m
}

func (m *Memory) GetUserByIdentifier(_ context.Context, identifier string) (gatekeeper.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byIdentifier[identifier]
	if !ok {
		return gatekeeper.UserRecord{}, gatekeeper.ErrUserNotFound
	}
	return cloneRecord(m.byID[id]), nil
}

func (m *Memory) GetUserByID(_ context.Context, userID string) (gatekeeper.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[userID]
	if !ok {
		return gatekeeper.UserRecord{}, gatekeeper.ErrUserNotFound
	}
	return cloneRecord(u), nil
}

func (m *Memory) CreateUser(_ context.Context, in gatekeeper.CreateUserInput) (gatekeeper.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byIdentifier[in.Identifier]; exists {
		return gatekeeper.UserRecord{}, gatekeeper.ErrProviderDuplicateIdentifier
	}

	now := m.now().UTC()
	u := gatekeeper.UserRecord{
		ID:           uuid.NewString(),
		Identifier:   in.Identifier,
		Name:         in.Name,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		Permissions:  append([]string(nil), in.Permissions...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.byID[u.ID] = u
	m.byIdentifier[u.Identifier] = u.ID
	return cloneRecord(u), nil
}

func (m *Memory) UpdateLastLogin(_ context.Context, userID string, at time.Time) error {
	return m.update(userID, func(u *gatekeeper.UserRecord) {
		u.LastLoginAt = at.UTC()
	})
}

func (m *Memory) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	return m.update(userID, func(u *gatekeeper.UserRecord) {
		u.PasswordHash = hash
	})
}

// SetRole changes a user's role. Authenticated requests see the change immediately.
func (m *Memory) SetRole(_ context.Context, userID, role string) error {
	return m.update(userID, func(u *gatekeeper.UserRecord) {
		u.Role = role
	})
}

// SetPermissions replaces a user's explicit capability grants.
func (m *Memory) SetPermissions(_ context.Context, userID string, perms []string) error {
	return m.update(userID, func(u *gatekeeper.UserRecord) {
		u.Permissions = append([]string(nil), perms...)
	})
}

// Delete removes a user. Tokens issued to it stop authenticating.
func (m *Memory) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[userID]
	if !ok {
		return gatekeeper.ErrUserNotFound
	}
	delete(m.byID, userID)
	delete(m.byIdentifier, u.Identifier)
	return nil
}

func (m *Memory) update(userID string, fn func(*gatekeeper.UserRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[userID]
	if !ok {
		return gatekeeper.ErrUserNotFound
	}
	fn(&u)
	u.UpdatedAt = m.now().UTC()
	m.byID[userID] = u
	return nil
}

func cloneRecord(u gatekeeper.UserRecord) gatekeeper.UserRecord {
	u.Permissions = append([]string(nil), u.Permissions...)
	return u
}
