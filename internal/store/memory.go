package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is a process-local store with the same contract as PostgresStore.
// It backs CMS_STORE=memory and the tests.
type Memory struct {
	mu       sync.RWMutex
	docs     map[string]map[string]Document
	users    map[string]User
	sessions map[string]memorySession
	revoked  map[string]time.Time
}

type memorySession struct {
	userID    string
	expiresAt time.Time
}

func NewMemory() *Memory {
	return &Memory{
		docs:     make(map[string]map[string]Document),
		users:    make(map[string]User),
		sessions: make(map[string]memorySession),
		revoked:  make(map[string]time.Time),
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) ListDocuments(_ context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]Document, 0, len(m.docs[collection]))
	for _, doc := range m.docs[collection] {
		doc.Data = append(json.RawMessage(nil), doc.Data...)
		items = append(items, doc)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *Memory) GetDocument(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("document %s/%s: %w", collection, id, ErrNotFound)
	}
	doc.Data = append(json.RawMessage(nil), doc.Data...)
	return doc, nil
}

func (m *Memory) PutDocument(_ context.Context, collection, id string, data json.RawMessage) error {
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return fmt.Errorf("put document %s/%s: %w", collection, id, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]Document)
	}
	m.docs[collection][id] = Document{
		Collection: collection,
		ID:         id,
		Data:       json.RawMessage(compact.Bytes()),
		UpdatedAt:  time.Now(),
	}
	return nil
}

func (m *Memory) DeleteDocument(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs[collection], id)
	return nil
}

func (m *Memory) CreateUser(_ context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return ErrEmailTaken
		}
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	m.users[user.ID] = user
	return nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *Memory) GetUserByID(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (m *Memory) ListUsers(context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (m *Memory) UpdateUserPassword(_ context.Context, id, passwordHash string) error {
	return m.updateUser(id, func(u *User) { u.PasswordHash = passwordHash })
}

func (m *Memory) SetUserRole(_ context.Context, id, role string) error {
	return m.updateUser(id, func(u *User) { u.Role = role })
}

func (m *Memory) DeactivateUser(_ context.Context, id string) error {
	return m.updateUser(id, func(u *User) {
		now := time.Now()
		u.DeactivatedAt = &now
	})
}

func (m *Memory) updateUser(id string, fn func(*User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(&user)
	user.UpdatedAt = time.Now()
	m.users[id] = user
	return nil
}

func (m *Memory) SaveRefreshSession(_ context.Context, tokenHash, userID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[tokenHash] = memorySession{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *Memory) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	m.mu.RLock()
	session, ok := m.sessions[tokenHash]
	m.mu.RUnlock()
	if !ok || time.Now().After(session.expiresAt) {
		return User{}, ErrNotFound
	}
	return m.GetUserByID(ctx, session.userID)
}

func (m *Memory) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tokenHash)
	return nil
}

func (m *Memory) RevokeAccessToken(_ context.Context, jti string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = exp
	return nil
}

func (m *Memory) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.revoked[jti]
	return ok, nil
}
