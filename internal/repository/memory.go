package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/revocation-service/internal/auth"
	"github.com/spec-kit/revocation-service/internal/domain"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// MemoryUsers is an in-process UserRepository used when no database is configured and in tests.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[uuid.UUID]domain.User
}

// NewMemoryUsers returns an empty user store.
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[uuid.UUID]domain.User)}
}

var _ UserRepository = (*MemoryUsers)(nil)

func (m *MemoryUsers) FindByNameAndPassword(ctx context.Context, name, password string) (*domain.User, error) {
	user, err := m.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewNotFound("user", nil)
	}
	return user, nil
}

func (m *MemoryUsers) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.FromContext("find user by id", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.NewNotFound("user", nil)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[parsed]
	if !ok {
		return nil, apperrors.NewNotFound("user", nil)
	}
	return &user, nil
}

func (m *MemoryUsers) FindByName(ctx context.Context, name string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.FromContext("find user by name", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if strings.EqualFold(user.UserName, name) {
			u := user
			return &u, nil
		}
	}
	return nil, apperrors.NewNotFound("user", nil)
}

func (m *MemoryUsers) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.UserName, user.UserName) {
			return apperrors.NewConflict("record already exists", map[string]any{"user_name": user.UserName})
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryUsers) SetBlocked(ctx context.Context, id string, blocked bool) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return apperrors.NewNotFound("user", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[parsed]
	if !ok {
		return apperrors.NewNotFound("user", nil)
	}
	user.IsBlocked = blocked
	user.UpdatedAt = time.Now().UTC()
	m.users[parsed] = user
	return nil
}

// Delete removes a user record; later lookups report NotFound.
func (m *MemoryUsers) Delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

// MemoryClients is an in-process ClientRepository.
type MemoryClients struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]domain.Client
}

// NewMemoryClients returns an empty client store.
func NewMemoryClients() *MemoryClients {
	return &MemoryClients{clients: make(map[uuid.UUID]domain.Client)}
}

var _ ClientRepository = (*MemoryClients)(nil)

func (m *MemoryClients) FindByID(ctx context.Context, id string) (*domain.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.FromContext("find client by id", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.NewNotFound("client", nil)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	client, ok := m.clients[parsed]
	if !ok {
		return nil, apperrors.NewNotFound("client", nil)
	}
	return &client, nil
}

func (m *MemoryClients) AllRedirectURIs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var uris []string
	for _, client := range m.clients {
		if client.URI != nil && *client.URI != "" {
			uris = append(uris, *client.URI)
		}
	}
	sort.Strings(uris)
	return uris, nil
}

func (m *MemoryClients) Create(ctx context.Context, client *domain.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	if _, exists := m.clients[client.ID]; exists {
		return apperrors.NewConflict("record already exists", map[string]any{"client_id": client.ID.String()})
	}
	now := time.Now().UTC()
	client.CreatedAt, client.UpdatedAt = now, now
	m.clients[client.ID] = *client
	return nil
}

func (m *MemoryClients) SetBlocked(ctx context.Context, id string, blocked bool) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return apperrors.NewNotFound("client", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	client, ok := m.clients[parsed]
	if !ok {
		return apperrors.NewNotFound("client", nil)
	}
	client.IsBlocked = blocked
	client.UpdatedAt = time.Now().UTC()
	m.clients[parsed] = client
	return nil
}

// Delete removes a client record.
func (m *MemoryClients) Delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, id)
}
