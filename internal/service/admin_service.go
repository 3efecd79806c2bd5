package service

import (
	"context"
	"strings"

	"github.com/spec-kit/revocation-service/internal/auth"
	"github.com/spec-kit/revocation-service/internal/config"
	"github.com/spec-kit/revocation-service/internal/domain"
	"github.com/spec-kit/revocation-service/internal/repository"
	"github.com/spec-kit/revocation-service/internal/tokenstore"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// Revoke modes accepted by RevokeTokens.
const (
	RevokeModeBoth   = "both"
	RevokeModeEither = "either"
)

// AdminService manages identity records and reference tokens on behalf of operators.
type AdminService struct {
	users      repository.UserRepository
	clients    repository.ClientRepository
	store      *tokenstore.Store
	bcryptCost int
}

// NewAdminService builds the service.
func NewAdminService(cfg config.Config, users repository.UserRepository, clients repository.ClientRepository, store *tokenstore.Store) *AdminService {
	return &AdminService{
		users:      users,
		clients:    clients,
		store:      store,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// CreateUser registers a user with a hashed password.
func (s *AdminService) CreateUser(ctx context.Context, userName, password string) (*domain.User, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" || password == "" {
		return nil, apperrors.NewValidationError("user_name and password required", nil)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{UserName: userName, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateClient registers a client with a hashed secret and an optional redirect URI.
func (s *AdminService) CreateClient(ctx context.Context, name, secret, uri string) (*domain.Client, error) {
	name = strings.TrimSpace(name)
	if name == "" || secret == "" {
		return nil, apperrors.NewValidationError("name and secret required", nil)
	}
	hash, err := auth.HashPassword(secret, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	client := &domain.Client{Name: name, SecretHash: hash}
	if uri = strings.TrimSpace(uri); uri != "" {
		client.URI = &uri
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// SetUserBlocked blocks or unblocks a user. Tokens are kept and become usable again on unblock.
func (s *AdminService) SetUserBlocked(ctx context.Context, id string, blocked bool) error {
	return s.users.SetBlocked(ctx, id, blocked)
}

// SetClientBlocked blocks or unblocks a client.
func (s *AdminService) SetClientBlocked(ctx context.Context, id string, blocked bool) error {
	return s.clients.SetBlocked(ctx, id, blocked)
}

// SubjectTokens lists the live tokens of a subject.
func (s *AdminService) SubjectTokens(ctx context.Context, subjectID string) ([]domain.TokenMetadata, error) {
	return s.store.GetAllForSubject(ctx, subjectID)
}

// RevokeTokens removes tokens for subject and client. Mode "both" (the default) removes
// tokens matching both; "either" removes tokens matching either.
func (s *AdminService) RevokeTokens(ctx context.Context, subjectID, clientID, mode string) (int, error) {
	if subjectID == "" || clientID == "" {
		return 0, apperrors.NewValidationError("subject_id and client_id required", nil)
	}
	switch strings.ToLower(mode) {
	case "", RevokeModeBoth:
		return s.store.RevokeMatchingSubjectAndClient(ctx, subjectID, clientID)
	case RevokeModeEither:
		return s.store.RevokeMatchingSubjectOrClient(ctx, subjectID, clientID)
	default:
		return 0, apperrors.NewValidationError("invalid revoke mode", map[string]any{"mode": mode})
	}
}
