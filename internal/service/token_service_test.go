package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/revocation-service/internal/auth"
	"github.com/spec-kit/revocation-service/internal/config"
	"github.com/spec-kit/revocation-service/internal/domain"
	"github.com/spec-kit/revocation-service/internal/events"
	"github.com/spec-kit/revocation-service/internal/grant"
	"github.com/spec-kit/revocation-service/internal/liveness"
	"github.com/spec-kit/revocation-service/internal/repository"
	"github.com/spec-kit/revocation-service/internal/tokenstore"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

type world struct {
	cfg     config.Config
	users   *repository.MemoryUsers
	clients *repository.MemoryClients
	store   *tokenstore.Store
	admin   *AdminService
	tokens  *TokenService
	user    *domain.User
	client  *domain.Client
}

func newWorld(t *testing.T, opts ...tokenstore.Option) *world {
	t.Helper()
	ctx := context.Background()
	cfg := config.Config{
		Auth:       config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4},
		TokenStore: config.TokenStoreConfig{TokenTTLMinutes: 10},
		Grant:      config.GrantConfig{GrantType: "windows"},
	}
	users := repository.NewMemoryUsers()
	clients := repository.NewMemoryClients()
	oracle := liveness.New(users, clients)
	store := tokenstore.New(nil, oracle, opts...)
	jwtManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	w := &world{cfg: cfg, users: users, clients: clients, store: store}
	w.admin = NewAdminService(cfg, users, clients, store)
	w.tokens = NewTokenService(cfg, TokenDependencies{
		Clients: clients,
		Grant:   grant.NewValidator(cfg.Grant.GrantType, users, oracle, grant.NewRepositoryCredentials(users)),
		Store:   store,
		JWT:     jwtManager,
		Access:  auth.NewAccessTokenValidator(jwtManager, oracle),
	})

	var err error
	w.user, err = w.admin.CreateUser(ctx, "alice", "s3cret")
	require.NoError(t, err)
	w.client, err = w.admin.CreateClient(ctx, "portal", "client-secret", "https://portal.example.com/bye")
	require.NoError(t, err)
	return w
}

func (w *world) request() TokenRequest {
	return TokenRequest{
		GrantType:    "windows",
		ClientID:     w.client.ID.String(),
		ClientSecret: "client-secret",
		UserName:     "alice",
		Password:     "s3cret",
	}
}

func TestTokenService_IssueReferenceToken(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)

	issued, result, err := w.tokens.Issue(ctx, w.request())
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.NotNil(t, issued)
	assert.Equal(t, TokenFormatReference, issued.Format)
	assert.Equal(t, w.user.ID.String(), issued.Subject)
	assert.Equal(t, "windows", w.tokens.GrantType())

	info, err := w.tokens.Introspect(ctx, issued.AccessToken)
	require.NoError(t, err)
	assert.True(t, info.Active)
	assert.Equal(t, w.client.ID.String(), info.ClientID)
	assert.Equal(t, "alice", info.Name)
	assert.Equal(t, issued.ExpiresAt.Unix(), info.ExpiresAt)

	require.NoError(t, w.admin.SetClientBlocked(ctx, w.client.ID.String(), true))
	info, err = w.tokens.Introspect(ctx, issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, Introspection{}, info)

	require.NoError(t, w.admin.SetClientBlocked(ctx, w.client.ID.String(), false))
	info, err = w.tokens.Introspect(ctx, issued.AccessToken)
	require.NoError(t, err)
	assert.True(t, info.Active)

	require.NoError(t, w.tokens.Revoke(ctx, issued.AccessToken))
	info, err = w.tokens.Introspect(ctx, issued.AccessToken)
	require.NoError(t, err)
	assert.False(t, info.Active)
}

func TestTokenService_IssueJWT(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	req := w.request()
	req.Format = "JWT"

	issued, _, err := w.tokens.Issue(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, TokenFormatJWT, issued.Format)

	info, err := w.tokens.Introspect(ctx, issued.AccessToken)
	require.NoError(t, err)
	assert.True(t, info.Active)
	assert.Equal(t, w.user.ID.String(), info.Subject)

	require.NoError(t, w.admin.SetUserBlocked(ctx, w.user.ID.String(), true))
	info, err = w.tokens.Introspect(ctx, issued.AccessToken)
	require.NoError(t, err)
	assert.False(t, info.Active)

	req.Format = "saml"
	require.NoError(t, w.admin.SetUserBlocked(ctx, w.user.ID.String(), false))
	_, _, err = w.tokens.Issue(ctx, req)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestTokenService_ClientAuthentication(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)

	wrongSecret := w.request()
	wrongSecret.ClientSecret = "nope"
	unknown := w.request()
	unknown.ClientID = "not-a-client"

	for _, req := range []TokenRequest{wrongSecret, unknown} {
		issued, _, err := w.tokens.Issue(ctx, req)
		assert.Nil(t, issued)
		assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
	}

	require.NoError(t, w.admin.SetClientBlocked(ctx, w.client.ID.String(), true))
	_, _, err := w.tokens.Issue(ctx, w.request())
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
}

type stalledClients struct {
	*repository.MemoryClients
}

func (stalledClients) FindByID(ctx context.Context, _ string) (*domain.Client, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestTokenService_ClientLookupTimesOut(t *testing.T) {
	w := newWorld(t)
	cfg := w.cfg
	cfg.Liveness.LookupTimeoutMillis = 30
	tokens := NewTokenService(cfg, TokenDependencies{Clients: stalledClients{w.clients}, Store: w.store})

	start := time.Now()
	client, err := tokens.AuthenticateClient(context.Background(), w.client.ID.String(), "client-secret")
	assert.Nil(t, client)
	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestTokenService_GrantRejection(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	req := w.request()
	req.Password = "wrong"

	issued, result, err := w.tokens.Issue(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, issued)
	assert.True(t, result.IsError)
	assert.Equal(t, domain.ResultErrorInvalidGrant, result.Error)

	list, err := w.admin.SubjectTokens(ctx, w.user.ID.String())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTokenService_IntrospectGarbage(t *testing.T) {
	w := newWorld(t)
	for _, raw := range []string{"", "  ", "a.b.c", "unknown-handle"} {
		info, err := w.tokens.Introspect(context.Background(), raw)
		require.NoError(t, err)
		assert.False(t, info.Active, raw)
	}
	assert.Error(t, w.tokens.Revoke(context.Background(), " "))
}

func TestAdminService_RevokeTokens(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	other, err := w.admin.CreateClient(ctx, "other", "x", "")
	require.NoError(t, err)
	assert.Nil(t, other.URI)

	subject := w.user.ID.String()
	for _, c := range []string{w.client.ID.String(), other.ID.String()} {
		require.NoError(t, w.store.Store(ctx, tokenstore.NewKey(), &domain.ReferenceToken{SubjectID: subject, ClientID: c}))
	}

	_, err = w.admin.RevokeTokens(ctx, subject, w.client.ID.String(), "sideways")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	_, err = w.admin.RevokeTokens(ctx, "", w.client.ID.String(), "")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	n, err := w.admin.RevokeTokens(ctx, subject, w.client.ID.String(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, w.store.Store(ctx, tokenstore.NewKey(), &domain.ReferenceToken{SubjectID: subject, ClientID: w.client.ID.String()}))
	n, err = w.admin.RevokeTokens(ctx, subject, w.client.ID.String(), RevokeModeEither)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAdminService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)

	_, err := w.admin.CreateUser(ctx, " ", "pw")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	_, err = w.admin.CreateUser(ctx, "ALICE", "pw")
	assert.True(t, apperrors.IsConflict(err))
	_, err = w.admin.CreateClient(ctx, "portal", "", "")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestTokenEventService_LogsRevocations(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewTokenEventService(dispatcher, zap.New(core)).RegisterHandlers()

	w := newWorld(t, tokenstore.WithDispatcher(dispatcher))
	ctx := context.Background()
	subject, client := w.user.ID.String(), w.client.ID.String()
	require.NoError(t, w.store.Store(ctx, "k", &domain.ReferenceToken{SubjectID: subject, ClientID: client}))
	_, err := w.store.Revoke(ctx, subject, client)
	require.NoError(t, err)

	revoked := logs.FilterMessage("TokensRevoked").All()
	require.Len(t, revoked, 1)
	fields := revoked[0].ContextMap()
	assert.Equal(t, subject, fields["subject_id"])
	assert.Equal(t, string(tokenstore.MatchSubjectAndClient), fields["mode"])
	assert.Equal(t, int64(1), fields["count"])
	assert.Equal(t, 0, logs.FilterMessage("TokenStored").Len())
}
