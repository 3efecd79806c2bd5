package authn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/revocation-service/internal/auth"
	"github.com/spec-kit/revocation-service/internal/domain"
	"github.com/spec-kit/revocation-service/internal/grant"
	"github.com/spec-kit/revocation-service/internal/liveness"
	"github.com/spec-kit/revocation-service/internal/repository"
	"github.com/spec-kit/revocation-service/internal/tokenstore"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

type harness struct {
	users   *repository.MemoryUsers
	clients *repository.MemoryClients
	store   *tokenstore.Store
	user    *domain.User
	client  *domain.Client
	svc     *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	users := repository.NewMemoryUsers()
	clients := repository.NewMemoryClients()

	hash, err := auth.HashPassword("s3cret", 4)
	require.NoError(t, err)
	user := &domain.User{UserName: "alice", PasswordHash: hash}
	require.NoError(t, users.Create(ctx, user))
	uri := "https://portal.example.com/signed-out"
	client := &domain.Client{Name: "portal", URI: &uri}
	require.NoError(t, clients.Create(ctx, client))

	oracle := liveness.New(users, clients)
	store := tokenstore.New(nil, oracle)
	return &harness{
		users:   users,
		clients: clients,
		store:   store,
		user:    user,
		client:  client,
		svc:     NewService(users, clients, oracle, nil, store),
	}
}

func TestService_AuthenticateLocal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	req := LocalAuthRequest{UserName: "alice", Password: "s3cret", ClientID: h.client.ID.String()}

	res, err := h.svc.AuthenticateLocal(ctx, req)
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, h.user.ID.String(), res.Principal.Subject)
	assert.Equal(t, domain.AuthMethodPassword, res.Principal.AuthMethod)

	wrong := req
	wrong.Password = "nope"
	res, err = h.svc.AuthenticateLocal(ctx, wrong)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, h.user.ID.String(), res.Subject)

	unknown := req
	unknown.UserName = "bob"
	res, err = h.svc.AuthenticateLocal(ctx, unknown)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, domain.UnknownSubject, res.Subject)

	require.NoError(t, h.clients.SetBlocked(ctx, h.client.ID.String(), true))
	blocked, err := h.svc.AuthenticateLocal(ctx, req)
	require.NoError(t, err)
	assert.True(t, blocked.IsError)
	assert.True(t, blocked.Blocked)
	assert.False(t, res.Blocked)
	assert.Equal(t, res.ErrorDescription, blocked.ErrorDescription)
}

func TestService_AuthenticateLocalSkipsPasswordWhenBlocked(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	calls := 0
	checker := grant.CredentialCheckerFunc(func(context.Context, string, string) (bool, error) {
		calls++
		return true, nil
	})
	svc := NewService(h.users, h.clients, liveness.New(h.users, h.clients), checker, h.store)
	require.NoError(t, h.users.SetBlocked(ctx, h.user.ID.String(), true))

	res, err := svc.AuthenticateLocal(ctx, LocalAuthRequest{UserName: "alice", Password: "x", ClientID: h.client.ID.String()})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Zero(t, calls)
}

func TestService_AuthenticateExternal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	res, err := h.svc.AuthenticateExternal(ctx, ExternalAuthRequest{
		Provider: "adfs",
		UserName: "ALICE",
		ClientID: h.client.ID.String(),
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, domain.AuthMethodExternal, res.Principal.AuthMethod)
	assert.Equal(t, "alice", res.Principal.Name)
}

func TestService_GetProfileData(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	req := ProfileRequest{Subject: h.user.ID.String(), ClientID: h.client.ID.String()}

	profile, err := h.svc.GetProfileData(ctx, req)
	require.NoError(t, err)
	assert.True(t, profile.IsActive)
	assert.Equal(t, "alice", profile.Claims["preferred_username"])
	assert.Equal(t, h.client.ID.String(), profile.Claims["client_id"])

	require.NoError(t, h.users.SetBlocked(ctx, h.user.ID.String(), true))
	profile, err = h.svc.GetProfileData(ctx, req)
	require.NoError(t, err)
	assert.False(t, profile.IsActive)
	assert.Empty(t, profile.Claims)
}

func TestService_SignOutRevokesClientTokens(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	other := &domain.Client{Name: "other"}
	require.NoError(t, h.clients.Create(ctx, other))

	subject := h.user.ID.String()
	require.NoError(t, h.store.Store(ctx, "mine", &domain.ReferenceToken{SubjectID: subject, ClientID: h.client.ID.String()}))
	require.NoError(t, h.store.Store(ctx, "elsewhere", &domain.ReferenceToken{SubjectID: subject, ClientID: other.ID.String()}))

	require.NoError(t, h.svc.SignOut(ctx, SignOutRequest{Subject: subject, ClientID: h.client.ID.String()}))

	_, err := h.store.Get(ctx, "mine")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = h.store.Get(ctx, "elsewhere")
	assert.NoError(t, err)

	err = h.svc.SignOut(ctx, SignOutRequest{})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestService_IsRedirectAllowed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	ok, err := h.svc.IsRedirectAllowed(ctx, "https://portal.example.com/signed-out")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.svc.IsRedirectAllowed(ctx, "https://evil.example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.svc.IsRedirectAllowed(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

type downUsers struct {
	repository.UserRepository
}

func (downUsers) FindByName(context.Context, string) (*domain.User, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestService_RepositoryFailureIsNotRejection(t *testing.T) {
	h := newHarness(t)
	svc := NewService(downUsers{}, h.clients, liveness.New(h.users, h.clients), nil, h.store)

	res, err := svc.AuthenticateLocal(context.Background(), LocalAuthRequest{UserName: "alice", Password: "s3cret"})
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
	assert.False(t, res.IsError)
}

// stalledUsers never answers a lookup by name or id until the caller gives up.
type stalledUsers struct {
	*repository.MemoryUsers
}

func (stalledUsers) FindByName(ctx context.Context, _ string) (*domain.User, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledUsers) FindByID(ctx context.Context, _ string) (*domain.User, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestService_BoundsSlowDependencies(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	oracle := liveness.New(h.users, h.clients)
	clientID := h.client.ID.String()
	timeout := WithLookupTimeout(30 * time.Millisecond)

	release := make(chan struct{})
	defer close(release)
	stalledCredentials := grant.CredentialCheckerFunc(func(context.Context, string, string) (bool, error) {
		<-release
		return true, nil
	})

	cases := []struct {
		name string
		call func() error
	}{
		{
			name: "local user lookup",
			call: func() error {
				svc := NewService(stalledUsers{h.users}, h.clients, oracle, stalledCredentials, h.store, timeout)
				_, err := svc.AuthenticateLocal(ctx, LocalAuthRequest{UserName: "alice", Password: "s3cret", ClientID: clientID})
				return err
			},
		},
		{
			name: "external user lookup",
			call: func() error {
				svc := NewService(stalledUsers{h.users}, h.clients, oracle, stalledCredentials, h.store, timeout)
				_, err := svc.AuthenticateExternal(ctx, ExternalAuthRequest{Provider: "adfs", UserName: "alice", ClientID: clientID})
				return err
			},
		},
		{
			name: "credential check",
			call: func() error {
				svc := NewService(h.users, h.clients, oracle, stalledCredentials, h.store, timeout)
				_, err := svc.AuthenticateLocal(ctx, LocalAuthRequest{UserName: "alice", Password: "s3cret", ClientID: clientID})
				return err
			},
		},
		{
			name: "profile lookup",
			call: func() error {
				svc := NewService(stalledUsers{h.users}, h.clients, oracle, stalledCredentials, h.store, timeout)
				_, err := svc.GetProfileData(ctx, ProfileRequest{Subject: h.user.ID.String(), ClientID: clientID})
				return err
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start := time.Now()
			err := tc.call()
			require.Error(t, err)
			assert.True(t, apperrors.IsTimeout(err))
			assert.Less(t, time.Since(start), time.Second)
		})
	}
}
