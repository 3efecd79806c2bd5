package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/revocation-service/internal/domain"
	"github.com/spec-kit/revocation-service/internal/liveness"
	"github.com/spec-kit/revocation-service/internal/repository"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

type brokenOracle struct{}

func (brokenOracle) Check(context.Context, string, string) (domain.LivenessStatus, error) {
	return domain.LivenessStatus{}, apperrors.NewTransient("user lookup", errors.New("reset by peer"))
}

func TestValidator_IsValid(t *testing.T) {
	ctx := context.Background()
	users := repository.NewMemoryUsers()
	clients := repository.NewMemoryClients()
	user := &domain.User{UserName: "alice"}
	require.NoError(t, users.Create(ctx, user))
	client := &domain.Client{Name: "portal"}
	require.NoError(t, clients.Create(ctx, client))

	v := NewValidator(liveness.New(users, clients))
	principal := &domain.Principal{Subject: user.ID.String(), ClientID: client.ID.String()}

	ok, err := v.IsValid(ctx, principal)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, users.SetBlocked(ctx, user.ID.String(), true))
	ok, err = v.IsValid(ctx, principal)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, users.SetBlocked(ctx, user.ID.String(), false))
	clients.Delete(client.ID)
	ok, err = v.IsValid(ctx, principal)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.IsValid(ctx, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.IsValid(ctx, &domain.Principal{Subject: domain.UnknownSubject})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidator_LookupFailureIsError(t *testing.T) {
	ok, err := NewValidator(brokenOracle{}).IsValid(context.Background(), &domain.Principal{Subject: "s", ClientID: "c"})
	assert.False(t, ok)
	assert.True(t, apperrors.IsTransient(err))
}
