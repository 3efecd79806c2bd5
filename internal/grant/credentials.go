package grant

import (
	"context"

	"github.com/spec-kit/revocation-service/internal/repository"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// CredentialChecker verifies a user name and password against the credential authority.
// A wrong password is (false, nil); an error means the authority could not answer.
type CredentialChecker interface {
	CheckCredentials(ctx context.Context, userName, password string) (bool, error)
}

// CredentialCheckerFunc adapts a function to CredentialChecker.
type CredentialCheckerFunc func(ctx context.Context, userName, password string) (bool, error)

func (f CredentialCheckerFunc) CheckCredentials(ctx context.Context, userName, password string) (bool, error) {
	return f(ctx, userName, password)
}

// RepositoryCredentials checks passwords against the bcrypt hash held by the user repository.
type RepositoryCredentials struct {
	users repository.UserRepository
}

// NewRepositoryCredentials returns a checker backed by users.
func NewRepositoryCredentials(users repository.UserRepository) *RepositoryCredentials {
	return &RepositoryCredentials{users: users}
}

func (c *RepositoryCredentials) CheckCredentials(ctx context.Context, userName, password string) (bool, error) {
	_, err := c.users.FindByNameAndPassword(ctx, userName, password)
	switch {
	case err == nil:
		return true, nil
	case apperrors.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}
