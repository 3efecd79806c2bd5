// Package grant implements the custom credential grant. Credentials are only verified
// after the user and the requesting client have both been found live.
package grant

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/revocation-service/internal/domain"
	"github.com/spec-kit/revocation-service/internal/observability"
	"github.com/spec-kit/revocation-service/internal/repository"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// DefaultGrantType is the grant type served when none is configured.
const DefaultGrantType = "windows"

// Request is an inline credential exchange.
type Request struct {
	GrantType  string
	ClientID   string
	ClientName string
	UserName   string
	Password   string
}

// CustomGrantValidator is the contract the token endpoint dispatches custom grants to.
// Rejections are results with IsError set; an error means the decision could not be made.
type CustomGrantValidator interface {
	GrantType() string
	Validate(ctx context.Context, req Request) (domain.AuthenticateResult, error)
}

// LivenessChecker answers whether a subject and client may still operate.
type LivenessChecker interface {
	Check(ctx context.Context, subjectID, clientID string) (domain.LivenessStatus, error)
}

// Validator is the default CustomGrantValidator.
type Validator struct {
	grantType   string
	users       repository.UserRepository
	oracle      LivenessChecker
	credentials CredentialChecker
	timeout     time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithLookupTimeout bounds the user lookup by name and the credential check.
func WithLookupTimeout(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) { v.logger = observability.Named(logger, "grant") }
}

// NewValidator builds a validator for grantType. An empty grantType selects DefaultGrantType.
func NewValidator(grantType string, users repository.UserRepository, oracle LivenessChecker, credentials CredentialChecker, opts ...Option) *Validator {
	if strings.TrimSpace(grantType) == "" {
		grantType = DefaultGrantType
	}
	v := &Validator{
		grantType:   grantType,
		users:       users,
		oracle:      oracle,
		credentials: credentials,
		timeout:     apperrors.DefaultCallTimeout,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var _ CustomGrantValidator = (*Validator)(nil)

func (v *Validator) GrantType() string { return v.grantType }

// Validate resolves the user, checks user and client liveness, then verifies the
// credentials. Every rejection carries the same description.
func (v *Validator) Validate(ctx context.Context, req Request) (domain.AuthenticateResult, error) {
	if req.GrantType != "" && req.GrantType != v.grantType {
		return domain.Failed(domain.ResultErrorUnsupportedGrantType, ""), nil
	}
	if strings.TrimSpace(req.UserName) == "" || req.Password == "" {
		return domain.Failed(domain.ResultErrorInvalidGrant, ""), nil
	}

	user, err := apperrors.Bounded(ctx, v.timeout, "user lookup", func(ctx context.Context) (*domain.User, error) {
		return v.users.FindByName(ctx, req.UserName)
	})
	if apperrors.IsNotFound(err) {
		return domain.Failed(domain.ResultErrorInvalidGrant, ""), nil
	}
	if err != nil {
		return domain.AuthenticateResult{}, err
	}
	subject := user.ID.String()

	status, err := v.oracle.Check(ctx, subject, req.ClientID)
	if err != nil {
		return domain.AuthenticateResult{}, err
	}
	if !status.Live() {
		v.logger.Debug("grant rejected before credential check",
			zap.String("subject_id", subject),
			zap.String("client_id", req.ClientID),
			zap.Bool("blocked", status.Blocked()),
		)
		return domain.NotLive(domain.ResultErrorInvalidGrant, subject, status), nil
	}

	ok, err := apperrors.Bounded(ctx, v.timeout, "credential check", func(ctx context.Context) (bool, error) {
		return v.credentials.CheckCredentials(ctx, user.UserName, req.Password)
	})
	if err != nil {
		return domain.AuthenticateResult{}, err
	}
	if !ok {
		return domain.Failed(domain.ResultErrorInvalidGrant, subject), nil
	}

	return domain.Succeeded(&domain.Principal{
		Subject:    subject,
		Name:       user.UserName,
		ClientID:   req.ClientID,
		AuthMethod: domain.AuthMethodGrant,
		AuthTime:   v.now().UTC(),
	}), nil
}
