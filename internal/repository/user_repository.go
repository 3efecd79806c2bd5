package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/revocation-service/internal/auth"
	"github.com/spec-kit/revocation-service/internal/domain"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// UserRepository defines persistence access for identity users. Lookups that match no
// record return a NotFound DomainError; infrastructure failures return TransientFailure.
type UserRepository interface {
	FindByNameAndPassword(ctx context.Context, name, password string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByName(ctx context.Context, name string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
}

// querier is the subset of *pgxpool.Pool the repositories use.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type userRepository struct {
	db querier
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db querier) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, user_name, password_hash, is_blocked, created_at, updated_at`

func (r *userRepository) FindByNameAndPassword(ctx context.Context, name, password string) (*domain.User, error) {
	user, err := r.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewNotFound("user", nil)
	}
	return user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.NewNotFound("user", nil)
	}
	const query = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.scanOne(ctx, "find user by id", query, parsed)
}

func (r *userRepository) FindByName(ctx context.Context, name string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE lower(user_name)=lower($1)`
	return r.scanOne(ctx, "find user by name", query, name)
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (user_name, password_hash, is_blocked)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		user.UserName,
		user.PasswordHash,
		user.IsBlocked,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return mapWriteError("create user", err)
}

func (r *userRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return apperrors.NewNotFound("user", nil)
	}
	const query = `UPDATE users SET is_blocked=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, blocked, parsed)
	if err != nil {
		return apperrors.FromContext("block user", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("user", nil)
	}
	return nil
}

func (r *userRepository) scanOne(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.UserName,
		&user.PasswordHash,
		&user.IsBlocked,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, mapReadError(op, "user", err)
	}
	return &user, nil
}

func mapReadError(op, resource string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, nil)
	}
	return apperrors.FromContext(op, err)
}

const uniqueViolation = "23505"

func mapWriteError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperrors.NewConflict("record already exists", map[string]any{"constraint": pgErr.ConstraintName})
	}
	return apperrors.FromContext(op, err)
}
