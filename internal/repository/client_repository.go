package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/spec-kit/revocation-service/internal/domain"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// ClientRepository handles persistence for relying clients.
type ClientRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Client, error)
	AllRedirectURIs(ctx context.Context) ([]string, error)
	Create(ctx context.Context, client *domain.Client) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
}

type clientRepository struct {
	db querier
}

// NewClientRepository instantiates the repository.
func NewClientRepository(db querier) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) FindByID(ctx context.Context, id string) (*domain.Client, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.NewNotFound("client", nil)
	}

	const query = `
        SELECT id, name, secret_hash, uri, is_blocked, created_at, updated_at
        FROM clients WHERE id=$1`

	var client domain.Client
	if err := r.db.QueryRow(ctx, query, parsed).Scan(
		&client.ID,
		&client.Name,
		&client.SecretHash,
		&client.URI,
		&client.IsBlocked,
		&client.CreatedAt,
		&client.UpdatedAt,
	); err != nil {
		return nil, mapReadError("find client by id", "client", err)
	}
	return &client, nil
}

func (r *clientRepository) AllRedirectURIs(ctx context.Context) ([]string, error) {
	const query = `
        SELECT uri FROM clients
        WHERE uri IS NOT NULL AND uri <> ''
        ORDER BY uri`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.FromContext("list redirect uris", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, apperrors.FromContext("list redirect uris", err)
		}
		result = append(result, uri)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.FromContext("list redirect uris", err)
	}
	return result, nil
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	const query = `
        INSERT INTO clients (name, secret_hash, uri, is_blocked)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		client.Name,
		client.SecretHash,
		client.URI,
		client.IsBlocked,
	).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
	return mapWriteError("create client", err)
}

func (r *clientRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return apperrors.NewNotFound("client", nil)
	}
	const query = `UPDATE clients SET is_blocked=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, blocked, parsed)
	if err != nil {
		return apperrors.FromContext("block client", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("client", nil)
	}
	return nil
}
