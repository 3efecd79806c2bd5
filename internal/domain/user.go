package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity record a subject id resolves to.
type User struct {
	ID           uuid.UUID
	UserName     string
	PasswordHash string
	IsBlocked    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Client is a relying application registered with the identity provider.
type Client struct {
	ID         uuid.UUID
	Name       string
	SecretHash string
	URI        *string
	IsBlocked  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
