package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Common errors used by repository/use cases
var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrCPFTaken           = errors.New("cpf already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNothingToUpdate    = errors.New("at least one field must be provided")
)

// Changes is the staged update set applied to an existing account.
// Nil fields are left untouched.
type Changes struct {
	Name  *string
	Photo *string
}

// Repository abstracts persistence concerns from the domain layer.
// Implementations may be in-memory, SQL, NoSQL, etc.
type Repository interface {
	Create(ctx context.Context, user User) error
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByCPF(ctx context.Context, cpf string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	Update(ctx context.Context, id uuid.UUID, changes Changes) (User, error)
}

// PhotoStore abstracts the object storage holding profile photos.
// Upload returns the public URL of the stored object; Delete takes
// that URL back and removes the underlying object.
type PhotoStore interface {
	Upload(ctx context.Context, data []byte, filename, contentType string) (string, error)
	Delete(ctx context.Context, fileURL string) error
}

// TokenGenerator abstracts token creation (e.g., JWT).
// It allows use cases to stay framework-agnostic.
type TokenGenerator interface {
	Generate(ctx context.Context, user User) (string, error)
}
