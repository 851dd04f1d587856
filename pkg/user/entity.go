package user

import (
	"time"

	"github.com/google/uuid"
)

// User is a domain entity representing a registered account.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	CPF          string
	PasswordHash string
	Photo        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
