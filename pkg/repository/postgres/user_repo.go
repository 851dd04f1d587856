package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasreis/accounts/pkg/user"
)

// UserRepository implements user.Repository backed by PostgreSQL (pgx).
// Email and CPF uniqueness is enforced by the table constraints: the
// in-process checks in the use case only shortcut the common case, a
// concurrent duplicate insert is rejected here.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) (*UserRepository, error) {
	repo := &UserRepository{pool: pool}
	if err := repo.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *UserRepository) ensureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			cpf TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			photo TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			CONSTRAINT users_email_key UNIQUE (email),
			CONSTRAINT users_cpf_key UNIQUE (cpf)
		);
	`)
	return err
}

func (r *UserRepository) Create(ctx context.Context, u user.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, cpf, password_hash, photo, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Name, strings.ToLower(u.Email), u.CPF, u.PasswordHash, u.Photo, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			if pgErr.ConstraintName == "users_cpf_key" {
				return user.ErrCPFTaken
			}
			return user.ErrEmailTaken
		}
		return err
	}
	return nil
}

const selectColumns = `id, name, email, cpf, password_hash, photo, created_at, updated_at`

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+selectColumns+`
		FROM users WHERE email = $1
	`, strings.ToLower(email))
	return scanUser(row)
}

func (r *UserRepository) GetByCPF(ctx context.Context, cpf string) (user.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+selectColumns+`
		FROM users WHERE cpf = $1
	`, cpf)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+selectColumns+`
		FROM users WHERE id = $1
	`, id)
	return scanUser(row)
}

// Update applies the staged changes and refreshes updated_at. The row
// is returned so the handler can present the post-update state.
func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, changes user.Changes) (user.User, error) {
	set := []string{"updated_at = $1"}
	args := []any{time.Now().UTC()}

	if changes.Name != nil {
		args = append(args, *changes.Name)
		set = append(set, fmt.Sprintf("name = $%d", len(args)))
	}
	if changes.Photo != nil {
		args = append(args, *changes.Photo)
		set = append(set, fmt.Sprintf("photo = $%d", len(args)))
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE users SET %s
		WHERE id = $%d
		RETURNING `+selectColumns+`
	`, strings.Join(set, ", "), len(args))

	return scanUser(r.pool.QueryRow(ctx, query, args...))
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var createdAt, updatedAt time.Time
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.CPF, &u.PasswordHash, &u.Photo, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	u.CreatedAt = createdAt.UTC()
	u.UpdatedAt = updatedAt.UTC()
	return u, nil
}
