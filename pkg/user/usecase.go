package user

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UseCase describes account registration, authentication and profile behavior.
type UseCase interface {
	Register(ctx context.Context, form RegisterForm) (User, error)
	Authenticate(ctx context.Context, email, password string) (string, error)
	Get(ctx context.Context, id uuid.UUID) (User, error)
	Update(ctx context.Context, id uuid.UUID, form UpdateForm) (User, error)
}

type service struct {
	repo   Repository
	photos PhotoStore
	tokens TokenGenerator
}

// NewService returns default implementation of UseCase.
func NewService(repo Repository, photos PhotoStore, tokens TokenGenerator) UseCase {
	return &service{repo: repo, photos: photos, tokens: tokens}
}

func (s *service) Register(ctx context.Context, form RegisterForm) (User, error) {
	if err := form.Validate(); err != nil {
		return User{}, err
	}

	// Best-effort early checks; the database unique constraints remain
	// the authority under concurrent registrations.
	if _, err := s.repo.GetByEmail(ctx, form.Email); err == nil {
		return User{}, ErrEmailTaken
	}
	if _, err := s.repo.GetByCPF(ctx, form.CPF); err == nil {
		return User{}, ErrCPFTaken
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	var photoURL *string
	if form.Photo != nil {
		url, err := s.photos.Upload(ctx, form.Photo.Data, form.Photo.Filename, form.Photo.ContentType)
		if err != nil {
			return User{}, err
		}
		photoURL = &url
	}

	now := time.Now().UTC()
	u := User{
		ID:           uuid.New(),
		Name:         form.Name,
		Email:        form.Email,
		CPF:          form.CPF,
		PasswordHash: string(passwordHash),
		Photo:        photoURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		// A write failure after a successful upload orphans the object;
		// accepted limitation, nothing to roll back here.
		return User{}, err
	}
	return u, nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (string, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		// Same error for unknown email and wrong password.
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return s.tokens.Generate(ctx, u)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, form UpdateForm) (User, error) {
	if form.Empty() {
		return User{}, ErrNothingToUpdate
	}
	if err := form.Validate(); err != nil {
		return User{}, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	changes := Changes{Name: form.Name}
	if form.Photo != nil {
		url, err := s.photos.Upload(ctx, form.Photo.Data, form.Photo.Filename, form.Photo.ContentType)
		if err != nil {
			return User{}, err
		}
		changes.Photo = &url
	}

	updated, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		return User{}, err
	}

	// The new photo is already uploaded and committed to the row, so a
	// failed cleanup of the previous object is non-fatal.
	if changes.Photo != nil && current.Photo != nil {
		if err := s.photos.Delete(ctx, *current.Photo); err != nil {
			log.Printf("delete previous photo %s: %v", *current.Photo, err)
		}
	}
	return updated, nil
}
