package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- fakes ---

type memRepo struct {
	users map[uuid.UUID]User

	createCalls  int
	getByIDCalls int
	updateCalls  []Changes
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[uuid.UUID]User{}}
}

func (m *memRepo) Create(ctx context.Context, u User) error {
	m.createCalls++
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
		if existing.CPF == u.CPF {
			return ErrCPFTaken
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memRepo) GetByCPF(ctx context.Context, cpf string) (User, error) {
	for _, u := range m.users {
		if u.CPF == cpf {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memRepo) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	m.getByIDCalls++
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memRepo) Update(ctx context.Context, id uuid.UUID, changes Changes) (User, error) {
	m.updateCalls = append(m.updateCalls, changes)
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if changes.Name != nil {
		u.Name = *changes.Name
	}
	if changes.Photo != nil {
		u.Photo = changes.Photo
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[id] = u
	return u, nil
}

type fakePhotoStore struct {
	uploadURL string
	uploadErr error
	uploads   []string // filenames
	deleted   []string // urls
	deleteErr error
}

func (f *fakePhotoStore) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, filename)
	return f.uploadURL, nil
}

func (f *fakePhotoStore) Delete(ctx context.Context, fileURL string) error {
	f.deleted = append(f.deleted, fileURL)
	return f.deleteErr
}

type fakeTokens struct{ err error }

func (f *fakeTokens) Generate(ctx context.Context, u User) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-" + u.ID.String(), nil
}

func newTestService(t *testing.T) (UseCase, *memRepo, *fakePhotoStore) {
	t.Helper()
	repo := newMemRepo()
	photos := &fakePhotoStore{uploadURL: "https://cdn.test/photo-1.png"}
	return NewService(repo, photos, &fakeTokens{}), repo, photos
}

// --- register ---

func TestRegisterSuccess(t *testing.T) {
	svc, repo, photos := newTestService(t)

	u, err := svc.Register(context.Background(), validRegisterForm())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, "ana@x.com", u.Email)
	assert.Equal(t, "11122233396", u.CPF)
	assert.Nil(t, u.Photo)
	assert.False(t, u.CreatedAt.IsZero())
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)

	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")))
	assert.Equal(t, 1, repo.createCalls)
	assert.Empty(t, photos.uploads)
}

func TestRegisterWithPhoto(t *testing.T) {
	svc, _, photos := newTestService(t)

	form := validRegisterForm()
	form.Photo = &Photo{Data: []byte("img"), Filename: "me.png", ContentType: "image/png"}

	u, err := svc.Register(context.Background(), form)
	require.NoError(t, err)
	require.NotNil(t, u.Photo)
	assert.Equal(t, "https://cdn.test/photo-1.png", *u.Photo)
	assert.Equal(t, []string{"me.png"}, photos.uploads)
}

func TestRegisterValidationFailureHasNoSideEffects(t *testing.T) {
	svc, repo, photos := newTestService(t)

	form := validRegisterForm()
	form.Email = "nope"
	form.Photo = &Photo{Data: []byte("img"), Filename: "me.png"}

	_, err := svc.Register(context.Background(), form)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, repo.createCalls)
	assert.Empty(t, photos.uploads)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, repo, _ := newTestService(t)

	_, err := svc.Register(context.Background(), validRegisterForm())
	require.NoError(t, err)

	second := validRegisterForm()
	second.CPF = "529.982.247-25" // different cpf, same email
	_, err = svc.Register(context.Background(), second)
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Len(t, repo.users, 1)
}

func TestRegisterDuplicateCPFAfterNormalization(t *testing.T) {
	svc, repo, _ := newTestService(t)

	first := validRegisterForm() // cpf "111.222.333-96"
	_, err := svc.Register(context.Background(), first)
	require.NoError(t, err)

	second := validRegisterForm()
	second.Email = "other@x.com"
	second.CPF = "11122233396" // digits-only form of the same cpf
	_, err = svc.Register(context.Background(), second)
	assert.ErrorIs(t, err, ErrCPFTaken)
	assert.Len(t, repo.users, 1)
}

func TestRegisterUploadFailure(t *testing.T) {
	svc, repo, photos := newTestService(t)
	photos.uploadErr = errors.New("storage down")

	form := validRegisterForm()
	form.Photo = &Photo{Data: []byte("img"), Filename: "me.png"}

	_, err := svc.Register(context.Background(), form)
	require.Error(t, err)
	assert.Zero(t, repo.createCalls)
}

// --- authenticate ---

func TestAuthenticateSuccess(t *testing.T) {
	svc, _, _ := newTestService(t)

	u, err := svc.Register(context.Background(), validRegisterForm())
	require.NoError(t, err)

	token, err := svc.Authenticate(context.Background(), "ana@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "token-"+u.ID.String(), token)
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), validRegisterForm())
	require.NoError(t, err)

	_, wrongPass := svc.Authenticate(context.Background(), "ana@x.com", "wrongpass")
	_, unknownEmail := svc.Authenticate(context.Background(), "ghost@x.com", "secret1")

	assert.ErrorIs(t, wrongPass, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPass.Error(), unknownEmail.Error())
}

// --- get ---

func TestGetNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- update ---

func TestUpdateRequiresAtLeastOneField(t *testing.T) {
	svc, repo, _ := newTestService(t)

	u, err := svc.Register(context.Background(), validRegisterForm())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), u.ID, UpdateForm{})
	assert.ErrorIs(t, err, ErrNothingToUpdate)
	assert.Empty(t, repo.updateCalls)
}

func TestUpdateUnknownAccount(t *testing.T) {
	svc, _, photos := newTestService(t)

	name := "Ana Maria"
	_, err := svc.Update(context.Background(), uuid.New(), UpdateForm{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, photos.uploads)
}

func TestUpdateNameOnly(t *testing.T) {
	svc, repo, photos := newTestService(t)

	u, err := svc.Register(context.Background(), validRegisterForm())
	require.NoError(t, err)

	name := "Ana Maria"
	updated, err := svc.Update(context.Background(), u.ID, UpdateForm{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, "Ana Maria", updated.Name)
	assert.True(t, updated.UpdatedAt.After(u.UpdatedAt) || updated.UpdatedAt.Equal(u.UpdatedAt))
	require.Len(t, repo.updateCalls, 1)
	assert.Nil(t, repo.updateCalls[0].Photo)
	assert.Empty(t, photos.uploads)
	assert.Empty(t, photos.deleted)
}

func TestUpdatePhotoReplacesPreviousObject(t *testing.T) {
	svc, _, photos := newTestService(t)

	form := validRegisterForm()
	form.Photo = &Photo{Data: []byte("old"), Filename: "old.png"}
	u, err := svc.Register(context.Background(), form)
	require.NoError(t, err)
	oldURL := *u.Photo

	photos.uploadURL = "https://cdn.test/photo-2.png"
	updated, err := svc.Update(context.Background(), u.ID, UpdateForm{
		Photo: &Photo{Data: []byte("new"), Filename: "new.png"},
	})
	require.NoError(t, err)

	require.NotNil(t, updated.Photo)
	assert.Equal(t, "https://cdn.test/photo-2.png", *updated.Photo)
	assert.Equal(t, []string{oldURL}, photos.deleted, "previous object must be removed")
}

func TestUpdatePhotoFirstTimeDeletesNothing(t *testing.T) {
	svc, _, photos := newTestService(t)

	u, err := svc.Register(context.Background(), validRegisterForm())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), u.ID, UpdateForm{
		Photo: &Photo{Data: []byte("new"), Filename: "new.png"},
	})
	require.NoError(t, err)
	assert.Empty(t, photos.deleted)
}

func TestUpdateDeleteFailureIsNonFatal(t *testing.T) {
	svc, _, photos := newTestService(t)

	form := validRegisterForm()
	form.Photo = &Photo{Data: []byte("old"), Filename: "old.png"}
	u, err := svc.Register(context.Background(), form)
	require.NoError(t, err)

	photos.uploadURL = "https://cdn.test/photo-2.png"
	photos.deleteErr = errors.New("storage down")

	updated, err := svc.Update(context.Background(), u.ID, UpdateForm{
		Photo: &Photo{Data: []byte("new"), Filename: "new.png"},
	})
	require.NoError(t, err, "cleanup failure must not fail the update")
	assert.Equal(t, "https://cdn.test/photo-2.png", *updated.Photo)
	assert.Len(t, photos.deleted, 1, "delete must still have been attempted")
}
