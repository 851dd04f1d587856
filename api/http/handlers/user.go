package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/lucasreis/accounts/api/http/presenter"
	"github.com/lucasreis/accounts/pkg/user"
)

type UserHandler struct {
	useCase user.UseCase
}

func NewUserHandler(useCase user.UseCase) *UserHandler {
	return &UserHandler{useCase: useCase}
}

type accountResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CPF       string    `json:"cpf"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type profileResponse struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	CPF   string  `json:"cpf"`
	Photo *string `json:"photo"`
}

type updateResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CPF       string    `json:"cpf"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Register handles account creation.
// @Summary Register user
// @Description Registers a new account with an optional photo upload.
// @Tags    user
// @Accept  multipart/form-data
// @Produce json
// @Param   name     formData string true  "Full name"
// @Param   email    formData string true  "Email address"
// @Param   cpf      formData string true  "CPF (11 digits, punctuation allowed)"
// @Param   password formData string true  "Password (6-20 characters)"
// @Param   photo    formData file   false "Profile photo (max 5MB)"
// @Success 201 {object} accountResponse
// @Failure 400 {object} presenter.ValidationErrorResponse
// @Failure 409 {object} presenter.ErrorResponse
// @Router  /user/register [post]
func (h *UserHandler) Register(c *fiber.Ctx) error {
	form := user.RegisterForm{
		Name:     c.FormValue("name"),
		Email:    c.FormValue("email"),
		CPF:      c.FormValue("cpf"),
		Password: c.FormValue("password"),
	}
	photo, err := photoFromForm(c)
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, err.Error())
	}
	form.Photo = photo

	created, err := h.useCase.Register(c.Context(), form)
	if err != nil {
		var verr *user.ValidationError
		switch {
		case errors.As(err, &verr):
			return presenter.ValidationError(c, verr.Fields)
		case errors.Is(err, user.ErrEmailTaken), errors.Is(err, user.ErrCPFTaken):
			return presenter.Error(c, http.StatusConflict, err.Error())
		default:
			log.Printf("register user: %v", err)
			return presenter.Error(c, http.StatusInternalServerError, "failed to register user")
		}
	}

	// Photo and password hash are deliberately absent from this shape.
	return presenter.JSON(c, http.StatusCreated, accountResponse{
		ID:        created.ID.String(),
		Name:      created.Name,
		Email:     created.Email,
		CPF:       created.CPF,
		CreatedAt: created.CreatedAt,
		UpdatedAt: created.UpdatedAt,
	})
}

// Get returns the caller's profile.
// @Summary Get user
// @Tags    user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} profileResponse
// @Failure 401 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /user [get]
func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, ok := currentUserID(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "invalid token subject")
	}
	u, err := h.useCase.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return presenter.Error(c, http.StatusNotFound, "user not found")
		}
		log.Printf("get user %s: %v", id, err)
		return presenter.Error(c, http.StatusInternalServerError, "failed to load user")
	}
	return presenter.JSON(c, http.StatusOK, profileResponse{
		Name:  u.Name,
		Email: u.Email,
		CPF:   u.CPF,
		Photo: u.Photo,
	})
}

// Update mutates the caller's name and/or photo.
// @Summary Update user
// @Description Updates name and/or photo; a new photo replaces the previous object.
// @Tags    user
// @Accept  multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param   name  formData string false "Full name"
// @Param   photo formData file   false "Profile photo (max 5MB)"
// @Success 200 {object} updateResponse
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 401 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /user/update [post]
func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, ok := currentUserID(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "invalid token subject")
	}

	var form user.UpdateForm
	if name := strings.TrimSpace(c.FormValue("name")); name != "" {
		form.Name = &name
	}
	photo, err := photoFromForm(c)
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, err.Error())
	}
	form.Photo = photo

	updated, err := h.useCase.Update(c.Context(), id, form)
	if err != nil {
		var verr *user.ValidationError
		switch {
		case errors.Is(err, user.ErrNothingToUpdate):
			return presenter.Error(c, http.StatusBadRequest, err.Error())
		case errors.As(err, &verr):
			return presenter.ValidationError(c, verr.Fields)
		case errors.Is(err, user.ErrNotFound):
			return presenter.Error(c, http.StatusNotFound, "user not found")
		default:
			log.Printf("update user %s: %v", id, err)
			return presenter.Error(c, http.StatusInternalServerError, "failed to update user")
		}
	}

	// Photo stays out of this shape even when it changed.
	return presenter.JSON(c, http.StatusOK, updateResponse{
		ID:        updated.ID.String(),
		Name:      updated.Name,
		Email:     updated.Email,
		CPF:       updated.CPF,
		UpdatedAt: updated.UpdatedAt,
	})
}

// currentUserID reads the subject the JWT middleware stored in Locals.
func currentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	raw, _ := c.Locals("userId").(string)
	id, err := uuid.Parse(raw)
	return id, err == nil
}

// photoFromForm captures the optional single "photo" file. A missing
// file is not an error; an oversized or unreadable one is.
func photoFromForm(c *fiber.Ctx) (*user.Photo, error) {
	fh, err := c.FormFile("photo")
	if err != nil || fh == nil {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded photo")
	}
	defer f.Close()

	data, err := readAtMost(f, user.MaxPhotoSize)
	if err != nil {
		return nil, err
	}
	return &user.Photo{
		Data:        data,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
	}, nil
}

func readAtMost(f multipart.File, max int64) ([]byte, error) {
	limited := io.LimitReader(f, max+1)
	b, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(b)) > max {
		return nil, fmt.Errorf("file too large: limit is %d bytes", max)
	}
	return b, nil
}
