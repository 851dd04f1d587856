package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/lucasreis/accounts/api/http/presenter"
	"github.com/lucasreis/accounts/pkg/user"
)

type AuthHandler struct {
	useCase user.UseCase
}

func NewAuthHandler(useCase user.UseCase) *AuthHandler {
	return &AuthHandler{useCase: useCase}
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Authenticate verifies credentials and issues a token.
// @Summary Authenticate user
// @Description Returns a signed bearer token valid for one day as a plain string body.
// @Tags    auth
// @Accept  json
// @Produce plain
// @Param   input body authRequest true "credentials"
// @Success 201 {string} string "token"
// @Failure 400 {object} presenter.ErrorResponse
// @Router  /user/auth [post]
func (h *AuthHandler) Authenticate(c *fiber.Ctx) error {
	var req authRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
	}

	token, err := h.useCase.Authenticate(c.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			// Identical message whether the email or the password was wrong.
			return presenter.Error(c, http.StatusBadRequest, "invalid credentials")
		}
		log.Printf("authenticate: %v", err)
		return presenter.Error(c, http.StatusInternalServerError, "failed to authenticate")
	}

	return c.Status(http.StatusCreated).SendString(token)
}
