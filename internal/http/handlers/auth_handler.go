// Auth HTTP handlers.
//
//   - POST /auth/register
//   - POST /auth/login
//
// Both return the user profile (without the password hash) and a bearer
// token for subsequent requests.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cobaltline/assistly-backend/internal/domain"
)

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required" example:"Jane Doe"`
	Email    string `json:"email" binding:"required,email" example:"jane@example.com"`
	Password string `json:"password" binding:"required,min=8" example:"correct-horse"`
}

// LoginRequest is the JSON payload for logging in.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"jane@example.com"`
	Password string `json:"password" binding:"required" example:"correct-horse"`
}

// AuthResponse wraps the user and a fresh access token.
type AuthResponse struct {
	User  UserView `json:"user"`
	Token string   `json:"token"`
}

// UserView is the client-safe projection of a user.
type UserView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func userView(u *domain.User) UserView {
	return UserView{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Register godoc
// @ID          register
// @Summary     Create an account
// @Description Registers an admin account and returns a bearer token.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.RegisterRequest  true  "Registration payload"
// @Success     201  {object}  handlers.AuthResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already registered"
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, email, and password (8+ chars) required")
		return
	}
	u, token, err := h.accounts.Register(c.Request.Context(), strings.TrimSpace(req.Name), req.Email, req.Password)
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusCreated, AuthResponse{User: userView(u), Token: token})
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Verifies credentials and returns a bearer token.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.LoginRequest  true  "Login payload"
// @Success     200  {object}  handlers.AuthResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid credentials"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}
	u, token, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusOK, AuthResponse{User: userView(u), Token: token})
}
