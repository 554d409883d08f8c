package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-social-backend/internal/domain"
	"github.com/tbourn/go-social-backend/internal/services"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" binding:"required" example:"alice"`
	Email    string `json:"email"    binding:"required" example:"alice@example.com"`
	Password string `json:"password" binding:"required" example:"correct horse"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"alice"`
	Password string `json:"password" binding:"required" example:"correct horse"`
}

// TokenResponse carries a bearer token and its owner.
type TokenResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Register godoc
// @ID          register
// @Summary     Create an account
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       body  body      RegisterRequest  true  "Account details"
// @Success     201   {object}  TokenResponse
// @Failure     400   {object}  ErrorResponse
// @Failure     409   {object}  ErrorResponse
// @Failure     500   {object}  ErrorResponse
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username, email and password are required")
		return
	}
	u, tok, err := h.auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	switch {
	case err == nil:
		ok(c, http.StatusCreated, TokenResponse{Token: tok, User: u})
	case errors.Is(err, services.ErrUserTaken):
		fail(c, http.StatusConflict, ErrCodeConflict, "A user with that username or email already exists.")
	case errors.Is(err, services.ErrWeakPassword), errors.Is(err, services.ErrEmptyContent):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		internalError(c, ErrCodeCreateFailed, err)
	}
}

// Login godoc
// @ID          login
// @Summary     Exchange credentials for a token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       body  body      LoginRequest  true  "Credentials"
// @Success     200   {object}  TokenResponse
// @Failure     400   {object}  ErrorResponse
// @Failure     401   {object}  ErrorResponse
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and password are required")
		return
	}
	u, tok, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		ok(c, http.StatusOK, TokenResponse{Token: tok, User: u})
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid username or password.")
	default:
		internalError(c, ErrCodeInternal, err)
	}
}
