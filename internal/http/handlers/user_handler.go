package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-social-backend/internal/services"
)

// GetUser godoc
// @ID          getUser
// @Summary     Public profile
// @Tags        users
// @Produce     json
// @Param       id   path      string  true  "User ID"
// @Success     200  {object}  domain.User
// @Failure     404  {object}  ErrorResponse
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	u, err := h.profiles.Profile(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		ok(c, http.StatusOK, u)
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "User not found.")
	default:
		internalError(c, ErrCodeInternal, err)
	}
}

// FollowCounts godoc
// @ID          followCounts
// @Summary     Follower and following counts
// @Tags        follows
// @Produce     json
// @Param       id   path      string  true  "User ID"
// @Success     200  {object}  services.FollowCounts
// @Failure     404  {object}  ErrorResponse
// @Router      /users/{id}/follow-counts [get]
func (h *Handlers) FollowCounts(c *gin.Context) {
	counts, err := h.follows.Counts(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		ok(c, http.StatusOK, counts)
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "User not found.")
	default:
		internalError(c, ErrCodeInternal, err)
	}
}

// ProfileRequest is the body of PUT /users/me. Omitted fields are cleared.
type ProfileRequest struct {
	Bio       string `json:"bio"        example:"Writes about Go."`
	AvatarURL string `json:"avatar_url" example:"https://cdn.example.com/a.png"`
}

// GetMe godoc
// @ID          getMe
// @Summary     Profile of the caller
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  domain.User
// @Failure     401  {object}  ErrorResponse
// @Router      /users/me [get]
func (h *Handlers) GetMe(c *gin.Context) {
	u, err := h.profiles.Profile(c.Request.Context(), principal(c))
	switch {
	case err == nil:
		ok(c, http.StatusOK, u)
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "User not found.")
	default:
		internalError(c, ErrCodeInternal, err)
	}
}

// UpdateMe godoc
// @ID          updateMe
// @Summary     Edit the caller's bio and avatar
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      ProfileRequest  true  "Profile"
// @Success     200   {object}  domain.User
// @Failure     400   {object}  ErrorResponse
// @Failure     401   {object}  ErrorResponse
// @Router      /users/me [put]
func (h *Handlers) UpdateMe(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.profiles.UpdateProfile(c.Request.Context(), principal(c), services.ProfileUpdate{
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	})
	switch {
	case err == nil:
		ok(c, http.StatusOK, u)
	case errors.Is(err, services.ErrTooLong), errors.Is(err, services.ErrInvalidAvatarURL):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "User not found.")
	default:
		internalError(c, ErrCodeInternal, err)
	}
}

// UserPosts godoc
// @ID          userPosts
// @Summary     Posts written by a user, newest first
// @Tags        users
// @Produce     json
// @Param       id         path      string  true   "User ID"
// @Param       page       query     int     false  "Page (1-based)"
// @Param       page_size  query     int     false  "Page size (max 100)"
// @Success     200        {object}  PostListResponse
// @Failure     404        {object}  ErrorResponse
// @Router      /users/{id}/posts [get]
func (h *Handlers) UserPosts(c *gin.Context) {
	page, size := pageQuery(c)
	items, total, err := h.posts.ByAuthor(c.Request.Context(), c.Param("id"), page, size)
	switch {
	case err == nil:
		ok(c, http.StatusOK, PostListResponse{Posts: items, Pagination: newPagination(page, size, total)})
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "User not found.")
	default:
		internalError(c, ErrCodeListFailed, err)
	}
}
