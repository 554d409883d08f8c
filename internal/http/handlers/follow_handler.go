package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-social-backend/internal/services"
)

// FollowRequest is the body of POST /follows.
type FollowRequest struct {
	Following string `json:"following" binding:"required"`
}

// FollowStatusResponse answers GET /follows/{user_id}/status.
type FollowStatusResponse struct {
	IsFollowing bool `json:"is_following"`
}

func failFollow(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSelfFollow):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "You cannot follow yourself.")
	case errors.Is(err, services.ErrAlreadyFollowing):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Already following this user.")
	case errors.Is(err, services.ErrNotFollowing):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "You are not following this user.")
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "User not found.")
	default:
		internalError(c, ErrCodeInternal, err)
	}
}

// Follow godoc
// @ID          follow
// @Summary     Follow a user
// @Tags        follows
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      FollowRequest  true  "Target user"
// @Success     201   {object}  MessageResponse
// @Failure     400   {object}  ErrorResponse
// @Failure     404   {object}  ErrorResponse
// @Router      /follows [post]
func (h *Handlers) Follow(c *gin.Context) {
	var req FollowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "following is required")
		return
	}
	if err := h.follows.Follow(c.Request.Context(), principal(c), req.Following); err != nil {
		failFollow(c, err)
		return
	}
	ok(c, http.StatusCreated, MessageResponse{Detail: "Followed Successfully"})
}

// Unfollow godoc
// @ID          unfollow
// @Summary     Unfollow a user
// @Tags        follows
// @Security    BearerAuth
// @Param       user_id  path  string  true  "User ID"
// @Success     204
// @Failure     400  {object}  ErrorResponse
// @Failure     404  {object}  ErrorResponse
// @Router      /follows/{user_id} [delete]
func (h *Handlers) Unfollow(c *gin.Context) {
	if err := h.follows.Unfollow(c.Request.Context(), principal(c), c.Param("user_id")); err != nil {
		failFollow(c, err)
		return
	}
	noContent(c)
}

// FollowStatus godoc
// @ID          followStatus
// @Summary     Whether the caller follows a user
// @Tags        follows
// @Produce     json
// @Security    BearerAuth
// @Param       user_id  path      string  true  "User ID"
// @Success     200      {object}  FollowStatusResponse
// @Failure     404      {object}  ErrorResponse
// @Router      /follows/{user_id}/status [get]
func (h *Handlers) FollowStatus(c *gin.Context) {
	yes, err := h.follows.IsFollowing(c.Request.Context(), principal(c), c.Param("user_id"))
	if err != nil {
		failFollow(c, err)
		return
	}
	ok(c, http.StatusOK, FollowStatusResponse{IsFollowing: yes})
}
