package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-social-backend/internal/services"
)

// LikeResponse reports the state after a toggle.
type LikeResponse struct {
	Message string `json:"message" example:"Like added"`
	Likes   int64  `json:"likes"`
	IsLiked bool   `json:"is_liked"`
}

// ToggleLike godoc
// @ID          toggleLike
// @Summary     Like or unlike a post
// @Tags        likes
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Post ID"
// @Success     200  {object}  LikeResponse
// @Failure     401  {object}  ErrorResponse
// @Failure     404  {object}  ErrorResponse
// @Router      /posts/{id}/like [post]
func (h *Handlers) ToggleLike(c *gin.Context) {
	res, err := h.likes.Toggle(c.Request.Context(), principal(c), c.Param("id"))
	switch {
	case err == nil:
	case errors.Is(err, services.ErrPostNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Post does not exists")
		return
	default:
		internalError(c, ErrCodeInternal, err)
		return
	}
	msg := "Like removed"
	if res.Liked {
		msg = "Like added"
	}
	ok(c, http.StatusOK, LikeResponse{Message: msg, Likes: res.Likes, IsLiked: res.Liked})
}
