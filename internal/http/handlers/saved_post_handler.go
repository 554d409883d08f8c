package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-social-backend/internal/services"
)

// SaveResponse reports whether the post is saved after a toggle.
type SaveResponse struct {
	Message string `json:"message"  example:"Post saved"`
	IsSaved bool   `json:"is_saved"`
}

// ToggleSavePost godoc
// @ID          toggleSavePost
// @Summary     Save or unsave a post
// @Tags        saved
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Post ID"
// @Success     200  {object}  SaveResponse
// @Failure     401  {object}  ErrorResponse
// @Failure     404  {object}  ErrorResponse
// @Router      /posts/{id}/save [post]
func (h *Handlers) ToggleSavePost(c *gin.Context) {
	saved, err := h.saved.Toggle(c.Request.Context(), principal(c), c.Param("id"))
	switch {
	case err == nil:
	case errors.Is(err, services.ErrPostNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Post does not exists")
		return
	default:
		internalError(c, ErrCodeInternal, err)
		return
	}
	msg := "Post removed from saved"
	if saved {
		msg = "Post saved"
	}
	ok(c, http.StatusOK, SaveResponse{Message: msg, IsSaved: saved})
}

// ListSavedPosts godoc
// @ID          listSavedPosts
// @Summary     Posts saved by the caller, most recently saved first
// @Tags        saved
// @Produce     json
// @Security    BearerAuth
// @Param       page       query     int  false  "Page (1-based)"
// @Param       page_size  query     int  false  "Page size (max 100)"
// @Success     200        {object}  PostListResponse
// @Failure     401        {object}  ErrorResponse
// @Router      /posts/saved [get]
func (h *Handlers) ListSavedPosts(c *gin.Context) {
	page, size := pageQuery(c)
	items, total, err := h.saved.List(c.Request.Context(), principal(c), page, size)
	if err != nil {
		internalError(c, ErrCodeListFailed, err)
		return
	}
	ok(c, http.StatusOK, PostListResponse{Posts: items, Pagination: newPagination(page, size, total)})
}
