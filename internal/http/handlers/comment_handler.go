package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-social-backend/internal/domain"
	"github.com/tbourn/go-social-backend/internal/http/middleware"
	"github.com/tbourn/go-social-backend/internal/services"
)

// CommentRequest is the body of comment create. Parent makes it a reply.
type CommentRequest struct {
	Content string  `json:"content" example:"Nice post!"`
	Parent  *string `json:"parent,omitempty"`
}

// CommentUpdateRequest is the body of comment edit.
type CommentUpdateRequest struct {
	Content string `json:"content" example:"Edited"`
}

// CommentListResponse is the threaded comment forest of a post.
type CommentListResponse struct {
	Comments []*domain.Comment `json:"comments"`
}

func (h *Handlers) failComment(c *gin.Context, err error, code string) {
	switch {
	case errors.Is(err, services.ErrPostNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Post does not exists")
	case errors.Is(err, services.ErrCommentNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Comment not found.")
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "You do not have permission to modify this comment.")
	case errors.Is(err, services.ErrEmptyContent):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Comment content cannot be empty.")
	case errors.Is(err, services.ErrTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("Comment exceeds %d characters.", h.comments.MaxRunes()))
	case errors.Is(err, services.ErrInvalidParent):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Parent comment does not belong to this post.")
	default:
		internalError(c, code, err)
	}
}

// ListComments godoc
// @ID          listComments
// @Summary     Threaded comments of a post
// @Description Top-level comments oldest first, each with nested replies.
// @Description Supports conditional GET via ETag / If-None-Match.
// @Tags        comments
// @Produce     json
// @Param       id   path      string  true  "Post ID"
// @Success     200  {object}  CommentListResponse
// @Success     304  "Not Modified"
// @Failure     404  {object}  ErrorResponse
// @Router      /posts/{id}/comments [get]
func (h *Handlers) ListComments(c *gin.Context) {
	ctx := c.Request.Context()
	postID := c.Param("id")

	count, newest, err := h.comments.Stats(ctx, postID)
	if err != nil {
		internalError(c, ErrCodeListFailed, err)
		return
	}
	var stamp int64
	if newest != nil {
		stamp = newest.UTC().UnixNano()
	}
	if conditional(c, fmt.Sprintf(`W/"comments:%s:%d:%d"`, postID, count, stamp)) {
		return
	}

	items, err := h.comments.List(ctx, postID)
	if err != nil {
		h.failComment(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, CommentListResponse{Comments: items})
}

// CreateComment godoc
// @ID          createComment
// @Summary     Comment on a post (or reply to a comment)
// @Description Idempotent when Idempotency-Key is supplied: a retry with the
// @Description same key for the same post returns the original comment with
// @Description Idempotency-Replayed: true.
// @Tags        comments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id               path      string          true   "Post ID"
// @Param       Idempotency-Key  header    string          false  "Client retry key"
// @Param       body             body      CommentRequest  true   "Comment"
// @Success     201              {object}  domain.Comment
// @Failure     400              {object}  ErrorResponse
// @Failure     401              {object}  ErrorResponse
// @Failure     404              {object}  ErrorResponse
// @Router      /posts/{id}/comments [post]
func (h *Handlers) CreateComment(c *gin.Context) {
	ctx := c.Request.Context()
	uid := principal(c)
	postID := c.Param("id")
	key, _ := middleware.GetIdempotencyKey(c)

	if key != "" {
		prev, err := h.comments.Replay(ctx, uid, postID, key)
		if err != nil {
			internalError(c, ErrCodeCreateFailed, err)
			return
		}
		if prev != nil {
			c.Header("Idempotency-Replayed", "true")
			ok(c, http.StatusCreated, prev)
			return
		}
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	cm, err := h.comments.Create(ctx, uid, postID, req.Parent, req.Content)
	if err != nil {
		h.failComment(c, err, ErrCodeCreateFailed)
		return
	}

	if key != "" {
		if err := h.comments.Remember(ctx, uid, postID, key, cm.ID, http.StatusCreated); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Str("comment_id", cm.ID).Msg("idempotency record not stored")
		}
	}
	ok(c, http.StatusCreated, cm)
}

// UpdateComment godoc
// @ID          updateComment
// @Summary     Edit own comment
// @Tags        comments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                true  "Comment ID"
// @Param       body  body      CommentUpdateRequest  true  "Content"
// @Success     200   {object}  domain.Comment
// @Failure     400   {object}  ErrorResponse
// @Failure     403   {object}  ErrorResponse
// @Failure     404   {object}  ErrorResponse
// @Router      /comments/{id} [put]
func (h *Handlers) UpdateComment(c *gin.Context) {
	var req CommentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	cm, err := h.comments.Update(c.Request.Context(), principal(c), c.Param("id"), req.Content)
	if err != nil {
		h.failComment(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, cm)
}

// DeleteComment godoc
// @ID          deleteComment
// @Summary     Delete own comment
// @Tags        comments
// @Security    BearerAuth
// @Param       id  path  string  true  "Comment ID"
// @Success     204
// @Failure     403  {object}  ErrorResponse
// @Failure     404  {object}  ErrorResponse
// @Router      /comments/{id} [delete]
func (h *Handlers) DeleteComment(c *gin.Context) {
	if err := h.comments.Delete(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		h.failComment(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}
