package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-social-backend/internal/domain"
	"github.com/tbourn/go-social-backend/internal/services"
)

// PostRequest is the body of post create and update.
type PostRequest struct {
	Title   string `json:"title"   example:"Hello"`
	Content string `json:"content" example:"First post"`
}

// PostListResponse is a page of posts.
type PostListResponse struct {
	Posts      []domain.Post `json:"posts"`
	Pagination Pagination    `json:"pagination"`
}

// failPost maps post service errors onto HTTP responses.
func failPost(c *gin.Context, err error, code string) {
	switch {
	case errors.Is(err, services.ErrPostNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Post does not exists")
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "You do not have permission to modify this post.")
	case errors.Is(err, services.ErrEmptyTitle),
		errors.Is(err, services.ErrEmptyContent),
		errors.Is(err, services.ErrTooLong),
		errors.Is(err, services.ErrInvalidSort):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		internalError(c, code, err)
	}
}

// CreatePost godoc
// @ID          createPost
// @Summary     Create a post
// @Tags        posts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      PostRequest  true  "Post"
// @Success     201   {object}  domain.Post
// @Failure     400   {object}  ErrorResponse
// @Failure     401   {object}  ErrorResponse
// @Router      /posts [post]
func (h *Handlers) CreatePost(c *gin.Context) {
	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	p, err := h.posts.Create(c.Request.Context(), principal(c), req.Title, req.Content)
	if err != nil {
		failPost(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, p)
}

// ListPosts godoc
// @ID          listPosts
// @Summary     List posts
// @Tags        posts
// @Produce     json
// @Param       sort       query     string  false  "newest | oldest | most_liked | least_liked"
// @Param       page       query     int     false  "Page (1-based)"
// @Param       page_size  query     int     false  "Page size (max 100)"
// @Success     200        {object}  PostListResponse
// @Failure     400        {object}  ErrorResponse
// @Router      /posts [get]
func (h *Handlers) ListPosts(c *gin.Context) {
	page, size := pageQuery(c)
	items, total, err := h.posts.List(c.Request.Context(), c.Query("sort"), page, size)
	if err != nil {
		failPost(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, PostListResponse{Posts: items, Pagination: newPagination(page, size, total)})
}

// SearchPosts godoc
// @ID          searchPosts
// @Summary     Search posts by title or content
// @Tags        posts
// @Produce     json
// @Param       q          query     string  true   "Search text"
// @Param       sort       query     string  false  "newest | oldest | most_liked | least_liked"
// @Param       page       query     int     false  "Page (1-based)"
// @Param       page_size  query     int     false  "Page size (max 100)"
// @Success     200        {object}  PostListResponse
// @Failure     400        {object}  ErrorResponse
// @Router      /posts/search [get]
func (h *Handlers) SearchPosts(c *gin.Context) {
	page, size := pageQuery(c)
	items, total, err := h.posts.Search(c.Request.Context(), strings.TrimSpace(c.Query("q")), c.Query("sort"), page, size)
	if err != nil {
		failPost(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, PostListResponse{Posts: items, Pagination: newPagination(page, size, total)})
}

// GetPost godoc
// @ID          getPost
// @Summary     Post detail
// @Tags        posts
// @Produce     json
// @Param       id   path      string  true  "Post ID"
// @Success     200  {object}  domain.Post
// @Failure     404  {object}  ErrorResponse
// @Router      /posts/{id} [get]
func (h *Handlers) GetPost(c *gin.Context) {
	p, err := h.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failPost(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, p)
}

// UpdatePost godoc
// @ID          updatePost
// @Summary     Edit own post
// @Tags        posts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string       true  "Post ID"
// @Param       body  body      PostRequest  true  "Post"
// @Success     200   {object}  domain.Post
// @Failure     400   {object}  ErrorResponse
// @Failure     403   {object}  ErrorResponse
// @Failure     404   {object}  ErrorResponse
// @Router      /posts/{id} [put]
func (h *Handlers) UpdatePost(c *gin.Context) {
	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	p, err := h.posts.Update(c.Request.Context(), principal(c), c.Param("id"), req.Title, req.Content)
	if err != nil {
		failPost(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, p)
}

// DeletePost godoc
// @ID          deletePost
// @Summary     Delete own post
// @Tags        posts
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Post ID"
// @Success     200  {object}  MessageResponse
// @Failure     403  {object}  ErrorResponse
// @Failure     404  {object}  ErrorResponse
// @Router      /posts/{id} [delete]
func (h *Handlers) DeletePost(c *gin.Context) {
	if err := h.posts.Delete(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		failPost(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, MessageResponse{Detail: "Post deleted successfully"})
}

// FollowingFeed godoc
// @ID          followingFeed
// @Summary     Posts by users the caller follows
// @Tags        posts
// @Produce     json
// @Security    BearerAuth
// @Param       page       query     int  false  "Page (1-based)"
// @Param       page_size  query     int  false  "Page size (max 100)"
// @Success     200        {object}  PostListResponse
// @Failure     401        {object}  ErrorResponse
// @Router      /feed/following [get]
func (h *Handlers) FollowingFeed(c *gin.Context) {
	page, size := pageQuery(c)
	items, total, err := h.posts.Feed(c.Request.Context(), principal(c), page, size)
	if err != nil {
		failPost(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, PostListResponse{Posts: items, Pagination: newPagination(page, size, total)})
}
