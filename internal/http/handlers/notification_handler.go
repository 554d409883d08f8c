package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-social-backend/internal/services"
)

// NotificationListResponse is the notification feed of the caller.
// Pagination is present only when the request asked for a page.
type NotificationListResponse struct {
	Data       []services.NotificationView `json:"notification_data"`
	Detail     string                      `json:"detail,omitempty" example:"no notifications"`
	Pagination *Pagination                 `json:"pagination,omitempty"`
}

// ActionRequest is the body of POST /notifications/{id}/actions.
type ActionRequest struct {
	Action string `json:"action" example:"mark_read"`
}

// UnreadCountResponse answers GET /notifications/unread-count.
type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

// MarkAllReadResponse answers POST /notifications/read-all.
type MarkAllReadResponse struct {
	Updated     int64 `json:"updated"`
	UnreadCount int64 `json:"unread_count"`
}

// ListNotifications godoc
// @ID          listNotifications
// @Summary     Notifications of the caller, newest first
// @Description Without page/page_size the whole feed is returned. An empty
// @Description feed is a 200 with detail "no notifications".
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Param       page       query     int  false  "Page (1-based)"
// @Param       page_size  query     int  false  "Page size (max 100)"
// @Success     200        {object}  NotificationListResponse
// @Success     304        "Not Modified"
// @Failure     401        {object}  ErrorResponse
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	uid := principal(c)

	count, unread, newest, err := h.notifs.Stats(ctx, uid)
	if err != nil {
		internalError(c, ErrCodeListFailed, err)
		return
	}
	var stamp int64
	if newest != nil {
		stamp = newest.UTC().UnixNano()
	}
	_, paged := c.GetQuery("page")
	if _, sized := c.GetQuery("page_size"); sized {
		paged = true
	}
	page, size := pageQuery(c)
	etag := fmt.Sprintf(`W/"notifications:%s:%d:%d:%d"`, uid, count, unread, stamp)
	if paged {
		etag = fmt.Sprintf(`W/"notifications:%s:%d:%d:%d:%d:%d"`, uid, count, unread, stamp, page, size)
	}
	if conditional(c, etag) {
		return
	}

	if paged {
		items, total, err := h.notifs.ListPage(ctx, uid, page, size)
		if err != nil {
			internalError(c, ErrCodeListFailed, err)
			return
		}
		p := newPagination(page, size, total)
		resp := NotificationListResponse{Data: items, Pagination: &p}
		if total == 0 {
			resp.Detail = services.ErrNoNotifications.Error()
		}
		ok(c, http.StatusOK, resp)
		return
	}

	items, err := h.notifs.List(ctx, uid)
	switch {
	case err == nil:
		ok(c, http.StatusOK, NotificationListResponse{Data: items})
	case errors.Is(err, services.ErrNoNotifications):
		ok(c, http.StatusOK, NotificationListResponse{
			Data:   []services.NotificationView{},
			Detail: services.ErrNoNotifications.Error(),
		})
	default:
		internalError(c, ErrCodeListFailed, err)
	}
}

// UnreadCount godoc
// @ID          unreadCount
// @Summary     Unread notification count of the caller
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  UnreadCountResponse
// @Failure     401  {object}  ErrorResponse
// @Router      /notifications/unread-count [get]
func (h *Handlers) UnreadCount(c *gin.Context) {
	n, err := h.notifs.UnreadCount(c.Request.Context(), principal(c))
	if err != nil {
		internalError(c, ErrCodeInternal, err)
		return
	}
	ok(c, http.StatusOK, UnreadCountResponse{UnreadCount: n})
}

// NotificationAction godoc
// @ID          notificationAction
// @Summary     Mark read, mark unread or delete a notification
// @Tags        notifications
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string         true  "Notification ID"
// @Param       body  body      ActionRequest  true  "mark_read | mark_unread | delete"
// @Success     200   {object}  services.ActionResult
// @Failure     400   {object}  ErrorResponse
// @Failure     403   {object}  ErrorResponse
// @Failure     404   {object}  ErrorResponse
// @Router      /notifications/{id}/actions [post]
func (h *Handlers) NotificationAction(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	res, err := h.notifs.Act(c.Request.Context(), principal(c), c.Param("id"), req.Action)
	switch {
	case err == nil:
		ok(c, http.StatusOK, res)
	case errors.Is(err, services.ErrInvalidAction):
		fail(c, http.StatusBadRequest, ErrCodeInvalidAction, "Invalid action.")
	case errors.Is(err, services.ErrNotificationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Notification not found.")
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "You do not have permission to modify this notification.")
	default:
		internalError(c, ErrCodeInternal, err)
	}
}

// MarkAllRead godoc
// @ID          markAllRead
// @Summary     Mark every notification of the caller read
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  MarkAllReadResponse
// @Failure     401  {object}  ErrorResponse
// @Router      /notifications/read-all [post]
func (h *Handlers) MarkAllRead(c *gin.Context) {
	ctx := c.Request.Context()
	uid := principal(c)
	n, err := h.notifs.MarkAllRead(ctx, uid)
	if err != nil {
		internalError(c, ErrCodeInternal, err)
		return
	}
	unread, err := h.notifs.UnreadCount(ctx, uid)
	if err != nil {
		internalError(c, ErrCodeInternal, err)
		return
	}
	ok(c, http.StatusOK, MarkAllReadResponse{Updated: n, UnreadCount: unread})
}
