package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-social-backend/internal/http/middleware"
	"github.com/tbourn/go-social-backend/internal/realtime"
)

// originChecker accepts requests without an Origin header, and otherwise
// only the listed origins. An empty list or "*" accepts everything.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[strings.ToLower(o)] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}

// NotificationsSocket godoc
// @ID          notificationsSocket
// @Summary     Live notification feed (WebSocket)
// @Description Upgrades to a WebSocket that receives
// @Description {"type", "message"?, "unread_count"} frames for user_id.
// @Description The caller must authenticate as user_id with a bearer token
// @Description (Authorization header, ?token=, or subprotocol "bearer, <token>").
// @Description Unknown users are refused with 403 before the upgrade.
// @Tags        notifications
// @Param       user_id  path   string  true   "User ID"
// @Param       token    query  string  false  "Bearer token for clients that cannot set headers"
// @Success     101  "Switching Protocols"
// @Failure     401  {object}  ErrorResponse
// @Failure     403  {object}  ErrorResponse
// @Failure     503  {object}  ErrorResponse
// @Router      /ws/notifications/{user_id} [get]
func (h *Handlers) NotificationsSocket(c *gin.Context) {
	uid := c.Param("user_id")
	if principal(c) != uid {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "You can only subscribe to your own notifications.")
		return
	}
	if err := h.admitter.Admit(c.Request.Context(), uid); err != nil {
		switch {
		case errors.Is(err, realtime.ErrUnknownUser):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "Unknown user.")
		default:
			fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "User directory unavailable, retry later.")
		}
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already answered the client.
		middleware.LoggerFrom(c).Debug().Err(err).Str("user_id", uid).Msg("ws upgrade failed")
		return
	}
	if err := realtime.NewClient(h.hub, conn, uid).Serve(); err != nil {
		middleware.LoggerFrom(c).Debug().Err(err).Str("user_id", uid).Msg("ws session refused")
	}
}
