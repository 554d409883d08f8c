// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication. The token is verified by
// an injected TokenVerifier and the resulting user id is stored under the
// "userID" Gin context key, which the rate limiter, loggers and handlers read.
//
// Features:
//   - RequireAuth: 401 with a WWW-Authenticate challenge unless the
//     Authorization header carries a valid bearer token.
//   - OptionalAuth: attaches the principal when present, never rejects.
//   - RequireSocketAuth: for WebSocket upgrades, additionally accepts the
//     token as ?token= or as a "bearer, <token>" subprotocol offer.
//
// Notes:
//   - The 401 body uses the same {request_id, code, message} envelope as the
//     handlers, so clients parse a single error shape.
//   - Query tokens are scrubbed by RedactingLogger before they are logged.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextUserID is the Gin context key holding the authenticated user id.
const ContextUserID = "userID"

// TokenVerifier validates a bearer token and returns the user id it carries.
type TokenVerifier interface {
	VerifyToken(token string) (userID string, err error)
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) (string, bool) {
	tok, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	tok = strings.TrimSpace(tok)
	return tok, ok && tok != ""
}

// RequireAuth rejects requests without a valid bearer token with 401.
func RequireAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		uid, err := v.VerifyToken(tok)
		if err != nil || uid == "" {
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		c.Set(ContextUserID, uid)
		c.Next()
	}
}

// SocketSubprotocol is the WebSocket subprotocol under which browsers, which
// cannot set headers on an upgrade, offer their token:
// Sec-WebSocket-Protocol: bearer, <token>.
const SocketSubprotocol = "bearer"

// socketToken finds the token of a WebSocket upgrade in the Authorization
// header, the "token" query parameter, or a "bearer, <token>" subprotocol
// offer, in that order.
func socketToken(c *gin.Context) (string, bool) {
	if tok, ok := bearerToken(c); ok {
		return tok, true
	}
	if tok := strings.TrimSpace(c.Query("token")); tok != "" {
		return tok, true
	}
	var offers []string
	for _, h := range c.Request.Header.Values("Sec-WebSocket-Protocol") {
		for _, p := range strings.Split(h, ",") {
			if p = strings.TrimSpace(p); p != "" {
				offers = append(offers, p)
			}
		}
	}
	for i := 0; i+1 < len(offers); i++ {
		if strings.EqualFold(offers[i], SocketSubprotocol) {
			return offers[i+1], true
		}
	}
	return "", false
}

// RequireSocketAuth is RequireAuth for WebSocket upgrades, which also take
// the token from the query string or the subprotocol list.
func RequireSocketAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := socketToken(c)
		if !ok {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		uid, err := v.VerifyToken(tok)
		if err != nil || uid == "" {
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		c.Set(ContextUserID, uid)
		c.Next()
	}
}

// OptionalAuth attaches the user id when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok, ok := bearerToken(c); ok {
			if uid, err := v.VerifyToken(tok); err == nil && uid != "" {
				c.Set(ContextUserID, uid)
			}
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ContextUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
