// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - The WebSocket route stays outside compression and body limits
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/docs"
	"github.com/tbourn/go-social-backend/internal/config"
	"github.com/tbourn/go-social-backend/internal/http/handlers"
	"github.com/tbourn/go-social-backend/internal/http/middleware"
	"github.com/tbourn/go-social-backend/internal/realtime"
	"github.com/tbourn/go-social-backend/internal/services"
)

// Realtime carries the live-delivery collaborators whose lifecycle belongs to
// the caller: the local hub, the layer used for fan-out (the hub itself or a
// Redis layer in front of it), and the event sink of the notification pipeline.
type Realtime struct {
	Hub    *realtime.Hub
	Layer  realtime.Layer
	Events services.Emitter
}

const wsPrefix = "/ws/"

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and returns the auth service so callers can mint tokens (tests,
// tooling).
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. OptionalAuth: attach the principal for keying and replay lookup
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS, security headers, optional gzip
func RegisterRoutes(r *gin.Engine, db *gorm.DB, rt Realtime, cfg config.Config) *services.AuthService {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath // e.g. "/api/v1"

	// Dependency injection: services ← db/realtime
	dir := &services.Directory{DB: db}
	layer := rt.Layer
	if layer == nil {
		layer = rt.Hub
	}
	authSvc := &services.AuthService{
		DB:     db,
		Secret: []byte(cfg.Auth.JWTSecret),
		TTL:    cfg.Auth.TokenTTL,
	}
	commentSvc := &services.CommentService{
		DB:              db,
		Events:          rt.Events,
		MaxContentRunes: cfg.CommentMaxRunes,
		IdempotencyTTL:  cfg.IdempotencyTTL,
	}
	wsOrigins := cfg.WS.AllowedOrigins
	if len(wsOrigins) == 0 {
		wsOrigins = cfg.CORS.AllowedOrigins
	}
	h := handlers.New(handlers.Deps{
		Auth:           authSvc,
		Profiles:       dir,
		Posts:          &services.PostService{DB: db, MaxTitleRunes: cfg.PostTitleRunes},
		Comments:       commentSvc,
		Likes:          &services.LikeService{DB: db, Events: rt.Events},
		Saved:          &services.SavedPostService{DB: db},
		Follows:        &services.FollowService{DB: db, Events: rt.Events},
		Notifications:  &services.NotificationService{DB: db, Layer: layer, Log: log.Logger},
		Admitter:       realtime.NewRegistry(dir, cfg.WS.AdmitTimeout, log.Logger),
		Hub:            rt.Hub,
		AllowedOrigins: wsOrigins,
	})

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderIdempotencyKey},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Principal, when a valid bearer token is present
	r.Use(middleware.OptionalAuth(authSvc))

	// 8) Idempotency validation (before rate limiting). Only comment creation
	// stores results; its scope is the post id.
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200, ScopeParam: "id"},
		func(ctx context.Context, userID, postID, key string, _ time.Time) (bool, error) {
			prev, err := commentSvc.Replay(ctx, userID, postID, key)
			return prev != nil, err
		},
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Compression would wrap the hijacked connection, so the socket route is excluded.
	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression,
			gzip.WithExcludedPaths([]string{joinPath(apiBase, wsPrefix), "/metrics"}),
		))
	}

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/readiness
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/health/ready", readiness(db))

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = apiBase
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authed := middleware.RequireAuth(authSvc)

	// Public API
	api := groupWithPrefix(r, apiBase)
	{
		// Accounts and profiles
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.GET("/users/me", authed, h.GetMe)
		api.PUT("/users/me", authed, h.UpdateMe)
		api.GET("/users/:id", h.GetUser)
		api.GET("/users/:id/posts", h.UserPosts)
		api.GET("/users/:id/follow-counts", h.FollowCounts)

		// Posts
		api.GET("/posts", h.ListPosts)
		api.GET("/posts/search", h.SearchPosts)
		api.GET("/posts/saved", authed, h.ListSavedPosts)
		api.GET("/posts/:id", h.GetPost)
		api.POST("/posts", authed, h.CreatePost)
		api.PUT("/posts/:id", authed, h.UpdatePost)
		api.DELETE("/posts/:id", authed, h.DeletePost)
		api.GET("/feed/following", authed, h.FollowingFeed)

		// Likes, saves and comments
		api.POST("/posts/:id/like", authed, h.ToggleLike)
		api.POST("/posts/:id/save", authed, h.ToggleSavePost)
		api.GET("/posts/:id/comments", h.ListComments)
		api.POST("/posts/:id/comments", authed, h.CreateComment)
		api.PUT("/comments/:id", authed, h.UpdateComment)
		api.DELETE("/comments/:id", authed, h.DeleteComment)

		// Follow graph
		api.POST("/follows", authed, h.Follow)
		api.DELETE("/follows/:user_id", authed, h.Unfollow)
		api.GET("/follows/:user_id/status", authed, h.FollowStatus)

		// Notifications
		api.GET("/notifications", authed, h.ListNotifications)
		api.GET("/notifications/unread-count", authed, h.UnreadCount)
		api.POST("/notifications/read-all", authed, h.MarkAllRead)
		api.POST("/notifications/:id/actions", authed, h.NotificationAction)

		// Live feed
		api.GET(wsPrefix+"notifications/:user_id", middleware.RequireSocketAuth(authSvc), h.NotificationsSocket)
	}
	return authSvc
}

// readiness pings the database with a short deadline.
func readiness(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			handlers.Fail(c, http.StatusServiceUnavailable, handlers.ErrCodeUnavailable, "database unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return base + p
}
