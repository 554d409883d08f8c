package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-social-backend/internal/domain"
	"github.com/tbourn/go-social-backend/internal/http/middleware"
	"github.com/tbourn/go-social-backend/internal/realtime"
	"github.com/tbourn/go-social-backend/internal/repo"
	"github.com/tbourn/go-social-backend/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

// testEnv wires the real services over an in-memory database.
type testEnv struct {
	db   *gorm.DB
	hub  *realtime.Hub
	auth *services.AuthService
	r    *gin.Engine
}

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newEnv(t *testing.T, mutate ...func(*Deps)) *testEnv {
	t.Helper()
	db := newHandlerDB(t)
	lg := zerolog.Nop()

	hub := realtime.NewHub(realtime.DefaultOptions(), lg)
	t.Cleanup(hub.Close)

	dir := &services.Directory{DB: db}
	disp := &services.Dispatcher{DB: db, Layer: hub, Users: dir, Content: dir, Log: lg}
	auth := &services.AuthService{DB: db, Secret: []byte("test-secret"), HashCost: bcrypt.MinCost}
	comments := &services.CommentService{DB: db, Events: disp}

	d := Deps{
		Auth:          auth,
		Profiles:      dir,
		Posts:         &services.PostService{DB: db},
		Comments:      comments,
		Likes:         &services.LikeService{DB: db, Events: disp},
		Saved:         &services.SavedPostService{DB: db},
		Follows:       &services.FollowService{DB: db, Events: disp},
		Notifications: &services.NotificationService{DB: db, Layer: hub, Log: lg},
		Admitter:      realtime.NewRegistry(dir, 0, lg),
		Hub:           hub,
	}
	for _, m := range mutate {
		m(&d)
	}
	h := New(d)

	r := gin.New()
	r.Use(middleware.RequestID())
	registerTestRoutes(r, h, auth, d.Comments)
	return &testEnv{db: db, hub: hub, auth: auth, r: r}
}

// registerTestRoutes mirrors the API routes of the server router.
func registerTestRoutes(r *gin.Engine, h *Handlers, v middleware.TokenVerifier, comments CommentService) {
	api := r.Group("/api/v1")
	authed := middleware.RequireAuth(v)

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.GET("/users/me", authed, h.GetMe)
	api.PUT("/users/me", authed, h.UpdateMe)
	api.GET("/users/:id", h.GetUser)
	api.GET("/users/:id/posts", h.UserPosts)
	api.GET("/users/:id/follow-counts", h.FollowCounts)

	api.GET("/posts", h.ListPosts)
	api.GET("/posts/search", h.SearchPosts)
	api.GET("/posts/saved", authed, h.ListSavedPosts)
	api.GET("/posts/:id", h.GetPost)
	api.POST("/posts", authed, h.CreatePost)
	api.PUT("/posts/:id", authed, h.UpdatePost)
	api.DELETE("/posts/:id", authed, h.DeletePost)
	api.POST("/posts/:id/like", authed, h.ToggleLike)
	api.POST("/posts/:id/save", authed, h.ToggleSavePost)
	api.GET("/posts/:id/comments", h.ListComments)
	api.POST("/posts/:id/comments", authed,
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{ScopeParam: "id"},
			func(ctx context.Context, userID, scope, key string, _ time.Time) (bool, error) {
				prev, err := comments.Replay(ctx, userID, scope, key)
				return prev != nil, err
			}),
		h.CreateComment)
	api.PUT("/comments/:id", authed, h.UpdateComment)
	api.DELETE("/comments/:id", authed, h.DeleteComment)

	api.POST("/follows", authed, h.Follow)
	api.DELETE("/follows/:user_id", authed, h.Unfollow)
	api.GET("/follows/:user_id/status", authed, h.FollowStatus)
	api.GET("/feed/following", authed, h.FollowingFeed)

	api.GET("/notifications", authed, h.ListNotifications)
	api.GET("/notifications/unread-count", authed, h.UnreadCount)
	api.POST("/notifications/read-all", authed, h.MarkAllRead)
	api.POST("/notifications/:id/actions", authed, h.NotificationAction)

	api.GET("/ws/notifications/:user_id", middleware.RequireSocketAuth(v), h.NotificationsSocket)
}

func (e *testEnv) user(t *testing.T, name string) (*domain.User, string) {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), e.db, name, name+"@example.com", "x")
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	tok, err := e.auth.IssueToken(u.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return u, tok
}

func (e *testEnv) post(t *testing.T, authorID, title string) *domain.Post {
	t.Helper()
	p, err := repo.CreatePost(context.Background(), e.db, authorID, title, "body of "+title)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

type reqOpt func(*http.Request)

func withHeader(k, v string) reqOpt { return func(r *http.Request) { r.Header.Set(k, v) } }

func (e *testEnv) do(method, path, token string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = strings.NewReader(b)
		default:
			buf, _ := json.Marshal(b)
			rd = bytes.NewReader(buf)
		}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code, msg string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d; want %d (body=%s)", w.Code, status, w.Body.String())
	}
	er := decode[ErrorResponse](t, w)
	if er.Code != code {
		t.Fatalf("code = %q; want %q", er.Code, code)
	}
	if msg != "" && er.Message != msg {
		t.Fatalf("message = %q; want %q", er.Message, msg)
	}
	if er.RequestID == "" {
		t.Fatalf("missing request_id in error envelope")
	}
}
