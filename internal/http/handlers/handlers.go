package handlers

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tbourn/go-social-backend/internal/domain"
	"github.com/tbourn/go-social-backend/internal/http/middleware"
	"github.com/tbourn/go-social-backend/internal/realtime"
	"github.com/tbourn/go-social-backend/internal/services"
)

// AuthService issues tokens for new and returning users.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, string, error)
	Login(ctx context.Context, username, password string) (*domain.User, string, error)
}

// ProfileService resolves public user profiles and edits the caller's own.
type ProfileService interface {
	Profile(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, in services.ProfileUpdate) (*domain.User, error)
}

// PostService is the post CRUD, listing and feed surface.
type PostService interface {
	Create(ctx context.Context, authorID, title, content string) (*domain.Post, error)
	Get(ctx context.Context, id string) (*domain.Post, error)
	List(ctx context.Context, sort string, page, pageSize int) ([]domain.Post, int64, error)
	Search(ctx context.Context, q, sort string, page, pageSize int) ([]domain.Post, int64, error)
	Feed(ctx context.Context, userID string, page, pageSize int) ([]domain.Post, int64, error)
	ByAuthor(ctx context.Context, authorID string, page, pageSize int) ([]domain.Post, int64, error)
	Update(ctx context.Context, userID, id, title, content string) (*domain.Post, error)
	Delete(ctx context.Context, userID, id string) error
}

// CommentService creates, threads and edits comments. Replay and Remember
// back the Idempotency-Key contract of comment creation.
type CommentService interface {
	Create(ctx context.Context, userID, postID string, parentID *string, content string) (*domain.Comment, error)
	Replay(ctx context.Context, userID, postID, key string) (*domain.Comment, error)
	Remember(ctx context.Context, userID, postID, key, commentID string, status int) error
	List(ctx context.Context, postID string) ([]*domain.Comment, error)
	Update(ctx context.Context, userID, id, content string) (*domain.Comment, error)
	Delete(ctx context.Context, userID, id string) error
	Stats(ctx context.Context, postID string) (int64, *time.Time, error)
	MaxRunes() int
}

// LikeService toggles likes.
type LikeService interface {
	Toggle(ctx context.Context, userID, postID string) (*services.LikeResult, error)
}

// SavedPostService keeps the caller's saved posts.
type SavedPostService interface {
	Toggle(ctx context.Context, userID, postID string) (bool, error)
	List(ctx context.Context, userID string, page, pageSize int) ([]domain.Post, int64, error)
}

// FollowService manages the follow graph.
type FollowService interface {
	Follow(ctx context.Context, followerID, targetID string) error
	Unfollow(ctx context.Context, followerID, targetID string) error
	IsFollowing(ctx context.Context, followerID, targetID string) (bool, error)
	Counts(ctx context.Context, userID string) (*services.FollowCounts, error)
}

// NotificationService is the notification Query/Action API.
type NotificationService interface {
	List(ctx context.Context, userID string) ([]services.NotificationView, error)
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]services.NotificationView, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	Stats(ctx context.Context, userID string) (int64, int64, *time.Time, error)
	Act(ctx context.Context, principal, id, action string) (*services.ActionResult, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// Admitter gates WebSocket connections by user id.
type Admitter interface {
	Admit(ctx context.Context, userID string) error
}

// Deps groups the collaborators of Handlers.
type Deps struct {
	Auth          AuthService
	Profiles      ProfileService
	Posts         PostService
	Comments      CommentService
	Likes         LikeService
	Saved         SavedPostService
	Follows       FollowService
	Notifications NotificationService

	Admitter Admitter
	Hub      *realtime.Hub
	// AllowedOrigins lists the Origin values accepted on WebSocket upgrades.
	// Empty or "*" accepts any origin.
	AllowedOrigins []string
}

// Handlers bundles all HTTP handlers.
type Handlers struct {
	auth     AuthService
	profiles ProfileService
	posts    PostService
	comments CommentService
	likes    LikeService
	saved    SavedPostService
	follows  FollowService
	notifs   NotificationService

	admitter Admitter
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// New constructs Handlers.
func New(d Deps) *Handlers {
	return &Handlers{
		auth:     d.Auth,
		profiles: d.Profiles,
		posts:    d.Posts,
		comments: d.Comments,
		likes:    d.Likes,
		saved:    d.Saved,
		follows:  d.Follows,
		notifs:   d.Notifications,
		admitter: d.Admitter,
		hub:      d.Hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{middleware.SocketSubprotocol},
			CheckOrigin:     originChecker(d.AllowedOrigins),
		},
	}
}
