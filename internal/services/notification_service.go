// Package services – NotificationService
//
// NotificationService is the read/action side of the notification feed. It
// talks to the store directly; after a successful action it pushes the fresh
// unread count to the principal's live connections so other tabs stay in sync.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/domain"
	"github.com/tbourn/go-social-backend/internal/realtime"
	"github.com/tbourn/go-social-backend/internal/repo"
)

// Actions accepted by NotificationService.Act.
const (
	ActionMarkRead   = "mark_read"
	ActionMarkUnread = "mark_unread"
	ActionDelete     = "delete"
)

// SenderView is the sender display info attached to a notification.
type SenderView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// NotificationView is a notification enriched for display.
type NotificationView struct {
	ID             string                  `json:"id"`
	Type           domain.NotificationType `json:"notification_type"`
	Sender         SenderView              `json:"sender"`
	PostID         *string                 `json:"post_id,omitempty"`
	PostTitle      string                  `json:"post_title,omitempty"`
	CommentID      *string                 `json:"comment_id,omitempty"`
	CommentContent string                  `json:"comment_content,omitempty"`
	IsRead         bool                    `json:"is_read"`
	CreatedAt      time.Time               `json:"created_at"`
}

// ActionResult reports the outcome of Act.
type ActionResult struct {
	Action      string `json:"action"`
	UnreadCount int64  `json:"unread_count"`
}

// NotificationService implements the notification Query/Action API.
type NotificationService struct {
	DB    *gorm.DB
	Layer realtime.Layer
	Log   zerolog.Logger
}

func toView(n domain.Notification) NotificationView {
	v := NotificationView{
		ID:        n.ID,
		Type:      n.Type,
		Sender:    SenderView{ID: n.Sender.ID, Username: n.Sender.Username, AvatarURL: n.Sender.AvatarURL},
		PostID:    n.PostID,
		CommentID: n.CommentID,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	if n.Type != domain.NotificationFollow && n.Post != nil {
		v.PostTitle = n.Post.Title
	}
	if n.Type == domain.NotificationComment && n.Comment != nil {
		v.CommentContent = n.Comment.Content
	}
	return v
}

func toViews(ns []domain.Notification) []NotificationView {
	out := make([]NotificationView, 0, len(ns))
	for _, n := range ns {
		out = append(out, toView(n))
	}
	return out
}

// List returns every notification of userID, newest first. An empty feed is
// reported as ErrNoNotifications together with an empty, non-nil slice.
func (s *NotificationService) List(ctx context.Context, userID string) ([]NotificationView, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "List", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	items, err := repo.ListNotifications(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []NotificationView{}, ErrNoNotifications
	}
	return toViews(items), nil
}

// ListPage returns one page of userID's notifications and the total count.
func (s *NotificationService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]NotificationView, int64, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	total, err := repo.CountNotifications(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []NotificationView{}, 0, nil
	}
	items, err := repo.ListNotificationsPage(ctx, s.DB, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return toViews(items), total, nil
}

// UnreadCount returns the unread count of record for userID.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return repo.CountUnread(ctx, s.DB, userID)
}

// Stats returns (count, unread, newest created_at) for conditional responses.
func (s *NotificationService) Stats(ctx context.Context, userID string) (int64, int64, *time.Time, error) {
	return repo.NotificationsStats(ctx, s.DB, userID)
}

// Act applies action to notification id on behalf of principal.
//
// Validation happens before any store access. A principal other than the
// recipient gets ErrForbidden and nothing changes.
func (s *NotificationService) Act(ctx context.Context, principal, id, action string) (*ActionResult, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "Act",
		trace.WithAttributes(
			attribute.String("user.id", principal),
			attribute.String("notification.id", id),
			attribute.String("action", action),
		),
	)
	defer span.End()

	switch action {
	case ActionMarkRead, ActionMarkUnread, ActionDelete:
	default:
		return nil, ErrInvalidAction
	}

	n, err := repo.GetNotification(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	if n.RecipientID != principal {
		return nil, ErrForbidden
	}

	switch action {
	case ActionMarkRead:
		err = repo.SetNotificationRead(ctx, s.DB, id, true)
	case ActionMarkUnread:
		err = repo.SetNotificationRead(ctx, s.DB, id, false)
	case ActionDelete:
		err = repo.DeleteNotification(ctx, s.DB, id)
	}
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	count, err := repo.CountUnread(ctx, s.DB, principal)
	if err != nil {
		return nil, err
	}
	s.syncCount(ctx, principal, count)
	return &ActionResult{Action: action, UnreadCount: count}, nil
}

// MarkAllRead marks every notification of userID read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := repo.MarkAllRead(ctx, s.DB, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if count, err := repo.CountUnread(ctx, s.DB, userID); err == nil {
			s.syncCount(ctx, userID, count)
		}
	}
	return n, nil
}

func (s *NotificationService) syncCount(ctx context.Context, userID string, count int64) {
	if s.Layer == nil {
		return
	}
	msg := realtime.Message{Type: realtime.TypeCountUpdate, UnreadCount: count}
	if err := s.Layer.GroupSend(ctx, userID, msg); err != nil {
		s.Log.Warn().Err(err).Str("user_id", userID).Msg("count sync delivery failed")
	}
}
