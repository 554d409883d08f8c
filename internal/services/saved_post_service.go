package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/domain"
	"github.com/tbourn/go-social-backend/internal/repo"
)

// SavedPostService keeps each user's private list of saved posts. Saving
// emits no event.
type SavedPostService struct {
	DB *gorm.DB
}

// Toggle saves postID for userID, or unsaves it when already saved, and
// reports the new state.
func (s *SavedPostService) Toggle(ctx context.Context, userID, postID string) (bool, error) {
	tr := otel.Tracer("services/SavedPostService")
	ctx, span := tr.Start(ctx, "Toggle",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("post.id", postID),
		),
	)
	defer span.End()

	saved, err := repo.ToggleSavedPost(ctx, s.DB, postID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, ErrPostNotFound
		}
		return false, err
	}
	span.SetAttributes(attribute.Bool("saved", saved))
	return saved, nil
}

// List returns one page of userID's saved posts, most recently saved first.
func (s *SavedPostService) List(ctx context.Context, userID string, page, pageSize int) ([]domain.Post, int64, error) {
	total, err := repo.CountSavedPosts(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Post{}, 0, nil
	}
	offset, limit := pageBounds(page, pageSize)
	items, err := repo.ListSavedPostsPage(ctx, s.DB, userID, offset, limit)
	return items, total, err
}
