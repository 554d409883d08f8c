package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/repo"
)

// LikeResult is the post's like state after a toggle.
type LikeResult struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

// LikeService toggles post likes and emits like events.
type LikeService struct {
	DB     *gorm.DB
	Events Emitter
}

// Toggle flips userID's like on postID. The event is emitted after the
// membership change and counter update have committed together.
func (s *LikeService) Toggle(ctx context.Context, userID, postID string) (*LikeResult, error) {
	tr := otel.Tracer("services/LikeService")
	ctx, span := tr.Start(ctx, "Toggle",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("post.id", postID),
		),
	)
	defer span.End()

	post, err := repo.GetPost(ctx, s.DB, postID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	liked, likes, err := repo.ToggleLike(ctx, s.DB, postID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	span.SetAttributes(attribute.Bool("liked", liked), attribute.Int64("likes", likes))

	typ := EventLikeRemoved
	if liked {
		typ = EventLikeAdded
	}
	emit(s.Events, ctx, Event{Type: typ, ActorID: userID, TargetID: post.AuthorID, PostID: postID})

	return &LikeResult{Liked: liked, Likes: likes}, nil
}

// State reports whether userID likes postID and the current like count.
func (s *LikeService) State(ctx context.Context, userID, postID string) (*LikeResult, error) {
	post, err := repo.GetPost(ctx, s.DB, postID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	liked, err := repo.IsLiked(ctx, s.DB, postID, userID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{Liked: liked, Likes: post.LikeCount}, nil
}
