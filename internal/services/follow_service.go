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

// FollowCounts summarizes a user's position in the follow graph.
type FollowCounts struct {
	Followers int64 `json:"follower_count"`
	Following int64 `json:"following_count"`
}

// FollowService manages follow edges and emits follow events.
type FollowService struct {
	DB     *gorm.DB
	Events Emitter
}

// Follow makes followerID follow targetID.
func (s *FollowService) Follow(ctx context.Context, followerID, targetID string) error {
	tr := otel.Tracer("services/FollowService")
	ctx, span := tr.Start(ctx, "Follow",
		trace.WithAttributes(
			attribute.String("follower.id", followerID),
			attribute.String("following.id", targetID),
		),
	)
	defer span.End()

	if followerID == targetID {
		return ErrSelfFollow
	}
	if err := s.ensureUser(ctx, targetID); err != nil {
		return err
	}
	if _, err := repo.CreateFollow(ctx, s.DB, followerID, targetID); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return ErrAlreadyFollowing
		}
		return err
	}
	emit(s.Events, ctx, Event{Type: EventFollowCreated, ActorID: followerID, TargetID: targetID})
	return nil
}

// Unfollow removes the edge followerID -> targetID.
func (s *FollowService) Unfollow(ctx context.Context, followerID, targetID string) error {
	tr := otel.Tracer("services/FollowService")
	ctx, span := tr.Start(ctx, "Unfollow",
		trace.WithAttributes(
			attribute.String("follower.id", followerID),
			attribute.String("following.id", targetID),
		),
	)
	defer span.End()

	if followerID == targetID {
		return ErrSelfFollow
	}
	if err := s.ensureUser(ctx, targetID); err != nil {
		return err
	}
	if err := repo.DeleteFollow(ctx, s.DB, followerID, targetID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFollowing
		}
		return err
	}
	emit(s.Events, ctx, Event{Type: EventFollowRemoved, ActorID: followerID, TargetID: targetID})
	return nil
}

// IsFollowing reports whether followerID follows targetID.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	if err := s.ensureUser(ctx, targetID); err != nil {
		return false, err
	}
	return repo.IsFollowing(ctx, s.DB, followerID, targetID)
}

// Counts returns follower and following totals for userID.
func (s *FollowService) Counts(ctx context.Context, userID string) (*FollowCounts, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	followers, err := repo.CountFollowers(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	following, err := repo.CountFollowing(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	return &FollowCounts{Followers: followers, Following: following}, nil
}

func (s *FollowService) ensureUser(ctx context.Context, id string) error {
	ok, err := repo.UserExists(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}
