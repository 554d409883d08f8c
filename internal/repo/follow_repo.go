package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/domain"
)

// CreateFollow records that followerID follows followingID.
// An existing edge yields ErrDuplicate.
func CreateFollow(ctx context.Context, db *gorm.DB, followerID, followingID string) (*domain.Follow, error) {
	f := &domain.Follow{
		ID:          uuid.NewString(),
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Omit("Follower", "Following").Create(f).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return f, nil
}

// DeleteFollow removes the follow edge, or returns ErrNotFound if absent.
func DeleteFollow(ctx context.Context, db *gorm.DB, followerID, followingID string) error {
	res := db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&domain.Follow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IsFollowing reports whether followerID follows followingID.
func IsFollowing(ctx context.Context, db *gorm.DB, followerID, followingID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&n).Error
	return n > 0, err
}

// CountFollowers returns how many users follow userID.
func CountFollowers(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Follow{}).Where("following_id = ?", userID).Count(&n).Error
	return n, err
}

// CountFollowing returns how many users userID follows.
func CountFollowing(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Follow{}).Where("follower_id = ?", userID).Count(&n).Error
	return n, err
}
