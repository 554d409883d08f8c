package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-social-backend/internal/domain"
)

// ToggleSavedPost flips whether userID has saved postID and returns the new
// state. Like ToggleLike it opens with the delete, so the transaction takes
// the write lock before it reads. A missing post returns ErrNotFound.
func ToggleSavedPost(ctx context.Context, db *gorm.DB, postID, userID string) (saved bool, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&domain.SavedPost{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected > 0 {
			saved = false
			return nil
		}
		var p domain.Post
		if err := tx.Select("id").Where("id = ?", postID).First(&p).Error; err != nil {
			return err
		}
		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Omit(clause.Associations).
			Create(&domain.SavedPost{PostID: postID, UserID: userID, CreatedAt: time.Now().UTC()})
		if ins.Error != nil {
			return ins.Error
		}
		saved = true
		return nil
	})
	return saved, err
}

// IsSaved reports whether userID has saved postID.
func IsSaved(ctx context.Context, db *gorm.DB, postID, userID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.SavedPost{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&n).Error
	return n > 0, err
}

// ListSavedPostsPage returns the posts userID saved, most recently saved first.
func ListSavedPostsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Post, error) {
	var out []domain.Post
	err := db.WithContext(ctx).
		Preload("Author").
		Joins("JOIN saved_posts ON saved_posts.post_id = posts.id").
		Where("saved_posts.user_id = ?", userID).
		Order("saved_posts.created_at desc, posts.id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountSavedPosts returns how many posts userID has saved.
func CountSavedPosts(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.SavedPost{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}
