package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-social-backend/internal/domain"
)

// ToggleLike flips userID's membership in postID's like set and moves the
// post's like counter with it, all in one transaction. It returns the new
// membership state and the counter read back after the write.
//
// The transaction opens with a write (the membership delete) so it holds the
// write lock before reading anything. Whichever statement actually changes a
// row is the only one that adjusts the counter, so concurrent toggles never
// double count.
func ToggleLike(ctx context.Context, db *gorm.DB, postID, userID string) (liked bool, likes int64, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&domain.PostLike{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected > 0 {
			liked = false
			if err := bumpLikeCount(tx, postID, -del.RowsAffected); err != nil {
				return err
			}
		} else {
			var p domain.Post
			if err := tx.Select("id").Where("id = ?", postID).First(&p).Error; err != nil {
				return err
			}
			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Omit(clause.Associations).
				Create(&domain.PostLike{PostID: postID, UserID: userID, CreatedAt: time.Now().UTC()})
			if ins.Error != nil {
				return ins.Error
			}
			liked = true
			if ins.RowsAffected > 0 {
				if err := bumpLikeCount(tx, postID, 1); err != nil {
					return err
				}
			}
		}

		return tx.Model(&domain.Post{}).Select("like_count").Where("id = ?", postID).Scan(&likes).Error
	})
	return liked, likes, err
}

func bumpLikeCount(tx *gorm.DB, postID string, delta int64) error {
	return tx.Model(&domain.Post{}).
		Where("id = ?", postID).
		UpdateColumn("like_count", gorm.Expr("like_count + ?", delta)).Error
}

// IsLiked reports whether userID currently likes postID.
func IsLiked(ctx context.Context, db *gorm.DB, postID, userID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.PostLike{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&n).Error
	return n > 0, err
}

// CountLikes counts the like memberships of postID.
func CountLikes(ctx context.Context, db *gorm.DB, postID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.PostLike{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}
