package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/domain"
)

// CreateComment inserts a comment (or a reply when parentID is non-nil) on postID.
func CreateComment(ctx context.Context, db *gorm.DB, postID, userID string, parentID *string, content string) (*domain.Comment, error) {
	now := time.Now().UTC()
	c := &domain.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    userID,
		ParentID:  parentID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Omit("User", "Post").Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetComment fetches a comment by id with its author.
func GetComment(ctx context.Context, db *gorm.DB, id string) (*domain.Comment, error) {
	var c domain.Comment
	if err := db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComments returns every comment of postID, oldest first, flat.
// Threading is assembled by the service.
func ListComments(ctx context.Context, db *gorm.DB, postID string) ([]*domain.Comment, error) {
	var out []*domain.Comment
	err := db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at asc").
		Order("id asc").
		Find(&out).Error
	return out, err
}

// UpdateCommentContent edits a comment owned by userID.
func UpdateCommentContent(ctx context.Context, db *gorm.DB, id, userID, content string) error {
	res := db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"content": content, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteComment removes a comment owned by userID together with its reply
// subtree. Notifications pointing at removed comments cascade away.
func DeleteComment(ctx context.Context, db *gorm.DB, id, userID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root domain.Comment
		if err := tx.Select("id").Where("id = ? AND user_id = ?", id, userID).First(&root).Error; err != nil {
			return err
		}

		ids := []string{root.ID}
		frontier := []string{root.ID}
		for len(frontier) > 0 {
			var next []string
			if err := tx.Model(&domain.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &next).Error; err != nil {
				return err
			}
			ids = append(ids, next...)
			frontier = next
		}

		return tx.Where("id IN ?", ids).Delete(&domain.Comment{}).Error
	})
}
