// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the Notification store.
//
// All functions are context-aware and accept a *gorm.DB handle, so they can
// run inside a caller's transaction. Each call is a single statement: there
// are no partial-write states visible to callers.
//
// Functions:
//
//   - CreateNotification(ctx, db, n) -> (created bool, error)
//     Conditional insert keyed on dedup_key. A row whose DedupKey is nil is
//     always inserted; otherwise an existing key makes the call a no-op that
//     reports created == false.
//
//   - ListNotifications / ListNotificationsPage / CountNotifications
//     Recipient-scoped reads, newest first, with Sender, Post and Comment
//     preloaded for message enrichment.
//
//   - CountUnread(ctx, db, recipientID) -> (int64, error)
//     The unread count of record. Dispatch payloads are always derived from it.
//
//   - GetNotification / SetNotificationRead / DeleteNotification
//     Single-row operations that return ErrNotFound for a missing id.
//
//   - MarkAllRead(ctx, db, recipientID) -> (int64, error)
//
//   - DeleteNotificationsBy(ctx, db, recipientID, senderID, typ, postID)
//     Removes the notifications produced by a relationship that was reversed
//     (unfollow, unlike). postID narrows the match when non-nil.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-social-backend/internal/domain"
)

// CreateNotification inserts n unless another row already holds its dedup key.
// ID and CreatedAt are filled in when empty.
func CreateNotification(ctx context.Context, db *gorm.DB, n *domain.Notification) (bool, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	q := db.WithContext(ctx)
	if n.DedupKey != nil {
		q = q.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedup_key"}},
			DoNothing: true,
		})
	}
	res := q.Omit(clause.Associations).Create(n)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func withNotificationRefs(q *gorm.DB) *gorm.DB {
	return q.Preload("Sender").Preload("Post").Preload("Comment")
}

// ListNotifications returns every notification for recipientID, newest first.
func ListNotifications(ctx context.Context, db *gorm.DB, recipientID string) ([]domain.Notification, error) {
	var out []domain.Notification
	err := withNotificationRefs(db.WithContext(ctx)).
		Where("recipient_id = ?", recipientID).
		Order("created_at desc").
		Order("id desc").
		Find(&out).Error
	return out, err
}

// ListNotificationsPage is ListNotifications with offset paging.
func ListNotificationsPage(ctx context.Context, db *gorm.DB, recipientID string, offset, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	err := withNotificationRefs(db.WithContext(ctx)).
		Where("recipient_id = ?", recipientID).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountNotifications returns the total number of notifications for recipientID.
func CountNotifications(ctx context.Context, db *gorm.DB, recipientID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("recipient_id = ?", recipientID).
		Count(&total).Error
	return total, err
}

// CountUnread returns the number of unread notifications for recipientID.
func CountUnread(ctx context.Context, db *gorm.DB, recipientID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&total).Error
	return total, err
}

// GetNotification fetches a notification by id.
func GetNotification(ctx context.Context, db *gorm.DB, id string) (*domain.Notification, error) {
	var n domain.Notification
	if err := db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// SetNotificationRead sets is_read on a single notification.
func SetNotificationRead(ctx context.Context, db *gorm.DB, id string, read bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_read": read, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Some drivers report 0 rows for an unchanged value; tell that apart from a missing row.
		var n int64
		if err := db.WithContext(ctx).Model(&domain.Notification{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// MarkAllRead flags every unread notification of recipientID as read and
// returns how many rows changed.
func MarkAllRead(ctx context.Context, db *gorm.DB, recipientID string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]any{"is_read": true, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// DeleteNotification hard-deletes a notification by id.
func DeleteNotification(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteNotificationsBy removes notifications matching (recipient, sender, type[, post]).
// Deleting nothing is not an error.
func DeleteNotificationsBy(ctx context.Context, db *gorm.DB, recipientID, senderID string, typ domain.NotificationType, postID *string) (int64, error) {
	q := db.WithContext(ctx).
		Where("recipient_id = ? AND sender_id = ? AND type = ?", recipientID, senderID, typ)
	if postID != nil {
		q = q.Where("post_id = ?", *postID)
	}
	res := q.Delete(&domain.Notification{})
	return res.RowsAffected, res.Error
}
