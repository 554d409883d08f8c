// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
//
// Features:
//   - Counts plus a "latest change" timestamp per feed, cheap enough to run
//     before deciding whether the full list must be loaded.
//   - The latest change covers the rows the rendered list embeds: a post
//     title edit or a profile edit moves the stamp of every feed showing it.
//
// Notes:
//   - Timestamps are read with ORDER BY ... LIMIT 1 rather than MAX(), which
//     SQLite returns as TEXT.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/domain"
)

// latestUpdate returns the newest updated_at selected by q, or nil when q
// matches nothing.
func latestUpdate(q *gorm.DB) (*time.Time, error) {
	var row struct {
		UpdatedAt time.Time
	}
	res := q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 || row.UpdatedAt.IsZero() {
		return nil, nil
	}
	return &row.UpdatedAt, nil
}

func newest(ts ...*time.Time) *time.Time {
	var out *time.Time
	for _, t := range ts {
		if t != nil && (out == nil || t.After(*out)) {
			out = t
		}
	}
	return out
}

// NotificationsStats returns the number of notifications for recipientID,
// how many are unread, and the latest change to anything the feed renders:
// the notifications themselves (read-state writes bump updated_at), their
// senders, posts and comments. latest is nil when there are no notifications.
func NotificationsStats(ctx context.Context, db *gorm.DB, recipientID string) (count, unread int64, latest *time.Time, err error) {
	base := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.Notification{}).Where("recipient_id = ?", recipientID)
	}

	if err = base().Count(&count).Error; err != nil {
		return 0, 0, nil, err
	}
	if count == 0 {
		return 0, 0, nil, nil
	}
	if err = base().Where("is_read = ?", false).Count(&unread).Error; err != nil {
		return 0, 0, nil, err
	}

	stamps := make([]*time.Time, 0, 4)
	for _, q := range []*gorm.DB{
		base(),
		db.WithContext(ctx).Model(&domain.User{}).Where("id IN (?)", base().Select("sender_id")),
		db.WithContext(ctx).Model(&domain.Post{}).Where("id IN (?)", base().Select("post_id")),
		db.WithContext(ctx).Model(&domain.Comment{}).Where("id IN (?)", base().Select("comment_id")),
	} {
		ts, err := latestUpdate(q)
		if err != nil {
			return 0, 0, nil, err
		}
		stamps = append(stamps, ts)
	}
	return count, unread, newest(stamps...), nil
}

// CommentsStats returns the comment count of postID and the latest change to
// its comments or their authors' profiles.
func CommentsStats(ctx context.Context, db *gorm.DB, postID string) (count int64, latest *time.Time, err error) {
	base := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.Comment{}).Where("post_id = ?", postID)
	}
	if err = base().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}
	comments, err := latestUpdate(base())
	if err != nil {
		return 0, nil, err
	}
	authors, err := latestUpdate(db.WithContext(ctx).Model(&domain.User{}).Where("id IN (?)", base().Select("user_id")))
	if err != nil {
		return 0, nil, err
	}
	return count, newest(comments, authors), nil
}
