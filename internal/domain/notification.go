package domain

import (
	"time"
)

// NotificationType enumerates the kinds of notification a user can receive.
type NotificationType string

const (
	NotificationComment NotificationType = "comment"
	NotificationLike    NotificationType = "like"
	NotificationFollow  NotificationType = "follow"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationComment, NotificationLike, NotificationFollow:
		return true
	}
	return false
}

// Notification is the durable record shown in a recipient's feed.
//
// Fields:
//   - RecipientID / SenderID: the notified user and the acting user.
//   - Type: comment, like, or follow.
//   - PostID: set for comment and like notifications.
//   - CommentID: set for comment notifications.
//   - IsRead: read state, toggled only through the action API. Every
//     read-state write moves UpdatedAt, which versions the feed.
//   - DedupKey: NULL for comments; otherwise a unique key that turns the
//     insert into an atomic create-if-not-exists (see LikeDedupKey,
//     FollowDedupKey).
//
// Rows are hard-deleted so that a removed like/follow notification frees its
// dedup key for a later like/follow.
type Notification struct {
	ID          string           `json:"id"                   gorm:"type:char(36);primaryKey"`
	RecipientID string           `json:"recipient_id"         gorm:"type:char(36);not null;index:idx_notif_recipient,priority:1"`
	SenderID    string           `json:"sender_id"            gorm:"type:char(36);not null;index"`
	Type        NotificationType `json:"notification_type"    gorm:"type:varchar(16);not null;check:type IN ('comment','like','follow')"`
	PostID      *string          `json:"post_id,omitempty"    gorm:"type:char(36);index"`
	CommentID   *string          `json:"comment_id,omitempty" gorm:"type:char(36)"`
	IsRead      bool             `json:"is_read"              gorm:"not null;default:false;index:idx_notif_recipient,priority:2"`
	DedupKey    *string          `json:"-"                    gorm:"type:varchar(160);uniqueIndex:ux_notif_dedup"`
	CreatedAt   time.Time        `json:"created_at"           gorm:"index:idx_notif_recipient,priority:3"`
	UpdatedAt   time.Time        `json:"-"`

	Recipient User     `json:"-"                 gorm:"foreignKey:RecipientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Sender    User     `json:"sender"            gorm:"foreignKey:SenderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Post      *Post    `json:"post,omitempty"    gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Comment   *Comment `json:"comment,omitempty" gorm:"foreignKey:CommentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

// LikeDedupKey is the uniqueness key of a like notification: at most one
// per (recipient, sender, post).
func LikeDedupKey(recipientID, senderID, postID string) string {
	return "like:" + recipientID + ":" + senderID + ":" + postID
}

// FollowDedupKey is the uniqueness key of a follow notification: at most
// one per (recipient, sender).
func FollowDedupKey(recipientID, senderID string) string {
	return "follow:" + recipientID + ":" + senderID
}
