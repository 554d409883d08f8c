// Package realtime implements live notification delivery over WebSockets.
//
// A Hub groups admitted connections by user ("user_<id>") and multicasts
// messages to every connection of a group without ever blocking the caller:
// each Client owns a bounded send buffer drained by its own write pump, and a
// client whose buffer is full is dropped rather than waited on.
//
// The Layer interface is what the rest of the application depends on. Hub is
// the in-process implementation; RedisLayer publishes through Redis pub/sub so
// that several server instances can share one logical channel layer, and
// FallbackLayer reverts to the Hub if that subscription is lost.
package realtime

import "context"

// Message types pushed to clients.
const (
	TypeCommentNotification  = "comment_notification"
	TypeFollowNotification   = "follow_notification"
	TypeUnfollowNotification = "unfollow_notification"
	TypeLikeNotification     = "like_notification"
	TypeCountUpdate          = "count_update"
)

// Message is the JSON frame delivered to a user's live connections.
// Count-only variants leave Message empty.
type Message struct {
	Type        string `json:"type"`
	Message     string `json:"message,omitempty"`
	UnreadCount int64  `json:"unread_count"`
}

// Layer multicasts a message to every live connection of a user.
// Implementations must be safe for concurrent use and must not block on slow
// connections. A user with no connections is not an error.
type Layer interface {
	GroupSend(ctx context.Context, userID string, msg Message) error
}

// GroupName returns the group a user's connections join.
func GroupName(userID string) string { return "user_" + userID }
