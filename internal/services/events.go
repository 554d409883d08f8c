package services

import "context"

// EventType names a notification-worthy domain occurrence.
type EventType string

const (
	EventCommentCreated EventType = "comment_created"
	EventFollowCreated  EventType = "follow_created"
	EventFollowRemoved  EventType = "follow_removed"
	EventLikeAdded      EventType = "like_added"
	EventLikeRemoved    EventType = "like_removed"
)

// Event is emitted by domain services after their own write has committed.
//
// ActorID is the user who acted (commenter, follower, liker); TargetID is the
// user affected (post author, followed user). PostID is set for comment and
// like events, CommentID for comment events.
type Event struct {
	Type      EventType
	ActorID   string
	TargetID  string
	PostID    string
	CommentID string
}

// Emitter receives domain events. Emit must not fail or noticeably delay the
// domain action that produced the event.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, ev Event)

// Emit calls f.
func (f EmitterFunc) Emit(ctx context.Context, ev Event) { f(ctx, ev) }

func emit(e Emitter, ctx context.Context, ev Event) {
	if e != nil {
		e.Emit(ctx, ev)
	}
}
