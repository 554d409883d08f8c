// Package services – Dispatcher
//
// The Dispatcher is the notification rules engine. For every domain event it
// applies the self-action guard and the dedup rule, writes or deletes the
// notification row, recomputes the recipient's unread count from the store,
// and multicasts the result over the injected realtime.Layer, in that order.
//
// Only the store step can fail a dispatch. Count and delivery failures are
// logged and swallowed, and enrichment failures degrade the message text.
package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/domain"
	"github.com/tbourn/go-social-backend/internal/realtime"
	"github.com/tbourn/go-social-backend/internal/repo"
)

const (
	defaultDispatchTimeout = 5 * time.Second
	snippetMaxRunes        = 60
	fallbackActor          = "Someone"
)

// Dispatcher turns domain events into stored notifications and live updates.
type Dispatcher struct {
	DB      *gorm.DB
	Layer   realtime.Layer
	Users   realtime.UserDirectory
	Content ContentLookup
	Timeout time.Duration
	Log     zerolog.Logger
}

// Emit evaluates ev synchronously and never reports failure to the caller.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	_ = d.Dispatch(ctx, ev)
}

// Dispatch evaluates ev once. The work runs on a context detached from the
// caller's cancellation and bounded by Timeout, so an aborted request does not
// cut notification work short. The returned error covers the store step only.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	tr := otel.Tracer("services/Dispatcher")
	ctx, span := tr.Start(ctx, "Dispatch",
		trace.WithAttributes(
			attribute.String("event.type", string(ev.Type)),
			attribute.String("actor.id", ev.ActorID),
			attribute.String("target.id", ev.TargetID),
		),
	)
	defer span.End()

	lg := d.Log.With().
		Str("event", string(ev.Type)).
		Str("actor_id", ev.ActorID).
		Str("target_id", ev.TargetID).
		Logger()

	outcome, err := d.apply(ctx, ev, lg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		lg.Error().Err(err).Msg("notification dispatch failed")
		outcome = outcomeError
	}
	dispatched.WithLabelValues(string(ev.Type), outcome).Inc()
	return err
}

func (d *Dispatcher) apply(ctx context.Context, ev Event, lg zerolog.Logger) (string, error) {
	switch ev.Type {
	case EventCommentCreated:
		if ev.ActorID == ev.TargetID {
			return outcomeSkippedSelf, nil
		}
		n := &domain.Notification{
			RecipientID: ev.TargetID,
			SenderID:    ev.ActorID,
			Type:        domain.NotificationComment,
			PostID:      optional(ev.PostID),
			CommentID:   optional(ev.CommentID),
		}
		if _, err := repo.CreateNotification(ctx, d.DB, n); err != nil {
			return "", fmt.Errorf("create comment notification: %w", err)
		}
		msg := fmt.Sprintf("%s commented on your post%s", d.actorName(ctx, ev.ActorID, lg), d.postSuffix(ctx, ev.PostID, lg))
		d.push(ctx, ev.TargetID, realtime.TypeCommentNotification, msg, lg)
		return outcomeCreated, nil

	case EventFollowCreated:
		if ev.ActorID == ev.TargetID {
			return outcomeSkippedSelf, nil
		}
		key := domain.FollowDedupKey(ev.TargetID, ev.ActorID)
		created, err := repo.CreateNotification(ctx, d.DB, &domain.Notification{
			RecipientID: ev.TargetID,
			SenderID:    ev.ActorID,
			Type:        domain.NotificationFollow,
			DedupKey:    &key,
		})
		if err != nil {
			return "", fmt.Errorf("create follow notification: %w", err)
		}
		if !created {
			return outcomeDuplicate, nil
		}
		msg := d.actorName(ctx, ev.ActorID, lg) + " started following you"
		d.push(ctx, ev.TargetID, realtime.TypeFollowNotification, msg, lg)
		return outcomeCreated, nil

	case EventFollowRemoved:
		if _, err := repo.DeleteNotificationsBy(ctx, d.DB, ev.TargetID, ev.ActorID, domain.NotificationFollow, nil); err != nil {
			return "", fmt.Errorf("delete follow notification: %w", err)
		}
		d.push(ctx, ev.TargetID, realtime.TypeUnfollowNotification, "", lg)
		return outcomeDeleted, nil

	case EventLikeAdded:
		if ev.ActorID == ev.TargetID {
			return outcomeSkippedSelf, nil
		}
		key := domain.LikeDedupKey(ev.TargetID, ev.ActorID, ev.PostID)
		created, err := repo.CreateNotification(ctx, d.DB, &domain.Notification{
			RecipientID: ev.TargetID,
			SenderID:    ev.ActorID,
			Type:        domain.NotificationLike,
			PostID:      optional(ev.PostID),
			DedupKey:    &key,
		})
		if err != nil {
			return "", fmt.Errorf("create like notification: %w", err)
		}
		if !created {
			return outcomeDuplicate, nil
		}
		msg := fmt.Sprintf("%s liked your post%s", d.actorName(ctx, ev.ActorID, lg), d.postSuffix(ctx, ev.PostID, lg))
		d.push(ctx, ev.TargetID, realtime.TypeLikeNotification, msg, lg)
		return outcomeCreated, nil

	case EventLikeRemoved:
		if ev.ActorID == ev.TargetID {
			return outcomeSkippedSelf, nil
		}
		if _, err := repo.DeleteNotificationsBy(ctx, d.DB, ev.TargetID, ev.ActorID, domain.NotificationLike, optional(ev.PostID)); err != nil {
			return "", fmt.Errorf("delete like notification: %w", err)
		}
		d.push(ctx, ev.TargetID, realtime.TypeCountUpdate, "", lg)
		return outcomeDeleted, nil
	}
	return "", fmt.Errorf("unknown event type %q", ev.Type)
}

// push recomputes the recipient's unread count and multicasts it.
func (d *Dispatcher) push(ctx context.Context, recipientID, typ, text string, lg zerolog.Logger) {
	count, err := repo.CountUnread(ctx, d.DB, recipientID)
	if err != nil {
		lg.Warn().Err(err).Msg("unread count recomputation failed; live update skipped")
		return
	}
	if d.Layer == nil {
		return
	}
	msg := realtime.Message{Type: typ, Message: text, UnreadCount: count}
	if err := d.Layer.GroupSend(ctx, recipientID, msg); err != nil {
		lg.Warn().Err(err).Str("type", typ).Msg("live delivery failed")
	}
}

func (d *Dispatcher) actorName(ctx context.Context, userID string, lg zerolog.Logger) string {
	if d.Users == nil {
		return fallbackActor
	}
	u, err := d.Users.LookupUser(ctx, userID)
	if err != nil {
		lg.Warn().Err(err).Msg("actor lookup failed")
		return fallbackActor
	}
	if u == nil || u.Username == "" {
		return fallbackActor
	}
	return u.Username
}

// postSuffix renders ` "<title>"` or nothing when the title is unavailable.
func (d *Dispatcher) postSuffix(ctx context.Context, postID string, lg zerolog.Logger) string {
	if d.Content == nil || postID == "" {
		return ""
	}
	p, err := d.Content.PostSnippet(ctx, postID)
	if err != nil {
		lg.Warn().Err(err).Str("post_id", postID).Msg("post lookup failed")
		return ""
	}
	if p.Title == "" {
		return ""
	}
	return ` "` + clipSnippet(p.Title, snippetMaxRunes) + `"`
}

// clipSnippet NFC-normalizes s and cuts it to max runes, marking the cut.
func clipSnippet(s string, max int) string {
	s = norm.NFC.String(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ Emitter = (*Dispatcher)(nil)
