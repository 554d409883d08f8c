package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-social-backend/internal/domain"
	"github.com/tbourn/go-social-backend/internal/realtime"
	"github.com/tbourn/go-social-backend/internal/repo"
)

func TestDispatch_CommentCreated_StoresThenPushesCount(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	author := mkUser(t, db, "author")
	alice := mkUser(t, db, "alice")
	post := mkPost(t, db, author.ID, "Hello")
	c, err := repo.CreateComment(ctx, db, post.ID, alice.ID, nil, "nice")
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}

	layer := &recordingLayer{}
	d := newTestDispatcher(db, layer)
	ev := Event{Type: EventCommentCreated, ActorID: alice.ID, TargetID: author.ID, PostID: post.ID, CommentID: c.ID}
	if err := d.Dispatch(ctx, ev); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	items, _ := repo.ListNotifications(ctx, db, author.ID)
	if len(items) != 1 || items[0].Type != domain.NotificationComment || items[0].SenderID != alice.ID {
		t.Fatalf("unexpected notifications: %+v", items)
	}
	if items[0].CommentID == nil || *items[0].CommentID != c.ID {
		t.Fatalf("comment id not recorded: %+v", items[0])
	}

	got := layer.last(t)
	if got.UserID != author.ID || got.Msg.Type != realtime.TypeCommentNotification {
		t.Fatalf("unexpected push: %+v", got)
	}
	if got.Msg.Message != `alice commented on your post "Hello"` {
		t.Fatalf("message = %q", got.Msg.Message)
	}
	if got.Msg.UnreadCount != 1 || got.Msg.UnreadCount != unread(t, db, author.ID) {
		t.Fatalf("pushed count %d does not match store", got.Msg.UnreadCount)
	}
}

func TestDispatch_SelfActionsAreSkipped(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	u := mkUser(t, db, "solo")
	post := mkPost(t, db, u.ID, "Mine")

	layer := &recordingLayer{}
	d := newTestDispatcher(db, layer)

	before := testutil.ToFloat64(dispatched.WithLabelValues(string(EventLikeAdded), outcomeSkippedSelf))
	for _, ev := range []Event{
		{Type: EventCommentCreated, ActorID: u.ID, TargetID: u.ID, PostID: post.ID},
		{Type: EventLikeAdded, ActorID: u.ID, TargetID: u.ID, PostID: post.ID},
		{Type: EventLikeRemoved, ActorID: u.ID, TargetID: u.ID, PostID: post.ID},
		{Type: EventFollowCreated, ActorID: u.ID, TargetID: u.ID},
	} {
		if err := d.Dispatch(ctx, ev); err != nil {
			t.Fatalf("dispatch %s: %v", ev.Type, err)
		}
	}
	if n, _ := repo.CountNotifications(ctx, db, u.ID); n != 0 {
		t.Fatalf("self actions must not notify, got %d rows", n)
	}
	if len(layer.all()) != 0 {
		t.Fatalf("self actions must not push, got %+v", layer.all())
	}
	after := testutil.ToFloat64(dispatched.WithLabelValues(string(EventLikeAdded), outcomeSkippedSelf))
	if after-before != 1 {
		t.Fatalf("skipped_self metric delta = %v; want 1", after-before)
	}
}

func TestDispatch_LikeDedupAndRemoval(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	author := mkUser(t, db, "author")
	bob := mkUser(t, db, "bob")
	post := mkPost(t, db, author.ID, "Cats")

	layer := &recordingLayer{}
	d := newTestDispatcher(db, layer)
	like := Event{Type: EventLikeAdded, ActorID: bob.ID, TargetID: author.ID, PostID: post.ID}

	if err := d.Dispatch(ctx, like); err != nil {
		t.Fatalf("first like: %v", err)
	}
	if got := layer.last(t); got.Msg.Type != realtime.TypeLikeNotification || got.Msg.Message != `bob liked your post "Cats"` || got.Msg.UnreadCount != 1 {
		t.Fatalf("unexpected like push: %+v", got)
	}

	dupBefore := testutil.ToFloat64(dispatched.WithLabelValues(string(EventLikeAdded), outcomeDuplicate))
	if err := d.Dispatch(ctx, like); err != nil {
		t.Fatalf("repeat like: %v", err)
	}
	if n, _ := repo.CountNotifications(ctx, db, author.ID); n != 1 {
		t.Fatalf("repeat like must not add a row, got %d", n)
	}
	if len(layer.all()) != 1 {
		t.Fatalf("repeat like must not push, got %d pushes", len(layer.all()))
	}
	if delta := testutil.ToFloat64(dispatched.WithLabelValues(string(EventLikeAdded), outcomeDuplicate)) - dupBefore; delta != 1 {
		t.Fatalf("duplicate metric delta = %v", delta)
	}

	unlike := Event{Type: EventLikeRemoved, ActorID: bob.ID, TargetID: author.ID, PostID: post.ID}
	if err := d.Dispatch(ctx, unlike); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if n, _ := repo.CountNotifications(ctx, db, author.ID); n != 0 {
		t.Fatalf("unlike must remove the like notification, got %d", n)
	}
	if got := layer.last(t); got.Msg.Type != realtime.TypeCountUpdate || got.Msg.UnreadCount != 0 || got.Msg.Message != "" {
		t.Fatalf("unexpected unlike push: %+v", got)
	}

	// Liking again after an unlike notifies again.
	if err := d.Dispatch(ctx, like); err != nil {
		t.Fatalf("re-like: %v", err)
	}
	if got := layer.last(t); got.Msg.Type != realtime.TypeLikeNotification || got.Msg.UnreadCount != 1 {
		t.Fatalf("unexpected re-like push: %+v", got)
	}
}

func TestDispatch_LikeDedupIsPerPost(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	author := mkUser(t, db, "author")
	bob := mkUser(t, db, "bob")
	p1 := mkPost(t, db, author.ID, "one")
	p2 := mkPost(t, db, author.ID, "two")

	d := newTestDispatcher(db, &recordingLayer{})
	for _, p := range []string{p1.ID, p2.ID} {
		if err := d.Dispatch(ctx, Event{Type: EventLikeAdded, ActorID: bob.ID, TargetID: author.ID, PostID: p}); err != nil {
			t.Fatalf("like %s: %v", p, err)
		}
	}
	if got := unread(t, db, author.ID); got != 2 {
		t.Fatalf("unread = %d; want 2", got)
	}
}

func TestDispatch_FollowUnfollowRoundTrip(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	carol := mkUser(t, db, "carol")
	dave := mkUser(t, db, "dave")

	layer := &recordingLayer{}
	d := newTestDispatcher(db, layer)

	follow := Event{Type: EventFollowCreated, ActorID: dave.ID, TargetID: carol.ID}
	if err := d.Dispatch(ctx, follow); err != nil {
		t.Fatalf("follow: %v", err)
	}
	got := layer.last(t)
	if got.Msg.Type != realtime.TypeFollowNotification || got.Msg.Message != "dave started following you" || got.Msg.UnreadCount != 1 {
		t.Fatalf("unexpected follow push: %+v", got)
	}

	// A second follow event for the same pair is deduplicated.
	if err := d.Dispatch(ctx, follow); err != nil {
		t.Fatalf("repeat follow: %v", err)
	}
	if len(layer.all()) != 1 {
		t.Fatalf("repeat follow must not push")
	}

	if err := d.Dispatch(ctx, Event{Type: EventFollowRemoved, ActorID: dave.ID, TargetID: carol.ID}); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	if n, _ := repo.CountNotifications(ctx, db, carol.ID); n != 0 {
		t.Fatalf("unfollow must delete the follow notification, got %d", n)
	}
	got = layer.last(t)
	if got.Msg.Type != realtime.TypeUnfollowNotification || got.Msg.UnreadCount != 0 {
		t.Fatalf("unexpected unfollow push: %+v", got)
	}

	// Following again after the round trip notifies again.
	if err := d.Dispatch(ctx, follow); err != nil {
		t.Fatalf("re-follow: %v", err)
	}
	if got := layer.last(t); got.Msg.Type != realtime.TypeFollowNotification || got.Msg.UnreadCount != 1 {
		t.Fatalf("unexpected re-follow push: %+v", got)
	}
}

func TestDispatch_UnreadCountTracksReadState(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	author := mkUser(t, db, "author")
	bob := mkUser(t, db, "bob")
	p1 := mkPost(t, db, author.ID, "one")
	p2 := mkPost(t, db, author.ID, "two")

	layer := &recordingLayer{}
	d := newTestDispatcher(db, layer)

	_ = d.Dispatch(ctx, Event{Type: EventLikeAdded, ActorID: bob.ID, TargetID: author.ID, PostID: p1.ID})
	if _, err := repo.MarkAllRead(ctx, db, author.ID); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	_ = d.Dispatch(ctx, Event{Type: EventLikeAdded, ActorID: bob.ID, TargetID: author.ID, PostID: p2.ID})

	// Two rows, one unread: the pushed count follows the store, not the event tally.
	if got := layer.last(t).Msg.UnreadCount; got != 1 {
		t.Fatalf("pushed unread = %d; want 1", got)
	}
	if n, _ := repo.CountNotifications(ctx, db, author.ID); n != 2 {
		t.Fatalf("rows = %d; want 2", n)
	}
}

func TestDispatch_OfflineRecipientStillStored(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	author := mkUser(t, db, "author")
	bob := mkUser(t, db, "bob")
	post := mkPost(t, db, author.ID, "quiet")

	hub := realtime.NewHub(realtime.DefaultOptions(), zerolog.Nop())
	defer hub.Close()
	d := newTestDispatcher(db, hub)

	if err := d.Dispatch(ctx, Event{Type: EventLikeAdded, ActorID: bob.ID, TargetID: author.ID, PostID: post.ID}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := unread(t, db, author.ID); got != 1 {
		t.Fatalf("offline recipient should still have 1 unread, got %d", got)
	}
}

func TestDispatch_DeliveryFailureIsNotAnError(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	carol := mkUser(t, db, "carol")
	dave := mkUser(t, db, "dave")

	layer := &recordingLayer{err: errBoom}
	d := newTestDispatcher(db, layer)
	if err := d.Dispatch(ctx, Event{Type: EventFollowCreated, ActorID: dave.ID, TargetID: carol.ID}); err != nil {
		t.Fatalf("delivery failure must not fail dispatch: %v", err)
	}
	if got := unread(t, db, carol.ID); got != 1 {
		t.Fatalf("notification must be stored, unread = %d", got)
	}
}

func TestDispatch_StoreFailureSkipsDelivery(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	carol := mkUser(t, db, "carol")
	dave := mkUser(t, db, "dave")
	if err := db.Migrator().DropTable(&domain.Notification{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	layer := &recordingLayer{}
	d := newTestDispatcher(db, layer)
	err := d.Dispatch(ctx, Event{Type: EventFollowCreated, ActorID: dave.ID, TargetID: carol.ID})
	if err == nil {
		t.Fatalf("expected store error")
	}
	if len(layer.all()) != 0 {
		t.Fatalf("no push expected after a store failure")
	}

	// Emit swallows the same failure.
	d.Emit(ctx, Event{Type: EventFollowCreated, ActorID: dave.ID, TargetID: carol.ID})
}

func TestDispatch_CanceledCallerContextDoesNotAbortWork(t *testing.T) {
	db := newServiceDB(t)
	author := mkUser(t, db, "author")
	bob := mkUser(t, db, "bob")
	post := mkPost(t, db, author.ID, "late")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newTestDispatcher(db, &recordingLayer{})
	if err := d.Dispatch(ctx, Event{Type: EventLikeAdded, ActorID: bob.ID, TargetID: author.ID, PostID: post.ID}); err != nil {
		t.Fatalf("dispatch on canceled ctx: %v", err)
	}
	if got := unread(t, db, author.ID); got != 1 {
		t.Fatalf("unread = %d; want 1", got)
	}
}

func TestDispatch_EnrichmentFallbacks(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	author := mkUser(t, db, "author")
	bob := mkUser(t, db, "bob")
	post := mkPost(t, db, author.ID, "x")

	layer := &recordingLayer{}
	d := &Dispatcher{DB: db, Layer: layer, Log: zerolog.Nop()}
	if err := d.Dispatch(ctx, Event{Type: EventLikeAdded, ActorID: bob.ID, TargetID: author.ID, PostID: post.ID}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := layer.last(t).Msg.Message; got != "Someone liked your post" {
		t.Fatalf("message = %q", got)
	}
}

func TestDispatch_UnknownEvent(t *testing.T) {
	db := newServiceDB(t)
	d := newTestDispatcher(db, &recordingLayer{})
	if err := d.Dispatch(context.Background(), Event{Type: "poke"}); err == nil {
		t.Fatalf("expected error for unknown event type")
	}
}

func TestClipSnippet(t *testing.T) {
	if got := clipSnippet("short", 60); got != "short" {
		t.Fatalf("clipSnippet(short) = %q", got)
	}
	long := strings.Repeat("é", 80)
	got := clipSnippet(long, 60)
	if r := []rune(got); len(r) != 60 || r[59] != '…' {
		t.Fatalf("clipSnippet long: %d runes, last %q", len(r), r[len(r)-1])
	}
	// Decomposed input is composed before counting.
	if got := clipSnippet("e\u0301", 60); got != "\u00e9" {
		t.Fatalf("clipSnippet NFC = %q", got)
	}
}

// End to end: domain services emitting straight into the dispatcher.
func TestScenarios_ThroughDomainServices(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	author := mkUser(t, db, "author")
	alice := mkUser(t, db, "alice")
	bob := mkUser(t, db, "bob")
	post := mkPost(t, db, author.ID, "Hello")

	layer := &recordingLayer{}
	d := newTestDispatcher(db, layer)
	comments := &CommentService{DB: db, Events: d}
	likes := &LikeService{DB: db, Events: d}
	follows := &FollowService{DB: db, Events: d}

	if _, err := comments.Create(ctx, alice.ID, post.ID, nil, "first!"); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if _, err := likes.Toggle(ctx, bob.ID, post.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := follows.Follow(ctx, bob.ID, author.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if got := unread(t, db, author.ID); got != 3 {
		t.Fatalf("unread = %d; want 3", got)
	}
	if got := layer.last(t).Msg.UnreadCount; got != 3 {
		t.Fatalf("last pushed count = %d; want 3", got)
	}

	if _, err := likes.Toggle(ctx, bob.ID, post.ID); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if err := follows.Unfollow(ctx, bob.ID, author.ID); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	if got := unread(t, db, author.ID); got != 1 {
		t.Fatalf("unread after reversals = %d; want 1", got)
	}
	if got := layer.last(t); got.Msg.Type != realtime.TypeUnfollowNotification || got.Msg.UnreadCount != 1 {
		t.Fatalf("unexpected last push: %+v", got)
	}
}

func TestDispatch_ConcurrentDuplicatesStoreOneRow(t *testing.T) {
	db := newFileServiceDB(t)
	author := mkUser(t, db, "author")
	alice := mkUser(t, db, "alice")
	post := mkPost(t, db, author.ID, "Hello")
	d := newTestDispatcher(db, &recordingLayer{})

	cases := []struct {
		name string
		ev   Event
		typ  domain.NotificationType
	}{
		{"like", Event{Type: EventLikeAdded, ActorID: alice.ID, TargetID: author.ID, PostID: post.ID}, domain.NotificationLike},
		{"follow", Event{Type: EventFollowCreated, ActorID: alice.ID, TargetID: author.ID}, domain.NotificationFollow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			const racers = 8
			var (
				wg    sync.WaitGroup
				start = make(chan struct{})
				errs  = make(chan error, racers)
			)
			for i := 0; i < racers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					errs <- d.Dispatch(context.Background(), tc.ev)
				}()
			}
			close(start)
			wg.Wait()
			close(errs)
			for err := range errs {
				if err != nil {
					t.Fatalf("dispatch: %v", err)
				}
			}

			var rows int64
			db.Model(&domain.Notification{}).
				Where("recipient_id = ? AND sender_id = ? AND type = ?", author.ID, alice.ID, tc.typ).
				Count(&rows)
			if rows != 1 {
				t.Fatalf("%d concurrent %s dispatches stored %d rows; want 1", racers, tc.name, rows)
			}
		})
	}
	if n := unread(t, db, author.ID); n != 2 {
		t.Fatalf("unread = %d; want 2", n)
	}
}
