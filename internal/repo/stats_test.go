package repo

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/domain"
)

var (
	statsT0 = time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	statsT1 = time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	statsT2 = time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	statsT3 = time.Date(2025, 4, 5, 8, 0, 0, 0, time.UTC)
)

// agedUser seeds a user whose profile was last touched at statsT0.
func agedUser(t *testing.T, db *gorm.DB, id string) *domain.User {
	t.Helper()
	u := mustUser(t, db, id)
	if err := db.Model(u).UpdateColumn("updated_at", statsT0).Error; err != nil {
		t.Fatalf("age user %s: %v", id, err)
	}
	return u
}

func seedNotification(t *testing.T, db *gorm.DB, id, recipient, sender string, postID, commentID *string, read bool, at time.Time) {
	t.Helper()
	n := &domain.Notification{
		ID: id, RecipientID: recipient, SenderID: sender, Type: domain.NotificationLike,
		PostID: postID, CommentID: commentID, IsRead: read, CreatedAt: at, UpdatedAt: at,
	}
	if commentID != nil {
		n.Type = domain.NotificationComment
	}
	if err := db.Create(n).Error; err != nil {
		t.Fatalf("seed notification %s: %v", id, err)
	}
}

func TestNotificationsStats_CountError_NoTable(t *testing.T) {
	db := newBareDB(t)
	if _, _, _, err := NotificationsStats(context.Background(), db, "u1"); err == nil {
		t.Fatalf("expected error due to missing notifications table")
	}
}

func TestNotificationsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t)
	count, unread, latest, err := NotificationsStats(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("NotificationsStats error: %v", err)
	}
	if count != 0 || unread != 0 || latest != nil {
		t.Fatalf("expected (0, 0, nil), got (%d, %d, %v)", count, unread, latest)
	}
}

func TestNotificationsStats_FilterAndLatest(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	agedUser(t, db, "alice")
	agedUser(t, db, "bob")
	agedUser(t, db, "carol")
	p := mustPost(t, db, "p1", "alice", "hello", 0, statsT0)

	seedNotification(t, db, "n1", "alice", "bob", &p.ID, nil, false, statsT1)
	seedNotification(t, db, "n2", "alice", "carol", &p.ID, nil, true, statsT2)
	seedNotification(t, db, "n3", "bob", "alice", nil, nil, false, statsT3)

	count, unread, latest, err := NotificationsStats(ctx, db, "alice")
	if err != nil {
		t.Fatalf("NotificationsStats error: %v", err)
	}
	if count != 2 || unread != 1 {
		t.Fatalf("expected (2, 1), got (%d, %d)", count, unread)
	}
	if latest == nil || !latest.Equal(statsT2) {
		t.Fatalf("expected latest %v, got %v", statsT2, latest)
	}
}

func TestNotificationsStats_ReadStateWriteMovesLatest(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	agedUser(t, db, "alice")
	agedUser(t, db, "bob")
	seedNotification(t, db, "n1", "alice", "bob", nil, nil, true, statsT1)
	seedNotification(t, db, "n2", "alice", "bob", nil, nil, false, statsT1)

	_, _, before, err := NotificationsStats(ctx, db, "alice")
	if err != nil {
		t.Fatalf("NotificationsStats error: %v", err)
	}

	// Swap which row is read; count and unread stay the same.
	if err := SetNotificationRead(ctx, db, "n1", false); err != nil {
		t.Fatalf("mark unread: %v", err)
	}
	if err := SetNotificationRead(ctx, db, "n2", true); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	count, unread, after, err := NotificationsStats(ctx, db, "alice")
	if err != nil {
		t.Fatalf("NotificationsStats error: %v", err)
	}
	if count != 2 || unread != 1 {
		t.Fatalf("expected (2, 1), got (%d, %d)", count, unread)
	}
	if after == nil || !after.After(*before) {
		t.Fatalf("latest must move after a read-state write: before=%v after=%v", before, after)
	}
}

func TestNotificationsStats_FollowsReferencedRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	agedUser(t, db, "alice")
	agedUser(t, db, "bob")
	p := mustPost(t, db, "p1", "alice", "hello", 0, statsT0)
	c := &domain.Comment{ID: "c1", PostID: p.ID, UserID: "bob", Content: "hi", CreatedAt: statsT0, UpdatedAt: statsT0}
	if err := db.Omit("User", "Post").Create(c).Error; err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	seedNotification(t, db, "n1", "alice", "bob", &p.ID, &c.ID, false, statsT1)

	cases := []struct {
		name  string
		table string
		id    string
		at    time.Time
	}{
		{"post edit", "posts", "p1", statsT2},
		{"comment edit", "comments", "c1", statsT3},
		{"sender profile edit", "users", "bob", statsT3.Add(time.Hour)},
	}
	for _, tc := range cases {
		if err := db.Table(tc.table).Where("id = ?", tc.id).UpdateColumn("updated_at", tc.at).Error; err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		_, _, latest, err := NotificationsStats(ctx, db, "alice")
		if err != nil {
			t.Fatalf("%s: NotificationsStats error: %v", tc.name, err)
		}
		if latest == nil || !latest.Equal(tc.at) {
			t.Fatalf("%s: expected latest %v, got %v", tc.name, tc.at, latest)
		}
	}
}

func TestNotificationsStats_SelectLatest_ErrorPath(t *testing.T) {
	db := newTestDB(t)
	agedUser(t, db, "alice")
	agedUser(t, db, "bob")
	seedNotification(t, db, "n1", "alice", "bob", nil, nil, false, statsT1)

	if err := db.Exec(`ALTER TABLE notifications RENAME COLUMN updated_at TO updated_at_old`).Error; err != nil {
		t.Fatalf("rename column: %v", err)
	}
	if _, _, _, err := NotificationsStats(context.Background(), db, "alice"); err == nil {
		t.Fatalf("expected error from latest-updated select after column rename")
	}
}

func TestCommentsStats_CountError_NoTable(t *testing.T) {
	db := newBareDB(t)
	if _, _, err := CommentsStats(context.Background(), db, "p1"); err == nil {
		t.Fatalf("expected error due to missing comments table")
	}
}

func TestCommentsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t)
	count, latest, err := CommentsStats(context.Background(), db, "p1")
	if err != nil {
		t.Fatalf("CommentsStats error: %v", err)
	}
	if count != 0 || latest != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, latest)
	}
}

func TestCommentsStats_FilterAndLatest(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	agedUser(t, db, "alice")
	agedUser(t, db, "bob")
	p1 := mustPost(t, db, "p1", "alice", "one", 0, statsT0)
	p2 := mustPost(t, db, "p2", "alice", "two", 0, statsT0)

	for _, c := range []*domain.Comment{
		{ID: "c1", PostID: p1.ID, UserID: "bob", Content: "a", CreatedAt: statsT1, UpdatedAt: statsT1},
		{ID: "c2", PostID: p1.ID, UserID: "alice", Content: "b", CreatedAt: statsT1, UpdatedAt: statsT2},
		{ID: "c3", PostID: p2.ID, UserID: "bob", Content: "x", CreatedAt: statsT3, UpdatedAt: statsT3},
	} {
		if err := db.Omit("User", "Post").Create(c).Error; err != nil {
			t.Fatalf("seed comment %s: %v", c.ID, err)
		}
	}

	count, latest, err := CommentsStats(ctx, db, p1.ID)
	if err != nil {
		t.Fatalf("CommentsStats error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if latest == nil || !latest.Equal(statsT2) {
		t.Fatalf("expected latest %v, got %v", statsT2, latest)
	}

	// A commenter's profile edit changes how the thread renders.
	edited := statsT3.Add(time.Hour)
	if err := db.Model(&domain.User{}).Where("id = ?", "bob").UpdateColumn("updated_at", edited).Error; err != nil {
		t.Fatalf("edit profile: %v", err)
	}
	if _, latest, err = CommentsStats(ctx, db, p1.ID); err != nil || latest == nil || !latest.Equal(edited) {
		t.Fatalf("expected latest %v after profile edit, got %v (err=%v)", edited, latest, err)
	}
}
