package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-social-backend/internal/domain"
	"github.com/tbourn/go-social-backend/internal/realtime"
	"github.com/tbourn/go-social-backend/internal/repo"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// newFileServiceDB opens a WAL database file through repo.OpenSQLite, for
// tests that write from several goroutines at once.
func newFileServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func mkUser(t *testing.T, db *gorm.DB, username string) *domain.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), db, username, username+"@example.com", "x")
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func mkPost(t *testing.T, db *gorm.DB, authorID, title string) *domain.Post {
	t.Helper()
	p, err := repo.CreatePost(context.Background(), db, authorID, title, "body of "+title)
	if err != nil {
		t.Fatalf("create post %s: %v", title, err)
	}
	return p
}

func unread(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	n, err := repo.CountUnread(context.Background(), db, userID)
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	return n
}

type sentMessage struct {
	UserID string
	Msg    realtime.Message
}

// recordingLayer captures GroupSend calls.
type recordingLayer struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (l *recordingLayer) GroupSend(_ context.Context, userID string, msg realtime.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, sentMessage{UserID: userID, Msg: msg})
	return l.err
}

func (l *recordingLayer) all() []sentMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sentMessage(nil), l.sent...)
}

func (l *recordingLayer) last(t *testing.T) sentMessage {
	t.Helper()
	all := l.all()
	if len(all) == 0 {
		t.Fatalf("expected at least one pushed message")
	}
	return all[len(all)-1]
}

// recordingEmitter captures emitted events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []Event
}

func (e *recordingEmitter) Emit(_ context.Context, ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *recordingEmitter) all() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Event(nil), e.events...)
}

func newTestDispatcher(db *gorm.DB, layer realtime.Layer) *Dispatcher {
	dir := &Directory{DB: db}
	return &Dispatcher{DB: db, Layer: layer, Users: dir, Content: dir, Log: zerolog.Nop()}
}

var errBoom = errors.New("boom")
