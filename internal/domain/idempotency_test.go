// internal/domain/idempotency_test.go
package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestIdempotency_Migration_Indexes_AndInsert(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	m := db.Migrator()
	if !m.HasTable(&Idempotency{}) {
		t.Fatalf("expected table %q to exist", Idempotency{}.TableName())
	}
	if !m.HasIndex(&Idempotency{}, "ux_user_scope_key") {
		t.Fatalf("expected composite index ux_user_scope_key to exist")
	}

	now := time.Now().UTC()

	// NOT NULL constraints by behavior.
	for _, col := range []string{"user_id", "scope", "key", "resource_id", "status", "expires_at"} {
		vals := map[string]any{
			"id": "x-" + col, "user_id": "u1", "scope": "p1", "key": "k1",
			"resource_id": "c1", "status": 201, "created_at": now, "expires_at": now.Add(time.Hour),
		}
		vals[col] = nil
		err := db.Exec(`INSERT INTO idempotency ("id","user_id","scope","key","resource_id","status","created_at","expires_at")
		                VALUES (?,?,?,?,?,?,?,?)`,
			vals["id"], vals["user_id"], vals["scope"], vals["key"], vals["resource_id"], vals["status"], vals["created_at"], vals["expires_at"]).Error
		if err == nil {
			t.Fatalf("expected NOT NULL violation when inserting NULL into %q", col)
		}
	}

	rec := &Idempotency{
		ID:         "id-1",
		UserID:     "u1",
		Scope:      "p1",
		Key:        "k1",
		ResourceID: "c1",
		Status:     201,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("insert valid: %v", err)
	}

	var got Idempotency
	if err := db.First(&got, "id = ?", "id-1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.UserID != "u1" || got.Scope != "p1" || got.Key != "k1" || got.ResourceID != "c1" || got.Status != 201 {
		t.Fatalf("unexpected row: %+v", got)
	}

	// (user_id, scope, key) must be unique.
	dup := &Idempotency{ID: "id-2", UserID: "u1", Scope: "p1", Key: "k1", ResourceID: "c2", Status: 201, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected UNIQUE constraint violation on (user_id, scope, key)")
	}

	// Same key under another scope is fine.
	other := &Idempotency{ID: "id-3", UserID: "u1", Scope: "p2", Key: "k1", ResourceID: "c3", Status: 201, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("insert other scope: %v", err)
	}
}
