package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type countingLayer struct {
	mu    sync.Mutex
	users []string
}

func (l *countingLayer) GroupSend(_ context.Context, userID string, _ Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users = append(l.users, userID)
	return nil
}

func (l *countingLayer) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}

func TestFallbackLayer_SwitchesOnceDegraded(t *testing.T) {
	primary, local := &countingLayer{}, &countingLayer{}
	f := NewFallbackLayer(primary, local, zerolog.Nop())
	ctx := context.Background()

	_ = f.GroupSend(ctx, "a", Message{Type: TypeCountUpdate})
	before := testutil.ToFloat64(layerFallbacks)
	f.Degrade(errors.New("boom"))
	f.Degrade(errors.New("again"))
	_ = f.GroupSend(ctx, "a", Message{Type: TypeCountUpdate})

	if primary.count() != 1 || local.count() != 1 || !f.Degraded() {
		t.Fatalf("primary=%d local=%d degraded=%v", primary.count(), local.count(), f.Degraded())
	}
	if got := testutil.ToFloat64(layerFallbacks) - before; got != 1 {
		t.Fatalf("fallback metric delta = %v; want 1", got)
	}
}

func TestFallbackLayer_Supervise(t *testing.T) {
	cases := []struct {
		name      string
		run       func(ctx context.Context, cancel context.CancelFunc) error
		wantErr   bool
		degrading bool
	}{
		{
			name:      "subscriber fails",
			run:       func(context.Context, context.CancelFunc) error { return errors.New("psubscribe refused") },
			wantErr:   true,
			degrading: true,
		},
		{
			name:      "subscriber returns early",
			run:       func(context.Context, context.CancelFunc) error { return nil },
			wantErr:   true,
			degrading: true,
		},
		{
			name: "shutdown",
			run: func(ctx context.Context, cancel context.CancelFunc) error {
				cancel()
				<-ctx.Done()
				return nil
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFallbackLayer(&countingLayer{}, &countingLayer{}, zerolog.Nop())
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := f.Supervise(ctx, func(ctx context.Context) error { return tc.run(ctx, cancel) })
			if (err != nil) != tc.wantErr {
				t.Fatalf("Supervise err = %v; wantErr %v", err, tc.wantErr)
			}
			if f.Degraded() != tc.degrading {
				t.Fatalf("degraded = %v; want %v", f.Degraded(), tc.degrading)
			}
		})
	}
}

func TestFallbackLayer_LostRedisDeliversLocally(t *testing.T) {
	h := newTestHub(Options{})
	c := fakeClient(h, "a")
	_ = h.Register(c)

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	rl := NewRedisLayer(rdb, h, zerolog.Nop())
	f := NewFallbackLayer(rl, h, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.Supervise(ctx, rl.Run); err == nil {
		t.Fatalf("expected the subscriber to fail")
	}

	if err := f.GroupSend(ctx, "a", Message{Type: TypeCountUpdate, UnreadCount: 2}); err != nil {
		t.Fatalf("GroupSend after fallback: %v", err)
	}
	select {
	case frame := <-c.send:
		if string(frame) != `{"type":"count_update","unread_count":2}` {
			t.Fatalf("frame = %s", frame)
		}
	default:
		t.Fatalf("message was not delivered to the local connection")
	}
}
