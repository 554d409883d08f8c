// Command server runs the social backend: REST API, notification pipeline
// and the live notification WebSocket.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/config"
	httpapi "github.com/tbourn/go-social-backend/internal/http"
	"github.com/tbourn/go-social-backend/internal/observability"
	"github.com/tbourn/go-social-backend/internal/realtime"
	"github.com/tbourn/go-social-backend/internal/repo"
	"github.com/tbourn/go-social-backend/internal/services"
	"github.com/tbourn/go-social-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

const purgeInterval = 10 * time.Minute

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	build := observability.Build{Version: version, InstanceID: observability.NewInstanceID()}
	lg := observability.NewLogger(cfg, build, os.Stdout)

	if err := run(cfg, build, lg); err != nil {
		lg.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg config.Config, build observability.Build, lg zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, build)
	if err != nil {
		return err
	}

	db, err := repo.Open(repo.Options{
		Driver:  cfg.DBDriver,
		Path:    cfg.DBPath,
		URL:     cfg.DatabaseURL,
		Tracing: cfg.OTEL.Enabled,
	})
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	secret, generated, err := ensureSecret(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}
	if generated {
		lg.Warn().Msg("JWT_SECRET not set; using an ephemeral secret, tokens will not survive a restart")
	}
	cfg.Auth.JWTSecret = secret

	hub := realtime.NewHub(hubOptions(cfg.WS), lg)
	live := startDelivery(ctx, cfg.Redis, hub, lg)

	dir := &services.Directory{DB: db}
	dispatcher := &services.Dispatcher{
		DB:      db,
		Layer:   live.layer,
		Users:   dir,
		Content: dir,
		Timeout: cfg.Dispatch.Timeout,
		Log:     lg.With().Str("component", "dispatcher").Logger(),
	}
	queue := services.NewDispatchQueue(dispatcher, cfg.Dispatch.Workers, cfg.Dispatch.Buffer, lg)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, httpapi.Realtime{Hub: hub, Layer: live.layer, Events: queue}, cfg)

	go purgeIdempotency(ctx, db, purgeInterval, lg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", srv.Addr).Str("db_driver", cfg.DBDriver).
			Bool("redis", live.rdb != nil).Int("dispatch_workers", cfg.Dispatch.Workers).
			Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		lg.Info().Msg("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		lg.Error().Err(err).Msg("http shutdown")
	}
	// Drain pending notifications before live connections go away. The
	// Redis subscriber stays up until then so drained events still reach
	// this instance's sockets.
	if err := queue.Close(sctx); err != nil {
		lg.Error().Err(err).Msg("dispatch queue drain")
	}
	live.stop(sctx)
	hub.Close()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownOTel(sctx); err != nil {
		lg.Error().Err(err).Msg("otel shutdown")
	}
	return nil
}

// delivery is the live-delivery stack: the local hub, or a Redis layer in
// front of it whose subscriber runs on its own context.
type delivery struct {
	layer  realtime.Layer
	rdb    *redis.Client
	cancel context.CancelFunc
	done   chan struct{}
}

// startDelivery returns the hub alone when Redis is not configured or does
// not answer a ping. Otherwise it starts the Redis subscriber under a
// FallbackLayer, so losing the subscription later reverts to the hub.
func startDelivery(ctx context.Context, rc config.RedisConfig, hub *realtime.Hub, lg zerolog.Logger) *delivery {
	d := &delivery{layer: hub, cancel: func() {}, done: make(chan struct{})}
	if rc.Addr == "" {
		close(d.done)
		return d
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		lg.Warn().Err(err).Str("addr", rc.Addr).Msg("redis unreachable; delivering to local connections only")
		_ = rdb.Close()
		close(d.done)
		return d
	}

	rl := realtime.NewRedisLayer(rdb, hub, lg)
	fl := realtime.NewFallbackLayer(rl, hub, lg)
	rctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(d.done)
		_ = fl.Supervise(rctx, rl.Run)
	}()
	d.layer, d.rdb, d.cancel = fl, rdb, cancel
	return d
}

// stop cancels the subscriber, waits for it until ctx expires, and closes
// the Redis client.
func (d *delivery) stop(ctx context.Context) {
	d.cancel()
	select {
	case <-d.done:
	case <-ctx.Done():
	}
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
}

// ensureSecret returns s, or a random 32-byte hex secret when s is empty.
func ensureSecret(s string) (string, bool, error) {
	if s != "" {
		return s, false, nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", false, err
	}
	return hex.EncodeToString(b), true, nil
}

func hubOptions(ws config.WSConfig) realtime.Options {
	opts := realtime.DefaultOptions()
	if ws.SendBuffer > 0 {
		opts.SendBuffer = ws.SendBuffer
	}
	if ws.WriteTimeout > 0 {
		opts.WriteTimeout = ws.WriteTimeout
	}
	if ws.PongWait > 0 {
		opts.PongWait = ws.PongWait
		opts.PingPeriod = ws.PongWait * 9 / 10
	}
	return opts
}

// purgeIdempotency deletes expired idempotency records every interval until
// ctx is done. Set IDEMPOTENCY_PURGE_DISABLED to skip it, e.g. when another
// replica already runs the purge.
func purgeIdempotency(ctx context.Context, db *gorm.DB, interval time.Duration, lg zerolog.Logger) {
	if sysutil.IsTruthy(os.Getenv("IDEMPOTENCY_PURGE_DISABLED")) {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, time.Now().UTC())
			if err != nil {
				lg.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				lg.Debug().Int64("deleted", n).Msg("idempotency purge")
			}
		}
	}
}
