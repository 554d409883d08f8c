package realtime

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// errSubscriberStopped reports a cross-instance subscriber that returned
// without error while it was still supposed to run.
var errSubscriberStopped = errors.New("realtime: subscriber stopped")

// FallbackLayer sends through primary until it is degraded, then through
// fallback for the rest of the process. The server uses it to put the Redis
// layer in front of the local hub: once this instance can no longer consume
// Redis, publishing there would reach none of its own connections.
type FallbackLayer struct {
	primary  Layer
	fallback Layer
	degraded atomic.Bool
	log      zerolog.Logger
}

// NewFallbackLayer returns a layer that starts on primary.
func NewFallbackLayer(primary, fallback Layer, lg zerolog.Logger) *FallbackLayer {
	return &FallbackLayer{
		primary:  primary,
		fallback: fallback,
		log:      lg.With().Str("component", "realtime.fallback").Logger(),
	}
}

// GroupSend delivers through whichever layer is current.
func (f *FallbackLayer) GroupSend(ctx context.Context, userID string, msg Message) error {
	if f.degraded.Load() {
		return f.fallback.GroupSend(ctx, userID, msg)
	}
	return f.primary.GroupSend(ctx, userID, msg)
}

// Degrade switches delivery to the fallback layer. Only the first call logs.
func (f *FallbackLayer) Degrade(cause error) {
	if f.degraded.CompareAndSwap(false, true) {
		layerFallbacks.Inc()
		f.log.Error().Err(cause).Msg("cross-instance delivery lost; delivering to local connections only")
	}
}

// Degraded reports whether the fallback layer is in use.
func (f *FallbackLayer) Degraded() bool { return f.degraded.Load() }

// Supervise runs the primary's subscriber (RedisLayer.Run) and degrades when
// it ends before ctx does, whether it failed or simply returned. It blocks
// until run returns and reports the cause of a degrade, or nil on a normal
// shutdown.
func (f *FallbackLayer) Supervise(ctx context.Context, run func(context.Context) error) error {
	err := run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	if err == nil {
		err = errSubscriberStopped
	}
	f.Degrade(err)
	return err
}

var _ Layer = (*FallbackLayer)(nil)
