package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrHubClosed is returned when registering on a hub that has shut down.
var ErrHubClosed = errors.New("realtime: hub closed")

// Options tunes per-connection buffering and keep-alive.
type Options struct {
	SendBuffer   int           // frames buffered per client before it counts as slow
	WriteTimeout time.Duration // deadline for a single frame write
	PongWait     time.Duration // max silence before the peer is considered gone
	PingPeriod   time.Duration // must be shorter than PongWait
	ReadLimit    int64         // max inbound frame size
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		SendBuffer:   16,
		WriteTimeout: 10 * time.Second,
		PongWait:     60 * time.Second,
		PingPeriod:   50 * time.Second,
		ReadLimit:    512,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.SendBuffer <= 0 {
		o.SendBuffer = d.SendBuffer
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = d.ReadLimit
	}
	return o
}

// Hub is the in-process channel layer: group name -> set of clients.
type Hub struct {
	opts Options
	log  zerolog.Logger

	mu     sync.RWMutex
	groups map[string]map[*Client]struct{}
	closed bool
}

// NewHub builds an empty hub.
func NewHub(opts Options, lg zerolog.Logger) *Hub {
	return &Hub{
		opts:   opts.normalized(),
		log:    lg.With().Str("component", "realtime.hub").Logger(),
		groups: make(map[string]map[*Client]struct{}),
	}
}

// Options returns the effective connection options.
func (h *Hub) Options() Options { return h.opts }

// Register admits c into its user's group.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	g := GroupName(c.UserID)
	set, ok := h.groups[g]
	if !ok {
		set = make(map[*Client]struct{})
		h.groups[g] = set
	}
	set[c] = struct{}{}
	size := len(set)
	h.mu.Unlock()

	c.setState(ConnAdmitted)
	wsActive.Inc()
	h.log.Debug().Str("group", g).Int("connections", size).Msg("ws admitted")
	return nil
}

// Unregister removes c from its group and closes it. Removing a client that
// is already gone is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	removed := h.removeLocked(c)
	h.mu.Unlock()

	if removed {
		wsActive.Dec()
		h.log.Debug().Str("group", GroupName(c.UserID)).Msg("ws removed")
	}
	c.Close()
}

func (h *Hub) removeLocked(c *Client) bool {
	g := GroupName(c.UserID)
	set, ok := h.groups[g]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.groups, g)
	}
	return true
}

// GroupSize returns the number of live connections of userID.
func (h *Hub) GroupSize(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[GroupName(userID)])
}

// GroupSend encodes msg once and offers it to every connection of userID.
func (h *Hub) GroupSend(_ context.Context, userID string, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.deliver(userID, msg.Type, b)
	return nil
}

// deliver performs the non-blocking fan-out of an encoded frame and returns
// how many clients accepted it.
func (h *Hub) deliver(userID, typ string, frame []byte) int {
	var (
		accepted int
		slow     []*Client
	)

	h.mu.RLock()
	set := h.groups[GroupName(userID)]
	for c := range set {
		select {
		case c.send <- frame:
			accepted++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(set) == 0 {
		deliveries.WithLabelValues(typ, outcomeOffline).Inc()
		return 0
	}
	if accepted > 0 {
		deliveries.WithLabelValues(typ, outcomeDelivered).Add(float64(accepted))
	}
	for _, c := range slow {
		deliveries.WithLabelValues(typ, outcomeDropped).Inc()
		h.log.Warn().Str("group", GroupName(userID)).Msg("ws client too slow, dropping")
		go h.Unregister(c)
	}
	return accepted
}

// Close disconnects every client and refuses new registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	var all []*Client
	for _, set := range h.groups {
		for c := range set {
			all = append(all, c)
		}
	}
	h.groups = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range all {
		wsActive.Dec()
		c.Close()
	}
	h.log.Info().Int("closed", len(all)).Msg("ws hub shut down")
}

var _ Layer = (*Hub)(nil)
