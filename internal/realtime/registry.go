package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-social-backend/internal/domain"
)

// ConnState is the lifecycle of a live connection:
// CONNECTING -> ADMITTED -> CLOSED, or CONNECTING -> REJECTED.
type ConnState int32

const (
	ConnConnecting ConnState = iota
	ConnAdmitted
	ConnClosed
	ConnRejected
)

func (s ConnState) String() string {
	switch s {
	case ConnConnecting:
		return "CONNECTING"
	case ConnAdmitted:
		return "ADMITTED"
	case ConnClosed:
		return "CLOSED"
	case ConnRejected:
		return "REJECTED"
	}
	return "UNKNOWN"
}

var (
	// ErrUnknownUser rejects a connection claiming a user that does not exist.
	ErrUnknownUser = errors.New("realtime: unknown user")
	// ErrDirectoryUnavailable rejects a connection when the user lookup fails or times out.
	ErrDirectoryUnavailable = errors.New("realtime: user directory unavailable")
)

// UserDirectory resolves users by id. A missing user is reported as (nil, nil).
type UserDirectory interface {
	LookupUser(ctx context.Context, id string) (*domain.User, error)
}

// Registry decides whether a connecting client may join a user group.
type Registry struct {
	dir     UserDirectory
	timeout time.Duration
	log     zerolog.Logger
}

// NewRegistry builds a Registry. A non-positive timeout defaults to 3s.
func NewRegistry(dir UserDirectory, timeout time.Duration, lg zerolog.Logger) *Registry {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Registry{dir: dir, timeout: timeout, log: lg.With().Str("component", "realtime.registry").Logger()}
}

type lookupResult struct {
	user *domain.User
	err  error
}

// Admit validates that userID names an existing user. It returns nil,
// ErrUnknownUser or ErrDirectoryUnavailable, and never waits longer than the
// registry timeout even if the directory ignores cancellation.
func (r *Registry) Admit(ctx context.Context, userID string) error {
	if userID == "" {
		wsAdmissions.WithLabelValues("unknown_user").Inc()
		return ErrUnknownUser
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ch := make(chan lookupResult, 1)
	go func() {
		u, err := r.dir.LookupUser(ctx, userID)
		ch <- lookupResult{user: u, err: err}
	}()

	select {
	case res := <-ch:
		switch {
		case res.err != nil:
			wsAdmissions.WithLabelValues("unavailable").Inc()
			r.log.Warn().Err(res.err).Str("user_id", userID).Msg("ws admission lookup failed")
			return ErrDirectoryUnavailable
		case res.user == nil:
			wsAdmissions.WithLabelValues("unknown_user").Inc()
			return ErrUnknownUser
		}
		wsAdmissions.WithLabelValues("admitted").Inc()
		return nil
	case <-ctx.Done():
		wsAdmissions.WithLabelValues("unavailable").Inc()
		r.log.Warn().Str("user_id", userID).Dur("timeout", r.timeout).Msg("ws admission timed out")
		return ErrDirectoryUnavailable
	}
}
