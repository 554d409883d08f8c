package observability

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-social-backend/internal/config"
	"github.com/tbourn/go-social-backend/internal/sysutil"
)

// NewInstanceID returns "<hostname>-<8 hex chars>", unique per process start.
func NewInstanceID() string {
	return sysutil.Hostname() + "-" + uuid.NewString()[:8]
}

// NewLogger builds the process logger, sets the global level from
// cfg.LogLevel and installs the result as zerolog's global logger.
// A nil w writes to stdout.
func NewLogger(cfg config.Config, b Build, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.LogPretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(w).With().Timestamp().
		Str("service", cfg.OTEL.ServiceName)
	if b.Version != "" {
		ctx = ctx.Str("version", b.Version)
	}
	if b.InstanceID != "" {
		ctx = ctx.Str("instance", b.InstanceID)
	}
	lg := ctx.Logger()
	log.Logger = lg
	return lg
}
