package middleware

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() { gin.SetMode(gin.TestMode) }

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// fakeVerifier accepts tokens listed in ids.
type fakeVerifier struct{ ids map[string]string }

func (f fakeVerifier) VerifyToken(tok string) (string, error) {
	if id, ok := f.ids[tok]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}
