package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewZerolog builds the zerolog logger used by the database layer. It writes
// to w, or stderr when w is nil.
func NewZerolog(w io.Writer, level string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("component", "database").Logger()
}
