package obs

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog logger tagged with the component name.
// APP_ENV=dev switches to human-readable console output; LOG_LEVEL sets the
// minimum level (default info).
func NewLogger(component string) zerolog.Logger {
	var w io.Writer = os.Stdout
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return NewLoggerTo(w, component, os.Getenv("LOG_LEVEL"))
}

// NewLoggerTo builds a component logger writing to w. Unknown levels fall back to info.
func NewLoggerTo(w io.Writer, component, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("component", component).Logger()
}
