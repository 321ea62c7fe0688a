// Package logging configures the service's structured logger.
//
// Console output is human readable in development; production writes one
// JSON object per line.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

func New(cfg Config) zerolog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

func NewWithWriter(cfg Config, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.ErrorFieldName = "err"

	out := w
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	}
	return zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
}

func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// GormWriter adapts a zerolog logger to gorm's logger.Writer.
type GormWriter struct {
	Log zerolog.Logger
}

// Printf picks the level from gorm's line templates: traces carrying an
// error log at error, slow queries and [warn] lines at warn, [info] at info,
// and plain SQL traces at debug.
func (w GormWriter) Printf(format string, args ...interface{}) {
	w.Log.WithLevel(gormLevel(format, args)).Str("component", "gorm").Msg(fmt.Sprintf(format, args...))
}

func gormLevel(format string, args []interface{}) zerolog.Level {
	for _, arg := range args {
		switch v := arg.(type) {
		case error:
			return zerolog.ErrorLevel
		case string:
			if strings.HasPrefix(v, "SLOW SQL") {
				return zerolog.WarnLevel
			}
		}
	}
	switch {
	case strings.Contains(format, "[error]"):
		return zerolog.ErrorLevel
	case strings.Contains(format, "[warn]"):
		return zerolog.WarnLevel
	case strings.Contains(format, "[info]"):
		return zerolog.InfoLevel
	}
	return zerolog.DebugLevel
}
