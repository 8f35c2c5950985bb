// Package logging configures the global zerolog logger for the server and
// the CLI commands.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Settings struct {
	Level      string
	Format     string // "text", "json" or "" (auto)
	File       string
	WithCaller bool
}

// AddFlags registers the logging flags on fs and returns the settings they
// populate.
func AddFlags(fs *pflag.FlagSet) *Settings {
	s := &Settings{}
	fs.StringVar(&s.Level, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	fs.StringVar(&s.Format, "log-format", "", "Log format (text or json; default: text on a terminal, json otherwise)")
	fs.StringVar(&s.File, "log-file", "", "Also write JSON logs to this file (rotated)")
	fs.BoolVar(&s.WithCaller, "with-caller", false, "Log caller file and line")
	return s
}

// ParseLevel converts a level name into a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger builds a logger writing to out (and to the rotated log file when
// configured).
func NewLogger(s Settings, out io.Writer) (zerolog.Logger, error) {
	format := strings.ToLower(strings.TrimSpace(s.Format))
	switch format {
	case "", "text", "json":
	default:
		return zerolog.Nop(), errors.Errorf("logging: unknown format %q", s.Format)
	}
	if format == "" {
		format = "json"
		if f, ok := out.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			format = "text"
		}
	}

	var w io.Writer = out
	if format == "text" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	if s.File != "" {
		w = zerolog.MultiLevelWriter(w, &lumberjack.Logger{
			Filename:   s.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		})
	}

	ctx := zerolog.New(w).Level(ParseLevel(s.Level)).With().Timestamp()
	if s.WithCaller {
		ctx = ctx.Caller()
	}
	return ctx.Logger(), nil
}

// InitLogger replaces the global logger.
func InitLogger(s Settings) error {
	l, err := NewLogger(s, os.Stderr)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(ParseLevel(s.Level))
	log.Logger = l
	return nil
}
