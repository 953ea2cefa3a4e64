package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/0xChaser/EasyBooking/internal/config"

	"github.com/rs/zerolog"
)

type options struct {
	stdout        io.Writer
	stderr        io.Writer
	defaultOutput string
	keepStdout    bool
	quiet         bool
}

// Option adjusts how New resolves the logging configuration.
type Option func(*options)

// Interactive is for processes whose stdout belongs to the user, like the
// CLI. Stdout output is redirected to stderr, and only warnings are kept
// unless verbose is set.
func Interactive(verbose bool) Option {
	return func(o *options) {
		o.defaultOutput = "stderr"
		o.keepStdout = true
		o.quiet = !verbose
	}
}

// WithWriters replaces the process streams behind the stdout and stderr outputs.
func WithWriters(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// New builds the process logger. Every event carries the app name,
// environment and version. The returned closer is non-nil only for file output.
func New(cfg config.LoggingConfig, app config.AppConfig, opts ...Option) (*zerolog.Logger, io.Closer, error) {
	o := options{stdout: os.Stdout, stderr: os.Stderr, defaultOutput: "stdout"}
	for _, opt := range opts {
		opt(&o)
	}

	out, closer, err := o.writer(cfg)
	if err != nil {
		return nil, nil, err
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: closer != nil}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	l := zerolog.New(out).
		Level(o.level(cfg.Level)).
		With().
		Timestamp().
		Str("app", app.Name).
		Str("env", app.Environment).
		Str("version", app.Version).
		Logger()

	return &l, closer, nil
}

func (o options) level(configured string) zerolog.Level {
	if o.quiet {
		return zerolog.WarnLevel
	}
	configured = strings.ToLower(strings.TrimSpace(configured))
	if configured == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(configured)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func (o options) writer(cfg config.LoggingConfig) (io.Writer, io.Closer, error) {
	target := strings.ToLower(strings.TrimSpace(cfg.Output))
	if target == "" {
		target = o.defaultOutput
	}

	switch target {
	case "stdout":
		if o.keepStdout {
			return o.stderr, nil, nil
		}
		return o.stdout, nil, nil
	case "stderr":
		return o.stderr, nil, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, nil, fmt.Errorf("logging.output=file requires logging.file_path")
		}
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return f, f, nil
	default:
		return nil, nil, fmt.Errorf("unknown logging.output %q", cfg.Output)
	}
}

// Component derives a sub-logger tagged with the component name.
// A nil base yields a disabled logger so callers can skip wiring one in tests.
func Component(base *zerolog.Logger, name string) *zerolog.Logger {
	if base == nil {
		nop := zerolog.Nop()
		return &nop
	}
	l := base.With().Str("component", name).Logger()
	return &l
}
