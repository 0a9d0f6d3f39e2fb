package shared

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// LogOptions selects how a command logs.
type LogOptions struct {
	Level   string // debug, info, warn or error
	Debug   bool   // forces debug level
	JSON    bool   // structured output for servers
	NoColor bool
}

// SetupLogger configures charm log writing to w
func SetupLogger(w io.Writer, opts LogOptions) (*log.Logger, error) {
	level := log.InfoLevel
	if opts.Level != "" {
		parsed, err := log.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	if opts.Debug {
		level = log.DebugLevel
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	if opts.JSON {
		logger.SetFormatter(log.JSONFormatter)
	}
	if opts.NoColor {
		logger.SetColorProfile(termenv.Ascii)
	}
	return logger, nil
}

// OpenLogFile truncates and opens path for a command whose terminal is owned
// by the TUI.
func OpenLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
