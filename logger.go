package voyagebed

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger is the structured logger used throughout the engine.
type Logger = log.Logger

const logPrefix = "voyagebed"

// NewLogger builds a prefixed logger writing to stderr. Unknown levels fall
// back to info and unknown formatters to text.
func NewLogger(cfg LogConfig) *Logger {
	return newLogger(os.Stderr, cfg)
}

func newLogger(w io.Writer, cfg LogConfig) *Logger {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          logPrefix,
		Level:           level,
		ReportTimestamp: cfg.Timestamp,
		Formatter:       parseFormatter(cfg.Formatter),
	})
}

func parseFormatter(s string) log.Formatter {
	switch strings.ToLower(s) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	}
	return log.TextFormatter
}

