// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// TimestampFormat is used by both formatters.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Config selects level, format and destination.
type Config struct {
	Level  string // trace, debug, info, warn, error
	Format string // json, text
	Output string // stdout, stderr, file
	File   string // used when Output is "file"
}

// New creates a logger from cfg. Empty fields mean info, json and stdout.
// When Output is "file" the returned closer closes the file; otherwise it is a no-op.
func New(cfg Config) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(logLevel)

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: TimestampFormat})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: TimestampFormat,
		})
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	var closer io.Closer = nopCloser{}
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	case "file":
		if cfg.File == "" {
			return nil, nil, fmt.Errorf("log output file not set")
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		logger.SetOutput(f)
		closer = f
	default:
		return nil, nil, fmt.Errorf("unknown log output %q", cfg.Output)
	}

	return logger, closer, nil
}

// Discard returns a logger that drops everything. Used as the default for
// components constructed without one.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
