// Package logging configures the logrus backend used by kernel based
// services and provides the method interceptor that logs entry, exit and
// failure of observed calls.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/omnipulse/go-shared-kernel/config"
	"github.com/omnipulse/go-shared-kernel/reqctx"
)

// New returns a logger configured from cfg. Output goes to stdout; entries
// logged with WithContext carry the request's diagnostic fields.
func New(cfg config.LogConfig) (*logrus.Logger, error) {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg config.LogConfig, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)

	switch cfg.Format {
	case "", "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339Nano})
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	logger.AddHook(ContextHook{})
	return logger, nil
}

// ContextHook copies the diagnostic fields of the request store found in
// the entry's context onto the entry. Fields set explicitly on the entry
// win.
type ContextHook struct{}

// Levels implements logrus.Hook.
func (ContextHook) Levels() []logrus.Level { return logrus.AllLevels }

// Fire implements logrus.Hook.
func (ContextHook) Fire(entry *logrus.Entry) error {
	if entry.Context == nil {
		return nil
	}
	for k, v := range reqctx.Fields(entry.Context) {
		if _, ok := entry.Data[k]; !ok {
			entry.Data[k] = v
		}
	}
	return nil
}
