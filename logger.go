package sharedkernel

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Logger is the logging interface used by every component of the kernel. It
// is compatible with log/slog: args are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NewLogrusLogger adapts a logrus logger or entry to Logger. Key/value args
// become logrus fields.
func NewLogrusLogger(l logrus.FieldLogger) Logger {
	return &logrusLogger{l: l}
}

type logrusLogger struct{ l logrus.FieldLogger }

func (l *logrusLogger) Debug(msg string, args ...any) { l.l.WithFields(fields(args)).Debug(msg) }
func (l *logrusLogger) Info(msg string, args ...any)  { l.l.WithFields(fields(args)).Info(msg) }
func (l *logrusLogger) Warn(msg string, args ...any)  { l.l.WithFields(fields(args)).Warn(msg) }
func (l *logrusLogger) Error(msg string, args ...any) { l.l.WithFields(fields(args)).Error(msg) }

// fields converts slog style args. A trailing key without value is kept
// under "!BADKEY", as slog does.
func fields(args []any) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 == len(args) {
			f["!BADKEY"] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		f[key] = args[i+1]
	}
	return f
}
