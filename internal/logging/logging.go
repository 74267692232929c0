// Package logging adapts logrus to the client's key/value Logger interface.
package logging

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Logger implements types.Logger on top of a logrus entry
type Logger struct {
	entry *logrus.Entry
}

// New builds a logger writing to out at the named level ("debug", "info",
// "warn", "error"). An empty level means info. JSON output is used when
// json is true.
func New(out io.Writer, level string, json bool) (*Logger, error) {
	l := logrus.New()
	l.SetOutput(out)

	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}
	l.SetLevel(lvl)

	if json {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	return Wrap(l), nil
}

// Wrap adapts an existing logrus logger
func Wrap(l *logrus.Logger) *Logger {
	return &Logger{entry: logrus.NewEntry(l)}
}

// With returns a logger that adds the given key/value pairs to every entry
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(fields(keysAndValues))}
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Info(msg)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Warn(msg)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Error(msg)
}

// fields pairs up alternating keys and values. A trailing key without a
// value is kept under "extra".
func fields(keysAndValues []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			f["extra"] = key
			break
		}
		val := keysAndValues[i+1]
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		f[key] = val
	}
	return f
}
