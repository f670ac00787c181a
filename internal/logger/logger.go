// Package logger owns the process-wide structured logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the application logger. It is usable before Init with logrus
// defaults so packages can log from tests.
var Log = logrus.New()

// Options configures Init.
type Options struct {
	Level  string    // logrus level name, "info" when empty or unknown
	Format string    // "json" or "text"
	Output io.Writer // os.Stdout when nil
}

// Init configures the global logger. Call once from main.
func Init(opts Options) {
	Log = New(opts)
}

// New builds a logger from opts without touching the global one.
func New(opts Options) *logrus.Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.ToLower(opts.Format) == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	l.SetOutput(out)
	return l
}

// Component returns an entry tagged with the emitting component.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
