package events

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ramonehamilton/spell-bingo/internal/logger"
)

// LoggingObserver logs every event, with its payload when verbose.
type LoggingObserver struct {
	name    string
	verbose bool
	log     *logrus.Entry
}

// NewLoggingObserver creates an observer that logs events at debug level.
func NewLoggingObserver(verbose bool) *LoggingObserver {
	return &LoggingObserver{
		name:    "LoggingObserver",
		verbose: verbose,
		log:     logger.Component("events"),
	}
}

// OnEvent logs the event.
func (o *LoggingObserver) OnEvent(event Event) error {
	entry := o.log.WithField("event", event.Type)
	if o.verbose {
		entry = entry.WithField("data", event.Data)
	}
	entry.Debug("event dispatched")
	return nil
}

// GetName returns the observer's name.
func (o *LoggingObserver) GetName() string {
	return o.name
}

// ShouldHandle returns true for all events.
func (o *LoggingObserver) ShouldHandle(string) bool {
	return true
}

// FuncObserver adapts a function to Observer, filtered by event type
// prefixes. No prefixes means every event.
type FuncObserver struct {
	name     string
	prefixes []string
	fn       func(Event) error
}

// NewFuncObserver creates an observer calling fn for events whose type
// starts with one of prefixes.
func NewFuncObserver(name string, fn func(Event) error, prefixes ...string) *FuncObserver {
	return &FuncObserver{name: name, prefixes: prefixes, fn: fn}
}

// OnEvent calls the wrapped function.
func (o *FuncObserver) OnEvent(event Event) error {
	return o.fn(event)
}

// GetName returns the observer's name.
func (o *FuncObserver) GetName() string {
	return o.name
}

// ShouldHandle matches the configured prefixes.
func (o *FuncObserver) ShouldHandle(eventType string) bool {
	if len(o.prefixes) == 0 {
		return true
	}
	for _, p := range o.prefixes {
		if strings.HasPrefix(eventType, p) {
			return true
		}
	}
	return false
}
