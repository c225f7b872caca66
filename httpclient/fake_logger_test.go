package httpclient

import (
	"maps"
	"sync"
	"time"

	"github.com/giihelpdesk/helpdesk-client/logger"
)

// fakeLogger records events for assertions.
type fakeLogger struct {
	mu     sync.Mutex
	events []loggedEvent
}

type loggedEvent struct {
	level   string
	fields  map[string]any
	message string
}

type fakeLogEvent struct {
	logger *fakeLogger
	level  string
	fields map[string]any
}

func (e *fakeLogEvent) Msg(msg string) {
	e.logger.mu.Lock()
	defer e.logger.mu.Unlock()
	e.logger.events = append(e.logger.events, loggedEvent{level: e.level, fields: maps.Clone(e.fields), message: msg})
}

func (e *fakeLogEvent) Msgf(format string, _ ...any) { e.Msg(format) }

func (e *fakeLogEvent) set(key string, v any) logger.LogEvent {
	e.fields[key] = v
	return e
}

func (e *fakeLogEvent) Err(err error) logger.LogEvent               { return e.set("error", err) }
func (e *fakeLogEvent) Str(key, value string) logger.LogEvent       { return e.set(key, value) }
func (e *fakeLogEvent) Int(key string, value int) logger.LogEvent   { return e.set(key, value) }
func (e *fakeLogEvent) Int64(key string, v int64) logger.LogEvent   { return e.set(key, v) }
func (e *fakeLogEvent) Uint64(key string, v uint64) logger.LogEvent { return e.set(key, v) }
func (e *fakeLogEvent) Dur(key string, d time.Duration) logger.LogEvent {
	return e.set(key, d)
}
func (e *fakeLogEvent) Interface(key string, i any) logger.LogEvent   { return e.set(key, i) }
func (e *fakeLogEvent) Bytes(key string, val []byte) logger.LogEvent { return e.set(key, val) }

func (l *fakeLogger) event(level string) logger.LogEvent {
	return &fakeLogEvent{logger: l, level: level, fields: make(map[string]any)}
}

func (l *fakeLogger) Info() logger.LogEvent                       { return l.event("info") }
func (l *fakeLogger) Error() logger.LogEvent                      { return l.event("error") }
func (l *fakeLogger) Debug() logger.LogEvent                      { return l.event("debug") }
func (l *fakeLogger) Warn() logger.LogEvent                       { return l.event("warn") }
func (l *fakeLogger) Fatal() logger.LogEvent                      { return l.event("fatal") }
func (l *fakeLogger) WithContext(_ any) logger.Logger             { return l }
func (l *fakeLogger) WithFields(_ map[string]any) logger.Logger   { return l }

func (l *fakeLogger) eventsByLevel(level string) []loggedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var events []loggedEvent
	for _, event := range l.events {
		if event.level == level {
			events = append(events, event)
		}
	}
	return events
}
