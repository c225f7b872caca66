// Package notify delivers user-facing notices such as "API Error" or
// "Login Failed" to whatever surface the host application has.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/giihelpdesk/helpdesk-client/logger"
)

// Level is the severity of a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Icon returns the glyph shown in front of a notice. Unknown levels use the info glyph.
func (l Level) Icon() string {
	switch l {
	case LevelSuccess:
		return "✓"
	case LevelError:
		return "✕"
	case LevelWarning:
		return "⚠"
	default:
		return "ℹ"
	}
}

// Notice is one message for a human.
type Notice struct {
	Level   Level
	Title   string
	Message string
}

// Notifier presents notices. Implementations must not block for long and
// must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notice)

func (f Func) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// Nop discards every notice.
func Nop() Notifier { return Func(func(context.Context, Notice) {}) }

// Writer prints notices as single lines, e.g. "✕ API Error: Access denied".
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Writer notifier over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (n *Writer) Notify(_ context.Context, notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if notice.Message == "" {
		fmt.Fprintf(n.w, "%s %s\n", notice.Level.Icon(), notice.Title)
		return
	}
	fmt.Fprintf(n.w, "%s %s: %s\n", notice.Level.Icon(), notice.Title, notice.Message)
}

// Logger records notices through a structured logger.
type Logger struct {
	log logger.Logger
}

// NewLogger returns a notifier that logs each notice at a level matching its severity.
func NewLogger(log logger.Logger) *Logger {
	return &Logger{log: log}
}

func (n *Logger) Notify(ctx context.Context, notice Notice) {
	l := n.log.WithContext(ctx)
	var ev logger.LogEvent
	switch notice.Level {
	case LevelError:
		ev = l.Error()
	case LevelWarning:
		ev = l.Warn()
	default:
		ev = l.Info()
	}
	ev.Str("notice_level", string(notice.Level)).
		Str("title", notice.Title).
		Msg(notice.Message)
}

// Multi fans a notice out to several notifiers in order.
func Multi(notifiers ...Notifier) Notifier {
	return Func(func(ctx context.Context, n Notice) {
		for _, target := range notifiers {
			if target != nil {
				target.Notify(ctx, n)
			}
		}
	})
}

// Recorder keeps every notice in memory. Useful in tests and for batch tools
// that report at the end.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of what was recorded.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Last returns the most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}
