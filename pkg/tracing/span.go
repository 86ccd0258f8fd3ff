// Package tracing times the phases of a pipeline run. Spans travel in a
// context; a span started under another becomes its child and shares its
// trace id. A finished root span writes its tree to slog.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type contextKey struct{}

// Span is one timed phase.
type Span struct {
	name    string
	traceID string
	parent  *Span
	start   time.Time

	mu       sync.Mutex
	attrs    []any
	children []*Span
	duration time.Duration
	ended    bool
}

// Start opens a span named name. If ctx already carries a span the new span
// is attached to it as a child; otherwise it starts a new trace.
func Start(ctx context.Context, name string, attrs ...any) (context.Context, *Span) {
	s := &Span{name: name, start: time.Now(), attrs: attrs}
	if parent := FromContext(ctx); parent != nil {
		s.parent = parent
		s.traceID = parent.traceID
		parent.mu.Lock()
		parent.children = append(parent.children, s)
		parent.mu.Unlock()
	} else {
		s.traceID = uuid.NewString()
	}
	return context.WithValue(ctx, contextKey{}, s), s
}

// FromContext returns the innermost span in ctx, or nil.
func FromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(contextKey{}).(*Span)
	return s
}

func (s *Span) Name() string    { return s.name }
func (s *Span) TraceID() string { return s.traceID }

// Root reports whether s started its own trace.
func (s *Span) Root() bool { return s.parent == nil }

// Set attaches a key/value pair that is logged with the span.
func (s *Span) Set(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// End stops the clock. Only the first call counts.
func (s *Span) End() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.duration = time.Since(s.start)
		s.ended = true
	}
	return s.duration
}

// Duration is the elapsed time so far for an open span.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return s.duration
	}
	return time.Since(s.start)
}

// Phases flattens the span's descendants into "parent/child" paths relative
// to s.
func (s *Span) Phases() map[string]time.Duration {
	out := make(map[string]time.Duration)
	s.collect("", out)
	return out
}

func (s *Span) collect(prefix string, out map[string]time.Duration) {
	s.mu.Lock()
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()
	for _, c := range children {
		path := c.name
		if prefix != "" {
			path = prefix + "/" + c.name
		}
		out[path] = c.Duration()
		c.collect(path, out)
	}
}

// Log writes the span and its descendants, depth first.
func (s *Span) Log(logger *slog.Logger, level slog.Level) {
	s.log(context.Background(), logger, level, 0)
}

func (s *Span) log(ctx context.Context, logger *slog.Logger, level slog.Level, depth int) {
	if !logger.Enabled(ctx, level) {
		return
	}
	s.mu.Lock()
	args := append([]any{
		"trace_id", s.traceID,
		"span", s.name,
		"depth", depth,
	}, s.attrs...)
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()
	args = append(args, "duration_ms", s.Duration().Milliseconds())
	logger.Log(ctx, level, "span", args...)
	for _, c := range children {
		c.log(ctx, logger, level, depth+1)
	}
}
