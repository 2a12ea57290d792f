// Package runlog captures a run's log records so they can be written into
// the evidence pack next to the results they describe.
package runlog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Buffer is a concurrency-safe in-memory log sink.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Bytes returns a copy of everything logged so far.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Bytes())
	return int64(n), err
}

// Recorder tees log records into a Buffer while forwarding them to the
// caller's logger.
type Recorder struct {
	buf    *Buffer
	logger *slog.Logger
}

// New wraps base so every record at level Debug or above is also kept in
// the run log. A nil base logs to the run log only.
func New(base *slog.Logger) *Recorder {
	buf := &Buffer{}
	capture := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	var h slog.Handler = capture
	if base != nil {
		h = Tee(capture, base.Handler())
	}
	return &Recorder{buf: buf, logger: slog.New(h)}
}

func (r *Recorder) Logger() *slog.Logger { return r.logger }
func (r *Recorder) Buffer() *Buffer      { return r.buf }

// Tee returns a handler that dispatches each record to every handler that
// accepts its level.
func Tee(handlers ...slog.Handler) slog.Handler {
	return &teeHandler{handlers: handlers}
}

type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: next}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: next}
}
