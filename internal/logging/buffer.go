package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultBufferSize is the number of records kept for the /logs endpoint.
const DefaultBufferSize = 100

// Entry is one buffered log record.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Attrs   string    `json:"attrs,omitempty"`
}

// String renders the entry as a single "[HH:MM:SS] message k=v" line.
func (e Entry) String() string {
	line := fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Message)
	if e.Attrs != "" {
		line += " " + e.Attrs
	}
	return line
}

// Buffer keeps the most recent records in a fixed-size ring.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// NewBuffer creates a ring buffer holding up to size entries.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{entries: make([]Entry, size)}
}

func (b *Buffer) add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// Entries returns the buffered entries, oldest first.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.full {
		return append([]Entry(nil), b.entries[:b.next]...)
	}
	out := make([]Entry, 0, len(b.entries))
	out = append(out, b.entries[b.next:]...)
	return append(out, b.entries[:b.next]...)
}

// Lines returns the buffered entries rendered as text lines.
func (b *Buffer) Lines() []string {
	entries := b.Entries()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return lines
}

// Handler wraps next so every record it accepts is also recorded in the buffer.
func (b *Buffer) Handler(next slog.Handler) slog.Handler {
	return &bufferHandler{next: next, buf: b}
}

type bufferHandler struct {
	next   slog.Handler
	buf    *Buffer
	attrs  []slog.Attr
	groups []string
}

func (h *bufferHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *bufferHandler) Handle(ctx context.Context, r slog.Record) error {
	var sb strings.Builder
	prefix := strings.Join(h.groups, ".")
	write := func(a slog.Attr) {
		a = replaceAttr(nil, a)
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		if prefix != "" {
			sb.WriteString(prefix)
			sb.WriteByte('.')
		}
		sb.WriteString(a.Key)
		sb.WriteByte('=')
		sb.WriteString(a.Value.String())
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(a)
		return true
	})

	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}
	h.buf.add(Entry{
		Time:    t.UTC(),
		Level:   r.Level.String(),
		Message: r.Message,
		Attrs:   sb.String(),
	})
	return h.next.Handle(ctx, r)
}

func (h *bufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &bufferHandler{
		next:   h.next.WithAttrs(attrs),
		buf:    h.buf,
		attrs:  append(append([]slog.Attr(nil), h.attrs...), attrs...),
		groups: h.groups,
	}
}

func (h *bufferHandler) WithGroup(name string) slog.Handler {
	return &bufferHandler{
		next:   h.next.WithGroup(name),
		buf:    h.buf,
		attrs:  h.attrs,
		groups: append(append([]string(nil), h.groups...), name),
	}
}
