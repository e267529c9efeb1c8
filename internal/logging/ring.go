package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// RingEntry is one captured log record, flattened for transport.
type RingEntry struct {
	Time      time.Time `json:"time"`
	Level     string    `json:"level"`
	Component string    `json:"component,omitempty"`
	Message   string    `json:"message"`
	Attrs     string    `json:"attrs,omitempty"`
}

// Ring retains the most recent log records in memory so the daemon can serve
// them over the status API without re-reading log files. Tee it next to the
// primary handler with TeeLogger.
type Ring struct {
	mu      sync.Mutex
	entries []RingEntry
	next    int
	full    bool
	level   slog.Level
	attrs   []slog.Attr
}

// NewRing creates a ring capturing up to capacity records at or above level.
func NewRing(capacity int, level slog.Level) *Ring {
	if capacity <= 0 {
		capacity = 256
	}
	return &Ring{entries: make([]RingEntry, capacity), level: level}
}

func (r *Ring) Enabled(_ context.Context, level slog.Level) bool {
	return level >= r.level
}

func (r *Ring) Handle(_ context.Context, record slog.Record) error {
	kvs := make([]kv, 0, record.NumAttrs()+len(r.attrs))
	flattenAttrs(&kvs, nil, r.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, nil, attr)
		return true
	})

	entry := RingEntry{
		Time:    record.Time,
		Level:   levelLabel(record.Level),
		Message: record.Message,
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}

	var sb strings.Builder
	for _, kv := range kvs {
		if kv.key == FieldComponent {
			if entry.Component == "" {
				entry.Component = attrString(kv.value)
			}
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(kv.key)
		sb.WriteByte('=')
		sb.WriteString(formatValue(kv.value))
	}
	entry.Attrs = sb.String()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = entry
	r.next++
	if r.next == len(r.entries) {
		r.next = 0
		r.full = true
	}
	return nil
}

// WithAttrs returns a view over the same backing buffer so teed child loggers
// still land in one ring.
func (r *Ring) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(r.attrs)+len(attrs))
	merged = append(merged, r.attrs...)
	merged = append(merged, attrs...)
	return &ringView{ring: r, attrs: merged}
}

func (r *Ring) WithGroup(string) slog.Handler { return r }

// Snapshot returns up to limit entries, oldest first. limit <= 0 returns all.
func (r *Ring) Snapshot(limit int) []RingEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ordered []RingEntry
	if r.full {
		ordered = make([]RingEntry, 0, len(r.entries))
		ordered = append(ordered, r.entries[r.next:]...)
		ordered = append(ordered, r.entries[:r.next]...)
	} else {
		ordered = append(ordered, r.entries[:r.next]...)
	}
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	out := make([]RingEntry, len(ordered))
	copy(out, ordered)
	return out
}

// ringView carries per-logger attrs while writing into the shared ring.
type ringView struct {
	ring  *Ring
	attrs []slog.Attr
}

func (v *ringView) Enabled(ctx context.Context, level slog.Level) bool {
	return v.ring.Enabled(ctx, level)
}

func (v *ringView) Handle(ctx context.Context, record slog.Record) error {
	rec := record.Clone()
	rec.AddAttrs(v.attrs...)
	return v.ring.Handle(ctx, rec)
}

func (v *ringView) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(v.attrs)+len(attrs))
	merged = append(merged, v.attrs...)
	merged = append(merged, attrs...)
	return &ringView{ring: v.ring, attrs: merged}
}

func (v *ringView) WithGroup(string) slog.Handler { return v }
