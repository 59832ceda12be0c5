package logbridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// SlogHandler adapts the bridge into a slog.Handler, so a plugin author
// can hand slog.New(logbridge.NewSlogHandler("my-plugin")) to code that
// expects the standard structured-logging facade and still have every
// record reach the host callback. Attributes are flattened into the
// message as key=value pairs, since the host callback contract carries
// only (level, target, message).
type SlogHandler struct {
	target string
	attrs  []slog.Attr
	groups []string
}

// NewSlogHandler builds a handler emitting under the given target,
// conventionally the plugin's registered name.
func NewSlogHandler(target string) *SlogHandler {
	return &SlogHandler{target: target}
}

func slogToLevel(l slog.Level) Level {
	switch {
	case l < slog.LevelDebug:
		return LevelTrace
	case l < slog.LevelInfo:
		return LevelDebug
	case l < slog.LevelWarn:
		return LevelInfo
	case l < slog.LevelError:
		return LevelWarn
	default:
		return LevelError
	}
}

// Enabled consults the bridge's process-wide level filter, so the caller
// skips building records the sink would drop anyway.
func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	filter := CurrentLevel()
	return filter != LevelOff && slogToLevel(level) >= filter
}

func (h *SlogHandler) Handle(_ context.Context, rec slog.Record) error {
	var sb strings.Builder
	sb.WriteString(rec.Message)
	appendAttr := func(key string, v slog.Value) {
		sb.WriteByte(' ')
		sb.WriteString(key)
		sb.WriteByte('=')
		fmt.Fprint(&sb, v.Resolve().Any())
	}
	for _, a := range h.attrs {
		// Already qualified by WithAttrs.
		appendAttr(a.Key, a.Value)
	}
	rec.Attrs(func(a slog.Attr) bool {
		appendAttr(h.qualify(a.Key), a.Value)
		return true
	})
	Emit(slogToLevel(rec.Level), h.target, sb.String())
	return nil
}

func (h *SlogHandler) qualify(key string) string {
	if len(h.groups) == 0 {
		return key
	}
	return strings.Join(h.groups, ".") + "." + key
}

func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		a.Key = h.qualify(a.Key)
		next.attrs = append(next.attrs, a)
	}
	return next
}

func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.groups = append(next.groups, name)
	return next
}

func (h *SlogHandler) clone() *SlogHandler {
	return &SlogHandler{
		target: h.target,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}
