package logger

import (
	"context"
	"log/slog"

	"github.com/phrazzld/corekit/redact"
)

// RedactingHandler is slog.Handler middleware that masks sensitive
// attribute values and message content before delegating to the wrapped
// handler. Values under sensitive keys are replaced wholesale; string
// values and error values elsewhere are run through the masker's pattern
// catalog.
type RedactingHandler struct {
	inner  slog.Handler
	masker *redact.Masker
}

// NewRedactingHandler wraps the given handler. A nil masker selects the
// built-in catalog.
func NewRedactingHandler(inner slog.Handler, masker *redact.Masker) *RedactingHandler {
	if masker == nil {
		masker = redact.NewMasker()
	}
	return &RedactingHandler{inner: inner, masker: masker}
}

// Enabled reports whether the wrapped handler handles records at the
// given level.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle masks the record's message and attributes, then delegates.
func (h *RedactingHandler) Handle(ctx context.Context, rec slog.Record) error {
	masked := slog.NewRecord(rec.Time, rec.Level, h.masker.String(rec.Message), rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.maskAttr(a))
		return true
	})
	return h.inner.Handle(ctx, masked)
}

// WithAttrs masks the pre-bound attributes before handing them to the
// wrapped handler.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		maskedAttrs[i] = h.maskAttr(a)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(maskedAttrs), masker: h.masker}
}

// WithGroup opens a group on the wrapped handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name), masker: h.masker}
}

func (h *RedactingHandler) maskAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		maskedGroup := make([]slog.Attr, len(group))
		for i, ga := range group {
			maskedGroup[i] = h.maskAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(maskedGroup...)}
	}

	if h.masker.SensitiveKey(a.Key) {
		return slog.String(a.Key, redact.Placeholder)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.masker.String(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, h.masker.Error(err))
		}
	}

	return a
}
