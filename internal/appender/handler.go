package appender

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/nerrad567/gray-logic-logship/internal/record"
)

// DefaultTarget is the record target used when neither HandlerOptions nor
// a "component" attribute provides one.
const DefaultTarget = "logship"

// targetKey is the attribute that overrides the record target.
const targetKey = "component"

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	// Level is the minimum level handled. Defaults to slog.LevelInfo.
	Level slog.Leveler

	// Target is the record target. Defaults to DefaultTarget.
	Target string

	// AddSource fills the record's module, file and line from the caller.
	AddSource bool
}

// Handler is a slog.Handler that appends every record to an Appender.
//
// Attributes become record attributes; groups are flattened into dotted
// keys ("http.status"). A top-level string "component" attribute sets the
// record target.
type Handler struct {
	app    *Appender
	opts   HandlerOptions
	target string
	prefix string
	attrs  []record.Attr
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler returns a handler publishing through app. opts may be nil.
func NewHandler(app *Appender, opts *HandlerOptions) *Handler {
	h := &Handler{app: app}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	h.target = h.opts.Target
	if h.target == "" {
		h.target = DefaultTarget
	}
	return h
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle implements slog.Handler. The append error is returned to the
// caller; slog's own front ends discard it.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	rec := &record.Record{
		Time:    r.Time,
		Level:   record.FromSlog(r.Level),
		Message: r.Message,
		Target:  h.target,
		Attrs:   make([]record.Attr, len(h.attrs), len(h.attrs)+r.NumAttrs()),
	}
	copy(rec.Attrs, h.attrs)

	r.Attrs(func(a slog.Attr) bool {
		if t, ok := h.targetFrom(a); ok {
			rec.Target = t
		}
		rec.Attrs = appendAttr(rec.Attrs, h.prefix, a)
		return true
	})

	if h.opts.AddSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := frames.Next()
		rec.Module = f.Function
		rec.File = f.File
		rec.Line = f.Line
	}

	return h.app.Append(ctx, rec)
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.attrs = append([]record.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if t, ok := h.targetFrom(a); ok {
			h2.target = t
		}
		h2.attrs = appendAttr(h2.attrs, h.prefix, a)
	}
	return &h2
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func (h *Handler) targetFrom(a slog.Attr) (string, bool) {
	if h.prefix != "" || a.Key != targetKey {
		return "", false
	}
	v := a.Value.Resolve()
	if v.Kind() != slog.KindString || v.String() == "" {
		return "", false
	}
	return v.String(), true
}

// appendAttr flattens a into dst under prefix.
func appendAttr(dst []record.Attr, prefix string, a slog.Attr) []record.Attr {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		if len(group) == 0 {
			return dst
		}
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range group {
			dst = appendAttr(dst, p, ga)
		}
		return dst
	}

	return append(dst, record.Attr{Key: prefix + a.Key, Value: a.Value.Any()})
}
