package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns attributes that change over the process lifetime,
// such as the loaded snapshot.
type ContextProvider func() []slog.Attr

type attrsKey struct{}

// WithAttrs returns a context whose log records carry attrs in addition to
// any attributes already attached to ctx. Only records logged through a
// ContextHandler with the *Context methods pick them up.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}
	prev := AttrsFrom(ctx)
	merged := make([]slog.Attr, 0, len(prev)+len(attrs))
	merged = append(merged, prev...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, attrsKey{}, merged)
}

// AttrsFrom returns the attributes attached by WithAttrs.
func AttrsFrom(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(attrsKey{}).([]slog.Attr)
	return attrs
}

// ContextHandler adds provider and request-scoped attributes to each record.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		r.AddAttrs(h.provider()...)
	}
	r.AddAttrs(AttrsFrom(ctx)...)
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.wrap(h.inner.WithAttrs(attrs))
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.wrap(h.inner.WithGroup(name))
}

func (h *ContextHandler) wrap(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner, provider: h.provider}
}
