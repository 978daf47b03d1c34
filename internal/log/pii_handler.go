package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// piiKeys contains attribute keys whose values always carry subject data
// and are therefore always masked.
var piiKeys = map[string]bool{
	// Query subject
	"target":    true,
	"value":     true,
	"raw_value": true,
	"query":     true,

	// Identifier types
	"email":   true,
	"phone":   true,
	"name":    true,
	"address": true,

	// Payload fragments
	"payload": true,
	"raw":     true,

	// Credentials never belong in logs either
	"password": true,
	"secret":   true,
	"token":    true,
	"api_key":  true,
	"apikey":   true,
}

// piiPatterns contains regex patterns that indicate PII-shaped values.
// Values matching these are masked regardless of key name.
var piiPatterns = []*regexp.Regexp{
	// Email addresses
	regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`),

	// E.164 phone numbers
	regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`),

	// Bearer tokens
	regexp.MustCompile(`(?i)^bearer\s+.+`),
}

// MaskValue is the string used to replace masked values.
const MaskValue = "***MASKED***"

// PIIHandler wraps an slog.Handler to mask personally identifying
// information. It intercepts log records and replaces attribute values
// that match PII keys or PII-shaped patterns before passing them on.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because it integrates with standard slog APIs and works with any
// underlying handler (text, JSON, etc.).
type PIIHandler struct {
	// handler is the underlying slog handler that receives masked records.
	handler slog.Handler
}

// NewPIIHandler creates a new PIIHandler wrapping the given handler.
// If handler is nil, slog.Default().Handler() is used.
func NewPIIHandler(handler slog.Handler) *PIIHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &PIIHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *PIIHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and passes it to the underlying
// handler.
func (h *PIIHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.maskAttr(a))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are masked before being added.
func (h *PIIHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		maskedAttrs[i] = h.maskAttr(a)
	}
	return &PIIHandler{handler: h.handler.WithAttrs(maskedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *PIIHandler) WithGroup(name string) slog.Handler {
	return &PIIHandler{handler: h.handler.WithGroup(name)}
}

// maskAttr masks a single attribute, recursively handling groups.
func (h *PIIHandler) maskAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		maskedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			maskedAttrs[i] = h.maskAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(maskedAttrs...)}
	}

	keyLower := strings.ToLower(a.Key)
	if piiKeys[keyLower] {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString && isPIIValue(a.Value.String()) {
		return slog.String(a.Key, MaskValue)
	}

	return a
}

// isPIIValue checks if a value matches a PII-shaped pattern.
func isPIIValue(value string) bool {
	for _, pattern := range piiPatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// NewPIILogger creates a new slog.Logger that masks PII in all output.
//
// Parameters:
//   - w: the io.Writer to write log output to (typically os.Stderr)
//   - verbose: if true, sets log level to Debug; otherwise Warn
func NewPIILogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	textHandler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewPIIHandler(textHandler))
}
