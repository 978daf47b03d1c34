package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestPIIHandlerMasksByKey tests masking of subject-bearing attribute keys.
func TestPIIHandlerMasksByKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
		val  string
		mask bool
	}{
		{name: "target key", key: "target", val: "plainvalue", mask: true},
		{name: "email key", key: "email", val: "plainvalue", mask: true},
		{name: "phone key", key: "phone", val: "plainvalue", mask: true},
		{name: "uppercase key", key: "Target", val: "plainvalue", mask: true},
		{name: "scanner key passes through", key: "scanner", val: "mxprobe", mask: false},
		{name: "status key passes through", key: "status", val: "succeeded", mask: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(NewPIIHandler(slog.NewTextHandler(&buf, nil)))

			logger.Info("test", tt.key, tt.val)

			out := buf.String()
			if tt.mask {
				if strings.Contains(out, tt.val) {
					t.Errorf("value leaked into log output: %s", out)
				}
				if !strings.Contains(out, MaskValue) {
					t.Errorf("expected mask marker in output: %s", out)
				}
			} else if !strings.Contains(out, tt.val) {
				t.Errorf("expected value in output: %s", out)
			}
		})
	}
}

// TestPIIHandlerMasksByPattern tests masking of PII-shaped values under
// neutral keys.
func TestPIIHandlerMasksByPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		val  string
		mask bool
	}{
		{name: "email value", val: "john.doe@example.com", mask: true},
		{name: "e164 phone value", val: "+15551234567", mask: true},
		{name: "bearer token", val: "Bearer abc.def.ghi", mask: true},
		{name: "scanner name", val: "mxprobe", mask: false},
		{name: "national phone format passes", val: "555-1234", mask: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(NewPIIHandler(slog.NewTextHandler(&buf, nil)))

			logger.Info("test", "detail", tt.val)

			out := buf.String()
			if tt.mask && strings.Contains(out, tt.val) {
				t.Errorf("value leaked into log output: %s", out)
			}
			if !tt.mask && !strings.Contains(out, tt.val) {
				t.Errorf("expected value in output: %s", out)
			}
		})
	}
}

// TestPIIHandlerMasksGroups tests recursive masking inside groups.
func TestPIIHandlerMasksGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewPIIHandler(slog.NewTextHandler(&buf, nil)))

	logger.Info("test", slog.Group("task", slog.String("target", "jane@example.com"), slog.String("scanner", "gravatar")))

	out := buf.String()
	if strings.Contains(out, "jane@example.com") {
		t.Errorf("grouped value leaked into log output: %s", out)
	}
	if !strings.Contains(out, "gravatar") {
		t.Errorf("expected non-PII grouped value in output: %s", out)
	}
}

// TestPIIHandlerWithAttrs tests masking of pre-bound attributes.
func TestPIIHandlerWithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewPIIHandler(slog.NewTextHandler(&buf, nil)))

	logger.With("target", "jane@example.com").Info("bound")

	if strings.Contains(buf.String(), "jane@example.com") {
		t.Errorf("bound value leaked into log output: %s", buf.String())
	}
}

// TestNewPIILogger tests level selection for the verbose flag.
func TestNewPIILogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	quiet := NewPIILogger(&buf, false)
	quiet.Debug("hidden")
	quiet.Info("also hidden")
	if buf.Len() != 0 {
		t.Errorf("non-verbose logger must suppress debug/info: %s", buf.String())
	}

	verbose := NewPIILogger(&buf, true)
	verbose.Debug("visible")
	if buf.Len() == 0 {
		t.Error("verbose logger must emit debug output")
	}
}
