package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuildDetails(t *testing.T) {
	t.Parallel()

	ver, rev, built := buildDetails()
	if ver == "" {
		t.Error("version must never be empty")
	}
	if rev == "" {
		t.Error("commit must never be empty")
	}
	if len(rev) > 7 {
		t.Errorf("commit %q longer than 7 characters", rev)
	}
	if built == "" {
		t.Error("build date must never be empty")
	}
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewVersionCmd()

	t.Run("command has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "version" {
			t.Errorf("expected Use to be 'version', got %q", cmd.Use)
		}
	})

	t.Run("command has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected Short to be non-empty")
		}
	})

	t.Run("command outputs version info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		cmd := NewVersionCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{})

		err := cmd.Execute()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "idrecon version") {
			t.Errorf("expected output to contain 'idrecon version', got %q", output)
		}
		if !strings.Contains(output, "commit:") {
			t.Errorf("expected output to contain 'commit:', got %q", output)
		}
		if !strings.Contains(output, "built:") {
			t.Errorf("expected output to contain 'built:', got %q", output)
		}
	})
}
