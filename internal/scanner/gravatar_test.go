package scanner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/idrecon/idrecon/internal/model"
)

// TestGravatarExecute tests the avatar probe against a stub server.
func TestGravatarExecute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		retryAfter string
		value      string
		wantKind   model.ErrorKind
		wantExists bool
	}{
		{name: "avatar found", status: http.StatusOK, value: "john@example.com", wantExists: true},
		{name: "avatar missing", status: http.StatusNotFound, value: "john@example.com", wantExists: false},
		{name: "throttled", status: http.StatusTooManyRequests, retryAfter: "7", value: "john@example.com", wantKind: model.ErrorKindRateLimited},
		{name: "server error", status: http.StatusBadGateway, value: "john@example.com", wantKind: model.ErrorKindTransient},
		{name: "forbidden", status: http.StatusForbidden, value: "john@example.com", wantKind: model.ErrorKindPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodHead {
					t.Errorf("expected HEAD, got %s", r.Method)
				}
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			g := NewGravatar(srv.Client(), srv.URL)
			res, err := g.Execute(context.Background(), Target{QueryType: model.QueryTypeEmail, Value: tt.value})
			if err != nil {
				t.Fatalf("unexpected contract error: %v", err)
			}

			if res.ErrorKind != tt.wantKind {
				t.Fatalf("error kind: got %q, want %q", res.ErrorKind, tt.wantKind)
			}
			if tt.wantKind == model.ErrorKindRateLimited && res.RetryAfter != 7*time.Second {
				t.Errorf("retry-after: got %s, want 7s", res.RetryAfter)
			}
			if res.OK() {
				if got := res.Payload["avatar_exists"]; got != tt.wantExists {
					t.Errorf("avatar_exists: got %v, want %v", got, tt.wantExists)
				}
			}
		})
	}

	t.Run("non-email value is a permanent failure", func(t *testing.T) {
		t.Parallel()

		g := NewGravatar(nil, "http://unused.invalid")
		res, err := g.Execute(context.Background(), Target{QueryType: model.QueryTypeEmail, Value: "not-an-email"})
		if err != nil {
			t.Fatalf("unexpected contract error: %v", err)
		}
		if res.ErrorKind != model.ErrorKindPermanent {
			t.Errorf("expected permanent failure, got %q", res.ErrorKind)
		}
	})
}

// TestGHProfileExecute tests the username probe against a stub server.
func TestGHProfileExecute(t *testing.T) {
	t.Parallel()

	t.Run("profile exists", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		g := NewGHProfile(srv.Client(), srv.URL)
		res, err := g.Execute(context.Background(), Target{QueryType: model.QueryTypeUsername, Value: "OctoCat"})
		if err != nil {
			t.Fatalf("unexpected contract error: %v", err)
		}
		if !res.OK() {
			t.Fatalf("expected success, got %q", res.ErrorKind)
		}
		if res.Payload["username"] != "octocat" {
			t.Errorf("expected lowered username, got %v", res.Payload["username"])
		}
		if res.Payload["profile_exists"] != true {
			t.Error("expected profile_exists=true")
		}
	})

	t.Run("invalid username is a permanent failure", func(t *testing.T) {
		t.Parallel()

		g := NewGHProfile(nil, "http://unused.invalid")
		res, err := g.Execute(context.Background(), Target{QueryType: model.QueryTypeUsername, Value: "has spaces"})
		if err != nil {
			t.Fatalf("unexpected contract error: %v", err)
		}
		if res.ErrorKind != model.ErrorKindPermanent {
			t.Errorf("expected permanent failure, got %q", res.ErrorKind)
		}
	})
}

// TestMXProbeRejectsNonEmail tests input validation without touching DNS.
func TestMXProbeRejectsNonEmail(t *testing.T) {
	t.Parallel()

	p := NewMXProbe(nil)
	res, err := p.Execute(context.Background(), Target{QueryType: model.QueryTypeEmail, Value: "no-at-sign"})
	if err != nil {
		t.Fatalf("unexpected contract error: %v", err)
	}
	if res.ErrorKind != model.ErrorKindPermanent {
		t.Errorf("expected permanent failure, got %q", res.ErrorKind)
	}
}

// TestEXIFProbeMissingFile tests that a bad path is a permanent failure.
func TestEXIFProbeMissingFile(t *testing.T) {
	t.Parallel()

	p := NewEXIFProbe(0)
	res, err := p.Execute(context.Background(), Target{QueryType: model.QueryTypeImage, Value: "/nonexistent/image.jpg"})
	if err != nil {
		t.Fatalf("unexpected contract error: %v", err)
	}
	if res.ErrorKind != model.ErrorKindPermanent {
		t.Errorf("expected permanent failure, got %q", res.ErrorKind)
	}
}
