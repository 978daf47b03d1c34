package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/idrecon/idrecon/internal/model"
	"github.com/idrecon/idrecon/internal/orchestrator"
)

// fakeService is a stub Service that records calls and returns canned
// responses.
type fakeService struct {
	submitID  string
	submitErr error
	result    *model.Result
	resultErr error
	cancelErr error

	lastType  model.QueryType
	lastValue string
	lastOpts  model.Options
	cancelled string
}

func (f *fakeService) Submit(_ context.Context, qt model.QueryType, value string, opts model.Options) (string, error) {
	f.lastType = qt
	f.lastValue = value
	f.lastOpts = opts
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.submitID, nil
}

func (f *fakeService) Cancel(id string) error {
	f.cancelled = id
	return f.cancelErr
}

func (f *fakeService) GetResult(string) (*model.Result, error) {
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	return f.result, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// do runs one request through the server's handler and returns the
// recorded response.
func do(t *testing.T, svc Service, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	New(svc, testLogger()).Handler().ServeHTTP(rec, req)
	return rec
}

// TestHandleSubmit tests query submission over HTTP.
func TestHandleSubmit(t *testing.T) {
	t.Parallel()

	t.Run("accepts a valid query", func(t *testing.T) {
		t.Parallel()

		svc := &fakeService{submitID: "q-123"}
		rec := do(t, svc, http.MethodPost, "/api/v1/queries",
			`{"type":"email","value":"alice@example.com","deadline":"45s","deep_scan":true}`)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusAccepted, rec.Body.String())
		}

		var resp submitResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response JSON: %v", err)
		}
		if resp.ID != "q-123" {
			t.Errorf("ID = %q, want q-123", resp.ID)
		}
		if svc.lastType != model.QueryTypeEmail {
			t.Errorf("type = %q, want email", svc.lastType)
		}
		if svc.lastValue != "alice@example.com" {
			t.Errorf("value = %q, want alice@example.com", svc.lastValue)
		}
		if svc.lastOpts.Deadline != 45*time.Second {
			t.Errorf("deadline = %v, want 45s", svc.lastOpts.Deadline)
		}
		if !svc.lastOpts.DeepScan {
			t.Error("expected deep_scan to be carried through")
		}
	})

	t.Run("rejects unknown query type", func(t *testing.T) {
		t.Parallel()

		rec := do(t, &fakeService{}, http.MethodPost, "/api/v1/queries",
			`{"type":"passport","value":"x"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		t.Parallel()

		rec := do(t, &fakeService{}, http.MethodPost, "/api/v1/queries", `{"type":`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("rejects invalid deadline", func(t *testing.T) {
		t.Parallel()

		rec := do(t, &fakeService{}, http.MethodPost, "/api/v1/queries",
			`{"type":"email","value":"a@b.com","deadline":"soon"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("maps empty value to 400", func(t *testing.T) {
		t.Parallel()

		svc := &fakeService{submitErr: model.ErrEmptyQueryValue}
		rec := do(t, svc, http.MethodPost, "/api/v1/queries",
			`{"type":"email","value":"  "}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

// TestHandleGetResult tests result retrieval over HTTP.
func TestHandleGetResult(t *testing.T) {
	t.Parallel()

	t.Run("returns the result", func(t *testing.T) {
		t.Parallel()

		svc := &fakeService{result: &model.Result{
			QueryID: "q-123",
			Type:    model.QueryTypeEmail,
			Value:   "alice@example.com",
			Status:  model.StatusComplete,
		}}
		rec := do(t, svc, http.MethodGet, "/api/v1/queries/q-123", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var res model.Result
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("invalid response JSON: %v", err)
		}
		if res.QueryID != "q-123" {
			t.Errorf("QueryID = %q, want q-123", res.QueryID)
		}
		if res.Status != model.StatusComplete {
			t.Errorf("Status = %v, want complete", res.Status)
		}
		if !strings.Contains(rec.Body.String(), `"status":"complete"`) {
			t.Error("expected status to serialize as a string")
		}
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		t.Parallel()

		svc := &fakeService{resultErr: orchestrator.ErrUnknownQuery}
		rec := do(t, svc, http.MethodGet, "/api/v1/queries/nope", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}

// TestHandleCancel tests query cancellation over HTTP.
func TestHandleCancel(t *testing.T) {
	t.Parallel()

	t.Run("cancels a running query", func(t *testing.T) {
		t.Parallel()

		svc := &fakeService{}
		rec := do(t, svc, http.MethodPost, "/api/v1/queries/q-123/cancel", "")
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
		}
		if svc.cancelled != "q-123" {
			t.Errorf("cancelled = %q, want q-123", svc.cancelled)
		}
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		t.Parallel()

		svc := &fakeService{cancelErr: orchestrator.ErrUnknownQuery}
		rec := do(t, svc, http.MethodPost, "/api/v1/queries/nope/cancel", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("terminal query returns 409", func(t *testing.T) {
		t.Parallel()

		svc := &fakeService{cancelErr: orchestrator.ErrQueryTerminal}
		rec := do(t, svc, http.MethodPost, "/api/v1/queries/q-123/cancel", "")
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
		}
	})
}

// TestHandleHealth tests the liveness endpoint.
func TestHandleHealth(t *testing.T) {
	t.Parallel()

	rec := do(t, &fakeService{}, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Error("expected body to report ok")
	}
}

// TestListenAndServeShutdown verifies graceful shutdown on context
// cancellation.
func TestListenAndServeShutdown(t *testing.T) {
	t.Parallel()

	s := New(&fakeService{}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
