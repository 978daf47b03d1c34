package scanner

import (
	"context"
	"crypto/md5" //nolint:gosec // Gravatar's URL scheme requires MD5
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/idrecon/idrecon/internal/model"
)

func init() {
	Default().MustRegister(Metadata{
		Name:         "gravatar",
		Description:  "Gravatar avatar probe for email addresses",
		Capabilities: []model.QueryType{model.QueryTypeEmail},
		Reliability:  0.8,
		AvgLatency:   300 * time.Millisecond,
		Rate:         model.RatePolicy{RequestsPerSecond: 2, Burst: 4},
	}, func() (Adapter, error) {
		return NewGravatar(nil, ""), nil
	})
}

// gravatarBaseURL is the production avatar endpoint.
const gravatarBaseURL = "https://www.gravatar.com"

// Gravatar probes whether an email address has a Gravatar profile.
// Gravatar keys avatars on the MD5 of the lowercased address; requesting
// the avatar with d=404 returns 404 when no profile exists.
type Gravatar struct {
	// client performs the HTTP requests. Injectable for tests.
	client *http.Client

	// baseURL is the endpoint root. Overridable for tests.
	baseURL string
}

// NewGravatar creates a Gravatar probe. A nil client uses a default client;
// an empty baseURL uses the production endpoint.
func NewGravatar(client *http.Client, baseURL string) *Gravatar {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if baseURL == "" {
		baseURL = gravatarBaseURL
	}
	return &Gravatar{client: client, baseURL: baseURL}
}

// Name returns the adapter name.
func (g *Gravatar) Name() string { return "gravatar" }

// Execute checks for an avatar bound to the target email.
func (g *Gravatar) Execute(ctx context.Context, target Target) (*Result, error) {
	start := time.Now()

	addr := strings.ToLower(strings.TrimSpace(target.Value))
	if !strings.Contains(addr, "@") {
		return Failure(model.ErrorKindPermanent, "value is not an email address", time.Since(start)), nil
	}

	sum := md5.Sum([]byte(addr)) //nolint:gosec // Gravatar's URL scheme requires MD5
	hash := hex.EncodeToString(sum[:])
	url := fmt.Sprintf("%s/avatar/%s?d=404", g.baseURL, hash)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		// Contract violation: the request itself could not be built.
		return nil, fmt.Errorf("gravatar: failed to build request: %w", err)
	}

	resp, err := g.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return Failure(model.ErrorKindTimeout, err.Error(), latency), nil
		}
		return Failure(model.ErrorKindTransient, err.Error(), latency), nil
	}
	defer resp.Body.Close() //nolint:errcheck // HEAD response body is empty

	switch {
	case resp.StatusCode == http.StatusOK:
		return Success(map[string]any{
			"email":         addr,
			"avatar_exists": true,
			"avatar_hash":   hash,
		}, latency), nil
	case resp.StatusCode == http.StatusNotFound:
		return Success(map[string]any{
			"email":         addr,
			"avatar_exists": false,
		}, latency), nil
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return &Result{
			ErrorKind:  model.ErrorKindRateLimited,
			Message:    "gravatar throttled the request",
			Latency:    latency,
			RetryAfter: retryAfter,
		}, nil
	case resp.StatusCode >= 500:
		return Failure(model.ErrorKindTransient, resp.Status, latency), nil
	default:
		return Failure(model.ErrorKindPermanent, resp.Status, latency), nil
	}
}

// parseRetryAfter converts a Retry-After header (delta-seconds form) into a
// duration. Returns zero for absent or unparseable values so the engine
// falls back to its configured cooldown.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
