package scanner

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/idrecon/idrecon/internal/model"
)

func init() {
	Default().MustRegister(Metadata{
		Name:         "ghprofile",
		Description:  "GitHub profile existence probe for usernames",
		Capabilities: []model.QueryType{model.QueryTypeUsername},
		Reliability:  0.85,
		AvgLatency:   400 * time.Millisecond,
		Rate:         model.RatePolicy{RequestsPerSecond: 1, Burst: 2},
	}, func() (Adapter, error) {
		return NewGHProfile(nil, ""), nil
	})
}

// ghBaseURL is the production GitHub endpoint.
const ghBaseURL = "https://github.com"

// ghUsernamePattern matches valid GitHub usernames (permissive: hyphen
// placement rules are left to the upstream to enforce).
var ghUsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,38}$`)

// GHProfile probes whether a username owns a GitHub profile.
type GHProfile struct {
	// client performs the HTTP requests. Injectable for tests.
	client *http.Client

	// baseURL is the endpoint root. Overridable for tests.
	baseURL string
}

// NewGHProfile creates a GHProfile probe. A nil client uses a default
// client; an empty baseURL uses the production endpoint.
func NewGHProfile(client *http.Client, baseURL string) *GHProfile {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if baseURL == "" {
		baseURL = ghBaseURL
	}
	return &GHProfile{client: client, baseURL: baseURL}
}

// Name returns the adapter name.
func (g *GHProfile) Name() string { return "ghprofile" }

// Execute checks whether the target username resolves to a profile page.
func (g *GHProfile) Execute(ctx context.Context, target Target) (*Result, error) {
	start := time.Now()

	username := strings.TrimSpace(target.Value)
	if !ghUsernamePattern.MatchString(username) {
		return Failure(model.ErrorKindPermanent, "value is not a valid username", time.Since(start)), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, g.baseURL+"/"+username, nil)
	if err != nil {
		return nil, fmt.Errorf("ghprofile: failed to build request: %w", err)
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
			"username":       strings.ToLower(username),
			"profile_exists": true,
			"profile_url":    g.baseURL + "/" + username,
		}, latency), nil
	case resp.StatusCode == http.StatusNotFound:
		return Success(map[string]any{
			"username":       strings.ToLower(username),
			"profile_exists": false,
		}, latency), nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Result{
			ErrorKind:  model.ErrorKindRateLimited,
			Message:    "github throttled the request",
			Latency:    latency,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}, nil
	case resp.StatusCode >= 500:
		return Failure(model.ErrorKindTransient, resp.Status, latency), nil
	default:
		return Failure(model.ErrorKindPermanent, resp.Status, latency), nil
	}
}
