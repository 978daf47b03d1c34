package scanner

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/idrecon/idrecon/internal/model"
)

func init() {
	Default().MustRegister(Metadata{
		Name:         "mxprobe",
		Description:  "DNS MX lookup validating the email's domain",
		Capabilities: []model.QueryType{model.QueryTypeEmail},
		Reliability:  0.9,
		AvgLatency:   150 * time.Millisecond,
		Rate:         model.RatePolicy{RequestsPerSecond: 10, Burst: 10},
	}, func() (Adapter, error) {
		return NewMXProbe(nil), nil
	})
}

// MXProbe checks whether an email's domain publishes MX records.
// A domain without MX records cannot receive mail, which marks the address
// as likely fabricated.
type MXProbe struct {
	// resolver performs the DNS lookups. Injectable for tests.
	resolver *net.Resolver
}

// NewMXProbe creates an MXProbe. A nil resolver uses net.DefaultResolver.
func NewMXProbe(resolver *net.Resolver) *MXProbe {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &MXProbe{resolver: resolver}
}

// Name returns the adapter name.
func (p *MXProbe) Name() string { return "mxprobe" }

// Execute looks up MX records for the target email's domain.
// A domain with no MX records is a successful result with mx_valid=false,
// not a failure: the source answered the question.
func (p *MXProbe) Execute(ctx context.Context, target Target) (*Result, error) {
	start := time.Now()

	_, domain, ok := strings.Cut(target.Value, "@")
	if !ok || domain == "" {
		// The query value itself is invalid for this scanner.
		return Failure(model.ErrorKindPermanent, "value is not an email address", time.Since(start)), nil
	}

	mxs, err := p.resolver.LookupMX(ctx, domain)
	latency := time.Since(start)

	if err != nil {
		var dnsErr *net.DNSError
		switch {
		case errors.As(err, &dnsErr) && dnsErr.IsNotFound:
			// Definitive answer: the domain has no MX records.
			return Success(map[string]any{
				"email":    target.Value,
				"domain":   domain,
				"mx_valid": false,
			}, latency), nil
		case errors.As(err, &dnsErr) && dnsErr.IsTimeout:
			return Failure(model.ErrorKindTimeout, dnsErr.Error(), latency), nil
		case ctx.Err() != nil:
			return Failure(model.ErrorKindTimeout, ctx.Err().Error(), latency), nil
		default:
			return Failure(model.ErrorKindTransient, err.Error(), latency), nil
		}
	}

	hosts := make([]string, 0, len(mxs))
	for _, mx := range mxs {
		hosts = append(hosts, strings.TrimSuffix(mx.Host, "."))
	}

	return Success(map[string]any{
		"email":    target.Value,
		"domain":   domain,
		"mx_valid": len(hosts) > 0,
		"mx_hosts": hosts,
	}, latency), nil
}
