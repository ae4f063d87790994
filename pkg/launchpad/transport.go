package launchpad

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/openfroyo/ppactl/pkg/telemetry"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// RequestCounter numbers the requests issued through one transport.
type RequestCounter struct {
	n atomic.Int64
}

// Next increments the counter and returns the new value.
func (c *RequestCounter) Next() int64 {
	return c.n.Add(1)
}

// Count returns the number of requests issued so far.
func (c *RequestCounter) Count() int64 {
	return c.n.Load()
}

// rateLimitedTransport waits on a token bucket before each request.
type rateLimitedTransport struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func (t *rateLimitedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	// Wait errors out early if the request cannot be sent before the context deadline.
	if err := t.limiter.Wait(r.Context()); err != nil {
		return nil, fmt.Errorf("rate limited: %w", err)
	}
	return t.next.RoundTrip(r)
}

// authTransport signs requests with OAuth PLAINTEXT credentials.
type authTransport struct {
	creds *Credentials
	now   func() time.Time
	next  http.RoundTripper
}

func (t *authTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", t.creds.AuthorizationHeader(t.now()))
	return t.next.RoundTrip(r)
}

// countingTransport numbers every request and, in debug mode, logs method, URL and status.
type countingTransport struct {
	counter *RequestCounter
	logger  *telemetry.Logger
	debug   bool
	next    http.RoundTripper
}

func (t *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	n := t.counter.Next()
	start := time.Now()
	resp, err := t.next.RoundTrip(r)
	if !t.debug {
		return resp, err
	}

	fields := map[string]interface{}{
		"request":  n,
		"method":   r.Method,
		"url":      r.URL.String(),
		"duration": time.Since(start).String(),
	}
	if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
		fields["trace_id"] = sc.TraceID().String()
	}
	l := t.logger.WithFields(fields)
	if err != nil {
		l.WithError(err).Debug("request failed")
		return resp, err
	}
	l.WithField("status", resp.StatusCode).Debug("request completed")
	return resp, err
}

// newTransport assembles the transport chain: count -> rate limit -> auth -> base.
func newTransport(base http.RoundTripper, opts ClientOptions, counter *RequestCounter) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	rt := base
	if opts.Credentials != nil {
		rt = &authTransport{creds: opts.Credentials, now: time.Now, next: rt}
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		rt = &rateLimitedTransport{
			limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst),
			next:    rt,
		}
	}
	return &countingTransport{
		counter: counter,
		logger:  opts.Logger,
		debug:   opts.Debug,
		next:    rt,
	}
}
