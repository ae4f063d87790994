// Package launchpad is a small client for the Launchpad web service API, covering
// the archive, series, publication, build and copy operations used to promote packages.
package launchpad

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openfroyo/ppactl/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultAPIRoot is the production web service root.
const DefaultAPIRoot = "https://api.launchpad.net/devel/"

// ClientOptions configures a Client.
type ClientOptions struct {
	// APIRoot is the web service root URL. Defaults to DefaultAPIRoot.
	APIRoot string

	// Distribution is the distribution PPAs and series belong to (e.g. "ubuntu").
	Distribution string

	// Credentials sign every request. Nil means anonymous, read-only access.
	Credentials *Credentials

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// RequestsPerSecond and Burst configure client-side rate limiting. Zero disables it.
	RequestsPerSecond float64
	Burst             int

	// Debug logs every request with its sequence number.
	Debug bool

	// Transport is the base round tripper. Defaults to http.DefaultTransport.
	Transport http.RoundTripper

	// Counter numbers the requests. Pass one in to read the count from
	// outside the client, e.g. for log timing. Defaults to a fresh counter.
	Counter *RequestCounter

	Logger  *telemetry.Logger
	Metrics *telemetry.Metrics
	Tracer  *telemetry.Tracer
}

// Client talks to the Launchpad web service.
type Client struct {
	root         *url.URL
	distribution string
	http         *http.Client
	counter      *RequestCounter
	logger       *telemetry.Logger
	metrics      *telemetry.Metrics
	tracer       *telemetry.Tracer
}

// NewClient creates a new web service client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.APIRoot == "" {
		opts.APIRoot = DefaultAPIRoot
	}
	if !strings.HasSuffix(opts.APIRoot, "/") {
		opts.APIRoot += "/"
	}
	root, err := url.Parse(opts.APIRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid api root %q: %w", opts.APIRoot, err)
	}
	if opts.Distribution == "" {
		opts.Distribution = "ubuntu"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.NopLogger()
	}
	if opts.Tracer == nil {
		opts.Tracer = telemetry.NoopTracer()
	}

	counter := opts.Counter
	if counter == nil {
		counter = &RequestCounter{}
	}
	return &Client{
		root:         root,
		distribution: opts.Distribution,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: newTransport(opts.Transport, opts, counter),
		},
		counter: counter,
		logger:  opts.Logger.NewComponentLogger("launchpad"),
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}, nil
}

// RequestCount returns the number of HTTP requests issued by this client.
func (c *Client) RequestCount() int64 {
	return c.counter.Count()
}

// GetArchive fetches the PPA named name owned by owner.
func (c *Client) GetArchive(ctx context.Context, owner, name string) (*Archive, error) {
	var archive Archive
	ref := fmt.Sprintf("~%s/+archive/%s/%s", owner, c.distribution, name)
	if err := c.get(ctx, "getArchive", ref, nil, &archive); err != nil {
		return nil, err
	}
	return &archive, nil
}

// GetSeries fetches a distribution series by codename.
func (c *Client) GetSeries(ctx context.Context, name string) (*Series, error) {
	var series Series
	ref := fmt.Sprintf("%s/%s", c.distribution, name)
	if err := c.get(ctx, "getSeries", ref, nil, &series); err != nil {
		return nil, err
	}
	return &series, nil
}

// GetPublishedSources lists source publications in archive matching filter,
// following collection pages until exhausted.
func (c *Client) GetPublishedSources(ctx context.Context, archive *Archive, filter SourceFilter) ([]SourcePublication, error) {
	params := url.Values{}
	params.Set("ws.op", "getPublishedSources")
	if filter.SeriesLink != "" {
		params.Set("distro_series", filter.SeriesLink)
	}
	if filter.Status != "" {
		params.Set("status", string(filter.Status))
	}
	if filter.SourceName != "" {
		params.Set("source_name", filter.SourceName)
	}
	if filter.Version != "" {
		params.Set("version", filter.Version)
	}
	if filter.ExactMatch {
		params.Set("exact_match", "true")
	}
	if filter.OrderByDate {
		params.Set("order_by_date", "true")
	}

	return getCollection[SourcePublication](ctx, c, "getPublishedSources", archive.SelfLink, params)
}

// GetBuilds lists the builds of a source publication.
func (c *Client) GetBuilds(ctx context.Context, source SourcePublication) ([]Build, error) {
	params := url.Values{}
	params.Set("ws.op", "getBuilds")
	return getCollection[Build](ctx, c, "getBuilds", source.SelfLink, params)
}

// CopyPackage asks Launchpad to copy one source into archive.
func (c *Client) CopyPackage(ctx context.Context, archive *Archive, req CopyPackageRequest) error {
	form := url.Values{}
	form.Set("ws.op", "copyPackage")
	form.Set("source_name", req.SourceName)
	form.Set("version", req.Version)
	form.Set("from_archive", req.FromArchiveLink)
	form.Set("to_pocket", string(req.ToPocket))
	if req.ToSeries != "" {
		form.Set("to_series", req.ToSeries)
	}
	form.Set("include_binaries", jsonValue(req.IncludeBinaries))

	return c.post(ctx, "copyPackage", archive.SelfLink, form)
}

// SyncSources asks Launchpad to copy a set of sources into archive in one request.
func (c *Client) SyncSources(ctx context.Context, archive *Archive, req SyncSourcesRequest) error {
	form := url.Values{}
	form.Set("ws.op", "syncSources")
	form.Set("source_names", jsonValue(req.SourceNames))
	form.Set("from_archive", req.FromArchiveLink)
	form.Set("to_pocket", string(req.ToPocket))
	if req.FromSeries != "" {
		form.Set("from_series", req.FromSeries)
	}
	if req.ToSeries != "" {
		form.Set("to_series", req.ToSeries)
	}
	form.Set("include_binaries", jsonValue(req.IncludeBinaries))

	return c.post(ctx, "syncSources", archive.SelfLink, form)
}

// getCollection follows next_collection_link until every entry is read.
func getCollection[T any](ctx context.Context, c *Client, op, ref string, params url.Values) ([]T, error) {
	var entries []T
	next := ref
	for next != "" {
		var page collection[T]
		if err := c.get(ctx, op, next, params, &page); err != nil {
			return nil, err
		}
		entries = append(entries, page.Entries...)
		next = page.NextCollectionLink
		// next_collection_link already carries the query string.
		params = nil
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, op, ref string, params url.Values, out interface{}) error {
	u, err := c.resolve(ref)
	if err != nil {
		return err
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(ctx, op, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, ref string, form url.Values) error {
	u, err := c.resolve(ref)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	_, err = c.do(ctx, op, req)
	return err
}

func (c *Client) do(ctx context.Context, op string, req *http.Request) ([]byte, error) {
	ctx, span := c.tracer.StartAPISpan(ctx, op)
	defer span.End()
	req = req.WithContext(ctx)
	timer := telemetry.NewTimer()

	resp, err := c.http.Do(req)
	c.metrics.RecordAPICall(op, timer.Duration())
	if err != nil {
		c.metrics.RecordAPIError(op)
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordAPIError(op)
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to read %s response: %w", op, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		err = &BadRequestError{Operation: op, Message: strings.TrimSpace(string(body))}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		err = &APIError{Operation: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err != nil {
		c.metrics.RecordAPIError(op)
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.RecordSuccess(span)
	return body, nil
}

// resolve turns a self link or a path relative to the API root into an absolute URL.
func (c *Client) resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid resource link %q: %w", ref, err)
	}
	if u.IsAbs() {
		return u, nil
	}
	return c.root.ResolveReference(u), nil
}

// jsonValue encodes a non-string named operation argument the way the web service expects.
func jsonValue(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
