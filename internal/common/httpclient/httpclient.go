package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const UserAgent = "transit-board/1.0"

// maxBodyBytes bounds a single upstream response
const maxBodyBytes = 16 << 20

var (
	downloadCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transitboard_http_download_count",
		Help: "Number of successful upstream downloads",
	}, []string{"source"})
	errorCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transitboard_http_error_count",
		Help: "Number of upstream requests that failed or returned a non-2xx status",
	}, []string{"source"})
)

func init() {
	prometheus.MustRegister(downloadCount, errorCount)
}

// StatusError is returned for a non-2xx upstream response
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d from %s", e.StatusCode, e.URL)
}

type Options struct {
	Timeout     time.Duration
	BearerToken string
	Accept      string
}

// Client fetches upstream payloads for one named source
type Client struct {
	source string
	client *http.Client
}

func New(source string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		source: source,
		client: &http.Client{
			Timeout:   timeout,
			Transport: newTransport(opts.BearerToken, opts.Accept),
		},
	}
}

// Get performs a single GET and returns the body. There is no retry.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return c.retError(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return c.retError(fmt.Errorf("failed to fetch %s: %w", c.source, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return c.retError(&StatusError{URL: redact(req), StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return c.retError(fmt.Errorf("failed to read response body: %w", err))
	}

	downloadCount.With(prometheus.Labels{"source": c.source}).Inc()
	return body, nil
}

func (c *Client) retError(err error) ([]byte, error) {
	errorCount.With(prometheus.Labels{"source": c.source}).Inc()
	return nil, err
}

// redact drops the query string, which carries API keys for the CTA feeds
func redact(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}

type apiTransport struct {
	BearerToken string
	Accept      string
	UserAgent   string
}

func (t *apiTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	request = request.Clone(request.Context())
	request.Header.Set("User-Agent", t.UserAgent)
	if t.Accept != "" {
		request.Header.Set("Accept", t.Accept)
	}
	if t.BearerToken != "" {
		request.Header.Set("Authorization", "Bearer "+t.BearerToken)
	}

	return http.DefaultTransport.RoundTrip(request)
}

func newTransport(token, accept string) http.RoundTripper {
	return &apiTransport{
		BearerToken: token,
		Accept:      accept,
		UserAgent:   UserAgent,
	}
}
