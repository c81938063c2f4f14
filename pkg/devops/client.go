package devops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mattsolo1/grove-workitems/pkg/auth"
	"github.com/sirupsen/logrus"
)

const (
	headerAccept        = "Accept"
	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"

	contentTypeJSON = "application/json"
)

// Client performs authenticated requests against Azure DevOps.
type Client struct {
	http     *http.Client
	sessions auth.SessionProvider
	batch    BatchOptions
	logger   *logrus.Entry
	timeout  time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout limits each request, including reading the response body.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithBatchOptions bounds the work item detail requests.
func WithBatchOptions(opts BatchOptions) ClientOption {
	return func(c *Client) { c.batch = opts }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client that authenticates with sessions from sp.
func NewClient(sp auth.SessionProvider, opts ...ClientOption) *Client {
	c := &Client{
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		sessions: sp,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		c.http.Timeout = c.timeout
	}
	if c.logger == nil {
		c.logger = discardLogger()
	}
	if c.batch.Logger == nil {
		c.batch.Logger = c.logger
	}
	c.batch = c.batch.withDefaults()
	return c
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// getJSON issues an authenticated GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	return c.doJSON(ctx, http.MethodGet, url, nil, out)
}

// postJSON issues an authenticated POST with a JSON body.
func (c *Client) postJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	return c.doJSON(ctx, http.MethodPost, url, payload, out)
}

func (c *Client) doJSON(ctx context.Context, method, url string, body []byte, out any) error {
	data, err := c.do(ctx, method, url, body, contentTypeJSON)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

// Download fetches a resource with the session credentials and returns its
// raw body. accept is sent as both Accept and Content-Type.
func (c *Client) Download(ctx context.Context, url, accept string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil, accept)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, mediaType string) ([]byte, error) {
	session, err := c.sessions.GetSession(ctx, auth.ProviderID, auth.SessionOptions{CreateIfNone: true})
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(headerAccept, mediaType)
	req.Header.Set(headerContentType, mediaType)
	req.Header.Set(headerAuthorization, auth.BasicAuthHeader(session.AccessToken))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"method":   method,
		"url":      url,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("Request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}
	return data, nil
}
