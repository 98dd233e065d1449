//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/server-launcher/internal/version"
)

// Client performs the launcher's outgoing HTTP requests.
type Client struct {
	// httpClient sends the requests.
	httpClient *http.Client
	// userAgent is sent with every request.
	userAgent string
	// callTimeout bounds a whole request including the body; zero means no limit.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithCallTimeout bounds every request. Downloads are unbounded by default.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errBadHTTPStatus is returned for responses other than 200 OK.
	errBadHTTPStatus = errors.New("unexpected http status")
	// errURLRequired is returned when a request URL is empty.
	errURLRequired = errors.New("url must be provided")
)

// NewClient builds a Client on top of http.DefaultClient.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: http.DefaultClient,
		userAgent:  version.UserAgent(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Fetch performs a GET and returns the whole body of a 200 OK response.
func (c *Client) Fetch(ctx context.Context, rawURL, accept string) ([]byte, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.get(ctx, rawURL, accept)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}

	return body, nil
}

// Stream performs a GET and passes the body of a 200 OK response to consume.
func (c *Client) Stream(ctx context.Context, rawURL string, consume func(io.Reader) error) error {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.get(ctx, rawURL, "")
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	return consume(response.Body)
}

// Download writes the body of rawURL to path, creating parent directories and
// replacing any existing file. It returns the number of bytes written.
func (c *Client) Download(ctx context.Context, rawURL, path string) (int64, error) {
	path = filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(path), DefaultDirMode); err != nil {
		return 0, fmt.Errorf("create download directory: %w", err)
	}

	var written int64

	err := c.Stream(ctx, rawURL, func(body io.Reader) error {
		outputFile, err := os.Create(path)
		if err != nil {
			return err
		}

		written, err = io.Copy(outputFile, body)
		if err != nil {
			_ = outputFile.Close()

			return fmt.Errorf("write %s: %w", path, err)
		}

		return outputFile.Close()
	})
	if err != nil {
		return written, err
	}

	return written, nil
}

// get sends the request and checks the status. The caller closes the body.
func (c *Client) get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	if rawURL == "" {
		return nil, errURLRequired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}

	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()

		return nil, fmt.Errorf("%s, %s: %w", rawURL, response.Status, errBadHTTPStatus)
	}

	return response, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
