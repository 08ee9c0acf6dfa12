// Package httpclient provides the outbound HTTP client used for metadata
// scraping. It wraps the standard http.Client with automatic retries,
// transparent decompression (gzip, deflate, brotli), and structured logging.
package httpclient

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

// ErrMaxRetries indicates all retry attempts were exhausted.
var ErrMaxRetries = errors.New("max retries exceeded")

// Default configuration values.
const (
	DefaultTimeout       = 10 * time.Second
	DefaultRetryAttempts = 2
	DefaultRetryDelay    = 500 * time.Millisecond
	DefaultUserAgent     = "Mozilla/5.0 (compatible; clippa/1.0)"

	headerAcceptEncoding  = "Accept-Encoding"
	headerContentEncoding = "Content-Encoding"
	acceptedEncodings     = "gzip, deflate, br"
)

// Config holds the configuration for the HTTP client.
type Config struct {
	// Timeout is the overall request timeout.
	Timeout time.Duration

	// RetryAttempts is the number of retry attempts for failed requests.
	RetryAttempts int

	// RetryDelay is the delay between retries, doubled each attempt.
	RetryDelay time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// Logger is the structured logger for request logging.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:       DefaultTimeout,
		RetryAttempts: DefaultRetryAttempts,
		RetryDelay:    DefaultRetryDelay,
		UserAgent:     DefaultUserAgent,
		Logger:        slog.Default(),
	}
}

// Client is an HTTP client with retry and decompression support.
type Client struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a client with the given configuration.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: cfg.Logger,
	}
}

// Get fetches a URL, retrying transient failures. The response body is
// transparently decompressed.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error
	delay := c.config.RetryDelay

	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set(headerAcceptEncoding, acceptedEncodings)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Debug("request failed",
				slog.String("url", url),
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()),
			)
			continue
		}

		if isRetryableStatus(resp.StatusCode) {
			resp.Body.Close()
			lastErr = fmt.Errorf("server returned %s", resp.Status)
			continue
		}

		resp.Body = c.wrapDecompression(resp)
		return resp, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrMaxRetries, lastErr)
}

// isRetryableStatus reports whether a status code warrants a retry.
func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// wrapDecompression wraps the response body with the decoder matching its
// Content-Encoding header.
func (c *Client) wrapDecompression(resp *http.Response) io.ReadCloser {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get(headerContentEncoding)))
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return resp.Body
		}
		return &decompressReader{reader: gz, underlying: resp.Body}
	case "deflate":
		return &decompressReader{reader: flate.NewReader(resp.Body), underlying: resp.Body}
	case "br":
		return &decompressReader{reader: io.NopCloser(brotli.NewReader(resp.Body)), underlying: resp.Body}
	default:
		return resp.Body
	}
}

// decompressReader closes both the decoder and the underlying body.
type decompressReader struct {
	reader     io.ReadCloser
	underlying io.ReadCloser
}

func (d *decompressReader) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

func (d *decompressReader) Close() error {
	d.reader.Close()
	return d.underlying.Close()
}
