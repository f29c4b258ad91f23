// Package transport performs the HTTP exchange for the request pipeline.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"resty.dev/v3"

	"cfkit/pkg/core"
)

// Client wraps a resty HTTP client with logging and configuration.
// It never retries: one call is one exchange.
type Client struct {
	client *resty.Client
	logger zerolog.Logger
	mu     sync.RWMutex
	closed bool
}

// Config holds the settings of the HTTP layer.
type Config struct {
	BaseURL   string        `validate:"required,url"`
	Timeout   time.Duration `validate:"min=1ms"`
	UserAgent string
}

// ConfigFrom extracts the transport settings from a client configuration.
func ConfigFrom(c *core.Config) *Config {
	return &Config{
		BaseURL: c.Endpoint(),
		Timeout: c.Timeout,
	}
}

// Response represents an HTTP response with its status code, body, and headers.
type Response struct {
	// StatusCode is the HTTP status code returned by the server.
	StatusCode int

	// Body contains the raw response body bytes.
	Body []byte

	// Headers contains the first value of each response header.
	Headers map[string]string
}

// NewClient creates a new HTTP client with the specified configuration.
func NewClient(config *Config, logger zerolog.Logger) (*Client, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, core.NewConfigurationError("transport.NewClient", "invalid transport config", err)
	}

	client := resty.New()
	client.SetBaseURL(config.BaseURL)
	client.SetTimeout(config.Timeout)
	client.SetRetryCount(0)
	if config.UserAgent != "" {
		client.SetHeader("User-Agent", config.UserAgent)
	}

	client.AddRequestMiddleware(func(_ *resty.Client, req *resty.Request) error {
		logger.Debug().
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("http request")
		return nil
	})

	client.AddResponseMiddleware(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug().
			Str("method", resp.Request.Method).
			Str("url", resp.Request.URL).
			Int("status", resp.StatusCode()).
			Int("size", len(resp.Bytes())).
			Msg("http response")
		return nil
	})

	return &Client{
		client: client,
		logger: logger,
	}, nil
}

// Post sends one form POST. A non-empty encoded string is appended to the
// URL as the raw query and also sent as the body. headers are written with
// their exact casing. The response is returned whatever its status code;
// only a failed exchange produces an error.
func (c *Client) Post(ctx context.Context, path, encoded string, headers map[string]string) (*Response, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, core.NewTransportError("transport.Post", core.ErrClientClosed)
	}

	url := path
	if encoded != "" {
		url = path + "?" + encoded
	}

	r := c.client.R().
		SetContext(ctx).
		SetContentType(core.FormContentType)
	if encoded != "" {
		r.SetBody(encoded)
	}
	for k, v := range headers {
		r.SetHeaderVerbatim(k, v)
	}

	resp, err := r.Post(url)
	if err != nil {
		return nil, core.NewTransportError("transport.Post", fmt.Errorf("POST %s: %w", path, err))
	}

	respHeaders := make(map[string]string, len(resp.Header()))
	for k, v := range resp.Header() {
		if len(v) > 0 {
			respHeaders[k] = v[0]
		}
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Bytes(),
		Headers:    respHeaders,
	}, nil
}

// Close releases idle connections. Later calls fail with a transport error.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.client.Close()
}

// IsError returns true if the response status code indicates an error (4xx or 5xx).
func (r *Response) IsError() bool {
	return r.StatusCode >= http.StatusBadRequest
}
