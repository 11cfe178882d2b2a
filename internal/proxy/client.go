// Package proxy forwards logical panel requests to the local backend API.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// RequestError is a failed forward. Message is what the user sees.
type RequestError struct {
	Status  int // 0 for transport failures
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Options configures a Client.
type Options struct {
	// Timeout bounds a single request. Zero means no client-side limit.
	Timeout time.Duration

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client

	Logger *zap.Logger
}

// Client issues GET requests against a fixed origin.
type Client struct {
	origin string
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a client for origin, e.g. http://127.0.0.1:8000
func NewClient(origin string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		origin: strings.TrimRight(origin, "/"),
		http:   hc,
		logger: logger.Named("proxy"),
	}
}

// Origin returns the base URL requests are sent to.
func (c *Client) Origin() string {
	return c.origin
}

// BuildURL joins endpoint onto the origin and merges params into any query
// the endpoint already carries. Keys are encoded in sorted order and params
// with empty values are left out.
func (c *Client) BuildURL(endpoint string, params map[string]string) string {
	if endpoint != "" && !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	raw := c.origin + endpoint

	set := make(map[string]string, len(params))
	for k, v := range params {
		if v != "" {
			set[k] = v
		}
	}
	if len(set) == 0 {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		// Let NewRequest report the bad URL
		return raw
	}
	q := u.Query()
	for k, v := range set {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Forward performs GET endpoint?params and returns the JSON body. Every
// failure is a *RequestError.
func (c *Client) Forward(ctx context.Context, endpoint string, params map[string]string) (json.RawMessage, error) {
	target := c.BuildURL(endpoint, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &RequestError{Message: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("url", target), zap.Error(err))
		return nil, &RequestError{Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Status: resp.StatusCode, Message: err.Error(), Err: err}
	}

	c.logger.Debug("request completed",
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
	}

	if !gjson.ValidBytes(body) {
		return nil, &RequestError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("invalid JSON response from %s", endpoint),
		}
	}
	return json.RawMessage(body), nil
}

// errorMessage picks the first human-readable field out of an error body
func errorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error", "message", "detail"} {
			r := gjson.GetBytes(body, path)
			if r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
	}
	return fmt.Sprintf("HTTP error! status: %d", status)
}

func transportMessage(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err.Error()
	}
	return err.Error()
}
