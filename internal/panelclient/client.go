package panelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"atlas/internal/config"
	"atlas/internal/services"
)

const defaultTimeout = 15 * time.Minute

// Client talks to the panel API.
type Client struct {
	base       *url.URL
	token      string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a client for the panel at baseURL.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if raw == "" {
		return nil, services.Wrap(services.ErrConfiguration, "panelclient", "init", "panel address is empty", nil)
	}
	base, err := url.Parse(raw + "/")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "panelclient", "init", "parse panel address", err)
	}
	c := &Client{
		base:  base,
		token: strings.TrimSpace(token),
		// Single-image starts and uploads block for minutes on the backend.
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FromConfig targets the panel described by cfg.
func FromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "panelclient", "init", "config is required", nil)
	}
	return New(BaseURL(cfg.Panel.Bind), cfg.Panel.Token, opts...)
}

// BaseURL turns a listen address into a dialable URL. Wildcard hosts are
// reached through loopback.
func BaseURL(bind string) string {
	bind = strings.TrimSpace(bind)
	if strings.HasPrefix(bind, "http://") || strings.HasPrefix(bind, "https://") {
		return bind
	}
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return "http://" + bind
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// APIError is a non-2xx panel response.
type APIError struct {
	StatusCode int
	Message    string
	Kind       string
	Hint       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("panel returned status %d", e.StatusCode)
	}
	return e.Message
}

// Unwrap maps the panel's error kind back onto the service markers so
// callers can use errors.Is across the wire.
func (e *APIError) Unwrap() error {
	switch e.Kind {
	case "start":
		return services.ErrStart
	case "job":
		return services.ErrJobFailed
	case "publish":
		return services.ErrPublish
	case "device":
		return services.ErrDevice
	case "timeout":
		return services.ErrTimeout
	case "validation":
		return services.ErrValidation
	case "configuration":
		return services.ErrConfiguration
	case "not_found":
		return services.ErrNotFound
	case "busy":
		return services.ErrBusy
	case "transient":
		return services.ErrTransient
	}
	switch e.StatusCode {
	case http.StatusBadRequest:
		return services.ErrValidation
	case http.StatusNotFound:
		return services.ErrNotFound
	case http.StatusConflict:
		return services.ErrBusy
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	ref := &url.URL{Path: strings.TrimPrefix(path, "/")}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	return c.base.ResolveReference(ref).String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", id)
	}
	return req, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.wrapDialError(err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
		Hint  string `json:"hint"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &payload) == nil {
		apiErr.Message, apiErr.Kind, apiErr.Hint = payload.Error, payload.Kind, payload.Hint
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return nil, services.WithHint(apiErr, apiErr.Hint)
}

func (c *Client) wrapDialError(err error) error {
	addr := c.base.Host
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to panel: %s refused the connection; start it with `atlas serve`", addr)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("connect to panel: %w", err)
	}
}

// doJSON sends in as JSON (when non-nil) and decodes the reply into out
// (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var (
		body        io.Reader
		contentType string
	)
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, query, body, contentType)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func boolQuery(key string, value bool) url.Values {
	return url.Values{key: []string{strconv.FormatBool(value)}}
}
