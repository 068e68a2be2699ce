package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"atlas/internal/config"
	"atlas/internal/logging"
	"atlas/internal/services"
)

const (
	defaultRequestTimeout   = 5 * time.Minute
	defaultStartTimeout     = 5 * time.Minute
	defaultNewsStartTimeout = 10 * time.Minute
	defaultPollTimeout      = 10 * time.Second
	maxErrorBody            = 2048
)

// Config captures the runtime settings required to talk to the backend.
type Config struct {
	BaseURL          string
	RequestTimeout   time.Duration
	StartTimeout     time.Duration
	NewsStartTimeout time.Duration
	PollTimeout      time.Duration
}

// ConfigFrom extracts gateway settings from application config.
func ConfigFrom(cfg *config.Config) Config {
	if cfg == nil {
		return Config{}
	}
	return Config{
		BaseURL:          cfg.Backend.BaseURL,
		RequestTimeout:   cfg.RequestTimeout(),
		StartTimeout:     cfg.StartTimeout(),
		NewsStartTimeout: cfg.NewsStartTimeout(),
		PollTimeout:      cfg.PollTimeout(),
	}
}

type timeoutClass int

const (
	classRequest timeoutClass = iota
	classStart
	classNewsStart
	classPoll
)

// Client wraps the content backend's HTTP API. Every call carries a bounded
// timeout chosen by its class: short for status polls, minutes for job starts.
type Client struct {
	base       *url.URL
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
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

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "gateway")
	}
}

// New constructs a backend client.
func New(cfg Config, opts ...Option) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		return nil, services.Wrap(services.ErrConfiguration, "gateway", "init", "backend base url is empty", nil)
	}
	base, err := url.Parse(raw + "/")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "gateway", "init", "parse backend base url", err)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = defaultStartTimeout
	}
	if cfg.NewsStartTimeout <= 0 {
		cfg.NewsStartTimeout = defaultNewsStartTimeout
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	client := &Client{
		base:       base,
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logging.NewComponentLogger(nil, "gateway"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned http %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned http %d: %s", e.StatusCode, e.Message)
}

// BackendMessage returns the backend-supplied text carried by err, or err's
// own text when none is present.
func BackendMessage(err error) string {
	if err == nil {
		return ""
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	return err.Error()
}

func (c *Client) timeout(class timeoutClass) time.Duration {
	switch class {
	case classStart:
		return c.cfg.StartTimeout
	case classNewsStart:
		return c.cfg.NewsStartTimeout
	case classPoll:
		return c.cfg.PollTimeout
	default:
		return c.cfg.RequestTimeout
	}
}

type request struct {
	op          string
	class       timeoutClass
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func (c *Client) jsonRequest(op string, class timeoutClass, method, path string, payload any) (request, error) {
	req := request{op: op, class: class, method: method, path: path}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return req, services.Wrap(services.ErrValidation, "gateway", op, "encode request", err)
		}
		req.body = bytes.NewReader(data)
		req.contentType = "application/json"
	}
	return req, nil
}

// send issues the request and returns the raw response body for 2xx answers.
func (c *Client) send(ctx context.Context, r request) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout(r.class))
	defer cancel()

	endpoint := c.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(r.path, "/"), RawQuery: r.query.Encode()})
	req, err := http.NewRequestWithContext(ctx, r.method, endpoint.String(), r.body)
	if err != nil {
		return nil, "", services.Wrap(services.ErrValidation, "gateway", r.op, "build request", err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, "", services.Wrap(services.ErrTimeout, "gateway", r.op,
				fmt.Sprintf("no response within %s", c.timeout(r.class)), err)
		}
		return nil, "", services.Wrap(services.ErrTransient, "gateway", r.op, "backend unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, "", services.Wrap(services.ErrTimeout, "gateway", r.op, "read response", err)
		}
		return nil, "", services.Wrap(services.ErrTransient, "gateway", r.op, "read response", err)
	}

	c.logger.Debug("backend call",
		logging.String("op", r.op),
		logging.String(logging.FieldCorrelationID, requestID),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode >= 400 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Message: extractErrorMessage(body)}
		marker := services.ErrTransient
		switch {
		case resp.StatusCode == http.StatusNotFound:
			marker = services.ErrNotFound
		case resp.StatusCode < 500:
			marker = services.ErrValidation
		}
		return nil, "", services.Wrap(marker, "gateway", r.op, "", statusErr)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) call(ctx context.Context, r request, out any) error {
	body, _, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrTransient, "gateway", r.op, "decode response", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, op string, class timeoutClass, path string, payload, out any) error {
	req, err := c.jsonRequest(op, class, http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	return c.call(ctx, req, out)
}

func (c *Client) getJSON(ctx context.Context, op string, class timeoutClass, path string, out any) error {
	return c.call(ctx, request{op: op, class: class, method: http.MethodGet, path: path}, out)
}

// extractErrorMessage pulls detail/error/message from a JSON error body.
func extractErrorMessage(body []byte) string {
	var payload struct {
		Detail  any    `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch detail := payload.Detail.(type) {
		case string:
			if detail != "" {
				return detail
			}
		case nil:
		default:
			if data, err := json.Marshal(detail); err == nil {
				return string(data)
			}
		}
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return text
}
