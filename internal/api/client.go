package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const DefaultTimeout = 120 * time.Second

// StatusError is returned when the backend answers with a non-2xx status on
// an endpoint whose error bodies are not part of the contract.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client talks to the chat backend over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	duration   metric.Float64Histogram
}

// ClientOption configures a Client
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
}

// WithHTTPClient replaces the default HTTP client. The caller is then
// responsible for its cookie jar.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = hc }
}

func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) { o.timeout = d }
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) { o.logger = logger }
}

func WithTracer(tracer trace.Tracer) ClientOption {
	return func(o *clientOptions) { o.tracer = tracer }
}

func WithMeter(meter metric.Meter) ClientOption {
	return func(o *clientOptions) { o.meter = meter }
}

// NewClient creates a client for the backend rooted at baseURL
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	o := clientOptions{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = tracenoop.NewTracerProvider().Tracer("api")
	}
	if o.meter == nil {
		o.meter = metricnoop.NewMeterProvider().Meter("api")
	}

	httpClient := o.httpClient
	if httpClient == nil {
		// The backend keys history by its session cookie, so chat and
		// history must share a jar.
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		httpClient = &http.Client{Timeout: o.timeout, Jar: jar}
	}

	duration, err := o.meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     o.logger,
		tracer:     o.tracer,
		duration:   duration,
	}, nil
}

// BaseURL returns the backend root this client was created with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Chat sends one user message. The backend reports failures as JSON bodies
// with 4xx/5xx status codes, so the body is decoded regardless of status;
// only transport errors and non-JSON bodies are returned as errors.
func (c *Client) Chat(ctx context.Context, message string) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, PathChat, ChatRequest{Message: message}, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History fetches the backend's stored conversation for this client's session
func (c *Client) History(ctx context.Context) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.do(ctx, http.MethodGet, PathHistory, nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Config fetches backend configuration and model availability
func (c *Client) Config(ctx context.Context) (*ConfigResponse, error) {
	var resp ConfigResponse
	if err := c.do(ctx, http.MethodGet, PathConfig, nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Clear asks the backend to drop the stored conversation. The
// acknowledgement body is ignored.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, PathClear, nil, nil, true)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}, requireOK bool) error {
	ctx, span := c.tracer.Start(ctx, "backend "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		c.duration.Record(ctx, float64(time.Since(start))/float64(time.Millisecond),
			metric.WithAttributes(attribute.String("url.path", path)))
	}()

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("backend response", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(respBody))

	if requireOK && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		err := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(respBody)}
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid response body")
		return fmt.Errorf("failed to unmarshal response (HTTP %d): %w", resp.StatusCode, err)
	}
	return nil
}
