// Package galleryapi is the HTTP client for the external gallery endpoint that
// persists like flags and serves image resources.
package galleryapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"face-gallery/internal/config"
	"face-gallery/internal/domain/gallery"
	"face-gallery/internal/observability"
)

const likePath = "/like_image"

// Client talks to the gallery endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	metrics    *observability.UpstreamMetrics
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics records per-call metrics
func WithMetrics(m *observability.UpstreamMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client for the endpoint described by cfg
func NewClient(cfg config.UpstreamConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tracer:     observability.GetUpstreamTracer(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetLike sends a single-item like or unlike. A non-2xx status is an
// HTTPStatusError; success=false in the body is an ApplicationError.
func (c *Client) SetLike(ctx context.Context, path string, action gallery.Action) (*gallery.LikeResponse, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", gallery.ErrInvalidAction, action)
	}

	started := time.Now()
	ctx, span := c.startSpan(ctx, "galleryapi.SetLike",
		attribute.String("gallery.path", path),
		attribute.String("gallery.action", string(action)),
	)
	defer span.End()

	resp, err := c.post(ctx, gallery.LikeRequest{Path: path, Action: action})
	if err != nil {
		c.finish(ctx, span, "like", started, err)
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := &gallery.HTTPStatusError{StatusCode: resp.StatusCode}
		c.finish(ctx, span, "like", started, err)
		return nil, err
	}

	var likeResp gallery.LikeResponse
	if err := json.NewDecoder(resp.Body).Decode(&likeResp); err != nil {
		err := &gallery.MalformedResponseError{Err: err}
		c.finish(ctx, span, "like", started, err)
		return nil, err
	}

	if !likeResp.Success {
		err := &gallery.ApplicationError{StatusCode: resp.StatusCode, Message: likeResp.Message}
		c.finish(ctx, span, "like", started, err)
		return &likeResp, err
	}

	c.finish(ctx, span, "like", started, nil)
	return &likeResp, nil
}

// BatchLike likes every path in one request. The body is decoded whatever the
// status; on a non-2xx status the decoded body becomes an ApplicationError.
func (c *Client) BatchLike(ctx context.Context, paths []string) (*gallery.BatchLikeResponse, error) {
	started := time.Now()
	ctx, span := c.startSpan(ctx, "galleryapi.BatchLike",
		attribute.Int("gallery.paths", len(paths)),
	)
	defer span.End()

	resp, err := c.post(ctx, gallery.BatchLikeRequest{Paths: paths, Action: gallery.ActionLike})
	if err != nil {
		c.finish(ctx, span, "batch_like", started, err)
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		err := &gallery.NetworkError{Err: err}
		c.finish(ctx, span, "batch_like", started, err)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			err := &gallery.MalformedResponseError{Err: err}
			c.finish(ctx, span, "batch_like", started, err)
			return nil, err
		}
		err := gallery.NewApplicationError(resp.StatusCode, payload)
		c.finish(ctx, span, "batch_like", started, err)
		return nil, err
	}

	var batchResp gallery.BatchLikeResponse
	if err := json.Unmarshal(body, &batchResp); err != nil {
		err := &gallery.MalformedResponseError{Err: err}
		c.finish(ctx, span, "batch_like", started, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("gallery.found", len(batchResp.Found)),
		attribute.Int("gallery.not_found", len(batchResp.NotFound)),
	)
	c.finish(ctx, span, "batch_like", started, nil)
	return &batchResp, nil
}

// ImageURL is where the endpoint serves the image of an item
func (c *Client) ImageURL(category, filename string) string {
	segments := strings.Split(filename, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.baseURL + "/image/" + url.PathEscape(category) + "/" + strings.Join(segments, "/")
}

func (c *Client) post(ctx context.Context, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode like request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+likePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build like request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &gallery.NetworkError{Err: err}
	}
	return resp, nil
}

func (c *Client) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		semconv.HTTPRequestMethodKey.String(http.MethodPost),
		semconv.URLFull(c.baseURL+likePath),
	)
	return c.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func (c *Client) finish(ctx context.Context, span trace.Span, operation string, started time.Time, err error) {
	outcome := Outcome(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	c.metrics.Record(ctx, operation, outcome, started)
}

// Outcome classifies an upstream error for metrics and logs
func Outcome(err error) string {
	var (
		netErr    *gallery.NetworkError
		statusErr *gallery.HTTPStatusError
		appErr    *gallery.ApplicationError
		badErr    *gallery.MalformedResponseError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &statusErr):
		return "status"
	case errors.As(err, &appErr):
		return "application"
	case errors.As(err, &badErr):
		return "malformed"
	default:
		return "error"
	}
}
