// Package probe loads image resources the way a browser would before
// revealing them, and reports their dimensions and format.
package probe

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoding
	_ "image/jpeg" // Register JPEG decoding
	_ "image/png"  // Register PNG decoding
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	_ "golang.org/x/image/bmp"  // Register BMP decoding
	_ "golang.org/x/image/tiff" // Register TIFF decoding
	_ "golang.org/x/image/webp" // Register WebP decoding

	"face-gallery/internal/config"
	"face-gallery/internal/domain/gallery"
)

const instrumentationName = "face-gallery/internal/platform/probe"

// ErrNotAnImage is returned when the resource is not a decodable image
var ErrNotAnImage = errors.New("resource is not a supported image")

// HTTPProber fetches an image and decodes its header
type HTTPProber struct {
	client   *http.Client
	maxBytes int64
	tracer   trace.Tracer
}

// NewHTTPProber creates a prober with the configured limits
func NewHTTPProber(cfg config.ProbeConfig) *HTTPProber {
	return &HTTPProber{
		client:   &http.Client{Timeout: cfg.Timeout},
		maxBytes: cfg.MaxBytes,
		tracer:   otel.Tracer(instrumentationName),
	}
}

// Probe loads url. A transport failure or non-2xx status is an error; a body
// that is not an image yields ErrNotAnImage.
func (p *HTTPProber) Probe(ctx context.Context, url string) (gallery.ImageInfo, error) {
	ctx, span := p.tracer.Start(ctx, "probe.Image",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("url.full", url)),
	)
	defer span.End()

	info, err := p.probe(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return gallery.ImageInfo{Err: err.Error()}, err
	}

	span.SetAttributes(
		attribute.String("image.format", info.Format),
		attribute.Int("image.width", info.Width),
		attribute.Int("image.height", info.Height),
	)
	return info, nil
}

func (p *HTTPProber) probe(ctx context.Context, url string) (gallery.ImageInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return gallery.ImageInfo{}, fmt.Errorf("invalid image url: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	started := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return gallery.ImageInfo{}, fmt.Errorf("failed to load image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gallery.ImageInfo{}, fmt.Errorf("failed to load image: status %d", resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, p.maxBytes)
	info, err := DecodeInfo(body)
	if err != nil {
		return gallery.ImageInfo{}, err
	}

	// Drain so the load counts as complete and the connection is reused
	if _, err := io.Copy(io.Discard, body); err != nil {
		return gallery.ImageInfo{}, fmt.Errorf("failed to load image: %w", err)
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("probe.duration_ms", time.Since(started).Milliseconds()))
	return info, nil
}

// DecodeInfo reads an image header from r
func DecodeInfo(r io.Reader) (gallery.ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return gallery.ImageInfo{}, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	return gallery.ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}
