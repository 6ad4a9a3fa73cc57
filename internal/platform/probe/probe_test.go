package probe

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"face-gallery/internal/config"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeGIF(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, w, h), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

func newProber(maxBytes int64) *HTTPProber {
	return NewHTTPProber(config.ProbeConfig{Concurrency: 1, MaxBytes: maxBytes, Timeout: 5 * time.Second})
}

func TestProbe(t *testing.T) {
	pngData := encodePNG(t, 32, 16)
	gifData := encodeGIF(t, 8, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/image/a.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngData)
		case "/image/b.gif":
			_, _ = w.Write(gifData)
		case "/image/notes.txt":
			_, _ = w.Write([]byte("definitely not an image"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	prober := newProber(1 << 20)
	ctx := context.Background()

	tests := []struct {
		name       string
		path       string
		wantFormat string
		wantWidth  int
		wantHeight int
		wantErr    bool
	}{
		{name: "png", path: "/image/a.png", wantFormat: "png", wantWidth: 32, wantHeight: 16},
		{name: "gif", path: "/image/b.gif", wantFormat: "gif", wantWidth: 8, wantHeight: 4},
		{name: "not an image", path: "/image/notes.txt", wantErr: true},
		{name: "missing", path: "/image/missing.jpg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := prober.Probe(ctx, srv.URL+tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, info.Failed())
				return
			}
			require.NoError(t, err)
			assert.False(t, info.Failed())
			assert.Equal(t, tt.wantFormat, info.Format)
			assert.Equal(t, tt.wantWidth, info.Width)
			assert.Equal(t, tt.wantHeight, info.Height)
		})
	}
}

func TestProbe_NotAnImageSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	_, err := newProber(1024).Probe(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrNotAnImage)
}

func TestProbe_TruncatedByLimit(t *testing.T) {
	data := encodePNG(t, 4, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	_, err := newProber(8).Probe(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrNotAnImage)
}

func TestProbe_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	info, err := newProber(1024).Probe(context.Background(), url)
	require.Error(t, err)
	assert.Contains(t, info.Err, "failed to load image")
}

func TestDecodeInfo(t *testing.T) {
	info, err := DecodeInfo(bytes.NewReader(encodePNG(t, 3, 7)))
	require.NoError(t, err)
	assert.Equal(t, 3, info.Width)
	assert.Equal(t, 7, info.Height)
	assert.Equal(t, "png", info.Format)
}
