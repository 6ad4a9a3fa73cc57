package testutils

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"face-gallery/internal/config"
	"face-gallery/internal/domain/gallery"
)

// SampleIndex is a small gallery index: three unliked people and one liked pet
const SampleIndex = `{
  "date_updated": "2024-05-01 10:00:00",
  "img": {
    "/g": {
      "people": {
        "a.jpg": {"face_scores": [0.5, 0.7], "face_landmark_scores_68": [0.9]},
        "b.jpg": {"face_scores": [0.6]},
        "c.jpg": {"face_scores": [0.8]}
      },
      "pets": {
        "d.jpg": {"face_scores": [0.1], "like": true}
      }
    }
  }
}`

// FakeGallery stands in for the gallery endpoint: it answers like mutations
// and serves a small PNG for every image URL
type FakeGallery struct {
	Server *httptest.Server

	mu          sync.Mutex
	likes       []map[string]any
	imageHits   int
	failMessage string
	missing     map[string]bool
}

// NewFakeGallery starts the fake endpoint; callers must Close it
func NewFakeGallery() *FakeGallery {
	f := &FakeGallery{missing: map[string]bool{}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /like_image", f.handleLike)
	mux.HandleFunc("GET /image/", f.handleImage)
	f.Server = httptest.NewServer(mux)
	return f
}

func (f *FakeGallery) URL() string {
	return f.Server.URL
}

func (f *FakeGallery) Close() {
	f.Server.Close()
}

// Reset forgets recorded requests and configured failures
func (f *FakeGallery) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.likes = nil
	f.imageHits = 0
	f.failMessage = ""
	f.missing = map[string]bool{}
}

// FailWith makes every like mutation report success=false with message
func (f *FakeGallery) FailWith(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failMessage = message
}

// Forget makes the batch call report path as not found
func (f *FakeGallery) Forget(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missing[path] = true
}

// Likes returns the recorded like request bodies
func (f *FakeGallery) Likes() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.likes...)
}

// ImageHits counts image downloads
func (f *FakeGallery) ImageHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.imageHits
}

func (f *FakeGallery) handleLike(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid json"}`, http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.likes = append(f.likes, body)
	failMessage := f.failMessage
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if paths, ok := body["paths"].([]any); ok {
		if failMessage != "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": failMessage})
			return
		}
		resp := gallery.BatchLikeResponse{Found: []string{}, NotFound: []string{}}
		f.mu.Lock()
		for _, p := range paths {
			path, _ := p.(string)
			if f.missing[path] {
				resp.NotFound = append(resp.NotFound, path)
			} else {
				resp.Found = append(resp.Found, path)
			}
		}
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	if failMessage != "" {
		_ = json.NewEncoder(w).Encode(gallery.LikeResponse{Success: false, Message: failMessage})
		return
	}
	action, _ := body["action"].(string)
	_ = json.NewEncoder(w).Encode(gallery.LikeResponse{Success: true, Action: gallery.Action(action)})
}

func (f *FakeGallery) handleImage(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.imageHits++
	f.mu.Unlock()

	if strings.HasSuffix(r.URL.Path, ".txt") {
		_, _ = w.Write([]byte("not an image"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(SamplePNG(16, 12))
}

// SamplePNG encodes a blank w x h image
func SamplePNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// TestConfig returns a valid configuration pointing at the gallery endpoint
// under upstreamURL. Callers switch on storage and cache as needed.
func TestConfig(upstreamURL string, indexPaths ...string) *config.Config {
	return &config.Config{
		Environment: "test",
		Port:        "8080",
		Host:        "localhost",
		Upstream: config.UpstreamConfig{
			BaseURL: upstreamURL,
			Timeout: 5 * time.Second,
		},
		Catalog: config.CatalogConfig{
			Source:         config.CatalogSourceFile,
			Paths:          indexPaths,
			PerPage:        20,
			ReplaceRules:   []config.ReplaceRule{},
			ReloadInterval: time.Minute,
		},
		Probe: config.ProbeConfig{
			Concurrency: 4,
			MaxBytes:    1 << 20,
			Timeout:     5 * time.Second,
		},
		ViewTTL: time.Hour,
		Logging: &config.LoggingConfig{Level: "debug", Format: "json", Output: "stdout"},
		Server: &config.ServerConfig{
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
	}
}
