package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"face-gallery/internal/config"
)

// Source supplies the raw bytes of one gallery index
type Source interface {
	Name() string
	Read(ctx context.Context) ([]byte, error)
}

// FileSource reads an index from the local filesystem
type FileSource struct {
	Path string
}

func (s FileSource) Name() string {
	return filepath.Base(s.Path)
}

func (s FileSource) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", s.Path, err)
	}
	return data, nil
}

// ObjectReader is the part of the object storage client a source needs
type ObjectReader interface {
	ReadObject(ctx context.Context, objectName string, maxBytes int64) ([]byte, error)
}

// ObjectSource reads an index from a bucket
type ObjectSource struct {
	Client   ObjectReader
	Key      string
	MaxBytes int64
}

func (s ObjectSource) Name() string {
	return s.Key[strings.LastIndex(s.Key, "/")+1:]
}

func (s ObjectSource) Read(ctx context.Context) ([]byte, error) {
	data, err := s.Client.ReadObject(ctx, s.Key, s.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read index object %s: %w", s.Key, err)
	}
	return data, nil
}

// maxIndexBytes caps object reads so a wrong key cannot exhaust memory
const maxIndexBytes = 256 << 20

// NewSources builds one source per configured catalog path
func NewSources(cfg config.CatalogConfig, objects ObjectReader) ([]Source, error) {
	sources := make([]Source, 0, len(cfg.Paths))
	for _, p := range cfg.Paths {
		switch cfg.Source {
		case config.CatalogSourceObject:
			if objects == nil {
				return nil, fmt.Errorf("object catalog source needs a storage client")
			}
			sources = append(sources, ObjectSource{Client: objects, Key: p, MaxBytes: maxIndexBytes})
		default:
			sources = append(sources, FileSource{Path: p})
		}
	}
	return sources, nil
}
