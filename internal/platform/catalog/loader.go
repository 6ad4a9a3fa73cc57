package catalog

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"face-gallery/internal/config"
	"face-gallery/internal/domain/gallery"
	"face-gallery/internal/observability"
)

type entry struct {
	catalog  *Catalog
	loadedAt time.Time
}

// Loader parses configured indexes on demand and keeps them for the reload
// interval. A failed reload keeps serving the previous parse.
type Loader struct {
	sources  []Source
	rules    []config.ReplaceRule
	interval time.Duration
	logger   *observability.Logger
	now      func() time.Time

	mu         sync.RWMutex
	entries    map[int]entry
	generation uint64
	group      singleflight.Group
}

// NewLoader creates a loader over sources
func NewLoader(sources []Source, cfg config.CatalogConfig, logger *observability.Logger) *Loader {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Loader{
		sources:  sources,
		rules:    cfg.ReplaceRules,
		interval: cfg.ReloadInterval,
		logger:   logger,
		now:      time.Now,
		entries:  make(map[int]entry),
	}
}

// Names lists the configured indexes in order
func (l *Loader) Names() []string {
	names := make([]string, len(l.sources))
	for i, s := range l.sources {
		names[i] = s.Name()
	}
	return names
}

// Resolve clamps an index selection to a configured one, falling back to the first
func (l *Loader) Resolve(index int) int {
	if index < 0 || index >= len(l.sources) {
		return 0
	}
	return index
}

// Catalog returns the parsed index at position index
func (l *Loader) Catalog(ctx context.Context, index int) (gallery.Catalog, error) {
	return l.Load(ctx, index)
}

// Load is Catalog with the concrete type
func (l *Loader) Load(ctx context.Context, index int) (*Catalog, error) {
	if len(l.sources) == 0 {
		return nil, fmt.Errorf("%w: no indexes configured", gallery.ErrCatalogUnavailable)
	}
	index = l.Resolve(index)

	l.mu.RLock()
	cached, ok := l.entries[index]
	l.mu.RUnlock()
	if ok && !l.expired(cached) {
		return cached.catalog, nil
	}

	v, err, _ := l.group.Do(strconv.Itoa(index), func() (interface{}, error) {
		return l.reload(ctx, index)
	})
	if err != nil {
		if ok {
			l.logger.Warn(ctx).
				Err(err).
				Str("index", l.sources[index].Name()).
				Msg("Reload failed, serving previous catalog")
			return cached.catalog, nil
		}
		return nil, fmt.Errorf("%w: %v", gallery.ErrCatalogUnavailable, err)
	}
	return v.(*Catalog), nil
}

func (l *Loader) expired(e entry) bool {
	if l.interval <= 0 {
		return false
	}
	return l.now().Sub(e.loadedAt) >= l.interval
}

func (l *Loader) reload(ctx context.Context, index int) (*Catalog, error) {
	src := l.sources[index]
	started := l.now()

	l.mu.RLock()
	generation := l.generation
	l.mu.RUnlock()

	raw, err := src.Read(ctx)
	if err != nil {
		return nil, err
	}

	c, err := Parse(raw, l.rules)
	if err != nil {
		return nil, err
	}

	// A parse that raced with Invalidate is returned but not kept.
	l.mu.Lock()
	if l.generation == generation {
		l.entries[index] = entry{catalog: c, loadedAt: l.now()}
	}
	l.mu.Unlock()

	l.logger.Debug(ctx).
		Str("index", src.Name()).
		Int("categories", len(c.categories)).
		Int("items", c.Len()).
		Dur("duration", l.now().Sub(started)).
		Msg("Gallery index loaded")

	return c, nil
}

// Invalidate drops every cached parse
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.entries = make(map[int]entry)
	l.generation++
	l.mu.Unlock()
}
