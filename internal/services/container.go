package services

import (
	"context"
	"errors"
	"fmt"

	"face-gallery/internal/config"
	"face-gallery/internal/domain/gallery"
	"face-gallery/internal/observability"
	"face-gallery/internal/platform/cache"
	"face-gallery/internal/platform/catalog"
	"face-gallery/internal/platform/galleryapi"
	"face-gallery/internal/platform/probe"
	"face-gallery/internal/platform/storage"
	"face-gallery/internal/services/implementations"
)

// Container holds all the application dependencies
type Container struct {
	config *config.Config
	logger *observability.Logger

	// Infrastructure (nil when the matching feature is disabled)
	storageClient *storage.MinIOClient
	redisClient   *cache.RedisClient

	// Platform
	catalogs *catalog.Loader
	api      *galleryapi.Client
	prober   *probe.HTTPProber
	views    gallery.ViewStore
	probes   gallery.Cache

	// Services
	galleryUI *implementations.GalleryUIService
}

// Option customizes a Container before its services are built
type Option func(*containerOptions)

type containerOptions struct {
	notifier         gallery.Notifier
	loadInBackground bool
}

// WithNotifier delivers alerts to n in addition to the view state
func WithNotifier(n gallery.Notifier) Option {
	return func(o *containerOptions) {
		o.notifier = n
	}
}

// WithoutBackgroundLoads disables LoadImages when a view is opened
func WithoutBackgroundLoads() Option {
	return func(o *containerOptions) {
		o.loadInBackground = false
	}
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config, logger *observability.Logger, opts ...Option) (*Container, error) {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	o := containerOptions{loadInBackground: true}
	for _, opt := range opts {
		opt(&o)
	}

	container := &Container{
		config: cfg,
		logger: logger,
	}

	if err := container.initializeInfrastructure(ctx); err != nil {
		_ = container.Close()
		return nil, err
	}

	if err := container.initializeServices(o); err != nil {
		_ = container.Close()
		return nil, err
	}

	return container, nil
}

// initializeInfrastructure connects to the optional backing stores
func (c *Container) initializeInfrastructure(ctx context.Context) error {
	if c.config.Catalog.Source == config.CatalogSourceObject {
		client, err := storage.NewMinIOClient(c.config.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}
		if err := client.Health(ctx); err != nil {
			return fmt.Errorf("storage unavailable: %w", err)
		}
		c.storageClient = client
	}

	if c.config.Cache.Enabled {
		client, err := cache.NewRedisClient(c.config.Cache)
		if err != nil {
			return fmt.Errorf("failed to connect to cache: %w", err)
		}
		c.redisClient = client
	}

	return nil
}

// initializeServices initializes all services in the correct dependency order
func (c *Container) initializeServices(o containerOptions) error {
	// A typed nil client must not reach NewSources as a non-nil interface
	var objects catalog.ObjectReader
	if c.storageClient != nil {
		objects = c.storageClient
	}
	sources, err := catalog.NewSources(c.config.Catalog, objects)
	if err != nil {
		return err
	}
	c.catalogs = catalog.NewLoader(sources, c.config.Catalog, c.logger.Component("catalog"))

	upstreamMetrics, err := observability.NewUpstreamMetrics(observability.GetUpstreamMeter())
	if err != nil {
		return fmt.Errorf("failed to create upstream metrics: %w", err)
	}
	c.api = galleryapi.NewClient(c.config.Upstream, galleryapi.WithMetrics(upstreamMetrics))
	c.prober = probe.NewHTTPProber(c.config.Probe)

	if c.redisClient != nil {
		c.views = cache.NewRedisViewStore(c.redisClient, c.config.ViewTTL)
		c.probes = c.redisClient
	} else {
		c.views = cache.NewMemoryViewStore(c.config.ViewTTL)
		c.probes = cache.NewMemoryCache(c.config.ViewTTL)
	}

	c.galleryUI = implementations.NewGalleryUIService(
		c.api,
		c.views,
		c.catalogs,
		c.prober,
		c.probes,
		o.notifier,
		c.logger.Component("gallery_ui"),
		implementations.GalleryUIOptions{
			PerPage:          c.config.Catalog.PerPage,
			ProbeConcurrency: c.config.Probe.Concurrency,
			ProbeCacheTTL:    c.config.ViewTTL,
			LoadInBackground: o.loadInBackground,
		},
	)

	c.logger.Info(context.Background()).
		Str("catalog_source", c.config.Catalog.Source).
		Int("catalogs", len(sources)).
		Bool("cache_enabled", c.redisClient != nil).
		Msg("Dependency injection container initialized successfully")
	return nil
}

// Getters for accessing services

func (c *Container) Logger() *observability.Logger {
	return c.logger
}

func (c *Container) Catalogs() *catalog.Loader {
	return c.catalogs
}

func (c *Container) GalleryUI() gallery.GalleryUI {
	return c.galleryUI
}

// Health reports the state of every configured backing store
func (c *Container) Health(ctx context.Context) map[string]error {
	checks := make(map[string]error)
	if c.redisClient != nil {
		checks["cache"] = c.redisClient.Health(ctx)
	}
	if c.storageClient != nil {
		checks["storage"] = c.storageClient.Health(ctx)
	}
	if c.catalogs != nil && len(c.catalogs.Names()) > 0 {
		_, err := c.catalogs.Catalog(ctx, 0)
		checks["catalog"] = err
	}
	return checks
}

// Close stops running image loads and releases connections
func (c *Container) Close() error {
	if c.galleryUI != nil {
		c.galleryUI.Close()
	}
	var errs []error
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close cache: %w", err))
		}
	}
	return errors.Join(errs...)
}
