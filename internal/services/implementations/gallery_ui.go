package implementations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"face-gallery/internal/domain/gallery"
	"face-gallery/internal/observability"
	"face-gallery/internal/platform/cache"
	"face-gallery/internal/platform/catalog"
)

const (
	tracerName     = "face-gallery/internal/services"
	probeNamespace = "probe"

	// abandonTimeout bounds the write that settles a view whose load failed
	abandonTimeout = 5 * time.Second
)

// GalleryUIOptions tunes a GalleryUIService
type GalleryUIOptions struct {
	PerPage int

	// ProbeConcurrency caps outbound image fetches across every view
	ProbeConcurrency int
	ProbeCacheTTL    time.Duration

	// LoadTimeout bounds a background LoadImages run
	LoadTimeout time.Duration

	// LoadInBackground starts LoadImages when a view is opened
	LoadInBackground bool
}

var _ gallery.GalleryUI = (*GalleryUIService)(nil)

// GalleryUIService implements gallery.GalleryUI
type GalleryUIService struct {
	api      gallery.LikeAPI
	views    gallery.ViewStore
	catalogs gallery.CatalogProvider
	prober   gallery.ImageProber
	probes   gallery.Cache    // can be nil
	notifier gallery.Notifier // can be nil
	logger   *observability.Logger
	tracer   trace.Tracer
	opts     GalleryUIOptions

	newID   func() string
	newSeed func() string

	probeSlots *semaphore.Weighted

	// done is cancelled by Close and ends every background load
	done  context.Context
	stop  context.CancelFunc
	loads sync.WaitGroup
}

// NewGalleryUIService creates the gallery UI service
func NewGalleryUIService(
	api gallery.LikeAPI,
	views gallery.ViewStore,
	catalogs gallery.CatalogProvider,
	prober gallery.ImageProber,
	probes gallery.Cache,
	notifier gallery.Notifier,
	logger *observability.Logger,
	opts GalleryUIOptions,
) *GalleryUIService {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 20
	}
	if opts.ProbeConcurrency <= 0 {
		opts.ProbeConcurrency = 8
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 5 * time.Minute
	}
	done, stop := context.WithCancel(context.Background())
	return &GalleryUIService{
		api:        api,
		views:      views,
		catalogs:   catalogs,
		prober:     prober,
		probes:     probes,
		notifier:   notifier,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		opts:       opts,
		newID:      uuid.NewString,
		newSeed:    catalog.NewSeed,
		probeSlots: semaphore.NewWeighted(int64(opts.ProbeConcurrency)),
		done:       done,
		stop:       stop,
	}
}

// OpenView builds a new view for a category page and stores it
func (s *GalleryUIService) OpenView(ctx context.Context, q gallery.PageQuery) (*gallery.View, error) {
	ctx, span := s.tracer.Start(ctx, "GalleryUI.OpenView", trace.WithAttributes(
		attribute.String("gallery.category", q.Category),
		attribute.Int("gallery.page", q.Page),
	))
	defer span.End()

	cat, err := s.catalogs.Catalog(ctx, q.CatalogIndex)
	if err != nil {
		return nil, err
	}

	items := cat.Items(q.Category)
	if gallery.IsShuffled(q.Category) {
		if q.Seed == "" {
			q.Seed = s.newSeed()
		}
		items = catalog.Shuffle(items, q.Seed)
	}

	page := max(q.Page, 1)
	paged, totalPages := catalog.Paginate(items, page, s.opts.PerPage)

	view := gallery.NewView(s.newID(), paged)
	view.CatalogIndex = q.CatalogIndex
	view.Category = q.Category
	view.Page = page
	view.TotalPages = totalPages
	view.Seed = q.Seed
	for i := range view.Items {
		view.Items[i].URL = s.api.ImageURL(view.Items[i].Item.Category, view.Items[i].Item.Filename)
	}

	if err := s.views.Save(ctx, view); err != nil {
		return nil, fmt.Errorf("failed to save view: %w", err)
	}

	s.logger.Debug(ctx).
		Str("view_id", view.ID).
		Str("category", q.Category).
		Int("page", page).
		Int("items", len(view.Items)).
		Msg("View opened")

	if s.opts.LoadInBackground {
		s.startLoad(ctx, view.ID)
	}

	return view, nil
}

// startLoad runs LoadImages past the end of the request that opened the view.
// The load ends at LoadTimeout or when the service is closed.
func (s *GalleryUIService) startLoad(ctx context.Context, id string) {
	if s.done.Err() != nil {
		return
	}
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.LoadTimeout)
	stopOnClose := context.AfterFunc(s.done, cancel)

	s.loads.Add(1)
	go func() {
		defer s.loads.Done()
		defer cancel()
		defer stopOnClose()
		if err := s.LoadImages(loadCtx, id); err != nil {
			s.logger.Warn(loadCtx).Err(err).Str("view_id", id).Msg("Image loading did not finish")
			s.abandonLoad(loadCtx, id, err)
		}
	}()
}

// abandonLoad marks the items a failed load never reached as failed, so the
// view is complete and clients stop polling it
func (s *GalleryUIService) abandonLoad(ctx context.Context, id string, cause error) {
	if errors.Is(cause, gallery.ErrViewNotFound) {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abandonTimeout)
	defer cancel()

	info := gallery.ImageInfo{Err: cause.Error()}
	_, err := s.views.Update(ctx, id, func(v *gallery.View) error {
		for _, iv := range v.Items {
			if iv.Loaded {
				continue
			}
			if err := v.MarkLoaded(iv.Item.Path, info); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Debug(ctx).Err(err).Str("view_id", id).Msg("Could not settle abandoned view")
	}
}

// Wait blocks until every background load has finished
func (s *GalleryUIService) Wait() {
	s.loads.Wait()
}

// Close cancels the background loads and waits for them to return
func (s *GalleryUIService) Close() {
	s.stop()
	s.loads.Wait()
}

// GetView returns the stored view
func (s *GalleryUIService) GetView(ctx context.Context, id string) (*gallery.View, error) {
	return s.views.Get(ctx, id)
}

// LoadImages probes every image of a view and reveals each item as its load
// completes, whether it succeeded or not. Probe results are cached by URL so
// images that completed before are revealed immediately. Fetches share the
// service-wide ProbeConcurrency slots with every other running load.
func (s *GalleryUIService) LoadImages(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "GalleryUI.LoadImages", trace.WithAttributes(
		attribute.String("gallery.view_id", id),
	))
	defer span.End()

	view, err := s.views.Get(ctx, id)
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(s.opts.ProbeConcurrency)

	for _, iv := range view.Items {
		if iv.Loaded {
			continue
		}
		path := iv.Item.Path
		url := iv.URL
		if url == "" {
			url = s.api.ImageURL(iv.Item.Category, iv.Item.Filename)
		}

		g.Go(func() error {
			info := s.probe(ctx, url)
			_, err := s.views.Update(ctx, id, func(v *gallery.View) error {
				return v.MarkLoaded(path, info)
			})
			return err
		})
	}

	return g.Wait()
}

// probe returns the image info for url, from the cache when it completed before
func (s *GalleryUIService) probe(ctx context.Context, url string) gallery.ImageInfo {
	key := cache.GenerateKey(probeNamespace, url)

	if s.probes != nil {
		var cached gallery.ImageInfo
		if err := s.probes.Get(ctx, key, &cached); err == nil {
			return cached
		} else if !errors.Is(err, gallery.ErrCacheMiss) {
			s.logger.Debug(ctx).Err(err).Str("url", url).Msg("Probe cache read failed")
		}
	}

	if err := s.probeSlots.Acquire(ctx, 1); err != nil {
		return gallery.ImageInfo{Err: err.Error()}
	}
	info, err := s.prober.Probe(ctx, url)
	s.probeSlots.Release(1)
	if err != nil {
		s.logger.Debug(ctx).Err(err).Str("url", url).Msg("Image failed to load")
		if info.Err == "" {
			info.Err = err.Error()
		}
		return info
	}

	if s.probes != nil {
		if err := s.probes.Set(ctx, key, info, s.opts.ProbeCacheTTL); err != nil {
			s.logger.Debug(ctx).Err(err).Str("url", url).Msg("Probe cache write failed")
		}
	}
	return info
}

// ToggleLike sends the inverse of the item's current state and applies it
// once the server confirms. Failures leave the state as it was and raise an
// alert on the view.
func (s *GalleryUIService) ToggleLike(ctx context.Context, id, path string) (*gallery.View, error) {
	ctx, span := s.tracer.Start(ctx, "GalleryUI.ToggleLike", trace.WithAttributes(
		attribute.String("gallery.view_id", id),
		attribute.String("gallery.path", path),
	))
	defer span.End()

	view, err := s.views.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	iv, err := view.Item(path)
	if err != nil {
		return nil, err
	}

	action := iv.Like.ToggleAction()
	if _, err := s.api.SetLike(ctx, path, action); err != nil {
		s.logger.Error(ctx).
			Err(err).
			Str("path", path).
			Str("action", string(action)).
			Msg("Like operation failed")
		return s.fail(ctx, id, err)
	}

	updated, err := s.views.Update(ctx, id, func(v *gallery.View) error {
		return v.SetLike(path, action.Target())
	})
	if err != nil {
		return nil, err
	}
	s.catalogs.Invalidate()

	s.logger.Info(ctx).
		Str("path", path).
		Str("action", string(action)).
		Msg("Like state changed")

	return updated, nil
}

// BatchLike likes every item shown in the view in one request
func (s *GalleryUIService) BatchLike(ctx context.Context, id string) (*gallery.View, error) {
	ctx, span := s.tracer.Start(ctx, "GalleryUI.BatchLike", trace.WithAttributes(
		attribute.String("gallery.view_id", id),
	))
	defer span.End()

	view, err := s.views.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	paths := view.AffordancePaths()
	if len(paths) == 0 {
		updated, alertErr := s.alert(ctx, id, gallery.AlertInfo, gallery.ErrNothingToOperate.Error())
		if alertErr != nil {
			return nil, alertErr
		}
		return updated, gallery.ErrNothingToOperate
	}

	resp, err := s.api.BatchLike(ctx, paths)
	if err != nil {
		s.logger.Error(ctx).
			Err(err).
			Int("paths", len(paths)).
			Msg("Batch like failed")
		return s.fail(ctx, id, err)
	}

	if len(resp.NotFound) > 0 {
		s.logger.Debug(ctx).
			Strs("not_found", resp.NotFound).
			Msg("Batch like skipped unknown paths")
	}

	summary := gallery.BatchSummary(len(resp.Found), len(resp.NotFound))
	updated, err := s.views.Update(ctx, id, func(v *gallery.View) error {
		v.ApplyBatchFound(resp.Found)
		v.PushAlert(gallery.AlertInfo, summary)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, gallery.AlertInfo, summary)
	s.catalogs.Invalidate()

	s.logger.Info(ctx).
		Int("found", len(resp.Found)).
		Int("not_found", len(resp.NotFound)).
		Msg("Batch like finished")

	return updated, nil
}

// fail records a failed mutation on the view and returns the original error
func (s *GalleryUIService) fail(ctx context.Context, id string, cause error) (*gallery.View, error) {
	updated, err := s.alert(ctx, id, gallery.AlertError, gallery.FailureAlert(cause))
	if err != nil {
		return nil, errors.Join(cause, err)
	}
	return updated, cause
}

func (s *GalleryUIService) alert(ctx context.Context, id, level, message string) (*gallery.View, error) {
	updated, err := s.views.Update(ctx, id, func(v *gallery.View) error {
		v.PushAlert(level, message)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, level, message)
	return updated, nil
}

func (s *GalleryUIService) notify(ctx context.Context, level, message string) {
	if s.notifier != nil {
		s.notifier.Alert(ctx, level, message)
	}
}

// ShowImageInfo opens the detail modal for an item
func (s *GalleryUIService) ShowImageInfo(ctx context.Context, id, path string) (*gallery.View, error) {
	return s.views.Update(ctx, id, func(v *gallery.View) error {
		_, err := v.OpenDetail(path)
		return err
	})
}

// CloseModal hides the detail modal
func (s *GalleryUIService) CloseModal(ctx context.Context, id string) (*gallery.View, error) {
	return s.views.Update(ctx, id, func(v *gallery.View) error {
		v.CloseModal()
		return nil
	})
}

// ClickModal closes the modal only when the click landed on the backdrop
func (s *GalleryUIService) ClickModal(ctx context.Context, id string, target gallery.ModalTarget) (*gallery.View, error) {
	return s.views.Update(ctx, id, func(v *gallery.View) error {
		v.ClickModal(target)
		return nil
	})
}

// DismissAlerts acknowledges every pending alert
func (s *GalleryUIService) DismissAlerts(ctx context.Context, id string) (*gallery.View, error) {
	return s.views.Update(ctx, id, func(v *gallery.View) error {
		v.DismissAlerts()
		return nil
	})
}

// Categories lists one page of categories with their thumbnails
func (s *GalleryUIService) Categories(ctx context.Context, index, page int) (*gallery.CategoryPage, error) {
	cat, err := s.catalogs.Catalog(ctx, index)
	if err != nil {
		return nil, err
	}

	page = max(page, 1)
	names, totalPages := catalog.Paginate(cat.Categories(), page, s.opts.PerPage)

	summaries := make([]gallery.CategorySummary, 0, len(names))
	for _, name := range names {
		summary := gallery.CategorySummary{
			Name:      name,
			URL:       gallery.CategoryURL(name),
			ItemCount: len(cat.Items(name)),
		}
		if thumb, ok := cat.Thumbnail(name); ok {
			summary.ThumbURL = s.api.ImageURL(name, thumb.Filename)
		}
		summaries = append(summaries, summary)
	}

	return &gallery.CategoryPage{
		Categories:  summaries,
		CurrentPage: page,
		TotalPages:  totalPages,
		DateUpdated: cat.DateUpdated(),
	}, nil
}

// CategoryNames lists every category of a catalog
func (s *GalleryUIService) CategoryNames(ctx context.Context, index int) ([]string, error) {
	cat, err := s.catalogs.Catalog(ctx, index)
	if err != nil {
		return nil, err
	}
	return cat.Categories(), nil
}

// Catalogs lists the configured gallery indexes
func (s *GalleryUIService) Catalogs() []string {
	return s.catalogs.Names()
}
