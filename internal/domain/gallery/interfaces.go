package gallery

import (
	"context"
	"time"
)

// LikeAPI is the remote endpoint that persists like flags
type LikeAPI interface {
	// SetLike sends a single-item like or unlike
	SetLike(ctx context.Context, path string, action Action) (*LikeResponse, error)

	// BatchLike likes every path in one request
	BatchLike(ctx context.Context, paths []string) (*BatchLikeResponse, error)

	// ImageURL is where the image resource for an item is served
	ImageURL(category, filename string) string
}

// ViewStore keeps the state of rendered pages
type ViewStore interface {
	// Save stores a view, replacing any previous state with the same id
	Save(ctx context.Context, view *View) error

	// Get returns the view with id or ErrViewNotFound
	Get(ctx context.Context, id string) (*View, error)

	// Update applies fn to the view atomically and stores the result
	Update(ctx context.Context, id string, fn func(*View) error) (*View, error)

	// Delete removes a view
	Delete(ctx context.Context, id string) error
}

// Cache is a generic JSON value cache
type Cache interface {
	Get(ctx context.Context, key string, result interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ImageProber loads an image resource and reports what it found
type ImageProber interface {
	Probe(ctx context.Context, url string) (ImageInfo, error)
}

// Catalog is a parsed gallery index
type Catalog interface {
	Categories() []string
	Items(category string) []Item
	Thumbnail(category string) (Item, bool)

	// DateUpdated is the modification stamp the index carries, if any
	DateUpdated() string
}

// CatalogProvider gives access to the configured gallery indexes
type CatalogProvider interface {
	// Catalog returns the parsed index at position index
	Catalog(ctx context.Context, index int) (Catalog, error)

	// Names lists the configured indexes in order
	Names() []string

	// Invalidate drops cached parses so the next read sees fresh data
	Invalidate()
}

// Notifier delivers alerts outside of a view, e.g. on a terminal
type Notifier interface {
	Alert(ctx context.Context, level, message string)
}

// GalleryUI drives the gallery views: opening pages, revealing loaded images,
// the detail modal and like mutations. Failed mutations are recorded as view
// alerts and the returned view is still usable for rendering.
type GalleryUI interface {
	OpenView(ctx context.Context, q PageQuery) (*View, error)
	GetView(ctx context.Context, id string) (*View, error)
	LoadImages(ctx context.Context, id string) error

	ToggleLike(ctx context.Context, id, path string) (*View, error)
	BatchLike(ctx context.Context, id string) (*View, error)

	ShowImageInfo(ctx context.Context, id, path string) (*View, error)
	CloseModal(ctx context.Context, id string) (*View, error)
	ClickModal(ctx context.Context, id string, target ModalTarget) (*View, error)
	DismissAlerts(ctx context.Context, id string) (*View, error)

	Categories(ctx context.Context, index, page int) (*CategoryPage, error)
	CategoryNames(ctx context.Context, index int) ([]string, error)
	Catalogs() []string
}
