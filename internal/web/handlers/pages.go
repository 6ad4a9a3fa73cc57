package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"face-gallery/internal/domain/gallery"
)

const categoryPrefix = "/category/"

func (h *Handler) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	index := catalogIndex(r)

	listing, err := h.ui.Categories(ctx, index, queryInt(r, "page", 1))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.render(w, r, "categories", pageData{
		Title:        "Categories",
		Catalogs:     h.ui.Catalogs(),
		CatalogIndex: index,
		Listing:      listing,
	})
}

func (h *Handler) allImagesHandler(w http.ResponseWriter, r *http.Request) {
	h.openView(w, r, "", queryInt(r, "page", 1))
}

// categoryHandler serves /category/{category} and /category/{category}/page/{n}.
// Category names may contain slashes, so the path is split by hand.
func (h *Handler) categoryHandler(w http.ResponseWriter, r *http.Request) {
	category, page, ok := parseCategoryPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.openView(w, r, category, page)
}

func (h *Handler) openView(w http.ResponseWriter, r *http.Request, category string, page int) {
	ctx := r.Context()
	seed := r.URL.Query().Get("seed")

	// Shuffled listings keep their order across pages through the seed
	if gallery.IsShuffled(category) && seed == "" {
		q := r.URL.Query()
		q.Set("seed", h.newSeed())
		target := url.URL{Path: r.URL.Path, RawQuery: q.Encode()}
		http.Redirect(w, r, target.String(), http.StatusFound)
		return
	}

	index := catalogIndex(r)
	view, err := h.ui.OpenView(ctx, gallery.PageQuery{
		CatalogIndex: index,
		Category:     category,
		Page:         page,
		Seed:         seed,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.renderView(w, r, view)
}

func (h *Handler) selectCatalogHandler(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 || index >= len(h.ui.Catalogs()) {
		http.Error(w, "Unknown catalog", http.StatusNotFound)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     catalogCookie,
		Value:    strconv.Itoa(index),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	target := "/"
	if ref := r.Referer(); ref != "" {
		if u, err := url.Parse(ref); err == nil && u.Path != "" && !strings.HasPrefix(u.Path, "/select/") {
			target = u.RequestURI()
		}
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// parseCategoryPath extracts the category and page from a /category/ path
func parseCategoryPath(p string) (category string, page int, ok bool) {
	rest := strings.TrimPrefix(p, categoryPrefix)
	if rest == p {
		return "", 0, false
	}
	rest = strings.TrimSuffix(rest, "/")

	page = 1
	if i := strings.LastIndex(rest, "/page/"); i >= 0 {
		if n, err := strconv.Atoi(rest[i+len("/page/"):]); err == nil {
			rest, page = rest[:i], n
		}
	}
	if rest == "" {
		return "", 0, false
	}
	return rest, page, true
}

// catalogIndex returns the catalog selected through the cookie, 0 by default
func catalogIndex(r *http.Request) int {
	c, err := r.Cookie(catalogCookie)
	if err != nil {
		return 0
	}
	index, err := strconv.Atoi(c.Value)
	if err != nil || index < 0 {
		return 0
	}
	return index
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}
