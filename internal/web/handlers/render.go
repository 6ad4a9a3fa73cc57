package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"face-gallery/internal/domain/gallery"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"add":            func(a, b int) int { return a + b },
	"sub":            func(a, b int) int { return a - b },
	"categoryURL":    gallery.CategoryURL,
	"viewPageURL":    viewPageURL,
	"listingPageURL": listingPageURL,
	"selectURL":      func(i int) string { return "/select/" + strconv.Itoa(i) },
	"categoryLabel":  categoryLabel,
}).ParseFS(templateFS, "templates/*.html"))

// pageData is what the full-page templates render
type pageData struct {
	Title        string
	Catalogs     []string
	CatalogIndex int
	Categories   []string
	Listing      *gallery.CategoryPage
	View         *gallery.View
}

// renderView renders the full page of a view
func (h *Handler) renderView(w http.ResponseWriter, r *http.Request, view *gallery.View) {
	index := view.CatalogIndex
	names, err := h.ui.CategoryNames(r.Context(), index)
	if err != nil {
		h.logger.Warn(r.Context()).Err(err).Msg("Category navigation unavailable")
	}

	h.render(w, r, "view", pageData{
		Title:        categoryLabel(view.Category),
		Catalogs:     h.ui.Catalogs(),
		CatalogIndex: index,
		Categories:   names,
		View:         view,
	})
}

// render executes a template into a buffer so a failure never leaves a
// half-written page behind
func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error(r.Context()).Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w) //nolint:errcheck // Client went away
}

// viewPageURL links to another page of the listing a view shows, keeping the
// shuffle seed
func viewPageURL(v *gallery.View, page int) string {
	u := gallery.CategoryPageURL(v.Category, page)
	if v.Seed == "" {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "seed=" + v.Seed
}

func listingPageURL(page int) string {
	return "/?page=" + strconv.Itoa(page)
}

func categoryLabel(category string) string {
	switch category {
	case "":
		return "All images"
	case gallery.CategoryFavorites:
		return "Favorites"
	case gallery.CategoryUnfavorites:
		return "Not yet liked"
	default:
		return category
	}
}
