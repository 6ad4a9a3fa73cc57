package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"face-gallery/internal/domain/gallery"
)

// viewActionFunc mutates the view with id using the parsed form of r
type viewActionFunc func(ctx context.Context, id string, r *http.Request) (*gallery.View, error)

func (h *Handler) viewHandler(w http.ResponseWriter, r *http.Request) {
	view, err := h.ui.GetView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.renderView(w, r, view)
}

// htmxStopPolling makes htmx cancel an hx-trigger="every ..." poll
const htmxStopPolling = 286

// viewBodyHandler returns the partial htmx polls until every image loaded.
// A poll for a view that no longer exists is told to stop.
func (h *Handler) viewBodyHandler(w http.ResponseWriter, r *http.Request) {
	view, err := h.ui.GetView(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, gallery.ErrViewNotFound) && isHTMX(r) {
		w.WriteHeader(htmxStopPolling)
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.render(w, r, "view-body", view)
}

// viewAction runs fn and answers with the updated view: htmx requests get the
// body partial, plain form posts are redirected back to the view. A failed
// mutation that still produced a view is rendered with its alert.
func (h *Handler) viewAction(fn viewActionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}

		view, err := fn(r.Context(), id, r)
		if view == nil {
			if err == nil {
				err = gallery.ErrViewNotFound
			}
			h.writeError(w, r, err)
			return
		}
		if err != nil {
			h.logger.Debug(r.Context()).Err(err).Str("view_id", id).Msg("View action reported a failure")
		}

		if isHTMX(r) {
			h.render(w, r, "view-body", view)
			return
		}
		http.Redirect(w, r, "/views/"+view.ID, http.StatusSeeOther)
	}
}

func (h *Handler) toggleLike(ctx context.Context, id string, r *http.Request) (*gallery.View, error) {
	return h.ui.ToggleLike(ctx, id, r.PostForm.Get("path"))
}

func (h *Handler) batchLike(ctx context.Context, id string, _ *http.Request) (*gallery.View, error) {
	return h.ui.BatchLike(ctx, id)
}

func (h *Handler) showInfo(ctx context.Context, id string, r *http.Request) (*gallery.View, error) {
	return h.ui.ShowImageInfo(ctx, id, r.PostForm.Get("path"))
}

func (h *Handler) closeModal(ctx context.Context, id string, _ *http.Request) (*gallery.View, error) {
	return h.ui.CloseModal(ctx, id)
}

func (h *Handler) clickModal(ctx context.Context, id string, r *http.Request) (*gallery.View, error) {
	return h.ui.ClickModal(ctx, id, gallery.ParseModalTarget(r.PostForm.Get("target")))
}

func (h *Handler) dismissAlerts(ctx context.Context, id string, _ *http.Request) (*gallery.View, error) {
	return h.ui.DismissAlerts(ctx, id)
}

// writeError maps domain errors onto HTTP status codes
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, gallery.ErrViewNotFound):
		status, message = http.StatusNotFound, "View not found"
	case errors.Is(err, gallery.ErrItemNotFound):
		status, message = http.StatusNotFound, "Item not found"
	case errors.Is(err, gallery.ErrCatalogUnavailable):
		status, message = http.StatusServiceUnavailable, "Gallery index unavailable"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context()).Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	http.Error(w, message, status)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
