package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"face-gallery/internal/domain/gallery"
)

// MockGalleryUI is a mock implementation of gallery.GalleryUI
type MockGalleryUI struct {
	mock.Mock
}

func (m *MockGalleryUI) view(args mock.Arguments) (*gallery.View, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gallery.View), args.Error(1)
}

func (m *MockGalleryUI) OpenView(ctx context.Context, q gallery.PageQuery) (*gallery.View, error) {
	return m.view(m.Called(ctx, q))
}

func (m *MockGalleryUI) GetView(ctx context.Context, id string) (*gallery.View, error) {
	return m.view(m.Called(ctx, id))
}

func (m *MockGalleryUI) LoadImages(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockGalleryUI) ToggleLike(ctx context.Context, id, path string) (*gallery.View, error) {
	return m.view(m.Called(ctx, id, path))
}

func (m *MockGalleryUI) BatchLike(ctx context.Context, id string) (*gallery.View, error) {
	return m.view(m.Called(ctx, id))
}

func (m *MockGalleryUI) ShowImageInfo(ctx context.Context, id, path string) (*gallery.View, error) {
	return m.view(m.Called(ctx, id, path))
}

func (m *MockGalleryUI) CloseModal(ctx context.Context, id string) (*gallery.View, error) {
	return m.view(m.Called(ctx, id))
}

func (m *MockGalleryUI) ClickModal(ctx context.Context, id string, target gallery.ModalTarget) (*gallery.View, error) {
	return m.view(m.Called(ctx, id, target))
}

func (m *MockGalleryUI) DismissAlerts(ctx context.Context, id string) (*gallery.View, error) {
	return m.view(m.Called(ctx, id))
}

func (m *MockGalleryUI) Categories(ctx context.Context, index, page int) (*gallery.CategoryPage, error) {
	args := m.Called(ctx, index, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gallery.CategoryPage), args.Error(1)
}

func (m *MockGalleryUI) CategoryNames(ctx context.Context, index int) ([]string, error) {
	args := m.Called(ctx, index)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockGalleryUI) Catalogs() []string {
	return m.Called().Get(0).([]string)
}

type fakeHealth map[string]error

func (f fakeHealth) Health(context.Context) map[string]error {
	return f
}

func sampleView() *gallery.View {
	v := gallery.NewView("v1", []gallery.Item{
		{Path: "/g/people/a.jpg", Filename: "a.jpg", Category: "people", FaceScores: []float64{0.5, 0.7}},
		{Path: "/g/people/b.jpg", Filename: "b.jpg", Category: "people", Liked: true},
	})
	v.Category = "people"
	v.Page = 1
	v.TotalPages = 1
	for i := range v.Items {
		v.Items[i].URL = "http://gallery/image/people/" + v.Items[i].Item.Filename
	}
	return v
}

func newTestHandler(ui *MockGalleryUI, health HealthChecker) http.Handler {
	h := New(ui, health, nil, nil)
	h.newSeed = func() string { return "424242" }
	return h.Routes()
}

func serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func postForm(target string, form url.Values, htmx bool) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return req
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("liveness", func(t *testing.T) {
		rec := serve(newTestHandler(&MockGalleryUI{}, nil), httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	})

	t.Run("ready", func(t *testing.T) {
		ui := &MockGalleryUI{}
		ui.On("Catalogs").Return([]string{"main.json", "other.json"})
		handler := newTestHandler(ui, fakeHealth{"cache": nil, "catalog": nil})
		rec := serve(handler, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"cache":"healthy"`)
		assert.Contains(t, rec.Body.String(), `"catalogs":2`)
	})

	t.Run("not ready", func(t *testing.T) {
		ui := &MockGalleryUI{}
		ui.On("Catalogs").Return([]string{"main.json"})
		handler := newTestHandler(ui, fakeHealth{"catalog": errors.New("index missing")})
		rec := serve(handler, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "unhealthy: index missing")
	})
}

func TestCategoriesPage(t *testing.T) {
	ui := &MockGalleryUI{}
	ui.On("Catalogs").Return([]string{"main.json"})
	ui.On("Categories", mock.Anything, 0, 2).Return(&gallery.CategoryPage{
		Categories: []gallery.CategorySummary{
			{Name: "people", URL: "/category/people", ThumbURL: "http://gallery/image/people/a.jpg", ItemCount: 2},
		},
		CurrentPage: 2,
		TotalPages:  3,
		DateUpdated: "2024-05-01",
	}, nil)

	rec := serve(newTestHandler(ui, nil), httptest.NewRequest(http.MethodGet, "/?page=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `href="/category/people"`)
	assert.Contains(t, body, "people (2)")
	assert.Contains(t, body, `href="/?page=1"`)
	assert.Contains(t, body, `href="/?page=3"`)
	assert.Contains(t, body, "Index updated 2024-05-01")
	ui.AssertExpectations(t)
}

func TestCategoriesPage_CatalogUnavailable(t *testing.T) {
	ui := &MockGalleryUI{}
	ui.On("Categories", mock.Anything, 0, 1).Return(nil, gallery.ErrCatalogUnavailable)

	rec := serve(newTestHandler(ui, nil), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCategoryPage_OpensView(t *testing.T) {
	ui := &MockGalleryUI{}
	ui.On("Catalogs").Return([]string{"main.json", "other.json"})
	ui.On("CategoryNames", mock.Anything, 1).Return([]string{"people", "people/kids"}, nil)
	ui.On("OpenView", mock.Anything, gallery.PageQuery{CatalogIndex: 1, Category: "people/kids", Page: 2}).
		Return(func() *gallery.View {
			v := sampleView()
			v.CatalogIndex = 1
			return v
		}(), nil)

	req := httptest.NewRequest(http.MethodGet, "/category/people/kids/page/2", nil)
	req.AddCookie(&http.Cookie{Name: catalogCookie, Value: "1"})
	rec := serve(newTestHandler(ui, nil), req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="view-body"`)
	assert.Contains(t, body, `hx-get="/views/v1/body"`, "unloaded views keep polling")
	assert.Contains(t, body, `class="image-wrapper"`)
	assert.Contains(t, body, "like-button unliked")
	assert.Contains(t, body, "like-button liked")
	assert.Contains(t, body, "visibility: hidden")
	assert.Contains(t, body, `href="/select/0"`)
	ui.AssertExpectations(t)
}

func TestShuffledCategory_RedirectsWithSeed(t *testing.T) {
	ui := &MockGalleryUI{}

	rec := serve(newTestHandler(ui, nil), httptest.NewRequest(http.MethodGet, "/category/_favorites/page/3", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/category/_favorites/page/3?seed=424242", rec.Header().Get("Location"))
	ui.AssertNotCalled(t, "OpenView", mock.Anything, mock.Anything)
}

func TestShuffledCategory_UsesSeed(t *testing.T) {
	ui := &MockGalleryUI{}
	view := sampleView()
	view.Category = gallery.CategoryFavorites
	view.Seed = "7"
	view.TotalPages = 2
	ui.On("Catalogs").Return([]string{"main.json"})
	ui.On("CategoryNames", mock.Anything, 0).Return([]string{"people"}, nil)
	ui.On("OpenView", mock.Anything, gallery.PageQuery{Category: gallery.CategoryFavorites, Page: 1, Seed: "7"}).
		Return(view, nil)

	rec := serve(newTestHandler(ui, nil), httptest.NewRequest(http.MethodGet, "/category/_favorites?seed=7", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/category/_favorites/page/2?seed=7"`)
}

func TestAllImages(t *testing.T) {
	ui := &MockGalleryUI{}
	ui.On("Catalogs").Return([]string{"main.json"})
	ui.On("CategoryNames", mock.Anything, 0).Return(nil, gallery.ErrCatalogUnavailable)
	ui.On("OpenView", mock.Anything, gallery.PageQuery{Page: 4}).Return(sampleView(), nil)

	rec := serve(newTestHandler(ui, nil), httptest.NewRequest(http.MethodGet, "/all?page=4", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	ui.AssertExpectations(t)
}

func TestSelectCatalog(t *testing.T) {
	ui := &MockGalleryUI{}
	ui.On("Catalogs").Return([]string{"a.json", "b.json"})
	handler := newTestHandler(ui, nil)

	t.Run("sets cookie and returns to referrer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/select/1", nil)
		req.Header.Set("Referer", "http://localhost:8080/category/people?x=1")
		rec := serve(handler, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/category/people?x=1", rec.Header().Get("Location"))
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, catalogCookie, cookies[0].Name)
		assert.Equal(t, "1", cookies[0].Value)
	})

	t.Run("without referrer", func(t *testing.T) {
		rec := serve(handler, httptest.NewRequest(http.MethodGet, "/select/0", nil))
		assert.Equal(t, "/", rec.Header().Get("Location"))
	})

	t.Run("unknown index", func(t *testing.T) {
		rec := serve(handler, httptest.NewRequest(http.MethodGet, "/select/5", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestViewBody(t *testing.T) {
	ui := &MockGalleryUI{}
	view := sampleView()
	for _, iv := range view.Items {
		require.NoError(t, view.MarkLoaded(iv.Item.Path, gallery.ImageInfo{Width: 10, Height: 10, Format: "jpeg"}))
	}
	ui.On("GetView", mock.Anything, "v1").Return(view, nil)
	ui.On("GetView", mock.Anything, "gone").Return(nil, gallery.ErrViewNotFound)
	handler := newTestHandler(ui, nil)

	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/views/v1/body", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "<html", "partial only")
	assert.NotContains(t, body, "hx-trigger", "polling stops once everything loaded")
	assert.Contains(t, body, "image-wrapper loaded")
	assert.Contains(t, body, "visibility: visible")

	rec = serve(handler, httptest.NewRequest(http.MethodGet, "/views/gone/body", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	t.Run("expired view stops the htmx poll", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/views/gone/body", nil)
		req.Header.Set("HX-Request", "true")

		rec := serve(handler, req)

		assert.Equal(t, htmxStopPolling, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestToggleLike(t *testing.T) {
	liked := sampleView()
	require.NoError(t, liked.SetLike("/g/people/a.jpg", gallery.Liked))

	t.Run("htmx gets the body partial", func(t *testing.T) {
		ui := &MockGalleryUI{}
		ui.On("ToggleLike", mock.Anything, "v1", "/g/people/a.jpg").Return(liked, nil)

		rec := serve(newTestHandler(ui, nil), postForm("/views/v1/like", url.Values{"path": {"/g/people/a.jpg"}}, true))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2, strings.Count(rec.Body.String(), "like-button liked"))
		ui.AssertExpectations(t)
	})

	t.Run("form post redirects to the view", func(t *testing.T) {
		ui := &MockGalleryUI{}
		ui.On("ToggleLike", mock.Anything, "v1", "/g/people/a.jpg").Return(liked, nil)

		rec := serve(newTestHandler(ui, nil), postForm("/views/v1/like", url.Values{"path": {"/g/people/a.jpg"}}, false))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/views/v1", rec.Header().Get("Location"))
	})

	t.Run("failure renders the alert", func(t *testing.T) {
		failed := sampleView()
		cause := &gallery.ApplicationError{Message: "Image not found in index"}
		failed.PushAlert(gallery.AlertError, gallery.FailureAlert(cause))
		ui := &MockGalleryUI{}
		ui.On("ToggleLike", mock.Anything, "v1", "/g/people/a.jpg").Return(failed, cause)

		rec := serve(newTestHandler(ui, nil), postForm("/views/v1/like", url.Values{"path": {"/g/people/a.jpg"}}, true))

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Operation failed: Image not found in index")
		assert.Contains(t, body, "like-button unliked")
	})

	t.Run("unknown item", func(t *testing.T) {
		ui := &MockGalleryUI{}
		ui.On("ToggleLike", mock.Anything, "v1", "/nope.jpg").Return(nil, gallery.ErrItemNotFound)

		rec := serve(newTestHandler(ui, nil), postForm("/views/v1/like", url.Values{"path": {"/nope.jpg"}}, true))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestBatchLike(t *testing.T) {
	view := sampleView()
	view.ApplyBatchFound([]string{"/g/people/a.jpg"})
	view.PushAlert(gallery.AlertInfo, gallery.BatchSummary(1, 1))
	ui := &MockGalleryUI{}
	ui.On("BatchLike", mock.Anything, "v1").Return(view, nil)

	rec := serve(newTestHandler(ui, nil), postForm("/views/v1/batch-like", nil, true))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Batch like finished: 1 succeeded, 1 not found")
	assert.Contains(t, rec.Body.String(), "2 of 2 liked")
}

func TestModalActions(t *testing.T) {
	open := sampleView()
	_, err := open.OpenDetail("/g/people/a.jpg")
	require.NoError(t, err)
	closed := sampleView()

	tests := []struct {
		name   string
		path   string
		form   url.Values
		setup  func(ui *MockGalleryUI)
		expect string
	}{
		{
			name: "info opens the modal",
			path: "/views/v1/info",
			form: url.Values{"path": {"/g/people/a.jpg"}},
			setup: func(ui *MockGalleryUI) {
				ui.On("ShowImageInfo", mock.Anything, "v1", "/g/people/a.jpg").Return(open, nil)
			},
			expect: "0.6000 (2 detections)",
		},
		{
			name: "backdrop click",
			path: "/views/v1/modal/click",
			form: url.Values{"target": {"backdrop"}},
			setup: func(ui *MockGalleryUI) {
				ui.On("ClickModal", mock.Anything, "v1", gallery.TargetBackdrop).Return(closed, nil)
			},
			expect: "display: none",
		},
		{
			name: "content click keeps the modal",
			path: "/views/v1/modal/click",
			form: url.Values{"target": {"anything"}},
			setup: func(ui *MockGalleryUI) {
				ui.On("ClickModal", mock.Anything, "v1", gallery.TargetContent).Return(open, nil)
			},
			expect: "display: flex",
		},
		{
			name: "close",
			path: "/views/v1/modal/close",
			setup: func(ui *MockGalleryUI) {
				ui.On("CloseModal", mock.Anything, "v1").Return(closed, nil)
			},
			expect: "display: none",
		},
		{
			name: "dismiss alerts",
			path: "/views/v1/alerts/dismiss",
			setup: func(ui *MockGalleryUI) {
				ui.On("DismissAlerts", mock.Anything, "v1").Return(closed, nil)
			},
			expect: `id="view-body"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ui := &MockGalleryUI{}
			tt.setup(ui)

			rec := serve(newTestHandler(ui, nil), postForm(tt.path, tt.form, true))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expect)
			ui.AssertExpectations(t)
		})
	}
}

func TestParseCategoryPath(t *testing.T) {
	tests := []struct {
		path     string
		category string
		page     int
		ok       bool
	}{
		{path: "/category/people", category: "people", page: 1, ok: true},
		{path: "/category/people/", category: "people", page: 1, ok: true},
		{path: "/category/people/page/3", category: "people", page: 3, ok: true},
		{path: "/category/people/kids/page/2", category: "people/kids", page: 2, ok: true},
		{path: "/category/people/page/x", category: "people/page/x", page: 1, ok: true},
		{path: "/category/", ok: false},
		{path: "/other", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			category, page, ok := parseCategoryPath(tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.category, category)
				assert.Equal(t, tt.page, page)
			}
		})
	}
}

func TestViewPageURL(t *testing.T) {
	assert.Equal(t, "/category/people/page/2", viewPageURL(&gallery.View{Category: "people"}, 2))
	assert.Equal(t, "/all?page=3&seed=9", viewPageURL(&gallery.View{Seed: "9"}, 3))
	assert.Equal(t, "/category/_unfavorites/page/1?seed=5",
		viewPageURL(&gallery.View{Category: gallery.CategoryUnfavorites, Seed: "5"}, 1))
}
