package integrationtests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"face-gallery/internal/config"
	"face-gallery/internal/domain/gallery"
	"face-gallery/internal/observability"
	"face-gallery/internal/platform/storage"
	"face-gallery/internal/services"
	"face-gallery/internal/testutils"
	"face-gallery/internal/web/handlers"
)

const indexKey = "gallery.json"

// GalleryIntegrationTestSuite runs the gallery UI against MinIO-hosted
// indexes, a Valkey view store and a fake gallery endpoint
type GalleryIntegrationTestSuite struct {
	suite.Suite
	ctx        context.Context
	containers *testutils.TestContainers
	upstream   *testutils.FakeGallery
	container  *services.Container
	ui         gallery.GalleryUI
}

// SetupSuite sets up the test suite with real containers
func (s *GalleryIntegrationTestSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("Skipping integration tests in short mode")
	}
	s.ctx = context.Background()

	containers, err := testutils.SetupTestContainers(s.ctx)
	require.NoError(s.T(), err, "Failed to setup test containers")
	s.containers = containers

	require.NoError(s.T(), containers.MinioClient.PutObject(s.ctx, indexKey, []byte(testutils.SampleIndex), "application/json"))

	s.upstream = testutils.NewFakeGallery()

	cfg := testutils.TestConfig(s.upstream.URL(), indexKey)
	cfg.Catalog.Source = config.CatalogSourceObject
	cfg.Storage = containers.StorageConfig
	cfg.Cache = containers.CacheConfig

	container, err := services.NewContainer(s.ctx, cfg, observability.NewNopLogger(), services.WithoutBackgroundLoads())
	require.NoError(s.T(), err, "Failed to create services container")
	s.container = container
	s.ui = container.GalleryUI()
}

// TearDownSuite cleans up after all tests
func (s *GalleryIntegrationTestSuite) TearDownSuite() {
	if s.container != nil {
		assert.NoError(s.T(), s.container.Close())
	}
	if s.upstream != nil {
		s.upstream.Close()
	}
	if s.containers != nil {
		require.NoError(s.T(), s.containers.Cleanup(s.ctx), "Failed to cleanup test containers")
	}
}

// SetupTest clears the view store and the fake endpoint before each test
func (s *GalleryIntegrationTestSuite) SetupTest() {
	require.NoError(s.T(), s.containers.FlushRedis(s.ctx))
	s.upstream.Reset()
}

func (s *GalleryIntegrationTestSuite) openPeople() *gallery.View {
	view, err := s.ui.OpenView(s.ctx, gallery.PageQuery{Category: "people", Page: 1})
	s.Require().NoError(err)
	s.Require().Len(view.Items, 3)
	return view
}

func (s *GalleryIntegrationTestSuite) TestOpenViewAndLoadImages() {
	view := s.openPeople()
	s.False(view.AllLoaded())
	for _, iv := range view.Items {
		s.Equal(gallery.Hidden, iv.Affordance)
	}

	s.Require().NoError(s.ui.LoadImages(s.ctx, view.ID))

	loaded, err := s.ui.GetView(s.ctx, view.ID)
	s.Require().NoError(err)
	s.True(loaded.AllLoaded())
	for _, iv := range loaded.Items {
		s.Equal(gallery.Visible, iv.Affordance)
		s.Equal("image-wrapper loaded", iv.WrapperClass())
		s.Equal(gallery.ImageInfo{Width: 16, Height: 12, Format: "png"}, iv.Image)
	}
	s.Equal(3, s.upstream.ImageHits())

	// A second view of the same images is served from the probe cache
	again := s.openPeople()
	s.Require().NoError(s.ui.LoadImages(s.ctx, again.ID))
	s.Equal(3, s.upstream.ImageHits())
}

func (s *GalleryIntegrationTestSuite) TestToggleLikePersists() {
	view := s.openPeople()

	updated, err := s.ui.ToggleLike(s.ctx, view.ID, "/g/people/a.jpg")
	s.Require().NoError(err)
	iv, err := updated.Item("/g/people/a.jpg")
	s.Require().NoError(err)
	s.Equal("liked", iv.LikeClass())

	stored, err := s.ui.GetView(s.ctx, view.ID)
	s.Require().NoError(err)
	iv, err = stored.Item("/g/people/a.jpg")
	s.Require().NoError(err)
	s.Equal(gallery.Liked, iv.Like)

	likes := s.upstream.Likes()
	s.Require().Len(likes, 1)
	s.Equal("like", likes[0]["action"])
	s.Equal("/g/people/a.jpg", likes[0]["path"])
}

func (s *GalleryIntegrationTestSuite) TestFailedLikeRaisesAlert() {
	view := s.openPeople()
	s.upstream.FailWith("index is locked")

	updated, err := s.ui.ToggleLike(s.ctx, view.ID, "/g/people/b.jpg")

	var appErr *gallery.ApplicationError
	s.Require().ErrorAs(err, &appErr)
	s.Require().NotNil(updated)
	s.Require().Len(updated.Alerts, 1)
	s.Equal("Operation failed: index is locked", updated.Alerts[0].Message)
	iv, err := updated.Item("/g/people/b.jpg")
	s.Require().NoError(err)
	s.Equal(gallery.Unliked, iv.Like)
}

func (s *GalleryIntegrationTestSuite) TestBatchLike() {
	view := s.openPeople()
	s.upstream.Forget("/g/people/b.jpg")

	updated, err := s.ui.BatchLike(s.ctx, view.ID)

	s.Require().NoError(err)
	s.Equal(2, updated.LikedCount())
	s.Require().NotEmpty(updated.Alerts)
	s.Equal("Batch like finished: 2 succeeded, 1 not found", updated.Alerts[len(updated.Alerts)-1].Message)
}

func (s *GalleryIntegrationTestSuite) TestObjectStorage() {
	client := s.containers.MinioClient

	info, err := client.StatObject(s.ctx, indexKey)
	s.Require().NoError(err)
	s.Equal(int64(len(testutils.SampleIndex)), info.Size)

	data, err := client.ReadObject(s.ctx, indexKey, 1<<20)
	s.Require().NoError(err)
	s.JSONEq(testutils.SampleIndex, string(data))

	_, err = client.ReadObject(s.ctx, indexKey, 8)
	s.ErrorIs(err, storage.ErrObjectTooLarge)

	_, err = client.ReadObject(s.ctx, "missing.json", 1<<20)
	s.ErrorIs(err, storage.ErrObjectNotFound)

	objects, err := client.ListObjects(s.ctx, "gallery")
	s.Require().NoError(err)
	s.Require().Len(objects, 1)
	s.Equal(indexKey, objects[0].Key)
}

func (s *GalleryIntegrationTestSuite) TestHealth() {
	checks := s.container.Health(s.ctx)

	s.Len(checks, 3)
	for name, err := range checks {
		s.NoError(err, name)
	}
}

func (s *GalleryIntegrationTestSuite) TestHTTPRoutes() {
	router := handlers.NewWithContainer(s.container, nil).Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	s.Equal(http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/category/people", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), s.upstream.URL()+"/image/people/a.jpg")
}

func TestGalleryIntegrationSuite(t *testing.T) {
	suite.Run(t, new(GalleryIntegrationTestSuite))
}
