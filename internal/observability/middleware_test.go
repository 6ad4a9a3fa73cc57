package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newInstrumentedRouter(t *testing.T) (http.Handler, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := NewHTTPMetrics(mp.Meter("test"))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(TracingMiddleware(tp.Tracer("test")))
	r.Use(MetricsMiddleware(metrics))
	r.Get("/views/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return r, recorder, reader
}

func TestTracingMiddleware_NamesSpanAfterRoute(t *testing.T) {
	router, recorder, _ := newInstrumentedRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/views/abc-123", nil)
	req.Header.Set("HX-Request", "true")
	router.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /views/{id}", spans[0].Name())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "/views/{id}", attrs["http.route"].AsString())
	assert.True(t, attrs["htmx.request"].AsBool())
	assert.Equal(t, "abc-123", attrs["gallery.view.id"].AsString())
	assert.Equal(t, int64(2), attrs["http.response.body.size"].AsInt64())
}

func TestTracingMiddleware_SkipsHealthChecks(t *testing.T) {
	router, recorder, _ := newInstrumentedRouter(t)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Empty(t, recorder.Ended())
}

func TestTracingMiddleware_MarksErrors(t *testing.T) {
	router, recorder, _ := newInstrumentedRouter(t)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "Error", spans[0].Status().Code.String())
}

func TestMetricsMiddleware_RecordsRoutePattern(t *testing.T) {
	router, _, reader := newInstrumentedRouter(t)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/views/one", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/views/two", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var count metricdata.Sum[int64]
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "http.server.request.count" {
				count = m.Data.(metricdata.Sum[int64])
				found = true
			}
		}
	}
	require.True(t, found)
	require.Len(t, count.DataPoints, 1)
	assert.Equal(t, int64(2), count.DataPoints[0].Value)

	route, ok := count.DataPoints[0].Attributes.Value("http.route")
	require.True(t, ok)
	assert.Equal(t, "/views/{id}", route.AsString())
}
