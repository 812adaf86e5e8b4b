package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "kaku/pkg/errors"
)

func TestCollector_OutcomeLabels(t *testing.T) {
	c := NewCollector("kaku")

	c.ObserveCommand("CreateNote", time.Millisecond, nil)
	c.ObserveCommand("CreateNote", time.Millisecond, pkgerrors.NewConflictError("dup"))
	c.ObserveQuery("SearchPoIs", time.Millisecond, errors.New("boom"))
	c.ObserveStore("poi.get", time.Millisecond, pkgerrors.NewNotFoundError("poi"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.commands.WithLabelValues("CreateNote", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commands.WithLabelValues("CreateNote", "CONFLICT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.queries.WithLabelValues("SearchPoIs", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.storeOps.WithLabelValues("poi.get", "NOT_FOUND")))
}

func TestCollector_MiddlewareUsesRoutePattern(t *testing.T) {
	c := NewCollector("kaku")
	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/thoughts/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", c.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/thoughts/abc", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/thoughts/{id}", "404")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "kaku_http_requests_total"))
}

func TestNoopTracing(t *testing.T) {
	tp := NoopTracing()
	_, span := tp.Tracer().Start(context.Background(), "x")
	span.End()
	assert.NoError(t, tp.Shutdown(context.Background()))
}
