package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInstrumentUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Instrument)
	r.Get("/movies/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/movies/{id}", "404"))
	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/movies/"+id, nil))
	}
	after := testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/movies/{id}", "404"))

	assert.Equal(t, float64(3), after-before)
}

func TestHandlerServesRegistry(t *testing.T) {
	RatingSubmissions.WithLabelValues("created").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cinerate_rating_submissions_total")
}
