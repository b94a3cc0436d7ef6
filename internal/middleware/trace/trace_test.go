package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emianalyzer/internal/log"
)

type observation struct {
	route  string
	method string
	status int
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (o *recordingObserver) ObserveHTTP(route, method string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.obs = append(o.obs, observation{route, method, status})
}

func newRouter(t *testing.T) (*chi.Mux, *recordingObserver, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: "json", Output: &buf})
	obs := &recordingObserver{}

	r := chi.NewRouter()
	r.Use(NewMiddleware(logger, func(*http.Request) string { return "198.51.100.4" }, obs).Handler)
	r.Get("/api/users/{userID}/snapshot", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetRequestID(r.Context())))
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return r, obs, &buf
}

func TestHandler_GeneratesRequestID(t *testing.T) {
	router, obs, buf := newRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/7/snapshot", nil))

	id := rec.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.Body.String(), "handler sees the same id")

	require.Len(t, obs.obs, 1)
	assert.Equal(t, observation{"/api/users/{userID}/snapshot", http.MethodGet, http.StatusOK}, obs.obs[0])
	assert.Contains(t, buf.String(), `"client_ip":"198.51.100.4"`)
}

func TestHandler_KeepsValidInboundID(t *testing.T) {
	router, _, _ := newRouter(t)
	inbound := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/api/users/7/snapshot", nil)
	req.Header.Set(RequestIDHeader, inbound)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, inbound, rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/api/users/7/snapshot", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get(RequestIDHeader))
}

func TestHandler_RecordsStatus(t *testing.T) {
	router, obs, buf := newRouter(t)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Len(t, obs.obs, 2)
	assert.Equal(t, http.StatusInternalServerError, obs.obs[0].status)
	assert.Equal(t, http.StatusNotFound, obs.obs[1].status)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}
