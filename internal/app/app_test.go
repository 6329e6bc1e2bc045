package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shaibs3/holovote/internal/config"
	"github.com/shaibs3/holovote/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	filmsJSON = `[
		{"title": "A New Hope", "episode_id": 4, "characters": ["https://swapi.info/api/people/1"], "url": "https://swapi.info/api/films/1"},
		{"title": "The Empire Strikes Back", "episode_id": 5, "characters": [], "url": "https://swapi.info/api/films/2"}
	]`
	peopleJSON = `[
		{"name": "Luke Skywalker", "films": ["https://swapi.info/api/films/1", "https://swapi.info/api/films/2"], "url": "https://swapi.info/api/people/1"},
		{"name": "Luke Skywalker", "films": [], "url": "https://swapi.info/api/people/1/"},
		{"name": "Leia Organa", "films": ["https://swapi.info/api/films/1"], "url": "https://swapi.info/api/people/5"}
	]`
)

func newTestApp(t *testing.T) http.Handler {
	t.Helper()
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(req.URL.Path, "/films"):
			_, _ = w.Write([]byte(filmsJSON))
		case strings.HasSuffix(req.URL.Path, "/people"):
			_, _ = w.Write([]byte(peopleJSON))
		case strings.HasSuffix(req.URL.Path, "/starships"):
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(source.Close)

	cfg := &config.Config{
		Port:               "0",
		Environment:        "test",
		LogLevel:           "info",
		DBConfig:           `{"db_type": "memory", "extra_details": {}}`,
		SwapiBaseURL:       source.URL + "/api",
		SwapiTimeout:       time.Second,
		SwapiRetryAttempts: 1,
		SyncSchedule:       "@every 1h",
	}
	a, err := NewApp(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, a.scheduler)
	return a.Handler()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestApp_MirrorVoteAndRank(t *testing.T) {
	h := newTestApp(t)

	w := serve(h, testutil.MakeRequest(http.MethodPost, "/api/v1/films/fetch", nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	w = serve(h, testutil.MakeRequest(http.MethodPost, "/api/v1/characters/fetch", nil))
	testutil.AssertStatus(t, w, http.StatusCreated)
	var summary map[string]interface{}
	testutil.AssertJSON(t, w, &summary)
	assert.Equal(t, float64(2), summary["created"])
	assert.Equal(t, float64(1), summary["skipped"])
	assert.Equal(t, float64(3), summary["total"])

	// a second fetch is a no-op
	w = serve(h, testutil.MakeRequest(http.MethodPost, "/api/v1/characters/fetch", nil))
	testutil.AssertStatus(t, w, http.StatusCreated)
	testutil.AssertJSON(t, w, &summary)
	assert.Equal(t, float64(0), summary["created"])

	w = serve(h, testutil.MakeRequest(http.MethodGet, "/api/v1/characters/search/?name=LUKE", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var found []map[string]interface{}
	testutil.AssertJSON(t, w, &found)
	require.Len(t, found, 1)
	assert.Len(t, found[0]["films"], 2)
	lukeID := found[0]["id"]

	for i := 0; i < 3; i++ {
		w = serve(h, testutil.MakeRequest(http.MethodPost, "/api/v1/vote/",
			map[string]interface{}{"entity_type": "character", "entity_id": lukeID}))
		testutil.AssertStatus(t, w, http.StatusOK)
	}

	w = serve(h, testutil.MakeRequest(http.MethodGet, "/api/v1/vote/top?entity_type=character&limit=1", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var top map[string][]map[string]interface{}
	testutil.AssertJSON(t, w, &top)
	require.Len(t, top["character"], 1)
	assert.Equal(t, "Luke Skywalker", top["character"][0]["name"])
	assert.Equal(t, float64(3), top["character"][0]["votes"])
}

func TestApp_AmbientRoutes(t *testing.T) {
	h := newTestApp(t)

	w := serve(h, testutil.MakeRequest(http.MethodGet, "/health", nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	serve(h, testutil.MakeRequest(http.MethodPost, "/api/v1/films/fetch", nil))

	w = serve(h, testutil.MakeRequest(http.MethodGet, "/metrics", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	body := w.Body.String()
	assert.Contains(t, body, "mirror_rows_total")
	assert.Contains(t, body, "swapi_requests_total")
	assert.Contains(t, body, "db_open_connections")
}
