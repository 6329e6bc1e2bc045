package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shaibs3/holovote/internal/apperr"
	"github.com/shaibs3/holovote/internal/catalog"
	"github.com/shaibs3/holovote/internal/mirror"
	"github.com/shaibs3/holovote/internal/models"
	"github.com/shaibs3/holovote/internal/swapi"
	"github.com/shaibs3/holovote/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type stubSyncer struct {
	summary mirror.Summary
	err     error
	kinds   []models.Kind
}

func (s *stubSyncer) Sync(_ context.Context, kind models.Kind) (mirror.Summary, error) {
	s.kinds = append(s.kinds, kind)
	return s.summary, s.err
}

func swapiStub(t *testing.T, handler http.HandlerFunc) *swapi.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := swapi.NewClient(swapi.Config{
		BaseURL:  server.URL + "/api",
		Timeout:  time.Second,
		Attempts: 1,
	}, zap.NewNop(), nil)
	require.NoError(t, err)
	return client
}

func setupCharacterRouter(t *testing.T, syncer mirror.Syncer, source mirror.Opener) (*mux.Router, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	if source == nil {
		source = swapiStub(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	h := NewEntityHandler[models.Character](catalog.NewTable[models.Character](db, models.KindCharacter), syncer, source)
	r := mux.NewRouter()
	h.RegisterRoutes(r, zap.NewNop())
	return r, db
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestEntityHandler_List(t *testing.T) {
	r, db := setupCharacterRouter(t, &stubSyncer{}, nil)

	w := do(r, testutil.MakeRequest(http.MethodGet, "/characters/", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	assert.JSONEq(t, `[]`, w.Body.String())

	testutil.CreateTestCharacter(t, db, 2, "Luke Skywalker", 0)
	testutil.CreateTestCharacter(t, db, 1, "C-3PO", 0)

	w = do(r, testutil.MakeRequest(http.MethodGet, "/characters", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var rows []map[string]interface{}
	testutil.AssertJSON(t, w, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "C-3PO", rows[0]["name"])
	assert.Equal(t, []interface{}{}, rows[0]["films"])
}

func TestEntityHandler_Get(t *testing.T) {
	r, db := setupCharacterRouter(t, &stubSyncer{}, nil)
	luke := testutil.CreateTestCharacter(t, db, 1, "Luke Skywalker", 3)
	film := testutil.CreateTestFilm(t, db, 1, "A New Hope", 0)
	require.NoError(t, db.Create(&models.CharacterFilm{CharacterID: luke.ID, FilmID: film.ID}).Error)

	w := do(r, testutil.MakeRequest(http.MethodGet, "/characters/1", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var body map[string]interface{}
	testutil.AssertJSON(t, w, &body)
	assert.Equal(t, "Luke Skywalker", body["name"])
	assert.Equal(t, float64(3), body["votes"])
	assert.Equal(t, []interface{}{float64(film.ID)}, body["films"])

	w = do(r, testutil.MakeRequest(http.MethodGet, "/characters/999", nil))
	testutil.AssertStatus(t, w, http.StatusNotFound)
	assert.JSONEq(t, `{"detail": "Character with ID 999 not found"}`, w.Body.String())
}

func TestEntityHandler_Search(t *testing.T) {
	r, db := setupCharacterRouter(t, &stubSyncer{}, nil)
	testutil.CreateTestCharacter(t, db, 1, "Luke Skywalker", 0)
	testutil.CreateTestCharacter(t, db, 2, "Leia Organa", 0)

	w := do(r, testutil.MakeRequest(http.MethodGet, "/characters/search/?name=luke", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var rows []map[string]interface{}
	testutil.AssertJSON(t, w, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "Luke Skywalker", rows[0]["name"])

	// a single space is a real query
	w = do(r, testutil.MakeRequest(http.MethodGet, "/characters/search/?name=%20", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSON(t, w, &rows)
	assert.Len(t, rows, 2)

	w = do(r, testutil.MakeRequest(http.MethodGet, "/characters/search/", nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestEntityHandler_Fetch(t *testing.T) {
	syncer := &stubSyncer{summary: mirror.Summary{Created: 2, Skipped: 1, Total: 3}}
	r, _ := setupCharacterRouter(t, syncer, nil)

	w := do(r, testutil.MakeRequest(http.MethodPost, "/characters/fetch", nil))
	testutil.AssertStatus(t, w, http.StatusCreated)
	assert.JSONEq(t, `{
		"message": "Characters fetched and stored successfully",
		"created": 2, "skipped": 1, "total": 3
	}`, w.Body.String())
	assert.Equal(t, []models.Kind{models.KindCharacter}, syncer.kinds)
}

func TestEntityHandler_FetchFailures(t *testing.T) {
	for name, err := range map[string]error{
		"source down":   apperr.Unavailable("Failed to communicate with external API", errors.New("timeout")),
		"storage error": apperr.Storage("Failed to fetch characters", errors.New("disk full")),
	} {
		t.Run(name, func(t *testing.T) {
			r, _ := setupCharacterRouter(t, &stubSyncer{err: err}, nil)

			w := do(r, testutil.MakeRequest(http.MethodPost, "/characters/fetch", nil))
			testutil.AssertStatus(t, w, http.StatusInternalServerError)
			assert.JSONEq(t, `{"detail": "Failed to fetch and store characters"}`, w.Body.String())
		})
	}
}

func TestEntityHandler_RemoteSearch(t *testing.T) {
	var gotQuery string
	source := swapiStub(t, func(w http.ResponseWriter, req *http.Request) {
		gotQuery = req.URL.Query().Get("search")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [{"name": "Luke Skywalker", "url": "https://swapi.info/api/people/1"}]}`))
	})
	r, db := setupCharacterRouter(t, &stubSyncer{}, source)

	w := do(r, testutil.MakeRequest(http.MethodGet, "/characters/remote/?name=luke", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var rows []map[string]interface{}
	testutil.AssertJSON(t, w, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "Luke Skywalker", rows[0]["name"])
	assert.Equal(t, "luke", gotQuery)
	assert.Zero(t, testutil.CountRows(t, db, models.KindCharacter))
}

func TestEntityHandler_RemoteSearchUnavailable(t *testing.T) {
	source := swapiStub(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	r, _ := setupCharacterRouter(t, &stubSyncer{}, source)

	w := do(r, testutil.MakeRequest(http.MethodGet, "/characters/remote/?name=luke", nil))
	testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
	assert.JSONEq(t, `{"detail": "Failed to communicate with external API"}`, w.Body.String())

	w = do(r, testutil.MakeRequest(http.MethodGet, "/characters/remote/", nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestEntityHandler_FilmsUseTitle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CreateTestFilm(t, db, 1, "A New Hope", 0)
	h := NewEntityHandler[models.Film](catalog.NewTable[models.Film](db, models.KindFilm), &stubSyncer{}, nil)
	r := mux.NewRouter()
	h.RegisterRoutes(r, zap.NewNop())

	w := do(r, testutil.MakeRequest(http.MethodGet, "/films/search/?title=HOPE", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var rows []map[string]interface{}
	testutil.AssertJSON(t, w, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "A New Hope", rows[0]["title"])

	w = do(r, testutil.MakeRequest(http.MethodGet, "/films/search/?name=HOPE", nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestEntityHandler_FetchFailureIsNotLoggedTwice(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	db := testutil.SetupTestDB(t)
	syncer := &stubSyncer{err: apperr.Storage("Failed to fetch characters", errors.New("boom"))}
	h := NewEntityHandler[models.Character](catalog.NewTable[models.Character](db, models.KindCharacter), syncer, nil)
	r := mux.NewRouter()
	h.RegisterRoutes(r, zap.New(core))

	w := do(r, testutil.MakeRequest(http.MethodPost, "/characters/fetch", nil))
	testutil.AssertStatus(t, w, http.StatusInternalServerError)

	// the synchronizer already logged the failure
	assert.Zero(t, logs.Len())
}
