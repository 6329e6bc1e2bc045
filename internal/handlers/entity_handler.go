package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shaibs3/holovote/internal/mirror"
	"github.com/shaibs3/holovote/internal/models"
	"go.uber.org/zap"
)

// Reader is the read side of the mirror for one kind
type Reader[T any] interface {
	Kind() models.Kind
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id uint) (*T, error)
	Search(ctx context.Context, query string) ([]T, error)
}

// EntityHandler serves the list, detail, search, remote search and fetch
// routes of one kind
type EntityHandler[T any] struct {
	reader Reader[T]
	syncer mirror.Syncer
	source mirror.Opener
	logger *zap.Logger
}

func NewEntityHandler[T any](reader Reader[T], syncer mirror.Syncer, source mirror.Opener) *EntityHandler[T] {
	return &EntityHandler[T]{
		reader: reader,
		syncer: syncer,
		source: source,
		logger: zap.NewNop(),
	}
}

// RegisterRoutes registers the routes for this handler
func (h *EntityHandler[T]) RegisterRoutes(router *mux.Router, logger *zap.Logger) {
	kind := h.reader.Kind()
	h.logger = logger.Named(kind.Plural())
	base := "/" + kind.Plural()

	for _, p := range []string{base, base + "/"} {
		router.HandleFunc(p, h.handleList).Methods(http.MethodGet)
	}
	for _, p := range []string{base + "/search", base + "/search/"} {
		router.HandleFunc(p, h.handleSearch).Methods(http.MethodGet)
	}
	for _, p := range []string{base + "/remote", base + "/remote/"} {
		router.HandleFunc(p, h.handleRemote).Methods(http.MethodGet)
	}
	router.HandleFunc(base+"/fetch", h.handleFetch).Methods(http.MethodPost)
	router.HandleFunc(base+"/{id:[0-9]+}", h.handleGet).Methods(http.MethodGet)
}

func (h *EntityHandler[T]) handleList(w http.ResponseWriter, req *http.Request) {
	rows, err := h.reader.List(req.Context())
	if err != nil {
		writeError(w, h.logger, err, fmt.Sprintf("Failed to retrieve %s", h.reader.Kind().Plural()))
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *EntityHandler[T]) handleGet(w http.ResponseWriter, req *http.Request) {
	kind := h.reader.Kind()
	raw := mux.Vars(req)["id"]
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("%s with ID %s not found", kind.Title(), raw))
		return
	}

	row, err := h.reader.Get(req.Context(), uint(id))
	if err != nil {
		writeError(w, h.logger, err, fmt.Sprintf("Failed to retrieve %s", kind))
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *EntityHandler[T]) handleSearch(w http.ResponseWriter, req *http.Request) {
	kind := h.reader.Kind()
	rows, err := h.reader.Search(req.Context(), req.URL.Query().Get(kind.DisplayColumn()))
	if err != nil {
		writeError(w, h.logger, err, fmt.Sprintf("Failed to search %s", kind.Plural()))
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleRemote proxies a search to the external catalog without touching the store
func (h *EntityHandler[T]) handleRemote(w http.ResponseWriter, req *http.Request) {
	kind := h.reader.Kind()
	query := req.URL.Query().Get(kind.DisplayColumn())
	if query == "" {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("%s must not be empty", kind.DisplayColumn()))
		return
	}

	session := h.source.Open()
	defer session.Close()

	records, err := session.Search(req.Context(), kind.Resource(), query)
	if err != nil {
		writeError(w, h.logger, err, "Failed to communicate with external API")
		return
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *EntityHandler[T]) handleFetch(w http.ResponseWriter, req *http.Request) {
	kind := h.reader.Kind()
	summary, err := h.syncer.Sync(req.Context(), kind)
	if err != nil {
		h.logger.Debug("fetch failed", zap.Error(err))
		// source outages are reported as 500 here too
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch and store %s", kind.Plural()))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": fmt.Sprintf("%ss fetched and stored successfully", kind.Title()),
		"created": summary.Created,
		"skipped": summary.Skipped,
		"total":   summary.Total,
	})
}
