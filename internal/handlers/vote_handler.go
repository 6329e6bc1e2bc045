package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shaibs3/holovote/internal/models"
	"github.com/shaibs3/holovote/internal/voting"
	"go.uber.org/zap"
)

// Voter records votes and ranks entities
type Voter interface {
	RecordVote(ctx context.Context, kind models.Kind, id uint) (voting.Tally, error)
	TopEntities(ctx context.Context, kind *models.Kind, limit int) (map[models.Kind][]voting.Tally, error)
}

type VoteHandler struct {
	voter  Voter
	logger *zap.Logger
}

func NewVoteHandler(voter Voter) *VoteHandler {
	return &VoteHandler{voter: voter, logger: zap.NewNop()}
}

type voteRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   *int64 `json:"entity_id"`
}

// RegisterRoutes registers the routes for this handler
func (h *VoteHandler) RegisterRoutes(router *mux.Router, logger *zap.Logger) {
	h.logger = logger.Named("vote")
	router.HandleFunc("/vote", h.handleVote).Methods(http.MethodPost)
	router.HandleFunc("/vote/", h.handleVote).Methods(http.MethodPost)
	router.HandleFunc("/vote/top", h.handleTop).Methods(http.MethodGet)
}

func (h *VoteHandler) handleVote(w http.ResponseWriter, req *http.Request) {
	var body voteRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.EntityType == "" || body.EntityID == nil {
		writeDetail(w, http.StatusBadRequest, "entity_type and entity_id are required")
		return
	}

	kind := models.Kind(body.EntityType)
	id := *body.EntityID
	if id < 1 || id > int64(^uint32(0)) {
		if !kind.IsValid() {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Invalid entity type: %s", kind))
			return
		}
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("%s with ID %d not found", kind.Title(), id))
		return
	}

	tally, err := h.voter.RecordVote(req.Context(), kind, uint(id))
	if err != nil {
		writeError(w, h.logger, err, "Failed to record vote")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Vote for %s %d recorded successfully", kind, id),
		"votes":   tally.Votes,
	})
}

func (h *VoteHandler) handleTop(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	limit := voting.DefaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	var kind *models.Kind
	if raw := q.Get("entity_type"); raw != "" {
		k, err := models.ParseKind(raw)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Invalid entity type: %s", raw))
			return
		}
		kind = &k
	}

	top, err := h.voter.TopEntities(req.Context(), kind, limit)
	if err != nil {
		writeError(w, h.logger, err, "Failed to get top entities")
		return
	}
	writeJSON(w, http.StatusOK, top)
}
