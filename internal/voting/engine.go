package voting

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaibs3/holovote/internal/apperr"
	"github.com/shaibs3/holovote/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

var errNoRow = errors.New("no row with that id")

// Engine records votes and ranks entities of every kind
type Engine struct {
	db      *gorm.DB
	logger  *zap.Logger
	ballots map[models.Kind]Ballot
	votes   metric.Int64Counter
}

func NewEngine(db *gorm.DB, logger *zap.Logger, meter metric.Meter) (*Engine, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("voting")
	}
	votes, err := meter.Int64Counter("votes_recorded_total",
		metric.WithDescription("Votes recorded by entity kind"))
	if err != nil {
		return nil, fmt.Errorf("failed to create vote counter: %w", err)
	}
	return &Engine{
		db:      db,
		logger:  logger.Named("voting"),
		ballots: ballots,
		votes:   votes,
	}, nil
}

func (e *Engine) ballot(kind models.Kind) (Ballot, error) {
	b, ok := e.ballots[kind]
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("Invalid entity type: %s", kind))
	}
	return b, nil
}

// RecordVote adds exactly one vote to the row and returns its new tally
func (e *Engine) RecordVote(ctx context.Context, kind models.Kind, id uint) (Tally, error) {
	b, err := e.ballot(kind)
	if err != nil {
		return Tally{}, err
	}

	var tally Tally
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := b.IncrementVotes(ctx, tx, id)
		if err != nil {
			return err
		}
		if !found {
			return errNoRow
		}
		tally, err = b.FindByID(ctx, tx, id)
		return err
	})
	if errors.Is(err, errNoRow) {
		return Tally{}, apperr.NotFound(fmt.Sprintf("%s with ID %d not found", kind.Title(), id))
	}
	if err != nil {
		e.logger.Error("failed to record vote",
			zap.String("entity_type", kind.String()), zap.Uint("entity_id", id), zap.Error(err))
		return Tally{}, apperr.Storage("Failed to record vote", err)
	}

	e.votes.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind.String())))
	e.logger.Debug("vote recorded",
		zap.String("entity_type", kind.String()), zap.Uint("entity_id", id), zap.Int64("votes", tally.Votes))
	return tally, nil
}

// TopEntities ranks rows by votes. A nil kind ranks every kind independently.
func (e *Engine) TopEntities(ctx context.Context, kind *models.Kind, limit int) (map[models.Kind][]Tally, error) {
	if limit < 1 || limit > MaxLimit {
		return nil, apperr.Validation(fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
	}

	kinds := models.Kinds
	if kind != nil {
		if _, err := e.ballot(*kind); err != nil {
			return nil, err
		}
		kinds = []models.Kind{*kind}
	}

	results := make(map[models.Kind][]Tally, len(kinds))
	for _, k := range kinds {
		top, err := e.ballots[k].ListTop(ctx, e.db, limit)
		if err != nil {
			e.logger.Error("failed to rank entities", zap.String("entity_type", k.String()), zap.Error(err))
			return nil, apperr.Storage("Failed to get top entities", err)
		}
		results[k] = top
	}
	return results, nil
}
