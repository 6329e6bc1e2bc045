package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/shaibs3/holovote/internal/apperr"
	"github.com/shaibs3/holovote/internal/models"
	"github.com/shaibs3/holovote/internal/storage"
	"github.com/shaibs3/holovote/internal/swapi"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// conflictAttempts bounds how often a sync is re-run after losing a
// uniqueness race to a concurrent sync of the same kind
const conflictAttempts = 3

// Opener hands out sessions to the external catalog
type Opener interface {
	Open() swapi.Session
}

// Summary is the outcome of one sync. Total is always Created + Skipped.
type Summary struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// Synchronizer copies external collections into the local store
type Synchronizer struct {
	db     *gorm.DB
	source Opener
	logger *zap.Logger
	rows   metric.Int64Counter
}

func NewSynchronizer(db *gorm.DB, source Opener, logger *zap.Logger, meter metric.Meter) (*Synchronizer, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("mirror")
	}
	rows, err := meter.Int64Counter("mirror_rows_total",
		metric.WithDescription("Mirrored records by kind and outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create mirror row counter: %w", err)
	}
	return &Synchronizer{
		db:     db,
		source: source,
		logger: logger.Named("mirror"),
		rows:   rows,
	}, nil
}

// Sync fetches the whole collection for kind and inserts the records not yet
// mirrored. Existing rows are never modified.
func (s *Synchronizer) Sync(ctx context.Context, kind models.Kind) (Summary, error) {
	if !kind.IsValid() {
		return Summary{}, apperr.Validation(fmt.Sprintf("Invalid entity type: %s", kind))
	}

	session := s.source.Open()
	defer session.Close()

	records, err := session.FetchCollection(ctx, kind.Resource())
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	err = retry.Do(
		func() error {
			var err error
			summary, err = s.apply(ctx, kind, records)
			return err
		},
		retry.Attempts(conflictAttempts),
		retry.Delay(50*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(storage.IsUniqueViolation),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("sync lost a uniqueness race, re-running",
				zap.String("kind", kind.String()),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	if err != nil {
		s.logger.Error("sync failed", zap.String("kind", kind.String()), zap.Error(err))
		return Summary{}, apperr.Storage(fmt.Sprintf("Failed to fetch %s", kind.Plural()), err)
	}

	attrs := func(outcome string) metric.AddOption {
		return metric.WithAttributes(attribute.String("kind", kind.String()), attribute.String("outcome", outcome))
	}
	s.rows.Add(ctx, int64(summary.Created), attrs("created"))
	s.rows.Add(ctx, int64(summary.Skipped), attrs("skipped"))

	s.logger.Info("sync completed",
		zap.String("kind", kind.String()),
		zap.Int("created", summary.Created),
		zap.Int("skipped", summary.Skipped),
		zap.Int("total", summary.Total))
	return summary, nil
}

// apply runs one sync attempt inside a single transaction
func (s *Synchronizer) apply(ctx context.Context, kind models.Kind, records []json.RawMessage) (Summary, error) {
	decode := decoders[kind]
	var summary Summary

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []int
		if err := tx.Table(kind.Table()).Pluck("swapi_id", &existing).Error; err != nil {
			return fmt.Errorf("failed to load existing ids: %w", err)
		}
		seen := make(map[int]struct{}, len(existing)+len(records))
		for _, id := range existing {
			seen[id] = struct{}{}
		}

		var joins []interface{}
		for i, raw := range records {
			d, err := decode(raw)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			if !d.hasID {
				s.logger.Warn("skipping record without an id",
					zap.String("kind", kind.String()), zap.String("url", d.url))
				summary.Skipped++
				continue
			}
			if _, dup := seen[d.swapiID]; dup {
				summary.Skipped++
				continue
			}

			if err := tx.Create(d.row).Error; err != nil {
				return fmt.Errorf("failed to insert %s %d: %w", kind, d.swapiID, err)
			}
			seen[d.swapiID] = struct{}{}
			summary.Created++

			rows, err := resolve(tx, d)
			if err != nil {
				return err
			}
			joins = append(joins, rows...)
		}

		for _, j := range joins {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(j).Error; err != nil {
				return fmt.Errorf("failed to link associations: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	summary.Total = summary.Created + summary.Skipped
	return summary, nil
}

// resolve maps the references of a newly inserted row to association rows.
// References to rows not mirrored yet are dropped.
func resolve(tx *gorm.DB, d decoded) ([]interface{}, error) {
	var joins []interface{}
	for _, ref := range d.refs {
		if len(ref.swapiIDs) == 0 {
			continue
		}
		var local []uint
		err := tx.Table(ref.target.Table()).
			Where("swapi_id IN ?", ref.swapiIDs).
			Order("id ASC").
			Pluck("id", &local).Error
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s references: %w", ref.target, err)
		}
		for _, id := range local {
			joins = append(joins, joinRow(d.row, ref.target, id))
		}
	}
	return joins, nil
}
