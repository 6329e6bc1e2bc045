package mirror

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron"
	"github.com/shaibs3/holovote/internal/models"
	"go.uber.org/zap"
)

// Syncer is the part of Synchronizer the scheduler drives
type Syncer interface {
	Sync(ctx context.Context, kind models.Kind) (Summary, error)
}

// refreshOrder syncs referenced kinds before the characters that point at them
var refreshOrder = []models.Kind{models.KindFilm, models.KindStarship, models.KindCharacter}

// Scheduler refreshes every mirrored collection on a cron schedule
type Scheduler struct {
	cron    *cron.Cron
	syncer  Syncer
	logger  *zap.Logger
	timeout time.Duration
}

func NewScheduler(syncer Syncer, schedule string, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		syncer:  syncer,
		logger:  logger.Named("scheduler"),
		timeout: 5 * time.Minute,
	}
	if err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("mirror refresh scheduled")
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunOnce syncs every kind. A failing kind is logged and does not stop the rest.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	for _, kind := range refreshOrder {
		summary, err := s.syncer.Sync(ctx, kind)
		if err != nil {
			s.logger.Error("scheduled sync failed", zap.String("kind", kind.String()), zap.Error(err))
			continue
		}
		s.logger.Info("scheduled sync finished",
			zap.String("kind", kind.String()),
			zap.Int("created", summary.Created),
			zap.Int("skipped", summary.Skipped))
	}
}
