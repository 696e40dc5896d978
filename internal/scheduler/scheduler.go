package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/config"
	"github.com/mamadbah2/agritrace/internal/domain/models"
)

// DigestSource produces deterministic digests of the committed registry state.
type DigestSource interface {
	StateDigest() models.Anchor
}

// AnchorStore persists computed anchors.
type AnchorStore interface {
	SaveAnchor(ctx context.Context, anchor models.Anchor) error
}

// Scheduler periodically anchors the registry state so mirrored data can be
// audited against the ledger.
type Scheduler struct {
	cron   *cron.Cron
	source DigestSource
	store  AnchorStore
	cfg    config.Config
	logger *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.Config, source DigestSource, store AnchorStore, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	location, err := time.LoadLocation(cfg.Anchor.Timezone)
	if err != nil {
		logger.Warn("invalid timezone, falling back to local",
			zap.String("timezone", cfg.Anchor.Timezone),
			zap.Error(err))
		location = time.Local
	}

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(location)),
		source: source,
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.Anchor.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.Anchor.CronSchedule, s.anchorState); err != nil {
		s.logger.Error("failed to schedule state anchoring", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) anchorState() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	anchor := s.source.StateDigest()

	if err := s.store.SaveAnchor(ctx, anchor); err != nil {
		s.logger.Error("failed to persist state anchor",
			zap.Uint64("seq", anchor.Seq),
			zap.Error(err))
		return
	}

	s.logger.Info("state anchored",
		zap.Uint64("seq", anchor.Seq),
		zap.String("digest", anchor.Digest))
}
