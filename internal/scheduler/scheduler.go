package scheduler

import (
	"context"
	"fmt"
	"time"

	"workshop-backend/internal/ledger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const reconcileTimeout = 5 * time.Minute

// Reconciler is the part of the ledger the scheduler drives.
type Reconciler interface {
	Reconcile(ctx context.Context, repair bool) ([]ledger.Drift, error)
}

// Scheduler runs the periodic ledger reconciliation.
type Scheduler struct {
	cron   *cron.Cron
	ledger Reconciler
	expr   string
	logger *zap.Logger
}

// NewScheduler creates a scheduler for the given cron expression. An empty expression
// yields a scheduler that never runs anything.
func NewScheduler(expr string, l Reconciler, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(),
		ledger: l,
		expr:   expr,
		logger: logger,
	}
}

// Start registers the reconciliation job and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.expr == "" {
		s.logger.Info("reconciliation job disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.expr, s.reconcile); err != nil {
		return fmt.Errorf("schedule reconciliation %q: %w", s.expr, err)
	}
	s.logger.Info("starting scheduler", zap.String("reconcile_cron", s.expr))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	start := time.Now()
	drifts, err := s.ledger.Reconcile(ctx, true)
	if err != nil {
		s.logger.Error("reconciliation failed", zap.Error(err))
		return
	}
	for _, d := range drifts {
		s.logger.Warn("material aggregates repaired",
			zap.Uint("material_id", d.MaterialID),
			zap.String("material", d.MaterialName),
			zap.String("stored_quantity", d.StoredQuantity.String()),
			zap.String("expected_quantity", d.ExpectedQuantity.String()),
			zap.Int("ghost_batches", len(d.GhostBatches)),
		)
	}
	s.logger.Info("reconciliation finished",
		zap.Int("drifted", len(drifts)),
		zap.Duration("took", time.Since(start)),
	)
}
