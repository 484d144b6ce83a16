// Package ledger keeps material stock in batches: purchases create batches,
// consumption drains them oldest first, and every change recomputes the
// material's quantity and weighted-average unit price in the same transaction.
package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const DefaultMaxBatchQuantity = 2000

type Options struct {
	// MaxBatchQuantity caps a single purchased batch. Zero means DefaultMaxBatchQuantity.
	MaxBatchQuantity int
	// ExclusiveActivation makes activating a batch deactivate the material's other batches.
	ExclusiveActivation bool

	TxRunner TxRunner
	Hooks    Hooks
	Logger   *zap.Logger
	Clock    func() time.Time
}

type Ledger struct {
	db        *gorm.DB
	tx        TxRunner
	hooks     Hooks
	log       *zap.Logger
	now       func() time.Time
	maxBatch  int
	exclusive bool
}

func New(db *gorm.DB, opts Options) *Ledger {
	l := &Ledger{
		db:        db,
		tx:        opts.TxRunner,
		hooks:     opts.Hooks,
		log:       opts.Logger,
		now:       opts.Clock,
		maxBatch:  opts.MaxBatchQuantity,
		exclusive: opts.ExclusiveActivation,
	}
	if l.tx == nil {
		l.tx = NewGormTxRunner(db)
	}
	if l.hooks == nil {
		l.hooks = noopHooks{}
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.maxBatch <= 0 {
		l.maxBatch = DefaultMaxBatchQuantity
	}
	return l
}

// ExclusiveActivation reports the batch activation mode in effect.
func (l *Ledger) ExclusiveActivation() bool { return l.exclusive }

// write runs fn in a transaction and records the outcome.
func (l *Ledger) write(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	start := time.Now()
	err := MapError(op, l.tx.InTx(ctx, fn))
	l.record(op, start, err)
	return err
}

// read runs fn on a plain session and records the outcome.
func (l *Ledger) read(ctx context.Context, op string, fn func(db *gorm.DB) error) error {
	start := time.Now()
	err := MapError(op, fn(l.db.WithContext(ctx)))
	l.record(op, start, err)
	return err
}

// reject records a rejection raised before any transaction starts.
func (l *Ledger) reject(op string, err error) error {
	err = MapError(op, err)
	l.record(op, time.Now(), err)
	return err
}

func (l *Ledger) record(op string, start time.Time, err error) {
	code := Code(err)
	l.hooks.ObserveOperation(op, code, time.Since(start))
	switch {
	case err == nil:
	case IsRejection(err):
		l.hooks.IncRejected(op, code)
		l.log.Debug("ledger operation rejected", zap.String("op", op), zap.String("code", code), zap.Error(err))
	default:
		l.log.Error("ledger operation failed", zap.String("op", op), zap.String("code", code), zap.Error(err))
	}
}
