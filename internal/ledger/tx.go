package ledger

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// TxRunner is the transaction boundary every mutating ledger operation runs in.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

// NewGormTxRunner returns a runner backed by GORM transactions. The connection
// is returned to the pool on commit, rollback and panic.
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return errors.New("transaction runner has nil db")
	}
	return r.db.WithContext(ctx).Transaction(fn)
}
