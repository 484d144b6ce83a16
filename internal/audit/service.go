package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"workshop-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	After       any
}

func WriteLog(ctx context.Context, db *gorm.DB, opts LogOptions) error {
	// the column needs a JSON literal, never an empty value
	after := datatypes.JSON("null")
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			after = datatypes.JSON(b)
		}
	}

	entry := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		AfterData:   after,
	}
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// Recorder writes audit entries after the primary change has committed.
// Failures are logged and never reach the caller.
type Recorder struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewRecorder(db *gorm.DB, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{db: db, log: log}
}

func (r *Recorder) Record(ctx context.Context, opts LogOptions) {
	if r == nil || r.db == nil {
		return
	}
	if err := WriteLog(ctx, r.db, opts); err != nil {
		r.log.Warn("audit log not written",
			zap.String("entity_type", opts.EntityType),
			zap.Uint("entity_id", opts.EntityID),
			zap.String("action", string(opts.Action)),
			zap.Error(err),
		)
	}
}
