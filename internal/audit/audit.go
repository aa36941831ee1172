package audit

import (
	"context"
	"time"

	"github.com/JGooseK41/NFTServiceApp-sub006/internal/db/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Recorder appends access-attempt and access-log rows. Both calls return an
// error so the caller can see a write failure, but every call site in this
// service discards it on purpose: audit is best-effort and must never fail
// the operation being audited.
type Recorder struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewRecorder(db *gorm.DB, logger *zap.Logger) *Recorder {
	return &Recorder{
		db:     db,
		logger: logger.With(zap.String("service", "audit")),
	}
}

// RecordAttempt logs one verification attempt, granted or denied.
func (r *Recorder) RecordAttempt(ctx context.Context, wallet, alertTokenID string, granted bool, denialReason string) error {
	attempt := models.AccessAttempt{
		WalletAddress: wallet,
		AlertTokenID:  alertTokenID,
		Granted:       granted,
		DenialReason:  denialReason,
		AttemptedAt:   time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&attempt).Error; err != nil {
		r.logger.Warn("access attempt audit write failed",
			zap.String("wallet", wallet),
			zap.String("alert_token_id", alertTokenID),
			zap.Error(err))
		return err
	}
	return nil
}

// RecordAccess logs one document read.
func (r *Recorder) RecordAccess(ctx context.Context, documentID, wallet, action string) error {
	entry := models.AccessLog{
		DocumentID:    documentID,
		WalletAddress: wallet,
		Action:        action,
		AccessedAt:    time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		r.logger.Warn("access log write failed",
			zap.String("document_id", documentID),
			zap.String("wallet", wallet),
			zap.Error(err))
		return err
	}
	return nil
}
