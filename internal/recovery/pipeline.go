package recovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	doccrypto "github.com/JGooseK41/NFTServiceApp-sub006/internal/crypto"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/db/models"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/storage"
	"github.com/JGooseK41/NFTServiceApp-sub006/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const recoveredPrefix = "recovered:"

// Downloader is satisfied by ipfs.Fetcher.
type Downloader interface {
	Download(ctx context.Context, hash string) ([]byte, error)
}

// AssetStore is the slice of the disk storage manager the pipeline needs.
type AssetStore interface {
	Store(ctx context.Context, content []byte, meta storage.Metadata) (*storage.StoredDocument, error)
}

// noticeRepo isolates the served_notices reads and the status write-back the
// pipeline needs, so tests can substitute an in-memory implementation.
type noticeRepo interface {
	pending(ctx context.Context, limit int) ([]models.Notice, error)
	setStatus(ctx context.Context, id uint, status string) error
}

type gormNoticeRepo struct {
	db *gorm.DB
}

func (r gormNoticeRepo) pending(ctx context.Context, limit int) ([]models.Notice, error) {
	var notices []models.Notice
	// The NOT LIKE clause is the SQL mirror of isRecovered.
	err := r.db.WithContext(ctx).
		Where("ipfs_hash <> '' AND encryption_key <> ''").
		Where("recovery_status IS NULL OR recovery_status NOT LIKE ?", recoveredPrefix+"%").
		Order("id ASC").
		Limit(limit).
		Find(&notices).Error
	if err != nil {
		return nil, err
	}
	return notices, nil
}

func (r gormNoticeRepo) setStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).Model(&models.Notice{}).
		Where("id = ?", id).
		Update("recovery_status", status).Error
}

// isRecovered reports whether a recovery status marks the notice as done.
// Failed statuses do not count, so failed notices come back for retry.
func isRecovered(status string) bool {
	return strings.HasPrefix(status, recoveredPrefix)
}

// Result is the outcome for one notice.
type Result struct {
	Success            bool
	ThumbnailRecovered bool
	DocumentRecovered  bool
	Err                error
}

// Summary aggregates one batch run.
type Summary struct {
	Processed int
	Succeeded int
	Failed    int
}

// Pipeline re-hydrates documents that exist only as legacy encrypted IPFS
// blobs, decrypting them with the notice's stored CryptoJS passphrase and
// re-persisting the assets through the disk storage manager.
//
// Operational constraint: the pipeline takes no distributed lock, so two
// instances must not run concurrently against the same notice set.
type Pipeline struct {
	notices   noticeRepo
	fetcher   Downloader
	store     AssetStore
	logger    *zap.Logger
	metrics   *metrics.Collector
	batchSize int
	itemDelay time.Duration
}

func NewPipeline(db *gorm.DB, fetcher Downloader, store AssetStore, logger *zap.Logger, collector *metrics.Collector, batchSize int, itemDelay time.Duration) *Pipeline {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Pipeline{
		notices:   gormNoticeRepo{db: db},
		fetcher:   fetcher,
		store:     store,
		logger:    logger.With(zap.String("service", "ipfs_recovery")),
		metrics:   collector,
		batchSize: batchSize,
		itemDelay: itemDelay,
	}
}

// PendingNotices selects the next batch. Notices whose status already starts
// with "recovered:" are excluded, which is what makes reruns idempotent;
// previously failed notices are retried. The recovered exclusion is applied
// here as well as in the repo, so the predicate holds no matter what a repo
// implementation returns.
func (p *Pipeline) PendingNotices(ctx context.Context) ([]models.Notice, error) {
	candidates, err := p.notices.pending(ctx, p.batchSize)
	if err != nil {
		return nil, fmt.Errorf("select pending notices: %w", err)
	}
	notices := make([]models.Notice, 0, len(candidates))
	for _, n := range candidates {
		if isRecovered(n.RecoveryStatus) {
			continue
		}
		notices = append(notices, n)
		if len(notices) == p.batchSize {
			break
		}
	}
	return notices, nil
}

// RecoverDocument downloads, decrypts and re-persists one notice's assets.
// It does not write the notice status; Run does that for every outcome.
func (p *Pipeline) RecoverDocument(ctx context.Context, notice *models.Notice) Result {
	payload, err := p.fetcher.Download(ctx, notice.IPFSHash)
	if err != nil {
		return Result{Err: err}
	}

	// Cheap format guard: the base64 form of "Salted__" — anything else is
	// not a legacy blob and not worth a decryption attempt.
	if !strings.HasPrefix(string(payload), doccrypto.SaltedPrefixB64) {
		return Result{Err: fmt.Errorf("payload for %s is not Salted__ data", notice.IPFSHash)}
	}

	plaintext, err := doccrypto.DecryptLegacy(string(payload), notice.EncryptionKey)
	if err != nil {
		return Result{Err: fmt.Errorf("legacy decrypt: %w", err)}
	}

	assets, err := parsePayload(plaintext)
	if err != nil {
		return Result{Err: err}
	}

	res := Result{Success: true}
	if assets.Thumbnail != "" {
		if err := p.persistAsset(ctx, notice, assets.Thumbnail, "recovered-thumbnail"); err != nil {
			p.logger.Warn("thumbnail persist failed",
				zap.String("notice_id", notice.NoticeID), zap.Error(err))
		} else {
			res.ThumbnailRecovered = true
		}
	}
	if assets.Document != "" {
		if err := p.persistAsset(ctx, notice, assets.Document, "recovered-document"); err != nil {
			return Result{Err: fmt.Errorf("document persist: %w", err)}
		}
		res.DocumentRecovered = true
	}

	p.logger.Info("notice recovered",
		zap.String("notice_id", notice.NoticeID),
		zap.String("shape", string(assets.Shape)),
		zap.Bool("thumbnail", res.ThumbnailRecovered),
		zap.Bool("document", res.DocumentRecovered))
	return res
}

func (p *Pipeline) persistAsset(ctx context.Context, notice *models.Notice, dataURL, baseName string) error {
	mimeType, data, err := decodeDataURL(dataURL)
	if err != nil {
		return err
	}
	_, err = p.store.Store(ctx, data, storage.Metadata{
		NoticeID:         notice.NoticeID,
		CaseNumber:       notice.CaseNumber,
		ServerAddress:    notice.ServerAddress,
		RecipientAddress: notice.RecipientAddress,
		MimeType:         mimeType,
		OriginalName:     baseName + extensionFor(mimeType),
	})
	return err
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "application/pdf":
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	default:
		return ""
	}
}

// Run processes one bounded batch serially, pacing items to stay under
// gateway rate limits, and writes the terminal status onto every notice.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	notices, err := p.PendingNotices(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for i := range notices {
		notice := &notices[i]
		if i > 0 && p.itemDelay > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(p.itemDelay):
			}
		}

		res := p.RecoverDocument(ctx, notice)
		summary.Processed++

		var status string
		if res.Success {
			summary.Succeeded++
			p.metrics.IncrementCounter("recovery_succeeded", nil)
			status = fmt.Sprintf("%s thumbnail=%t document=%t", recoveredPrefix, res.ThumbnailRecovered, res.DocumentRecovered)
		} else {
			summary.Failed++
			p.metrics.IncrementCounter("recovery_failed", nil)
			status = "Failed: " + res.Err.Error()
			p.logger.Error("notice recovery failed",
				zap.String("notice_id", notice.NoticeID),
				zap.String("ipfs_hash", notice.IPFSHash),
				zap.Error(res.Err))
		}

		if err := p.notices.setStatus(ctx, notice.ID, status); err != nil {
			p.logger.Error("status write failed",
				zap.String("notice_id", notice.NoticeID), zap.Error(err))
		}
	}

	p.logger.Info("recovery batch finished",
		zap.Int("processed", summary.Processed),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed))
	return summary, nil
}
