package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JGooseK41/NFTServiceApp-sub006/internal/audit"
	doccrypto "github.com/JGooseK41/NFTServiceApp-sub006/internal/crypto"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/db/models"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/registry"
	"github.com/JGooseK41/NFTServiceApp-sub006/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound means no document exists under the given id.
	ErrNotFound = errors.New("storage: document not found")
	// ErrUnauthorized means the requesting principal is neither the serving
	// process server, the recipient, nor an approved admin.
	ErrUnauthorized = errors.New("storage: principal not entitled")

	errDuplicateID = errors.New("storage: duplicate document id")
)

const documentsDir = "encrypted-documents"

// Metadata accompanies an upload.
type Metadata struct {
	NoticeID         string
	CaseNumber       string
	ServerAddress    string
	RecipientAddress string
	MimeType         string
	OriginalName     string
}

// StoredDocument is returned from Store.
type StoredDocument struct {
	DocumentID string
	FilePath   string
	Size       int64
	URL        string
}

// Document is the decrypted result of Retrieve.
type Document struct {
	Plaintext []byte
	MimeType  string
	Filename  string
	Meta      *models.EncryptedDocument
}

// metadataRepo isolates the metadata table behind the operations the manager
// needs, so tests can substitute an in-memory implementation.
type metadataRepo interface {
	create(ctx context.Context, row *models.EncryptedDocument) error
	get(ctx context.Context, documentID string) (*models.EncryptedDocument, error)
	findByNotice(ctx context.Context, noticeID string) (*models.EncryptedDocument, error)
	touchLastAccessed(ctx context.Context, documentID string, at time.Time) error
}

type gormMetadataRepo struct {
	db *gorm.DB
}

func (r gormMetadataRepo) create(ctx context.Context, row *models.EncryptedDocument) error {
	err := r.db.WithContext(ctx).Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errDuplicateID
	}
	return err
}

func (r gormMetadataRepo) get(ctx context.Context, documentID string) (*models.EncryptedDocument, error) {
	var meta models.EncryptedDocument
	err := r.db.WithContext(ctx).First(&meta, "document_id = ?", documentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (r gormMetadataRepo) findByNotice(ctx context.Context, noticeID string) (*models.EncryptedDocument, error) {
	var meta models.EncryptedDocument
	err := r.db.WithContext(ctx).
		Where("notice_id = ?", noticeID).
		Order("created_at DESC").
		First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: notice %s", ErrNotFound, noticeID)
	}
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (r gormMetadataRepo) touchLastAccessed(ctx context.Context, documentID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.EncryptedDocument{}).
		Where("document_id = ?", documentID).
		Update("last_accessed", at).Error
}

// Manager owns the encrypted blob directory and the metadata table. Every
// blob is sealed with its own AES-256-GCM key; the key, iv and tag are kept
// in plaintext on the metadata row for legacy-data fidelity (see DESIGN.md).
type Manager struct {
	meta     metadataRepo
	basePath string
	admin    registry.AdminChecker
	audit    *audit.Recorder
	logger   *zap.Logger
	metrics  *metrics.Collector
}

func NewManager(db *gorm.DB, basePath string, admin registry.AdminChecker, auditor *audit.Recorder, logger *zap.Logger, collector *metrics.Collector) *Manager {
	return &Manager{
		meta:     gormMetadataRepo{db: db},
		basePath: basePath,
		admin:    admin,
		audit:    auditor,
		logger:   logger.With(zap.String("service", "disk_storage")),
		metrics:  collector,
	}
}

// newDocumentID builds a doc_<millis>_<hex> identifier. Collisions are
// improbable but the primary-key constraint backstops them; Store retries
// once on a duplicate key.
func newDocumentID() (string, error) {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate document id: %w", err)
	}
	return fmt.Sprintf("doc_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(suffix)), nil
}

// Store encrypts content and persists the blob plus its metadata row.
func (m *Manager) Store(ctx context.Context, content []byte, meta Metadata) (*StoredDocument, error) {
	start := time.Now()

	enc, err := doccrypto.Encrypt(content, nil)
	if err != nil {
		return nil, fmt.Errorf("encrypt document: %w", err)
	}

	dir := filepath.Join(m.basePath, documentsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	var stored *StoredDocument
	for attempt := 0; attempt < 2; attempt++ {
		docID, err := newDocumentID()
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, docID+".enc")

		if err := os.WriteFile(path, enc.Data, 0o600); err != nil {
			return nil, fmt.Errorf("write blob: %w", err)
		}

		row := models.EncryptedDocument{
			DocumentID:       docID,
			NoticeID:         meta.NoticeID,
			CaseNumber:       meta.CaseNumber,
			ServerAddress:    meta.ServerAddress,
			RecipientAddress: meta.RecipientAddress,
			FilePath:         path,
			FileSize:         int64(len(content)),
			MimeType:         meta.MimeType,
			OriginalName:     meta.OriginalName,
			EncryptionKey:    hex.EncodeToString(enc.Key),
			EncryptionIV:     hex.EncodeToString(enc.IV),
			AuthTag:          hex.EncodeToString(enc.AuthTag),
			CreatedAt:        time.Now(),
		}
		err = m.meta.create(ctx, &row)
		if errors.Is(err, errDuplicateID) {
			m.logger.Warn("document id collision, regenerating", zap.String("document_id", docID))
			_ = os.Remove(path)
			continue
		}
		if err != nil {
			_ = os.Remove(path)
			return nil, fmt.Errorf("persist metadata: %w", err)
		}

		stored = &StoredDocument{
			DocumentID: docID,
			FilePath:   path,
			Size:       int64(len(content)),
			URL:        "/api/documents/" + docID,
		}
		break
	}
	if stored == nil {
		return nil, errors.New("storage: document id collision persisted across retries")
	}

	m.metrics.IncrementCounter("documents_stored", nil)
	m.metrics.ObserveSize("document_size", float64(len(content)))
	m.metrics.ObserveLatency("document_store", time.Since(start))

	m.logger.Info("document stored",
		zap.String("document_id", stored.DocumentID),
		zap.String("case_number", meta.CaseNumber),
		zap.Int64("size", stored.Size))
	return stored, nil
}

// Retrieve authorizes the principal, decrypts the blob and returns it.
// A decryption failure surfaces as crypto.ErrAuthentication so callers can
// tell a corrupted blob apart from an authorization failure.
func (m *Manager) Retrieve(ctx context.Context, documentID, principal string) (*Document, error) {
	start := time.Now()

	meta, err := m.meta.get(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	if meta == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}

	if err := m.authorize(ctx, meta, principal); err != nil {
		m.metrics.IncrementCounter("documents_denied", nil)
		return nil, err
	}

	blob, err := os.ReadFile(meta.FilePath)
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}

	plaintext, err := doccrypto.Decrypt(blob, meta.EncryptionKey)
	if err != nil {
		return nil, err
	}

	// Best-effort audit; a log failure must never fail the read.
	if m.audit != nil {
		_ = m.audit.RecordAccess(ctx, documentID, principal, "retrieve")
	}
	if err := m.meta.touchLastAccessed(ctx, documentID, time.Now()); err != nil {
		m.logger.Warn("last_accessed update failed", zap.String("document_id", documentID), zap.Error(err))
	}

	m.metrics.IncrementCounter("documents_retrieved", nil)
	m.metrics.ObserveLatency("document_retrieve", time.Since(start))

	return &Document{
		Plaintext: plaintext,
		MimeType:  meta.MimeType,
		Filename:  meta.OriginalName,
		Meta:      meta,
	}, nil
}

func (m *Manager) authorize(ctx context.Context, meta *models.EncryptedDocument, principal string) error {
	if principal != "" && (principal == meta.ServerAddress || principal == meta.RecipientAddress) {
		return nil
	}
	isAdmin, err := m.admin.IsAdmin(ctx, principal)
	if err != nil {
		m.logger.Warn("admin check failed", zap.String("principal", principal), zap.Error(err))
	}
	if isAdmin {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnauthorized, principal)
}

// GetMetadata is the public existence check: no auth, no decryption.
// Returns nil without error when the document does not exist.
func (m *Manager) GetMetadata(ctx context.Context, documentID string) (*models.EncryptedDocument, error) {
	return m.meta.get(ctx, documentID)
}

// FindByNoticeID returns the newest document stored for a notice. The access
// gate uses this to resolve a document token to stored bytes.
func (m *Manager) FindByNoticeID(ctx context.Context, noticeID string) (*models.EncryptedDocument, error) {
	return m.meta.findByNotice(ctx, noticeID)
}
