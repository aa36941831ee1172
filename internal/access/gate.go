package access

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/JGooseK41/NFTServiceApp-sub006/internal/db/models"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/registry"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/storage"
	"github.com/JGooseK41/NFTServiceApp-sub006/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrTokenRequired means no access token was presented.
	ErrTokenRequired = errors.New("access: token required")
	// ErrTokenInvalid means the token is unknown, expired, revoked, or bound
	// to a different document token.
	ErrTokenInvalid = errors.New("access: token invalid")
)

// TokenTTL is fixed at one hour. Re-verification resets the clock, it never
// extends an unexpired token additively.
const TokenTTL = time.Hour

const tokenBytes = 32

// tokenResetColumns are the fields a re-verification overwrites. Every
// mutable column of the previous token is replaced, including its usage
// state; only the (wallet_address, alert_token_id) identity survives.
var tokenResetColumns = []string{
	"token", "document_token_id", "expires_at", "revoked",
	"usage_count", "last_used_at", "created_at",
}

// Denial reason taxonomy written to the audit trail.
const (
	ReasonNotRecipient  = "not_recipient"
	ReasonProcessServer = "process_server_access"
)

// PublicInfo is the public tier of the two-tier disclosure model: fields any
// caller may see without a token.
type PublicInfo struct {
	CaseNumber     string `json:"case_number"`
	NoticeType     string `json:"notice_type"`
	IssuingAgency  string `json:"issuing_agency"`
	Status         string `json:"status"`
	AlertThumbnail string `json:"alert_thumbnail"`
}

// VerifyResult is the outcome of one verification attempt. AccessToken is
// empty unless AccessGranted; a denied caller never receives a token.
type VerifyResult struct {
	IsRecipient   bool       `json:"is_recipient"`
	IsServer      bool       `json:"is_server"`
	AccessGranted bool       `json:"access_granted"`
	AccessToken   string     `json:"access_token,omitempty"`
	PublicInfo    PublicInfo `json:"public_info"`
}

// DocumentStore is the slice of the disk storage manager the gate needs.
type DocumentStore interface {
	FindByNoticeID(ctx context.Context, noticeID string) (*models.EncryptedDocument, error)
	Retrieve(ctx context.Context, documentID, principal string) (*storage.Document, error)
}

// AuditRecorder is satisfied by audit.Recorder.
type AuditRecorder interface {
	RecordAttempt(ctx context.Context, wallet, alertTokenID string, granted bool, denialReason string) error
	RecordAccess(ctx context.Context, documentID, wallet, action string) error
}

// Gate issues time-boxed capability tokens that decouple wallet verification
// from repeated document reads. One active token per (wallet, alert token).
type Gate struct {
	db       *gorm.DB
	registry registry.NoticeRegistry
	store    DocumentStore
	audit    AuditRecorder
	logger   *zap.Logger
	metrics  *metrics.Collector
}

func NewGate(db *gorm.DB, reg registry.NoticeRegistry, store DocumentStore, auditor AuditRecorder, logger *zap.Logger, collector *metrics.Collector) *Gate {
	return &Gate{
		db:       db,
		registry: reg,
		store:    store,
		audit:    auditor,
		logger:   logger.With(zap.String("service", "access_gate")),
		metrics:  collector,
	}
}

// denialReasonFor maps the principal classification onto the audit taxonomy:
// denied callers log not_recipient, a process server logs
// process_server_access, and a granted recipient logs the empty reason.
func denialReasonFor(isRecipient, isServer bool) string {
	switch {
	case !isRecipient && !isServer:
		return ReasonNotRecipient
	case isServer && !isRecipient:
		return ReasonProcessServer
	default:
		return ""
	}
}

func publicInfoOf(notice *models.Notice) PublicInfo {
	return PublicInfo{
		CaseNumber:     notice.CaseNumber,
		NoticeType:     notice.NoticeType,
		IssuingAgency:  notice.IssuingAgency,
		Status:         notice.Status,
		AlertThumbnail: notice.AlertThumbnail,
	}
}

// VerifyRecipient checks the wallet against the notice's declared recipient
// and process server. Only those two principal classes ever receive a token.
// Every attempt is audited, granted or not.
func (g *Gate) VerifyRecipient(ctx context.Context, wallet, alertTokenID, documentTokenID string) (*VerifyResult, error) {
	notice, err := g.registry.LookupNotice(ctx, alertTokenID)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{
		IsRecipient: wallet == notice.RecipientAddress,
		IsServer:    wallet == notice.ServerAddress,
		PublicInfo:  publicInfoOf(notice),
	}
	result.AccessGranted = result.IsRecipient || result.IsServer

	_ = g.audit.RecordAttempt(ctx, wallet, alertTokenID, result.AccessGranted,
		denialReasonFor(result.IsRecipient, result.IsServer))

	if !result.AccessGranted {
		g.metrics.IncrementCounter("access_denied", nil)
		g.logger.Info("access denied",
			zap.String("wallet", wallet),
			zap.String("alert_token_id", alertTokenID))
		return result, nil
	}

	token, err := g.mintToken(ctx, wallet, alertTokenID, documentTokenID)
	if err != nil {
		return nil, err
	}
	result.AccessToken = token

	g.metrics.IncrementCounter("access_granted", nil)
	g.logger.Info("access granted",
		zap.String("wallet", wallet),
		zap.String("alert_token_id", alertTokenID),
		zap.Bool("is_server", result.IsServer))
	return result, nil
}

// mintToken upserts the single active token for (wallet, alert token) with a
// fresh TTL. The row-level upsert is what keeps concurrent verifications
// consistent; no application-level locking is used.
func (g *Gate) mintToken(ctx context.Context, wallet, alertTokenID, documentTokenID string) (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(raw)

	row := models.AccessToken{
		Token:           token,
		WalletAddress:   wallet,
		AlertTokenID:    alertTokenID,
		DocumentTokenID: documentTokenID,
		ExpiresAt:       time.Now().Add(TokenTTL),
		Revoked:         false,
		UsageCount:      0,
		CreatedAt:       time.Now(),
	}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet_address"}, {Name: "alert_token_id"}},
		DoUpdates: clause.AssignmentColumns(tokenResetColumns),
	}).Create(&row).Error
	if err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}
	return token, nil
}

// GetPublicInfo returns the non-confidential notice fields regardless of
// caller identity.
func (g *Gate) GetPublicInfo(ctx context.Context, alertTokenID string) (*PublicInfo, error) {
	notice, err := g.registry.LookupNotice(ctx, alertTokenID)
	if err != nil {
		return nil, err
	}
	info := publicInfoOf(notice)
	return &info, nil
}

// FetchDocument redeems a token for the decrypted document bytes.
func (g *Gate) FetchDocument(ctx context.Context, documentTokenID, token string) (*storage.Document, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}

	var row models.AccessToken
	err := g.db.WithContext(ctx).First(&row, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if !row.Valid(time.Now()) || row.DocumentTokenID != documentTokenID {
		return nil, ErrTokenInvalid
	}

	if err := g.db.WithContext(ctx).Model(&models.AccessToken{}).
		Where("token = ?", token).
		Updates(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + 1"),
			"last_used_at": time.Now(),
		}).Error; err != nil {
		g.logger.Warn("token usage update failed", zap.Error(err))
	}

	notice, err := g.registry.LookupByDocumentToken(ctx, documentTokenID)
	if err != nil {
		return nil, err
	}
	meta, err := g.store.FindByNoticeID(ctx, notice.NoticeID)
	if err != nil {
		return nil, err
	}

	_ = g.audit.RecordAccess(ctx, meta.DocumentID, row.WalletAddress, "token_fetch")
	g.metrics.IncrementCounter("documents_fetched_by_token", nil)

	// The wallet was recipient or server at verification time, so the
	// storage-level authorization passes on the same addresses.
	return g.store.Retrieve(ctx, meta.DocumentID, row.WalletAddress)
}

// Revoke invalidates a token immediately. Idempotent; revoking an unknown
// token is a no-op.
func (g *Gate) Revoke(ctx context.Context, token string) error {
	err := g.db.WithContext(ctx).Model(&models.AccessToken{}).
		Where("token = ?", token).
		Updates(map[string]interface{}{
			"revoked":    true,
			"expires_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	g.metrics.IncrementCounter("tokens_revoked", nil)
	return nil
}
