package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/JGooseK41/NFTServiceApp-sub006/internal/db/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrNoticeNotFound = errors.New("registry: notice not found")

// NoticeRegistry resolves alert/document token identifiers to the served
// notice they belong to. The access gate depends on this read-only view.
type NoticeRegistry interface {
	LookupNotice(ctx context.Context, alertTokenID string) (*models.Notice, error)
	LookupByDocumentToken(ctx context.Context, documentTokenID string) (*models.Notice, error)
}

// AdminChecker answers whether an address belongs to an approved process
// server. The storage manager treats this as an opaque capability check.
type AdminChecker interface {
	IsAdmin(ctx context.Context, address string) (bool, error)
}

// Registry is the gorm-backed implementation of both collaborator
// interfaces, reading served_notices and process_servers.
type Registry struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewRegistry(db *gorm.DB, logger *zap.Logger) *Registry {
	return &Registry{
		db:     db,
		logger: logger.With(zap.String("service", "registry")),
	}
}

func (r *Registry) LookupNotice(ctx context.Context, alertTokenID string) (*models.Notice, error) {
	var notice models.Notice
	err := r.db.WithContext(ctx).First(&notice, "alert_token_id = ?", alertTokenID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoticeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup notice: %w", err)
	}
	return &notice, nil
}

func (r *Registry) LookupByDocumentToken(ctx context.Context, documentTokenID string) (*models.Notice, error) {
	var notice models.Notice
	err := r.db.WithContext(ctx).First(&notice, "document_token_id = ?", documentTokenID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoticeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup notice by document token: %w", err)
	}
	return &notice, nil
}

// IsAdmin reports whether the address is an approved process server.
func (r *Registry) IsAdmin(ctx context.Context, address string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProcessServer{}).
		Where("wallet_address = ? AND approved = ?", address, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check process server: %w", err)
	}
	return count > 0, nil
}

// RegisterServer creates a process-server row pending approval and returns
// the generated API key. Only the bcrypt hash is persisted.
func (r *Registry) RegisterServer(ctx context.Context, wallet, agency, email string) (string, error) {
	apiKey := uuid.New().String()
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}

	server := models.ProcessServer{
		WalletAddress: wallet,
		AgencyName:    agency,
		ContactEmail:  email,
		Approved:      false,
		APIKeyHash:    string(hash),
	}
	if err := r.db.WithContext(ctx).Create(&server).Error; err != nil {
		return "", fmt.Errorf("create process server: %w", err)
	}

	r.logger.Info("process server registered",
		zap.String("wallet", wallet),
		zap.String("agency", agency))
	return apiKey, nil
}

// VerifyServerKey checks an API key against the stored hash for the wallet.
func (r *Registry) VerifyServerKey(ctx context.Context, wallet, apiKey string) (bool, error) {
	var server models.ProcessServer
	err := r.db.WithContext(ctx).First(&server, "wallet_address = ?", wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load process server: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(server.APIKeyHash), []byte(apiKey)) != nil {
		return false, nil
	}
	return true, nil
}
