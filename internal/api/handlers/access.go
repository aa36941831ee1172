package handlers

import (
	"errors"
	"net/http"

	"github.com/JGooseK41/NFTServiceApp-sub006/internal/access"
	doccrypto "github.com/JGooseK41/NFTServiceApp-sub006/internal/crypto"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/registry"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AccessHandler struct {
	gate   *access.Gate
	logger *zap.Logger
}

func NewAccessHandler(gate *access.Gate, logger *zap.Logger) *AccessHandler {
	return &AccessHandler{
		gate:   gate,
		logger: logger.With(zap.String("handler", "access")),
	}
}

type verifyRequest struct {
	WalletAddress   string `json:"wallet_address" binding:"required"`
	AlertTokenID    string `json:"alert_token_id" binding:"required"`
	DocumentTokenID string `json:"document_token_id"`
}

// Verify checks the caller against the notice's recipient and server
// addresses, minting an access token on success.
func (h *AccessHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet_address and alert_token_id are required"})
		return
	}

	result, err := h.gate.VerifyRecipient(c.Request.Context(), req.WalletAddress, req.AlertTokenID, req.DocumentTokenID)
	if err != nil {
		if errors.Is(err, registry.ErrNoticeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notice not found"})
			return
		}
		h.logger.Error("verification failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// PublicInfo returns the public tier of a notice; callable by anyone.
func (h *AccessHandler) PublicInfo(c *gin.Context) {
	info, err := h.gate.GetPublicInfo(c.Request.Context(), c.Param("tokenId"))
	if err != nil {
		if errors.Is(err, registry.ErrNoticeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notice not found"})
			return
		}
		h.logger.Error("public info lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// FetchDocument redeems an access token (X-Access-Token header or
// access_token query parameter) for the decrypted document bytes.
func (h *AccessHandler) FetchDocument(c *gin.Context) {
	token := c.GetHeader("X-Access-Token")
	if token == "" {
		token = c.Query("access_token")
	}

	doc, err := h.gate.FetchDocument(c.Request.Context(), c.Param("documentTokenId"), token)
	if err != nil {
		switch {
		case errors.Is(err, access.ErrTokenRequired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "access token required"})
		case errors.Is(err, access.ErrTokenInvalid):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "access token invalid or expired"})
		case errors.Is(err, registry.ErrNoticeNotFound), errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		case errors.Is(err, doccrypto.ErrAuthentication):
			h.logger.Error("document failed integrity check", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "document integrity check failed"})
		default:
			h.logger.Error("token fetch failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch document"})
		}
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, doc.MimeType, doc.Plaintext)
}

type revokeRequest struct {
	Token string `json:"token" binding:"required"`
}

// Revoke invalidates a token immediately.
func (h *AccessHandler) Revoke(c *gin.Context) {
	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	if err := h.gate.Revoke(c.Request.Context(), req.Token); err != nil {
		h.logger.Error("revoke failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": true})
}
