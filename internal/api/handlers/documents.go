package handlers

import (
	"errors"
	"io"
	"net/http"

	doccrypto "github.com/JGooseK41/NFTServiceApp-sub006/internal/crypto"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DocumentHandler struct {
	store  *storage.Manager
	logger *zap.Logger
}

func NewDocumentHandler(store *storage.Manager, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		store:  store,
		logger: logger.With(zap.String("handler", "document")),
	}
}

// Upload accepts a multipart file plus notice metadata fields and stores the
// encrypted document.
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("open uploaded file failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read upload"})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		h.logger.Error("read uploaded file failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read upload"})
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	meta := storage.Metadata{
		NoticeID:         c.PostForm("noticeId"),
		CaseNumber:       c.PostForm("caseNumber"),
		ServerAddress:    c.PostForm("serverAddress"),
		RecipientAddress: c.PostForm("recipientAddress"),
		MimeType:         mimeType,
		OriginalName:     fileHeader.Filename,
	}
	if meta.ServerAddress == "" || meta.RecipientAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "serverAddress and recipientAddress are required"})
		return
	}

	stored, err := h.store.Store(c.Request.Context(), content, meta)
	if err != nil {
		h.logger.Error("store document failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store document"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"document_id": stored.DocumentID,
		"size":        stored.Size,
		"url":         stored.URL,
	})
}

// Download returns the decrypted document to the serving process server, the
// recipient, or an approved admin, identified by X-Wallet-Address.
func (h *DocumentHandler) Download(c *gin.Context) {
	documentID := c.Param("id")
	principal := c.GetHeader("X-Wallet-Address")
	if principal == "" {
		principal = c.Query("wallet")
	}

	doc, err := h.store.Retrieve(c.Request.Context(), documentID, principal)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		case errors.Is(err, storage.ErrUnauthorized):
			c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for this document"})
		case errors.Is(err, doccrypto.ErrAuthentication):
			h.logger.Error("document failed integrity check",
				zap.String("document_id", documentID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "document integrity check failed"})
		default:
			h.logger.Error("retrieve failed", zap.String("document_id", documentID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not retrieve document"})
		}
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, doc.MimeType, doc.Plaintext)
}

// Info is the metadata-only existence check; deliberately unauthenticated.
func (h *DocumentHandler) Info(c *gin.Context) {
	documentID := c.Param("id")

	meta, err := h.store.GetMetadata(c.Request.Context(), documentID)
	if err != nil {
		h.logger.Error("metadata load failed", zap.String("document_id", documentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load metadata"})
		return
	}
	if meta == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document_id":   meta.DocumentID,
		"notice_id":     meta.NoticeID,
		"case_number":   meta.CaseNumber,
		"file_size":     meta.FileSize,
		"mime_type":     meta.MimeType,
		"original_name": meta.OriginalName,
		"created_at":    meta.CreatedAt,
	})
}
