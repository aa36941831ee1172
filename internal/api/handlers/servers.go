package handlers

import (
	"net/http"

	"github.com/JGooseK41/NFTServiceApp-sub006/internal/registry"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ServerHandler struct {
	registry *registry.Registry
	logger   *zap.Logger
}

func NewServerHandler(reg *registry.Registry, logger *zap.Logger) *ServerHandler {
	return &ServerHandler{
		registry: reg,
		logger:   logger.With(zap.String("handler", "server")),
	}
}

type registerRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
	AgencyName    string `json:"agency_name" binding:"required"`
	ContactEmail  string `json:"contact_email"`
}

// Register creates a process-server record pending approval. The API key is
// returned exactly once; only its hash is stored.
func (h *ServerHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet_address and agency_name are required"})
		return
	}

	apiKey, err := h.registry.RegisterServer(c.Request.Context(), req.WalletAddress, req.AgencyName, req.ContactEmail)
	if err != nil {
		h.logger.Error("server registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register server"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"wallet_address": req.WalletAddress,
		"api_key":        apiKey,
		"approved":       false,
	})
}
