package api

import (
	"net/http"

	"github.com/JGooseK41/NFTServiceApp-sub006/internal/access"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/api/handlers"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/api/middleware"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/config"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/registry"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/storage"
	"github.com/JGooseK41/NFTServiceApp-sub006/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Router struct {
	engine        *gin.Engine
	logger        *zap.Logger
	metrics       *metrics.Collector
	docHandler    *handlers.DocumentHandler
	accessHandler *handlers.AccessHandler
	serverHandler *handlers.ServerHandler
	reqMiddleware *middleware.RequestMiddleware
}

func NewRouter(
	logger *zap.Logger,
	collector *metrics.Collector,
	store *storage.Manager,
	gate *access.Gate,
	reg *registry.Registry,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	reqMiddleware := middleware.NewRequestMiddleware(logger)
	engine.Use(reqMiddleware.ProcessRequest())
	engine.Use(reqMiddleware.RecoverPanic())

	return &Router{
		engine:        engine,
		logger:        logger,
		metrics:       collector,
		docHandler:    handlers.NewDocumentHandler(store, logger),
		accessHandler: handlers.NewAccessHandler(gate, logger),
		serverHandler: handlers.NewServerHandler(reg, logger),
		reqMiddleware: reqMiddleware,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "up", "name": "notice-service"})
	})

	r.engine.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"counters":  r.metrics.GetCounters(),
			"latencies": r.metrics.GetLatencies(),
			"sizes":     r.metrics.GetSizes(),
		})
	})

	api := r.engine.Group("/api")
	{
		api.POST("/documents", r.docHandler.Upload)
		api.GET("/documents/:id", r.docHandler.Download)
		api.GET("/documents/:id/info", r.docHandler.Info)

		api.POST("/access/verify", r.accessHandler.Verify)
		api.GET("/access/documents/:documentTokenId", r.accessHandler.FetchDocument)
		api.POST("/access/revoke", r.accessHandler.Revoke)

		api.GET("/notices/:tokenId/public", r.accessHandler.PublicInfo)

		api.POST("/servers/register", r.serverHandler.Register)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Server builds the http.Server fronting the engine with the configured
// timeouts applied.
func (r *Router) Server(addr string, cfg config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      r.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
