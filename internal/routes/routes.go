package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"payout-invoice-backend/internal/config"
	handler "payout-invoice-backend/internal/handlers"
	"payout-invoice-backend/internal/repository"
	"payout-invoice-backend/internal/services/generation"
	"payout-invoice-backend/internal/services/invoice"
)

const Version = "1.0.0"

// Deps are the collaborators shared by all routes.
type Deps struct {
	Config   *config.AppConfig
	Source   repository.TableSource
	Store    repository.RunStore
	Renderer generation.Renderer
	Logger   *zap.Logger
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	invoiceService := invoice.NewService(d.Config, d.Source, d.Store, d.Renderer, d.Logger)

	invoiceHandler := handler.NewInvoiceHandler(invoiceService, d.Logger)
	reconHandler := handler.NewReconciliationHandler(d.Config, d.Source, d.Logger)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"version":   Version,
		})
	})

	// Validate then generate
	api.POST("/validate", invoiceHandler.Validate)
	api.POST("/validate/upload", invoiceHandler.ValidateUpload)
	api.POST("/generate/:validationId", invoiceHandler.Generate)

	// Sheet reconciliation
	recon := api.Group("/reconciliation")
	recon.POST("/store-matches", reconHandler.StoreMatches)
	recon.POST("/store-ids", reconHandler.StoreIDs)
	recon.POST("/store-names", reconHandler.StoreNames)

	api.POST("/maintenance/cleanup", invoiceHandler.Cleanup)
}
