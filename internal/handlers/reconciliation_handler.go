package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"payout-invoice-backend/internal/config"
	"payout-invoice-backend/internal/metrics"
	"payout-invoice-backend/internal/models"
	"payout-invoice-backend/internal/repository"
	service "payout-invoice-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"
)

type reconciliationRequest struct {
	InvoiceSheetID string            `json:"invoice_sheet_id"`
	InvoiceRange   string            `json:"invoice_range"`
	MasterSheetID  string            `json:"master_sheet_id"`
	MasterRange    string            `json:"master_range"`
	CustomerID     string            `json:"customer_id"`
	Config         *config.Overrides `json:"config"`
}

type ReconciliationHandler struct {
	cfg    *config.AppConfig
	source repository.TableSource
	logger *zap.Logger
}

func NewReconciliationHandler(cfg *config.AppConfig, source repository.TableSource, logger *zap.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{cfg: cfg, source: source, logger: logger}
}

// StoreMatches checks upstream deposit match flags against the master store list.
func (h *ReconciliationHandler) StoreMatches(c *gin.Context) {
	svc, invoiceTable, masterTable, ok := h.load(c, "deposit_status")
	if !ok {
		return
	}
	report, err := svc.AnalyzeDepositStatus(invoiceTable, masterTable)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":             "success",
		"analysis_timestamp": time.Now().UTC(),
		"results":            report,
		"next_steps": []string{
			"Review unmatched stores",
			"Verify stores marked as matched but missing from master sheet",
			"Update master data if needed",
		},
	})
}

// StoreIDs reconciles the two sheets on store id with fuzzy name candidates.
func (h *ReconciliationHandler) StoreIDs(c *gin.Context) {
	svc, invoiceTable, masterTable, ok := h.load(c, "store_ids")
	if !ok {
		return
	}
	result, err := svc.CompareStoreIDs(invoiceTable, masterTable)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "results": result})
}

// StoreNames reconciles the two sheets on cleaned restaurant names.
func (h *ReconciliationHandler) StoreNames(c *gin.Context) {
	svc, invoiceTable, masterTable, ok := h.load(c, "store_names")
	if !ok {
		return
	}
	result, err := svc.CompareStoreNames(invoiceTable, masterTable)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "results": result})
}

// load binds the request, resolves customer settings and fetches both sheets in
// parallel. It writes the error response itself and reports ok=false on failure.
func (h *ReconciliationHandler) load(c *gin.Context, mode string) (*service.ReconciliationService, models.Table, models.Table, bool) {
	var req reconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return nil, models.Table{}, models.Table{}, false
	}

	pipeline, sheets, err := h.cfg.Resolve(req.CustomerID, req.Config)
	if err != nil {
		respondError(c, h.logger, err)
		return nil, models.Table{}, models.Table{}, false
	}
	invoiceID := firstNonEmpty(req.InvoiceSheetID, sheets.InvoiceSheetID)
	masterID := firstNonEmpty(req.MasterSheetID, sheets.MasterSheetID)
	if invoiceID == "" || masterID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invoice_sheet_id and master_sheet_id are required"})
		return nil, models.Table{}, models.Table{}, false
	}

	var invoiceTable, masterTable models.Table
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		invoiceTable, err = h.source.FetchTable(ctx, invoiceID, firstNonEmpty(req.InvoiceRange, sheets.InvoiceRange))
		return err
	})
	g.Go(func() error {
		var err error
		masterTable, err = h.source.FetchTable(ctx, masterID, firstNonEmpty(req.MasterRange, sheets.MasterRange))
		return err
	})
	if err := g.Wait(); err != nil {
		respondError(c, h.logger, err)
		return nil, models.Table{}, models.Table{}, false
	}

	metrics.ReconciliationRuns.WithLabelValues(mode).Inc()
	return service.NewReconciliationService(pipeline, h.logger), invoiceTable, masterTable, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
