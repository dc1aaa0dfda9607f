package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"payout-invoice-backend/internal/config"
	"payout-invoice-backend/internal/models"
	"payout-invoice-backend/internal/repository"
	"payout-invoice-backend/internal/services/invoice"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type InvoiceHandler struct {
	service *invoice.Service
	logger  *zap.Logger
}

func NewInvoiceHandler(s *invoice.Service, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{service: s, logger: logger}
}

// Validate validates a Google Sheets range. An empty body uses the configured defaults.
func (h *InvoiceHandler) Validate(c *gin.Context) {
	var req invoice.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}
	if req.MaxPDFs != nil && *req.MaxPDFs < -1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_pdfs must be -1 or greater"})
		return
	}

	resp, err := h.service.Validate(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ValidateUpload validates an uploaded CSV or XLSX file. An optional "config" form
// field carries the same JSON overrides as the sheet endpoint.
func (h *InvoiceHandler) ValidateUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	maxPDFs := -1
	if v := c.PostForm("max_pdfs"); v != "" {
		if maxPDFs, err = strconv.Atoi(v); err != nil || maxPDFs < -1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_pdfs must be an integer >= -1"})
			return
		}
	}

	var overrides *config.Overrides
	if raw := c.PostForm("config"); strings.TrimSpace(raw) != "" {
		overrides = &config.Overrides{}
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(overrides); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid config: " + err.Error()})
			return
		}
	}

	h.logger.Info("received upload",
		zap.String("file", header.Filename),
		zap.Int64("size", header.Size))

	table, err := repository.DecodeTable(header.Filename, file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	params := models.RunParams{
		Source:     "upload:" + header.Filename,
		MaxPDFs:    maxPDFs,
		CustomerID: c.PostForm("customer_id"),
	}
	resp, err := h.service.ValidateTable(c.Request.Context(), table, params, overrides)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Generate renders the invoices of a validated run and streams them as a zip. The
// working directory is removed once the response has been written.
func (h *InvoiceHandler) Generate(c *gin.Context) {
	id := c.Param("validationId")

	archive, err := h.service.Generate(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer archive.Cleanup()

	c.FileAttachment(archive.Path, archive.Filename)
}

// Cleanup removes generated output older than the configured max age.
func (h *InvoiceHandler) Cleanup(c *gin.Context) {
	res, err := h.service.CleanupOutputs(time.Now())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "cleanup completed",
		"files_removed": res.FilesRemoved,
		"dirs_removed":  res.DirsRemoved,
	})
}
