package handler

import (
	"errors"
	"net/http"

	"payout-invoice-backend/internal/config"
	"payout-invoice-backend/internal/repository"
	"payout-invoice-backend/internal/services/generation"
	"payout-invoice-backend/internal/services/invoice"
	"payout-invoice-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps service errors to HTTP statuses.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, repository.ErrRunNotFound):
		status = http.StatusNotFound
		msg = "Validation ID not found. Please validate data first."
	case errors.Is(err, invoice.ErrValidationFailed):
		status = http.StatusBadRequest
		msg = "Data validation failed. Cannot generate PDFs."
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, repository.ErrUnsupportedFormat),
		errors.Is(err, repository.ErrNoData):
		status = http.StatusBadRequest
	case errors.Is(err, reconciliation.ErrMissingColumn):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrSourceUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, generation.ErrNoDocuments):
		msg = "No PDFs were generated successfully"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		logger.Warn("request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg})
}
