package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"payout-invoice-backend/internal/config"
	"payout-invoice-backend/internal/metrics"
	"payout-invoice-backend/internal/models"
	"payout-invoice-backend/internal/repository"
	"payout-invoice-backend/internal/services/aggregation"
	"payout-invoice-backend/internal/services/generation"
	"payout-invoice-backend/internal/services/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrValidationFailed = errors.New("data validation failed, cannot generate invoices")

const (
	msgValid   = "Validation successful! Ready to generate PDFs."
	msgInvalid = "Validation failed. Please fix the errors and try again."
)

// ValidateRequest selects the sheet range to validate. Blank fields fall back to the
// customer profile and then the environment defaults.
type ValidateRequest struct {
	SpreadsheetID string            `json:"spreadsheet_id"`
	RangeName     string            `json:"range_name"`
	MaxPDFs       *int              `json:"max_pdfs"`
	CustomerID    string            `json:"customer_id"`
	Config        *config.Overrides `json:"config"`
}

// Service runs the validate-then-generate workflow.
type Service struct {
	cfg      *config.AppConfig
	source   repository.TableSource
	store    repository.RunStore
	renderer generation.Renderer
	logger   *zap.Logger
	newID    func() string
}

func NewService(cfg *config.AppConfig, source repository.TableSource, store repository.RunStore, renderer generation.Renderer, logger *zap.Logger) *Service {
	return &Service{
		cfg:      cfg,
		source:   source,
		store:    store,
		renderer: renderer,
		logger:   logger,
		newID:    func() string { return uuid.New().String() },
	}
}

// Validate fetches the requested sheet range and validates it.
func (s *Service) Validate(ctx context.Context, req ValidateRequest) (models.ValidationResponse, error) {
	_, sheets, err := s.cfg.Resolve(req.CustomerID, req.Config)
	if err != nil {
		return models.ValidationResponse{}, err
	}
	params := models.RunParams{
		SpreadsheetID: firstNonEmpty(req.SpreadsheetID, sheets.InvoiceSheetID),
		RangeName:     firstNonEmpty(req.RangeName, sheets.InvoiceRange),
		Source:        "sheets",
		MaxPDFs:       sheets.MaxPDFs,
		CustomerID:    req.CustomerID,
	}
	if req.MaxPDFs != nil {
		params.MaxPDFs = *req.MaxPDFs
	}
	if params.SpreadsheetID == "" {
		return models.ValidationResponse{}, fmt.Errorf("%w: spreadsheet_id is required", config.ErrInvalidConfig)
	}

	table, err := s.source.FetchTable(ctx, params.SpreadsheetID, params.RangeName)
	if err != nil {
		return models.ValidationResponse{}, err
	}
	return s.ValidateTable(ctx, table, params, req.Config)
}

// ValidateTable validates an already loaded table, aggregates it when it passes and
// stores the run for a later Generate call.
func (s *Service) ValidateTable(ctx context.Context, table models.Table, params models.RunParams, overrides *config.Overrides) (models.ValidationResponse, error) {
	if params.MaxPDFs < -1 {
		return models.ValidationResponse{}, fmt.Errorf("%w: max_pdfs must be -1 or greater", config.ErrInvalidConfig)
	}
	pipeline, _, err := s.cfg.Resolve(params.CustomerID, overrides)
	if err != nil {
		return models.ValidationResponse{}, err
	}
	params.Overrides = nil
	if overrides != nil {
		if params.Overrides, err = json.Marshal(overrides); err != nil {
			return models.ValidationResponse{}, fmt.Errorf("failed to encode overrides: %w", err)
		}
	}

	report := validation.NewValidator(pipeline, s.logger).Validate(table)
	for _, is := range report.Issues {
		metrics.ValidationIssues.WithLabelValues(string(is.Kind), string(is.Severity)).Inc()
	}

	run := &models.ValidationRun{
		ID:        s.newID(),
		Status:    models.RunInvalid,
		Params:    params,
		CreatedAt: time.Now().UTC(),
	}
	message := msgInvalid
	if report.Passed {
		run.Status = models.RunValid
		run.Invoices = aggregation.Aggregate(table)
		message = msgValid
	}
	metrics.ValidationRuns.WithLabelValues(string(run.Status)).Inc()

	if err := s.store.Save(ctx, run); err != nil {
		return models.ValidationResponse{}, err
	}

	s.logger.Info("validation run stored",
		zap.String("validation_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("records", table.Len()),
		zap.Int("owners", len(run.Invoices)),
		zap.Int("errors", report.Summary.TotalErrors),
		zap.Int("warnings", report.Summary.TotalWarnings),
	)

	return models.ValidationResponse{
		ValidationID:      run.ID,
		Status:            run.Status,
		Message:           message,
		DataSummary:       Summarize(table),
		ValidationSummary: report.Summary,
		ErrorDetails:      report.Summary.ErrorDetails,
		WarningDetails:    report.Summary.WarningDetails,
	}, nil
}

// Archive is a finished invoice bundle. Cleanup removes it and its working directory.
type Archive struct {
	Path     string
	Filename string
	Count    int
	dir      string
	logger   *zap.Logger
}

func (a *Archive) Cleanup() {
	if err := os.RemoveAll(a.dir); err != nil {
		a.logger.Error("cleanup failed", zap.String("dir", a.dir), zap.Error(err))
		return
	}
	a.logger.Info("cleaned up generation output", zap.String("dir", a.dir))
}

// Generate renders the invoices of a passed run and packs them into a zip. The run is
// consumed on success; on failure it is put back so the caller can retry.
func (s *Service) Generate(ctx context.Context, validationID string) (*Archive, error) {
	run, err := s.store.Get(ctx, validationID)
	if err != nil {
		return nil, err
	}
	if !run.Passed() {
		return nil, ErrValidationFailed
	}
	if run, err = s.store.Take(ctx, validationID); err != nil {
		return nil, err
	}

	archive, err := s.generate(ctx, run)
	if err != nil {
		if saveErr := s.store.Save(context.WithoutCancel(ctx), run); saveErr != nil {
			s.logger.Error("failed to restore run after generation failure",
				zap.String("validation_id", run.ID), zap.Error(saveErr))
		}
		return nil, err
	}
	return archive, nil
}

func (s *Service) generate(ctx context.Context, run *models.ValidationRun) (*Archive, error) {
	var overrides *config.Overrides
	if len(run.Params.Overrides) > 0 {
		overrides = &config.Overrides{}
		if err := json.Unmarshal(run.Params.Overrides, overrides); err != nil {
			return nil, fmt.Errorf("%w: stored overrides: %v", config.ErrInvalidConfig, err)
		}
	}
	pipeline, _, err := s.cfg.Resolve(run.Params.CustomerID, overrides)
	if err != nil {
		return nil, err
	}

	invoices := run.Invoices
	if limit := run.Params.MaxPDFs; limit >= 0 && limit < len(invoices) {
		invoices = invoices[:limit]
	}
	s.logger.Info("generating invoices",
		zap.String("validation_id", run.ID),
		zap.Int("owners", len(invoices)))

	dir, err := filepath.Abs(filepath.Join(s.cfg.OutputDir, run.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output dir: %w", err)
	}
	paths, err := generation.NewGenerator(s.renderer, pipeline, s.logger).GenerateBatch(ctx, invoices, dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	filename := "invoices_" + run.ID + ".zip"
	zipPath := filepath.Join(dir, filename)
	if err := generation.WriteZip(zipPath, paths); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	s.logger.Info("invoice archive created",
		zap.String("validation_id", run.ID),
		zap.String("path", zipPath),
		zap.Int("documents", len(paths)))

	return &Archive{Path: zipPath, Filename: filename, Count: len(paths), dir: dir, logger: s.logger}, nil
}

// CleanupOutputs removes generated output older than the maintenance max age.
func (s *Service) CleanupOutputs(now time.Time) (generation.CleanupResult, error) {
	return generation.CleanupOlderThan(s.cfg.OutputDir, s.cfg.MaintenanceMaxAge, now, s.logger)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
