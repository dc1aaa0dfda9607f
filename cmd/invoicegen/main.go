// Command invoicegen validates a local payout export and optionally writes the owner
// invoice archive, without running the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"payout-invoice-backend/internal/config"
	"payout-invoice-backend/internal/models"
	"payout-invoice-backend/internal/render"
	"payout-invoice-backend/internal/repository"
	"payout-invoice-backend/internal/services/invoice"

	"go.uber.org/zap"
)

func main() {
	var (
		file     = flag.String("file", "", "payout export (.csv or .xlsx)")
		outDir   = flag.String("out", "", "write the invoice zip into this directory; validate only when empty")
		maxPDFs  = flag.Int("max-pdfs", -1, "maximum number of invoices to render, -1 for all")
		customer = flag.String("customer", "", "customer profile id")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: invoicegen -file payouts.csv [-out dir] [-max-pdfs n] [-customer id]")
		os.Exit(2)
	}
	if err := run(*file, *outDir, *maxPDFs, *customer); err != nil {
		fmt.Fprintln(os.Stderr, "invoicegen:", err)
		os.Exit(1)
	}
}

func run(file, outDir string, maxPDFs int, customer string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if outDir != "" {
		if cfg.OutputDir, err = filepath.Abs(outDir); err != nil {
			return err
		}
	}

	table, err := repository.ReadTableFile(file)
	if err != nil {
		return err
	}

	store := repository.NewMemoryRunStore(cfg.RunTTL)
	svc := invoice.NewService(cfg, nil, store, render.NewPDFRenderer(), logger)

	ctx := context.Background()
	params := models.RunParams{Source: "file:" + filepath.Base(file), MaxPDFs: maxPDFs, CustomerID: customer}
	resp, err := svc.ValidateTable(ctx, table, params, nil)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}
	if resp.Status != models.RunValid {
		return invoice.ErrValidationFailed
	}
	if outDir == "" {
		return nil
	}

	archive, err := svc.Generate(ctx, resp.ValidationID)
	if err != nil {
		return err
	}
	defer archive.Cleanup()

	dest := filepath.Join(cfg.OutputDir, archive.Filename)
	if err := os.Rename(archive.Path, dest); err != nil {
		return fmt.Errorf("failed to move archive: %w", err)
	}
	logger.Info("invoice archive written", zap.String("path", dest), zap.Int("documents", archive.Count))
	return nil
}
