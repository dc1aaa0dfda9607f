package generation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"payout-invoice-backend/internal/config"
	"payout-invoice-backend/internal/metrics"
	"payout-invoice-backend/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoDocuments   = errors.New("no invoice documents were generated")
	ErrRenderTimeout = errors.New("render timed out")
)

// Renderer writes one invoice document to path.
//
//go:generate mockgen -destination=mocks/mock_renderer.go -source=generator.go Renderer
type Renderer interface {
	Render(ctx context.Context, invoice models.OwnerInvoice, path string) error
}

type Generator struct {
	renderer  Renderer
	batchSize int
	workers   int
	pause     time.Duration
	timeout   time.Duration
	logger    *zap.Logger
	sleep     func(context.Context, time.Duration) error
}

func NewGenerator(renderer Renderer, cfg config.Pipeline, logger *zap.Logger) *Generator {
	return &Generator{
		renderer:  renderer,
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
		pause:     cfg.BatchPause,
		timeout:   cfg.RenderTimeout,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

type job struct {
	index   int
	invoice models.OwnerInvoice
	path    string
}

// GenerateBatch renders one document per invoice into dir. Invoices are processed in
// waves of batchSize with at most workers renders in flight and a pause between
// waves. A failed render is logged and skipped. The returned paths keep submission
// order. ErrNoDocuments is returned when nothing was rendered.
func (g *Generator) GenerateBatch(ctx context.Context, invoices []models.OwnerInvoice, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir %s: %w", dir, err)
	}

	names := AssignFilenames(invoices)
	jobs := make([]job, len(invoices))
	for i, inv := range invoices {
		jobs[i] = job{index: i, invoice: inv, path: filepath.Join(dir, names[i])}
	}

	results := make([]string, len(jobs))
	for start := 0; start < len(jobs); start += g.batchSize {
		if start > 0 {
			if err := g.sleep(ctx, g.pause); err != nil {
				return nil, err
			}
		}
		end := min(start+g.batchSize, len(jobs))
		g.runWave(ctx, jobs[start:end], results)
		g.logger.Info("invoice batch finished",
			zap.Int("batch", start/g.batchSize+1),
			zap.Int("from", start),
			zap.Int("to", end),
		)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(results))
	for _, p := range results {
		if p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil, ErrNoDocuments
	}
	g.logger.Info("invoice generation finished",
		zap.Int("requested", len(jobs)),
		zap.Int("generated", len(paths)),
	)
	return paths, nil
}

// runWave blocks until every job of the wave has finished or timed out.
func (g *Generator) runWave(ctx context.Context, wave []job, results []string) {
	var eg errgroup.Group
	eg.SetLimit(g.workers)
	for _, j := range wave {
		j := j
		eg.Go(func() error {
			start := time.Now()
			err := g.renderOne(ctx, j)
			metrics.RenderDuration.Observe(time.Since(start).Seconds())
			switch {
			case err == nil:
				metrics.DocumentsRendered.WithLabelValues(metrics.ResultSuccess).Inc()
				results[j.index] = j.path
			case errors.Is(err, ErrRenderTimeout):
				metrics.DocumentsRendered.WithLabelValues(metrics.ResultTimeout).Inc()
				g.logger.Error("invoice render timed out",
					zap.String("owner", j.invoice.Name),
					zap.String("period", j.invoice.Period),
					zap.Duration("timeout", g.timeout))
			default:
				metrics.DocumentsRendered.WithLabelValues(metrics.ResultFailure).Inc()
				g.logger.Error("invoice render failed",
					zap.String("owner", j.invoice.Name),
					zap.String("period", j.invoice.Period),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = eg.Wait()
}

// renderOne bounds a render by the configured timeout. A renderer that ignores its
// context still releases the worker slot when the deadline passes.
func (g *Generator) renderOne(ctx context.Context, j job) error {
	if g.timeout <= 0 {
		return g.renderer.Render(ctx, j.invoice, j.path)
	}
	rctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- g.renderer.Render(rctx, j.invoice, j.path) }()

	select {
	case err := <-done:
		if err != nil && errors.Is(rctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrRenderTimeout, err)
		}
		return err
	case <-rctx.Done():
		if errors.Is(rctx.Err(), context.DeadlineExceeded) {
			return ErrRenderTimeout
		}
		return rctx.Err()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeName replaces characters that are unsafe in file names.
func SafeName(s string) string {
	s = unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "._")
	if s == "" {
		return "unnamed"
	}
	return s
}

// AssignFilenames derives "<owner>_<period>_invoice.pdf" for each invoice. Names that
// collide after sanitizing get a numeric suffix in submission order.
func AssignFilenames(invoices []models.OwnerInvoice) []string {
	used := map[string]bool{}
	out := make([]string, len(invoices))
	for i, inv := range invoices {
		base := SafeName(inv.Name)
		if inv.Period != "" {
			base += "_" + SafeName(inv.Period)
		}
		name := base + "_invoice.pdf"
		for n := 2; used[strings.ToLower(name)]; n++ {
			name = base + "_invoice_" + strconv.Itoa(n) + ".pdf"
		}
		used[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}
