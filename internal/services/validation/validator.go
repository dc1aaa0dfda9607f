package validation

import (
	"fmt"
	"strings"

	"payout-invoice-backend/internal/config"
	"payout-invoice-backend/internal/models"
	"payout-invoice-backend/internal/services/normalize"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Validator struct {
	cfg       config.Pipeline
	platforms map[string]struct{}
	logger    *zap.Logger
}

func NewValidator(cfg config.Pipeline, logger *zap.Logger) *Validator {
	platforms := make(map[string]struct{}, len(cfg.AllowedPlatforms))
	for _, p := range cfg.AllowedPlatforms {
		platforms[p] = struct{}{}
	}
	return &Validator{cfg: cfg, platforms: platforms, logger: logger}
}

// Validate checks the table shape, every row, and the per-owner totals. Issues are
// returned as data; the table passes when no error-severity issue was found.
func (v *Validator) Validate(table models.Table) models.ValidationReport {
	var issues []models.Issue

	if missing := v.missingColumns(table); len(missing) > 0 {
		issues = append(issues, models.Issue{
			Kind:     models.KindMissingColumns,
			Severity: models.SeverityError,
			Message:  "Missing required columns: " + strings.Join(missing, ", "),
			Value:    missing,
		})
		return v.report(issues, 0)
	}

	passed := 1
	for i, row := range table.Rows {
		rowIssues, ok := v.validateRow(i, row)
		issues = append(issues, rowIssues...)
		passed += ok
	}
	if v.requires(models.ColTotalPayout) && v.requires(models.ColFinalNetPayout) {
		totalIssues, ok := v.validateTotals(table)
		issues = append(issues, totalIssues...)
		passed += ok
	}

	return v.report(issues, passed)
}

func (v *Validator) report(issues []models.Issue, passedChecks int) models.ValidationReport {
	summary := models.Summarize(issues)
	v.logger.Debug("validation finished",
		zap.Int("passed_checks", passedChecks),
		zap.Int("errors", summary.TotalErrors),
		zap.Int("warnings", summary.TotalWarnings),
	)
	return models.ValidationReport{
		Passed:  summary.TotalErrors == 0,
		Issues:  issues,
		Summary: summary,
	}
}

func (v *Validator) missingColumns(table models.Table) []string {
	var missing []string
	for _, col := range v.cfg.RequiredColumns {
		if !table.HasColumn(col.Name) {
			missing = append(missing, col.Name)
		}
	}
	return missing
}

// validateRow runs every row check; one failure does not hide the next.
func (v *Validator) validateRow(index int, row models.Record) ([]models.Issue, int) {
	var issues []models.Issue
	passed := 0

	if v.requires(models.ColOwner) && row.Text(models.ColOwner) == "" {
		issues = append(issues, rowIssue(index, models.KindInvalidOwner, models.SeverityError,
			models.ColOwner, nil, models.ColOwner+" cannot be empty"))
	} else if v.requires(models.ColOwner) {
		passed++
	}

	if v.requires(models.ColPlatform) {
		platform := row.Text(models.ColPlatform)
		if _, ok := v.platforms[platform]; !ok {
			issues = append(issues, rowIssue(index, models.KindInvalidPlatform, models.SeverityWarning,
				models.ColPlatform, platform,
				fmt.Sprintf("Invalid platform: %q. Must be one of %s", platform, strings.Join(v.cfg.AllowedPlatforms, ", "))))
		} else {
			passed++
		}
	}

	for _, col := range v.cfg.NumericColumns() {
		raw := row[col.Name]
		value, ok, null := normalize.Parse(raw)
		switch {
		case null:
			issues = append(issues, rowIssue(index, models.KindNullValue, models.SeverityError,
				col.Name, nil, col.Name+" cannot be null"))
			continue
		case !ok:
			issues = append(issues, rowIssue(index, models.KindInvalidNumber, models.SeverityError,
				col.Name, raw, "Invalid numeric value in "+col.Name))
			continue
		}
		passed++

		f := value.InexactFloat64()
		if col.Name == models.ColOrderCount && f < v.cfg.NegativeOrderThreshold {
			issues = append(issues, rowIssue(index, models.KindNegativeOrders, models.SeverityError,
				col.Name, f, "Order count cannot be negative"))
		}
		if col.Name == models.ColTotalPayout && value.Abs().InexactFloat64() > v.cfg.SuspiciousPayoutThreshold {
			issues = append(issues, rowIssue(index, models.KindSuspiciousAmount, models.SeverityWarning,
				col.Name, f, "Suspicious payout amount: "+normalize.FormatMoney(f)))
		}
	}
	return issues, passed
}

// validateTotals compares total payout with final net payout per owner. The two come
// from different columns and may diverge; only a spread beyond the variance ratio
// is flagged.
func (v *Validator) validateTotals(table models.Table) ([]models.Issue, int) {
	type totals struct {
		payout, net decimal.Decimal
	}
	var order []string
	byOwner := map[string]*totals{}
	for _, row := range table.Rows {
		owner := row.Text(models.ColOwner)
		t, ok := byOwner[owner]
		if !ok {
			t = &totals{}
			byOwner[owner] = t
			order = append(order, owner)
		}
		t.payout = t.payout.Add(normalize.Decimal(row[models.ColTotalPayout]))
		t.net = t.net.Add(normalize.Decimal(row[models.ColFinalNetPayout]))
	}

	var issues []models.Issue
	passed := 0
	ratio := decimal.NewFromFloat(v.cfg.MaxPayoutVarianceRatio)
	for _, owner := range order {
		t := byOwner[owner]
		diff := t.payout.Sub(t.net)
		if diff.Abs().GreaterThan(t.payout.Mul(ratio)) {
			payout, net := t.payout.InexactFloat64(), t.net.InexactFloat64()
			issues = append(issues, models.Issue{
				Kind:     models.KindTotalMismatch,
				Severity: models.SeverityWarning,
				Message: fmt.Sprintf("Total payout (%s) does not match final net payout (%s) for %s",
					normalize.FormatMoney(payout), normalize.FormatMoney(net), owner),
				Field: "total_validation",
				Value: map[string]any{
					"owner":            owner,
					"total_payout":     payout,
					"final_net_payout": net,
					"difference":       diff.InexactFloat64(),
				},
			})
			continue
		}
		passed++
	}
	return issues, passed
}

func (v *Validator) requires(col string) bool {
	for _, c := range v.cfg.RequiredColumns {
		if c.Name == col {
			return true
		}
	}
	return false
}

func rowIssue(index int, kind models.IssueKind, sev models.Severity, field string, value any, msg string) models.Issue {
	row := index
	return models.Issue{
		Kind:     kind,
		Severity: sev,
		Message:  msg,
		Row:      &row,
		Field:    field,
		Value:    value,
	}
}
