package validation

import (
	"testing"

	"payout-invoice-backend/internal/config"
	"payout-invoice-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var header = []string{
	models.ColOwner, models.ColPlatform, models.ColPeriod, models.ColRestaurant,
	models.ColOrderCount, models.ColTotalPayout, models.ColSubtotal, models.ColPassedOnTax,
	models.ColFacilitatorTax, models.ColMarketplaceFee, models.ColAdditionalFees, models.ColAdFee,
	models.ColFinalNetPayout,
}

func row(owner, platform string, orders, payout, net string) []string {
	return []string{owner, platform, "2024-W01", "Main St", orders, payout, "10", "1", "1", "2", "5", "0", net}
}

func newValidator(t *testing.T) *Validator {
	return NewValidator(config.DefaultPipeline(), zaptest.NewLogger(t))
}

func kinds(issues []models.Issue) []models.IssueKind {
	out := make([]models.IssueKind, 0, len(issues))
	for _, is := range issues {
		out = append(out, is.Kind)
	}
	return out
}

func TestValidate_CleanTablePasses(t *testing.T) {
	table := models.NewTable(header, [][]string{
		row("Alice", "DoorDash", "2", "$20.00", "18"),
		row("Alice", "UberEats", "3", "30", "27"),
	})

	report := newValidator(t).Validate(table)

	assert.True(t, report.Passed)
	assert.Empty(t, report.Issues)
	assert.Equal(t, 0, report.Summary.TotalErrors)
}

func TestValidate_MissingColumnShortCircuits(t *testing.T) {
	var short []string
	for _, h := range header {
		if h != models.ColAdditionalFees {
			short = append(short, h)
		}
	}
	// rows that would fail every row check if they were examined
	table := models.NewTable(short, [][]string{{"", "Nope", "", "", "-1", "x"}})

	report := newValidator(t).Validate(table)

	require.Len(t, report.Issues, 1)
	assert.False(t, report.Passed)
	assert.Equal(t, models.KindMissingColumns, report.Issues[0].Kind)
	assert.Equal(t, []string{models.ColAdditionalFees}, report.Issues[0].Value)
	assert.Equal(t, map[models.IssueKind]int{models.KindMissingColumns: 1}, report.Summary.ErrorTypes)
}

func TestValidate_DoesNotShortCircuitRows(t *testing.T) {
	table := models.NewTable(header, [][]string{
		row("", "DoorDash", "1", "10", "9"),
		row("Bob", "DoorDash", "-4", "10", "9"),
		row("Carol", "DoorDash", "1", "ten", "9"),
	})

	report := newValidator(t).Validate(table)

	assert.False(t, report.Passed)
	errs := report.Errors()
	require.GreaterOrEqual(t, len(errs), 3)
	assert.ElementsMatch(t,
		[]models.IssueKind{models.KindInvalidOwner, models.KindNegativeOrders, models.KindInvalidNumber},
		kinds(errs))

	rows := map[int]bool{}
	for _, e := range errs {
		require.NotNil(t, e.Row)
		rows[*e.Row] = true
	}
	assert.Len(t, rows, 3)
}

func TestValidate_AllChecksInOneRow(t *testing.T) {
	r := row("", "Postmates", "-1", "-2000000", "")
	table := models.NewTable(header, [][]string{r})

	report := newValidator(t).Validate(table)

	assert.ElementsMatch(t, []models.IssueKind{
		models.KindInvalidOwner,
		models.KindInvalidPlatform,
		models.KindNegativeOrders,
		models.KindSuspiciousAmount,
		models.KindNullValue,
		models.KindTotalMismatch,
	}, kinds(report.Issues))
	assert.Equal(t, 3, report.Summary.TotalErrors)
	assert.Equal(t, 3, report.Summary.TotalWarnings)
}

func TestValidate_WarningsDoNotBlock(t *testing.T) {
	table := models.NewTable(header, [][]string{
		row("Dana", "Toast", "1", "1500000", "1400000"),
	})

	report := newValidator(t).Validate(table)

	assert.True(t, report.Passed)
	assert.ElementsMatch(t,
		[]models.IssueKind{models.KindInvalidPlatform, models.KindSuspiciousAmount},
		kinds(report.Warnings()))
}

func TestValidate_NullCells(t *testing.T) {
	// short row: trailing cells come back nil
	table := models.NewTable(header, [][]string{{"Erin", "DoorDash", "W1", "R1", "1", "10"}})

	report := newValidator(t).Validate(table)

	assert.False(t, report.Passed)
	assert.Equal(t, 7, report.Summary.ErrorTypes[models.KindNullValue])
}

func TestValidate_TotalMismatch(t *testing.T) {
	tests := []struct {
		name   string
		rows   [][]string
		expect bool
	}{
		{
			name:   "within variance",
			rows:   [][]string{row("Frank", "DoorDash", "1", "100", "-5"), row("Frank", "DoorDash", "1", "100", "0")},
			expect: false,
		},
		{
			name:   "beyond variance",
			rows:   [][]string{row("Gina", "DoorDash", "1", "100", "-200")},
			expect: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := newValidator(t).Validate(models.NewTable(header, tt.rows))

			var found *models.Issue
			for i := range report.Issues {
				if report.Issues[i].Kind == models.KindTotalMismatch {
					found = &report.Issues[i]
				}
			}
			if !tt.expect {
				assert.Nil(t, found)
				return
			}
			require.NotNil(t, found)
			assert.Equal(t, models.SeverityWarning, found.Severity)
			value := found.Value.(map[string]any)
			assert.Equal(t, "Gina", value["owner"])
			assert.Equal(t, 100.0, value["total_payout"])
			assert.Equal(t, -200.0, value["final_net_payout"])
			assert.True(t, report.Passed)
		})
	}
}

func TestValidate_ConfigurableThresholds(t *testing.T) {
	cfg := config.DefaultPipeline()
	cfg.SuspiciousPayoutThreshold = 50
	cfg.AllowedPlatforms = []string{"Toast"}
	v := NewValidator(cfg, zaptest.NewLogger(t))

	report := v.Validate(models.NewTable(header, [][]string{row("Hal", "Toast", "1", "60", "55")}))

	assert.Equal(t, []models.IssueKind{models.KindSuspiciousAmount}, kinds(report.Issues))
}
