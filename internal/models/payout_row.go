package models

import (
	"fmt"
	"strings"
)

// Column names of the payout sheet.
const (
	ColOwner            = "BillOwnerName"
	ColPeriod           = "Order Week"
	ColRestaurant       = "Restaurant"
	ColPlatform         = "Platform_x"
	ColOrderCount       = "Sum of Order Count"
	ColTotalPayout      = "Sum of Total payout"
	ColSubtotal         = "Sum of Sales (excl. tax)"
	ColPassedOnTax      = "Sum of Passed on Tax"
	ColFacilitatorTax   = "Sum of Marketplace Facilitator Tax"
	ColMarketplaceFee   = "Sum of Marketplace fee"
	ColAdditionalFees   = "Additional Fees"
	ColAdFee            = "ad_fee"
	ColFinalNetPayout   = "Final Net Payout with Agg Fee"
	ColStoreID          = "Store ID"
	ColMasterRestaurant = "RestaurantName"
	ColPlatform2        = "Platform"
	ColDepositStatus    = "Deposit_ID_Match_Status"
)

// SheetAmountColumns are the numeric payout columns whose blank cells read as 0
// when they come from the Sheets API.
var SheetAmountColumns = []string{
	ColTotalPayout, ColOrderCount, ColSubtotal, ColPassedOnTax, ColFacilitatorTax,
	ColMarketplaceFee, ColAdditionalFees, ColAdFee, ColFinalNetPayout,
}

// Record is one sheet row keyed by header. Cells are string, a numeric type, or nil.
type Record map[string]any

// Text returns the cell as trimmed text; nil becomes "".
func (r Record) Text(col string) string {
	v, ok := r[col]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Table is a header row plus the records under it, in sheet order.
type Table struct {
	Columns []string `json:"columns" msgpack:"columns"`
	Rows    []Record `json:"rows" msgpack:"rows"`
}

// NewTable builds a Table from a header and raw string rows. Short rows leave the
// trailing cells nil, which is how the Sheets API reports empty trailing cells.
func NewTable(header []string, values [][]string) Table {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}
	t := Table{Columns: cols, Rows: make([]Record, 0, len(values))}
	for _, row := range values {
		rec := make(Record, len(cols))
		for i, col := range cols {
			if col == "" {
				continue
			}
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = nil
			}
		}
		t.Rows = append(t.Rows, rec)
	}
	return t
}

func (t Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

func (t Table) Len() int { return len(t.Rows) }
