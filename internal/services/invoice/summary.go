package invoice

import (
	"payout-invoice-backend/internal/models"
	"payout-invoice-backend/internal/services/normalize"

	"github.com/shopspring/decimal"
)

const sampleRestaurants = 5

// Summarize describes a payout table for display. It is lenient about malformed
// cells, so it works on tables that failed validation too.
func Summarize(table models.Table) models.DataSummary {
	sum := models.DataSummary{
		TotalRecords:      table.Len(),
		Platforms:         []string{},
		SampleRestaurants: []string{},
		PlatformBreakdown: map[string]int{},
	}

	owners := map[string]struct{}{}
	restaurants := map[string]struct{}{}
	var minPeriod, maxPeriod string
	orders, payout := decimal.Zero, decimal.Zero

	for _, row := range table.Rows {
		owners[row.Text(models.ColOwner)] = struct{}{}

		if p := row.Text(models.ColPeriod); p != "" {
			if minPeriod == "" || p < minPeriod {
				minPeriod = p
			}
			if p > maxPeriod {
				maxPeriod = p
			}
		}

		platform := row.Text(models.ColPlatform)
		if _, seen := sum.PlatformBreakdown[platform]; !seen && platform != "" {
			sum.Platforms = append(sum.Platforms, platform)
		}
		if platform != "" {
			sum.PlatformBreakdown[platform]++
		}

		if r := row.Text(models.ColRestaurant); r != "" {
			if _, seen := restaurants[r]; !seen {
				restaurants[r] = struct{}{}
				if len(sum.SampleRestaurants) < sampleRestaurants {
					sum.SampleRestaurants = append(sum.SampleRestaurants, r)
				}
			}
		}

		orders = orders.Add(normalize.Decimal(row[models.ColOrderCount]))
		payout = payout.Add(normalize.Decimal(row[models.ColTotalPayout]))
	}

	sum.UniqueBillOwners = len(owners)
	if minPeriod != "" {
		sum.DateRange = minPeriod + " to " + maxPeriod
	}
	sum.TotalOrders = orders.IntPart()
	sum.TotalPayout = normalize.FormatMoney(payout.InexactFloat64())
	return sum
}
