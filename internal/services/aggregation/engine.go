package aggregation

import (
	"payout-invoice-backend/internal/models"
	"payout-invoice-backend/internal/services/normalize"

	"github.com/shopspring/decimal"
)

type ownerKey struct {
	owner, period string
}

type platformSums struct {
	name string

	orders, gross, net          decimal.Decimal
	taxTransferred, taxPlatform decimal.Decimal
	subtotal, fee               decimal.Decimal
}

type restaurantGroup struct {
	name      string
	platforms []*platformSums
	index     map[string]*platformSums
}

type ownerGroup struct {
	key ownerKey

	payout, net, adFees decimal.Decimal
	aggFee              decimal.Decimal
	aggFeeSeen          bool

	restaurants []*restaurantGroup
	index       map[string]*restaurantGroup
}

// Aggregate builds the owner -> period -> restaurant -> platform tree. The table must
// already have passed validation; nothing is re-checked here. Groups keep the order
// in which their key first appears.
func Aggregate(table models.Table) []models.OwnerInvoice {
	var groups []*ownerGroup
	byKey := map[ownerKey]*ownerGroup{}

	for _, row := range table.Rows {
		key := ownerKey{owner: row.Text(models.ColOwner), period: row.Text(models.ColPeriod)}
		g, ok := byKey[key]
		if !ok {
			g = &ownerGroup{key: key, index: map[string]*restaurantGroup{}}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.add(row)
	}

	out := make([]models.OwnerInvoice, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.invoice())
	}
	return out
}

func (g *ownerGroup) add(row models.Record) {
	g.payout = g.payout.Add(normalize.Decimal(row[models.ColTotalPayout]))
	g.net = g.net.Add(normalize.Decimal(row[models.ColFinalNetPayout]))
	g.adFees = g.adFees.Add(normalize.Decimal(row[models.ColAdFee]))

	// the aggregator fee is one flat charge repeated on every row of the period
	fee := normalize.Decimal(row[models.ColAdditionalFees])
	if !g.aggFeeSeen || fee.GreaterThan(g.aggFee) {
		g.aggFee = fee
		g.aggFeeSeen = true
	}

	// rows without a restaurant count toward the owner totals but get no breakdown line
	name := row.Text(models.ColRestaurant)
	if name == "" {
		return
	}
	r, ok := g.index[name]
	if !ok {
		r = &restaurantGroup{name: name, index: map[string]*platformSums{}}
		g.index[name] = r
		g.restaurants = append(g.restaurants, r)
	}

	platform := row.Text(models.ColPlatform)
	if platform == "" {
		return
	}
	p, ok := r.index[platform]
	if !ok {
		p = &platformSums{name: platform}
		r.index[platform] = p
		r.platforms = append(r.platforms, p)
	}
	p.orders = p.orders.Add(normalize.Decimal(row[models.ColOrderCount]))
	p.gross = p.gross.Add(normalize.Decimal(row[models.ColTotalPayout]))
	p.taxTransferred = p.taxTransferred.Add(normalize.Decimal(row[models.ColPassedOnTax]))
	p.taxPlatform = p.taxPlatform.Add(normalize.Decimal(row[models.ColFacilitatorTax]))
	p.subtotal = p.subtotal.Add(normalize.Decimal(row[models.ColSubtotal]))
	p.fee = p.fee.Add(normalize.Decimal(row[models.ColMarketplaceFee]))
	p.net = p.net.Add(normalize.Decimal(row[models.ColFinalNetPayout]))
}

func (g *ownerGroup) invoice() models.OwnerInvoice {
	inv := models.OwnerInvoice{
		Name:        g.key.owner,
		Period:      g.key.period,
		Restaurants: make([]models.RestaurantBreakdown, 0, len(g.restaurants)),
		Financials: models.Financials{
			TotalPayout:    g.payout.InexactFloat64(),
			FinalNetPayout: g.net.InexactFloat64(),
			AdFees:         g.adFees.InexactFloat64(),
			AggregatorFee:  g.aggFee.InexactFloat64(),
		},
	}
	for _, r := range g.restaurants {
		rb := models.RestaurantBreakdown{Name: r.name}
		for _, p := range r.platforms {
			rb.Platforms = append(rb.Platforms, models.PlatformBreakdown{
				Platform:         p.name,
				Orders:           p.orders.IntPart(),
				GrossPay:         p.gross.InexactFloat64(),
				TaxesTransferred: p.taxTransferred.InexactFloat64(),
				TaxesPlatform:    p.taxPlatform.InexactFloat64(),
				Subtotal:         p.subtotal.InexactFloat64(),
				ErrorCharges:     0,
				NetPay:           p.net.InexactFloat64(),
				MarketplaceFee:   p.fee.InexactFloat64(),
			})
		}
		if len(rb.Platforms) == 0 {
			// keep restaurants without billable activity visible
			rb.Platforms = []models.PlatformBreakdown{{Platform: models.PlaceholderPlatform}}
		}
		inv.Restaurants = append(inv.Restaurants, rb)
	}
	return inv
}
