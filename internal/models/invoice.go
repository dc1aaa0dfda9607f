package models

// PlaceholderPlatform names the zero entry emitted for a restaurant that has no
// platform rows in the period.
const PlaceholderPlatform = "N/A"

type PlatformBreakdown struct {
	Platform         string  `json:"platform" msgpack:"platform"`
	Orders           int64   `json:"orders" msgpack:"orders"`
	GrossPay         float64 `json:"gross_pay" msgpack:"gross_pay"`
	TaxesTransferred float64 `json:"taxes_transferred" msgpack:"taxes_transferred"`
	TaxesPlatform    float64 `json:"taxes_platform" msgpack:"taxes_platform"`
	Subtotal         float64 `json:"subtotal" msgpack:"subtotal"`
	ErrorCharges     float64 `json:"error_charges" msgpack:"error_charges"`
	NetPay           float64 `json:"net_pay" msgpack:"net_pay"`
	MarketplaceFee   float64 `json:"marketplace_fee" msgpack:"marketplace_fee"`
}

type RestaurantBreakdown struct {
	Name      string              `json:"name" msgpack:"name"`
	Platforms []PlatformBreakdown `json:"platforms" msgpack:"platforms"`
}

type Financials struct {
	TotalPayout    float64 `json:"total_payout" msgpack:"total_payout"`
	FinalNetPayout float64 `json:"final_net_payout" msgpack:"final_net_payout"`
	AdFees         float64 `json:"ad_fees" msgpack:"ad_fees"`
	AggregatorFee  float64 `json:"aggregator_fee" msgpack:"aggregator_fee"`
}

// OwnerInvoice is one (bill owner, period) node of the aggregation tree and the
// unit handed to the renderer.
type OwnerInvoice struct {
	Name        string                `json:"name" msgpack:"name"`
	Period      string                `json:"period" msgpack:"period"`
	Restaurants []RestaurantBreakdown `json:"restaurants" msgpack:"restaurants"`
	Financials  Financials            `json:"financials" msgpack:"financials"`
}

// NetPayTotal sums net pay across every platform row of the invoice.
func (o OwnerInvoice) NetPayTotal() float64 {
	var total float64
	for _, r := range o.Restaurants {
		for _, p := range r.Platforms {
			total += p.NetPay
		}
	}
	return total
}
