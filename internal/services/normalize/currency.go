// Package normalize turns raw sheet cells into numbers.
package normalize

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var currencyStripper = strings.NewReplacer("$", "", ",", "", " ", "", "\u00a0", "")

// Parse converts a cell strictly. null reports a nil or blank cell; ok is false
// when the cell holds text that is not a number.
func Parse(v any) (value decimal.Decimal, ok bool, null bool) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, true, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero, true, true
		}
		s = currencyStripper.Replace(s)
		if s == "" {
			return decimal.Zero, true, false
		}
		neg := false
		// accounting style negatives: (12.50)
		if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
			neg = true
			s = s[1 : len(s)-1]
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false, false
		}
		if neg {
			d = d.Neg()
		}
		return d, true, false
	case float64:
		if math.IsNaN(x) {
			return decimal.Zero, true, true
		}
		if math.IsInf(x, 0) {
			return decimal.Zero, false, false
		}
		return decimal.NewFromFloat(x), true, false
	case float32:
		return Parse(float64(x))
	case int:
		return decimal.NewFromInt(int64(x)), true, false
	case int64:
		return decimal.NewFromInt(x), true, false
	case int32:
		return decimal.NewFromInt(int64(x)), true, false
	case decimal.Decimal:
		return x, true, false
	default:
		return decimal.Zero, false, false
	}
}

// Decimal is the lenient form of Parse: anything unusable becomes zero.
func Decimal(v any) decimal.Decimal {
	d, ok, _ := Parse(v)
	if !ok {
		return decimal.Zero
	}
	return d
}

// Amount normalizes a cell to a float. It never fails; malformed content is
// reported by the validator, not here.
func Amount(v any) float64 {
	return Decimal(v).InexactFloat64()
}

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders a dollar amount with thousands separators, e.g. $1,234.50.
func FormatMoney(v float64) string {
	if v < 0 {
		return moneyPrinter.Sprintf("-$%.2f", -v)
	}
	return moneyPrinter.Sprintf("$%.2f", v)
}
