package risk

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	decOne     = decimal.NewFromInt(1)
	decHundred = decimal.NewFromInt(100)
	decZero    = decimal.Zero
)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decZero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

func decimalLT(a, b float64) bool {
	return decFromFloat(a).Cmp(decFromFloat(b)) < 0
}

func decimalGTE(a, b float64) bool {
	return decFromFloat(a).Cmp(decFromFloat(b)) >= 0
}

// percentOf returns base * pct/100 computed in decimal space so that
// limit comparisons do not wobble on float rounding.
func percentOf(base, pct float64) decimal.Decimal {
	return decFromFloat(base).Mul(decFromFloat(pct)).Div(decHundred)
}
