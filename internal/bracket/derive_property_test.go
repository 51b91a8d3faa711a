package bracket

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/FaizanQureshiFinzome/simple-algo/internal/models"
)

// For any entry price and offsets, the stop and target must bracket the
// entry price on the correct sides for the entry's direction.
func TestDerivePricesProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("BUY entry: stop below, target above", prop.ForAll(
		func(price, stopPct, targetPct float64) bool {
			stop, target := DerivePrices(models.OrderSideBuy, price, stopPct, targetPct)
			return stop < price && target > price
		},
		gen.Float64Range(0.05, 1e6),
		gen.Float64Range(0.01, 0.99),
		gen.Float64Range(0.01, 0.99),
	))

	properties.Property("SELL entry: stop above, target below", prop.ForAll(
		func(price, stopPct, targetPct float64) bool {
			stop, target := DerivePrices(models.OrderSideSell, price, stopPct, targetPct)
			return stop > price && target < price
		},
		gen.Float64Range(0.05, 1e6),
		gen.Float64Range(0.01, 0.99),
		gen.Float64Range(0.01, 0.99),
	))

	properties.Property("offsets scale linearly with price", prop.ForAll(
		func(price, pct float64) bool {
			stop, target := DerivePrices(models.OrderSideBuy, price, pct, pct)
			wantStop := price * (1 - pct)
			wantTarget := price * (1 + pct)
			return math.Abs(stop-wantStop) < 1e-9*price && math.Abs(target-wantTarget) < 1e-9*price
		},
		gen.Float64Range(0.05, 1e6),
		gen.Float64Range(0.01, 0.99),
	))

	properties.Property("BUY and SELL are mirrors", prop.ForAll(
		func(price, stopPct, targetPct float64) bool {
			buyStop, buyTarget := DerivePrices(models.OrderSideBuy, price, stopPct, targetPct)
			sellStop, sellTarget := DerivePrices(models.OrderSideSell, price, stopPct, targetPct)
			// The SELL stop sits as far above as the BUY stop sits below
			return math.Abs((price-buyStop)-(sellStop-price)) < 1e-9*price &&
				math.Abs((buyTarget-price)-(price-sellTarget)) < 1e-9*price
		},
		gen.Float64Range(0.05, 1e6),
		gen.Float64Range(0.01, 0.99),
		gen.Float64Range(0.01, 0.99),
	))

	properties.TestingRun(t)
}

func TestDerivePricesDefaults(t *testing.T) {
	stop, target := DerivePrices(models.OrderSideBuy, 100, 0.15, 0.15)
	if stop != 85 || target != 115 {
		t.Errorf("DerivePrices(BUY, 100, 0.15, 0.15) = %v, %v, want 85, 115", stop, target)
	}
}
