package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	decimal_opt "github.com/CasteSan/investment-tracker/decimal_value"
	"github.com/CasteSan/investment-tracker/util"
)

// BuildPositions summarizes open lots into one Position per instrument,
// sorted by instrument. Prices are externally supplied, keyed by
// instrument, in the accounting currency; a held instrument with no price
// gets Null market value and unrealized gain rather than a silent zero.
//
// A fully disposed instrument still yields a (closed) Position with zero
// quantity and zero weighted average cost.
func BuildPositions(openLots map[string][]*Lot, prices map[string]decimal.Decimal) []*Position {
	instruments := util.MapKeys(openLots)
	sort.Strings(instruments)

	positions := make([]*Position, 0, len(instruments))
	for _, instrument := range instruments {
		positions = append(positions, buildPosition(instrument, openLots[instrument], prices))
	}
	return positions
}

func buildPosition(instrument string, lots []*Lot, prices map[string]decimal.Decimal) *Position {
	quantity := decimal.Zero
	costBasis := decimal.Zero
	for _, lot := range lots {
		quantity = quantity.Add(lot.QuantityRemaining)
		costBasis = costBasis.Add(lot.CostBasis())
	}

	pos := &Position{
		Instrument:     instrument,
		Quantity:       quantity,
		CostBasisTotal: costBasis,
		// Zero for a closed position, not NaN and not an error.
		WeightedAvgCost: decimal.Zero,
		MarketValue:     decimal_opt.Null,
		UnrealizedGain:  decimal_opt.Null,
	}
	if quantity.IsPositive() {
		pos.WeightedAvgCost = costBasis.Div(quantity)
		if price, ok := prices[instrument]; ok {
			pos.MarketValue = decimal_opt.New(quantity.Mul(price))
			pos.UnrealizedGain = pos.MarketValue.SubD(costBasis)
		}
	} else {
		pos.MarketValue = decimal_opt.Zero
		pos.UnrealizedGain = decimal_opt.Zero
	}
	return pos
}
