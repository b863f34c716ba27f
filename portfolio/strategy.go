package portfolio

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/CasteSan/investment-tracker/util"
)

// LotSelection pairs an open lot with the quantity to consume from it.
type LotSelection struct {
	Lot      *Lot
	Quantity decimal.Decimal
}

// LotSelectionStrategy decides which open lots a disposal consumes.
//
// SelectLots returns an ordered list of selections totalling exactly the
// requested quantity, never more, never less; only the final selected lot
// may be partially consumed. It does not modify the lots.
type LotSelectionStrategy interface {
	Name() string
	SelectLots(lots []*Lot, quantity decimal.Decimal) ([]LotSelection, error)
}

// StrategyForName returns the strategy for a (case insensitive) name.
func StrategyForName(name string) (LotSelectionStrategy, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "FIFO":
		return FifoStrategy{}, nil
	case "LIFO":
		return LifoStrategy{}, nil
	default:
		return nil, &UnknownStrategyError{Name: name}
	}
}

// Oldest acquisition date first; ties broken by lot creation order.
type FifoStrategy struct{}

func (FifoStrategy) Name() string { return "FIFO" }

func (FifoStrategy) SelectLots(lots []*Lot, quantity decimal.Decimal) ([]LotSelection, error) {
	return selectOrdered(lots, quantity, false)
}

// Newest acquisition date first; ties broken by reverse creation order.
type LifoStrategy struct{}

func (LifoStrategy) Name() string { return "LIFO" }

func (LifoStrategy) SelectLots(lots []*Lot, quantity decimal.Decimal) ([]LotSelection, error) {
	return selectOrdered(lots, quantity, true)
}

func lotOrderLess(a, b *Lot) bool {
	if a.AcquisitionDate.Equal(b.AcquisitionDate) {
		return a.OriginReadIndex < b.OriginReadIndex
	}
	return a.AcquisitionDate.Before(b.AcquisitionDate)
}

func selectOrdered(lots []*Lot, quantity decimal.Decimal, newestFirst bool) ([]LotSelection, error) {
	util.Assert(quantity.IsPositive(), "selectOrdered: quantity must be positive")

	available := decimal.Zero
	for _, lot := range lots {
		available = available.Add(lot.QuantityRemaining)
	}
	if available.LessThan(quantity) {
		instrument := ""
		if len(lots) > 0 {
			instrument = lots[0].Instrument
		}
		return nil, &InsufficientInventoryError{
			Instrument: instrument, Requested: quantity, Available: available}
	}

	ordered := make([]*Lot, len(lots))
	copy(ordered, lots)
	sort.SliceStable(ordered, func(i, j int) bool {
		if newestFirst {
			return lotOrderLess(ordered[j], ordered[i])
		}
		return lotOrderLess(ordered[i], ordered[j])
	})

	selections := make([]LotSelection, 0, 1)
	remaining := quantity
	for _, lot := range ordered {
		if !remaining.IsPositive() {
			break
		}
		take := util.MinDecimal(lot.QuantityRemaining, remaining)
		selections = append(selections, LotSelection{Lot: lot, Quantity: take})
		remaining = remaining.Sub(take)
	}
	util.Assertf(remaining.IsZero(),
		"selectOrdered: %s of requested quantity left unselected", remaining)
	return selections, nil
}
