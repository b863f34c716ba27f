package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	decimal_opt "github.com/CasteSan/investment-tracker/decimal_value"
)

func TestPositionWeightedAvgCost(t *testing.T) {
	rq := require.New(t)

	tracker, _, _ := applyAll(t, FifoStrategy{}, []*Tx{
		TTx{Id: "b1", TDay: 1, Kind: BUY, Qty: "100", Price: "10"}.X(),
		TTx{Id: "b2", TDay: 2, Kind: BUY, Qty: "50", Price: "16"}.X(),
	})

	positions := BuildPositions(tracker.AllOpenLots(), nil)
	rq.Len(positions, 1)
	pos := positions[0]
	rq.Equal(defaultTestInstrument, pos.Instrument)
	rqDecEq(t, "150", pos.Quantity)
	rqDecEq(t, "1800", pos.CostBasisTotal)
	// (100×10 + 50×16) / 150
	rqDecEq(t, "12", pos.WeightedAvgCost)
	rq.False(pos.Closed())
}

func TestPositionUnpricedInstrumentIsNull(t *testing.T) {
	rq := require.New(t)

	tracker, _, _ := applyAll(t, FifoStrategy{}, []*Tx{
		TTx{Id: "b1", TDay: 1, Kind: BUY, Qty: "10", Price: "10"}.X(),
	})

	positions := BuildPositions(tracker.AllOpenLots(), nil)
	rq.Len(positions, 1)
	rq.True(positions[0].MarketValue.IsNull)
	rq.True(positions[0].UnrealizedGain.IsNull)
}

func TestPositionMarketValueAndUnrealizedGain(t *testing.T) {
	rq := require.New(t)

	tracker, _, _ := applyAll(t, FifoStrategy{}, []*Tx{
		TTx{Id: "b1", TDay: 1, Kind: BUY, Qty: "10", Price: "10"}.X(),
	})

	prices := map[string]decimal.Decimal{defaultTestInstrument: dec("15")}
	positions := BuildPositions(tracker.AllOpenLots(), prices)
	rq.Len(positions, 1)
	rq.True(positions[0].MarketValue.Equal(decimal_opt.NewFromInt(150)))
	rq.True(positions[0].UnrealizedGain.Equal(decimal_opt.NewFromInt(50)))
}

func TestClosedPositionHasZeroAvgCost(t *testing.T) {
	rq := require.New(t)

	tracker, _, _ := applyAll(t, FifoStrategy{}, []*Tx{
		TTx{Id: "b1", TDay: 1, Kind: BUY, Qty: "10", Price: "10"}.X(),
		TTx{Id: "s1", TDay: 2, Kind: SELL, Qty: "10", Price: "12"}.X(),
	})

	positions := BuildPositions(tracker.AllOpenLots(), nil)
	rq.Len(positions, 1)
	pos := positions[0]
	rq.True(pos.Closed())
	rqDecEq(t, "0", pos.Quantity)
	rqDecEq(t, "0", pos.WeightedAvgCost)
	rq.True(pos.MarketValue.Equal(decimal_opt.Zero))
	rq.True(pos.UnrealizedGain.Equal(decimal_opt.Zero))
}

func TestPositionsSortedByInstrument(t *testing.T) {
	rq := require.New(t)

	tracker, _, _ := applyAll(t, FifoStrategy{}, []*Tx{
		TTx{Id: "b1", TDay: 1, Instr: "ZZZ", Kind: BUY, Qty: "1", Price: "1"}.X(),
		TTx{Id: "b2", TDay: 2, Instr: "AAA", Kind: BUY, Qty: "1", Price: "1"}.X(),
		TTx{Id: "b3", TDay: 3, Instr: "MMM", Kind: BUY, Qty: "1", Price: "1"}.X(),
	})

	positions := BuildPositions(tracker.AllOpenLots(), nil)
	rq.Len(positions, 3)
	rq.Equal("AAA", positions[0].Instrument)
	rq.Equal("MMM", positions[1].Instrument)
	rq.Equal("ZZZ", positions[2].Instrument)
}
