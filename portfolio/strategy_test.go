package portfolio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mkLot(qty string, cost string, acqDay int, readIdx uint32) *Lot {
	return &Lot{
		Instrument:        defaultTestInstrument,
		QuantityRemaining: dec(qty),
		UnitCost:          dec(cost),
		AcquisitionDate:   mkDate(acqDay),
		OriginTxId:        "lot-origin",
		OriginReadIndex:   readIdx,
	}
}

func TestStrategyForName(t *testing.T) {
	rq := require.New(t)

	s, err := StrategyForName("FIFO")
	rq.NoError(err)
	rq.Equal("FIFO", s.Name())

	s, err = StrategyForName("lifo")
	rq.NoError(err)
	rq.Equal("LIFO", s.Name())

	_, err = StrategyForName("HIFO")
	rq.Error(err)
	var unknownErr *UnknownStrategyError
	rq.ErrorAs(err, &unknownErr)
	rq.Equal("HIFO", unknownErr.Name)
}

func TestFifoSelectsOldestFirst(t *testing.T) {
	rq := require.New(t)

	lots := []*Lot{
		mkLot("10", "5", 30, 2),
		mkLot("10", "4", 10, 1),
		mkLot("10", "6", 20, 3),
	}

	sels, err := FifoStrategy{}.SelectLots(lots, dec("15"))
	rq.NoError(err)
	rq.Len(sels, 2)
	rq.Equal(mkDate(10), sels[0].Lot.AcquisitionDate)
	rqDecEq(t, "10", sels[0].Quantity)
	rq.Equal(mkDate(20), sels[1].Lot.AcquisitionDate)
	rqDecEq(t, "5", sels[1].Quantity)
}

func TestLifoSelectsNewestFirst(t *testing.T) {
	rq := require.New(t)

	lots := []*Lot{
		mkLot("10", "5", 30, 2),
		mkLot("10", "4", 10, 1),
		mkLot("10", "6", 20, 3),
	}

	sels, err := LifoStrategy{}.SelectLots(lots, dec("15"))
	rq.NoError(err)
	rq.Len(sels, 2)
	rq.Equal(mkDate(30), sels[0].Lot.AcquisitionDate)
	rqDecEq(t, "10", sels[0].Quantity)
	rq.Equal(mkDate(20), sels[1].Lot.AcquisitionDate)
	rqDecEq(t, "5", sels[1].Quantity)
}

func TestSelectionTieBreaksByCreationOrder(t *testing.T) {
	rq := require.New(t)

	// Same acquisition date; FIFO must take the earlier-created lot first,
	// LIFO the later-created one.
	lots := []*Lot{
		mkLot("10", "5", 10, 7),
		mkLot("10", "4", 10, 3),
	}

	sels, err := FifoStrategy{}.SelectLots(lots, dec("10"))
	rq.NoError(err)
	rq.Len(sels, 1)
	rq.Equal(uint32(3), sels[0].Lot.OriginReadIndex)

	sels, err = LifoStrategy{}.SelectLots(lots, dec("10"))
	rq.NoError(err)
	rq.Len(sels, 1)
	rq.Equal(uint32(7), sels[0].Lot.OriginReadIndex)
}

func TestSelectionTotalsExactlyRequested(t *testing.T) {
	rq := require.New(t)

	lots := []*Lot{
		mkLot("3.5", "5", 10, 1),
		mkLot("2.25", "4", 20, 2),
		mkLot("1", "6", 30, 3),
	}

	sels, err := FifoStrategy{}.SelectLots(lots, dec("5.75"))
	rq.NoError(err)
	total := dec("0")
	for _, sel := range sels {
		total = total.Add(sel.Quantity)
	}
	rqDecEq(t, "5.75", total)
	// Only the final lot is partial.
	rqDecEq(t, "3.5", sels[0].Quantity)
	rqDecEq(t, "2.25", sels[1].Quantity)
}

func TestSelectionInsufficientInventory(t *testing.T) {
	rq := require.New(t)

	lots := []*Lot{mkLot("10", "5", 10, 1)}
	_, err := FifoStrategy{}.SelectLots(lots, dec("10.0001"))
	rq.Error(err)
	var invErr *InsufficientInventoryError
	rq.ErrorAs(err, &invErr)
	rq.Equal(defaultTestInstrument, invErr.Instrument)
	rqDecEq(t, "10.0001", invErr.Requested)
	rqDecEq(t, "10", invErr.Available)

	// Selection must not have consumed anything.
	rqDecEq(t, "10", lots[0].QuantityRemaining)
}

func TestSelectionDoesNotReorderInput(t *testing.T) {
	rq := require.New(t)

	lots := []*Lot{
		mkLot("10", "5", 30, 2),
		mkLot("10", "4", 10, 1),
	}
	_, err := FifoStrategy{}.SelectLots(lots, dec("5"))
	rq.NoError(err)
	rq.Equal(mkDate(30), lots[0].AcquisitionDate)
	rq.Equal(mkDate(10), lots[1].AcquisitionDate)
}
