package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/CasteSan/investment-tracker/date"
	"github.com/CasteSan/investment-tracker/log"
	"github.com/CasteSan/investment-tracker/util"
)

// LotTracker maintains the per-instrument queues of open lots while a ledger
// is replayed through it. It holds no state between replays; the engine
// builds a fresh tracker for every query.
type LotTracker struct {
	strategy LotSelectionStrategy
	lots     map[string][]*Lot

	haveLast      bool
	lastDate      date.Date
	lastReadIndex uint32

	// Net bought + transferred in − sold − transferred out, per instrument.
	// Σ QuantityRemaining must always equal this.
	netQuantity map[string]decimal.Decimal
}

func NewLotTracker(strategy LotSelectionStrategy) *LotTracker {
	util.Assert(strategy != nil, "NewLotTracker: nil strategy")
	return &LotTracker{
		strategy:    strategy,
		lots:        make(map[string][]*Lot),
		netQuantity: make(map[string]decimal.Decimal),
	}
}

// Apply processes the next transaction in the ledger. Exactly one of the
// returned values is non-nil for SELL (*RealizedSale) and TRANSFER_OUT
// (*TransferOutcome); both are nil for the other kinds. A failed transaction
// applies nothing.
func (t *LotTracker) Apply(tx *Tx) (*RealizedSale, *TransferOutcome, error) {
	if err := t.checkOrder(tx); err != nil {
		return nil, nil, err
	}

	var sale *RealizedSale
	var transfer *TransferOutcome
	var err error

	switch tx.Kind {
	case BUY:
		err = t.applyBuy(tx)
	case SELL:
		sale, err = t.applySell(tx)
	case TRANSFER_IN:
		err = t.applyTransferIn(tx)
	case TRANSFER_OUT:
		transfer, err = t.applyTransferOut(tx)
	case DIVIDEND:
		// No effect on lots.
	default:
		util.Assertf(false, "LotTracker.Apply: invalid kind %v", tx.Kind)
	}
	if err != nil {
		return nil, nil, err
	}

	t.haveLast = true
	t.lastDate = tx.Date
	t.lastReadIndex = tx.ReadIndex
	t.checkQuantityInvariant(tx.Instrument)
	return sale, transfer, nil
}

func (t *LotTracker) checkOrder(tx *Tx) error {
	if !t.haveLast {
		return nil
	}
	if tx.Date.Before(t.lastDate) ||
		(tx.Date.Equal(t.lastDate) && tx.ReadIndex < t.lastReadIndex) {
		return &OutOfOrderTransactionError{
			TxId: tx.Id, TxDate: tx.Date, PrevDate: t.lastDate}
	}
	return nil
}

func (t *LotTracker) checkQuantityInvariant(instrument string) {
	total := decimal.Zero
	for _, lot := range t.lots[instrument] {
		util.Assertf(lot.QuantityRemaining.IsPositive(),
			"lot %s of %s has non-positive remaining quantity %s",
			lot.OriginTxId, instrument, lot.QuantityRemaining)
		total = total.Add(lot.QuantityRemaining)
	}
	util.Assertf(total.Equal(t.netQuantity[instrument]),
		"open lots of %s total %s, but net transacted quantity is %s",
		instrument, total, t.netQuantity[instrument])
}

func (t *LotTracker) applyBuy(tx *Tx) error {
	// Commission is capitalized into the lot's cost, never expensed.
	totalCost := tx.LocalAmount(tx.Quantity.Mul(tx.UnitPrice).Add(tx.Commission))
	lot := &Lot{
		Instrument:        tx.Instrument,
		QuantityRemaining: tx.Quantity,
		UnitCost:          totalCost.Div(tx.Quantity),
		AcquisitionDate:   tx.Date,
		OriginTxId:        tx.Id,
		OriginReadIndex:   tx.ReadIndex,
	}
	t.lots[tx.Instrument] = append(t.lots[tx.Instrument], lot)
	t.netQuantity[tx.Instrument] = t.netQuantity[tx.Instrument].Add(tx.Quantity)
	log.Tracef("lots", "buy %s: new lot of %s @ %s", tx.Instrument,
		lot.QuantityRemaining, lot.UnitCost)
	return nil
}

func (t *LotTracker) applyTransferIn(tx *Tx) error {
	if !tx.InheritedCostBasis.Present() {
		return &InvalidTransferError{TxId: tx.Id,
			Reason: "transfer in has no inherited cost basis"}
	}
	if !tx.AcquisitionDate.Present() {
		return &InvalidTransferError{TxId: tx.Id,
			Reason: "transfer in has no original acquisition date"}
	}
	costBasis := tx.InheritedCostBasis.MustGet()
	if costBasis.IsNegative() {
		return &InvalidTransferError{TxId: tx.Id,
			Reason: "inherited cost basis is negative"}
	}

	// The receiving lot keeps the ORIGINAL acquisition date, not the
	// transfer date. Holding periods survive transfers.
	lot := &Lot{
		Instrument:        tx.Instrument,
		QuantityRemaining: tx.Quantity,
		UnitCost:          costBasis.Div(tx.Quantity),
		AcquisitionDate:   tx.AcquisitionDate.MustGet(),
		OriginTxId:        tx.Id,
		OriginReadIndex:   tx.ReadIndex,
	}
	t.lots[tx.Instrument] = append(t.lots[tx.Instrument], lot)
	t.netQuantity[tx.Instrument] = t.netQuantity[tx.Instrument].Add(tx.Quantity)
	return nil
}

// consume runs the selection strategy and reduces or removes the selected
// lots. The selection is computed in full before any lot is touched, so an
// error leaves the tracker unchanged.
func (t *LotTracker) consume(tx *Tx) ([]LotConsumption, error) {
	selections, err := t.strategy.SelectLots(t.lots[tx.Instrument], tx.Quantity)
	if err != nil {
		if inv, ok := err.(*InsufficientInventoryError); ok && inv.Instrument == "" {
			inv.Instrument = tx.Instrument
		}
		return nil, err
	}

	localCommission := tx.LocalAmount(tx.Commission)
	consumed := make([]LotConsumption, 0, len(selections))
	apportioned := decimal.Zero
	for i, sel := range selections {
		// Pro-rata by quantity; the last lot takes the remainder so the
		// shares sum back to the exact commission.
		var commissionShare decimal.Decimal
		if i == len(selections)-1 {
			commissionShare = localCommission.Sub(apportioned)
		} else {
			commissionShare = localCommission.Mul(sel.Quantity).Div(tx.Quantity)
		}
		apportioned = apportioned.Add(commissionShare)

		consumed = append(consumed, LotConsumption{
			LotOriginTxId:   sel.Lot.OriginTxId,
			AcquisitionDate: sel.Lot.AcquisitionDate,
			Quantity:        sel.Quantity,
			UnitCost:        sel.Lot.UnitCost,
			CostBasis:       sel.Quantity.Mul(sel.Lot.UnitCost),
			Commission:      commissionShare,
		})
		sel.Lot.QuantityRemaining = sel.Lot.QuantityRemaining.Sub(sel.Quantity)
	}

	// Destroy fully consumed lots.
	remaining := make([]*Lot, 0, len(t.lots[tx.Instrument]))
	for _, lot := range t.lots[tx.Instrument] {
		if lot.QuantityRemaining.IsPositive() {
			remaining = append(remaining, lot)
		} else {
			util.Assertf(lot.QuantityRemaining.IsZero(),
				"lot %s over-consumed to %s", lot.OriginTxId, lot.QuantityRemaining)
		}
	}
	t.lots[tx.Instrument] = remaining
	t.netQuantity[tx.Instrument] = t.netQuantity[tx.Instrument].Sub(tx.Quantity)
	return consumed, nil
}

func (t *LotTracker) applySell(tx *Tx) (*RealizedSale, error) {
	consumed, err := t.consume(tx)
	if err != nil {
		return nil, err
	}

	costBasis := decimal.Zero
	for _, c := range consumed {
		costBasis = costBasis.Add(c.CostBasis)
	}
	// Commission reduces proceeds on the sale side only; it never touches
	// the cost basis of the consumed lots.
	proceeds := tx.LocalAmount(tx.Quantity.Mul(tx.UnitPrice).Sub(tx.Commission))

	sale := &RealizedSale{
		SaleTxId:           tx.Id,
		Instrument:         tx.Instrument,
		SaleDate:           tx.Date,
		Quantity:           tx.Quantity,
		Consumed:           consumed,
		Proceeds:           proceeds,
		CostBasis:          costBasis,
		Gain:               proceeds.Sub(costBasis),
		WashSaleDisallowed: decimal.Zero,
	}
	log.Tracef("lots", "sell %s: %s lots consumed, gain %s", tx.Instrument,
		decimal.NewFromInt(int64(len(consumed))), sale.Gain)
	return sale, nil
}

func (t *LotTracker) applyTransferOut(tx *Tx) (*TransferOutcome, error) {
	consumed, err := t.consume(tx)
	if err != nil {
		return nil, err
	}

	costBasis := decimal.Zero
	earliest := consumed[0].AcquisitionDate
	for _, c := range consumed {
		costBasis = costBasis.Add(c.CostBasis)
		if c.AcquisitionDate.Before(earliest) {
			earliest = c.AcquisitionDate
		}
	}

	// No RealizedSale and no gain: a transfer is not a tax event. The
	// consumed basis and earliest original acquisition date are what the
	// paired TRANSFER_IN must inherit.
	return &TransferOutcome{
		LinkId:          tx.TransferLinkId,
		TxId:            tx.Id,
		Instrument:      tx.Instrument,
		Date:            tx.Date,
		Quantity:        tx.Quantity,
		CostBasis:       costBasis,
		AcquisitionDate: earliest,
		Consumed:        consumed,
	}, nil
}

// OpenLots returns the current open lots for an instrument, in creation
// order.
func (t *LotTracker) OpenLots(instrument string) []*Lot {
	return t.lots[instrument]
}

// AllOpenLots returns the open-lot queues for every instrument seen, fully
// consumed instruments included (with empty queues).
func (t *LotTracker) AllOpenLots() map[string][]*Lot {
	return t.lots
}

func (t *LotTracker) Instruments() []string {
	instruments := util.MapKeys(t.netQuantity)
	sort.Strings(instruments)
	return instruments
}
