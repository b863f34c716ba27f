package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/CasteSan/investment-tracker/date"
	decimal_opt "github.com/CasteSan/investment-tracker/decimal_value"
	"github.com/CasteSan/investment-tracker/util"
)

type Currency string

const (
	DEFAULT_CURRENCY Currency = ""
	EUR              Currency = "EUR"
	USD              Currency = "USD"
)

type TxKind int

const (
	NO_KIND TxKind = iota
	BUY
	SELL
	TRANSFER_IN
	TRANSFER_OUT
	DIVIDEND // Carried in the ledger, ignored by the lot engine
)

func (k TxKind) String() string {
	switch k {
	case BUY:
		return "Buy"
	case SELL:
		return "Sell"
	case TRANSFER_IN:
		return "TransferIn"
	case TRANSFER_OUT:
		return "TransferOut"
	case DIVIDEND:
		return "Dividend"
	default:
		return "Invalid"
	}
}

// Tx is an externally supplied ledger transaction. Immutable once built.
//
// All monetary amounts are in the transaction's Currency;
// CurrToLocalExchangeRate is the multiplier into the portfolio's accounting
// currency. InheritedCostBasis and AcquisitionDate are only meaningful on
// TRANSFER_IN, and are already expressed in the accounting currency.
type Tx struct {
	Id                      string
	Instrument              string
	Date                    date.Date
	Kind                    TxKind
	Quantity                decimal.Decimal
	UnitPrice               decimal.Decimal
	Commission              decimal.Decimal
	Currency                Currency
	CurrToLocalExchangeRate decimal.Decimal
	InheritedCostBasis      util.Optional[decimal.Decimal]
	AcquisitionDate         util.Optional[date.Date]
	TransferLinkId          string
	Memo                    string

	// Ledger insertion order. Breaks date ties so that lot consumption
	// stays deterministic.
	ReadIndex uint32
}

// LocalAmount converts an amount in the Tx currency to the accounting
// currency.
func (t *Tx) LocalAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(t.CurrToLocalExchangeRate)
}

// Lot is a quantity of an instrument acquired at one date and unit cost,
// tracked until fully disposed of. UnitCost and AcquisitionDate never change
// after creation; QuantityRemaining only shrinks.
type Lot struct {
	Instrument        string
	QuantityRemaining decimal.Decimal
	UnitCost          decimal.Decimal
	AcquisitionDate   date.Date
	OriginTxId        string
	OriginReadIndex   uint32
}

func (l *Lot) CostBasis() decimal.Decimal {
	return l.QuantityRemaining.Mul(l.UnitCost)
}

// LotConsumption records the portion of one lot consumed by a disposal.
type LotConsumption struct {
	LotOriginTxId   string
	AcquisitionDate date.Date
	Quantity        decimal.Decimal
	UnitCost        decimal.Decimal
	CostBasis       decimal.Decimal
	// The disposal commission apportioned to this lot, pro-rata by quantity.
	Commission decimal.Decimal
}

// RealizedSale is the tax event produced by a SELL. The per-lot breakdown is
// retained because the wash sale rule can disallow the loss on only a
// portion of a sale.
type RealizedSale struct {
	SaleTxId   string
	Instrument string
	SaleDate   date.Date
	Quantity   decimal.Decimal
	Consumed   []LotConsumption
	Proceeds   decimal.Decimal
	CostBasis  decimal.Decimal
	Gain       decimal.Decimal
	// Zero unless flagged by the wash sale detector. Always >= 0.
	WashSaleDisallowed decimal.Decimal
}

func (s *RealizedSale) IsLoss() bool {
	return s.Gain.IsNegative()
}

// TransferOutcome is emitted by a TRANSFER_OUT instead of a RealizedSale.
// The pairing with the receiving portfolio's TRANSFER_IN (via LinkId) is an
// external concern; the engine only guarantees the consumed cost basis and
// the earliest original acquisition date are exposed here.
type TransferOutcome struct {
	LinkId          string
	TxId            string
	Instrument      string
	Date            date.Date
	Quantity        decimal.Decimal
	CostBasis       decimal.Decimal
	AcquisitionDate date.Date
	Consumed        []LotConsumption
}

// Position is a derived per-instrument view of the open lots.
// MarketValue and UnrealizedGain are Null when no current price was
// supplied for a held instrument.
type Position struct {
	Instrument      string
	Quantity        decimal.Decimal
	CostBasisTotal  decimal.Decimal
	WeightedAvgCost decimal.Decimal
	MarketValue     decimal_opt.DecimalOpt
	UnrealizedGain  decimal_opt.DecimalOpt
}

func (p *Position) Closed() bool {
	return p.Quantity.IsZero()
}

type FiscalYearSummary struct {
	Year      int
	SaleCount int
	// Sum of positive gains.
	TotalGains decimal.Decimal
	// Magnitude of realized losses (>= 0).
	TotalLosses         decimal.Decimal
	NonDeductibleLosses decimal.Decimal
	// Gains less deductible losses, floored at zero. Losses beyond gains
	// are a carry-forward concern for the caller.
	NetTaxableBase decimal.Decimal
	EstimatedTax   decimal.Decimal
	ByQuarter      map[int]decimal.Decimal
}

type txSorter struct {
	Txs []*Tx
}

func (s *txSorter) Len() int {
	return len(s.Txs)
}

func (s *txSorter) Swap(i, j int) {
	s.Txs[i], s.Txs[j] = s.Txs[j], s.Txs[i]
}

func (s *txSorter) Less(i, j int) bool {
	if s.Txs[i].Date.Equal(s.Txs[j].Date) {
		return s.Txs[i].ReadIndex < s.Txs[j].ReadIndex
	}
	return s.Txs[i].Date.Before(s.Txs[j].Date)
}

// SortTxs orders transactions chronologically, breaking date ties by read
// order. This is a boundary helper for callers which own the ordering
// concern; the engine itself rejects out-of-order input rather than
// reordering it.
func SortTxs(txs []*Tx) []*Tx {
	sorter := txSorter{Txs: txs}
	sort.Stable(&sorter)
	return sorter.Txs
}

func SplitTxsByInstrument(txs []*Tx) map[string][]*Tx {
	txsByInstr := make(map[string][]*Tx)
	for _, tx := range txs {
		instrTxs, ok := txsByInstr[tx.Instrument]
		if !ok {
			instrTxs = make([]*Tx, 0, 8)
		}
		instrTxs = append(instrTxs, tx)
		txsByInstr[tx.Instrument] = instrTxs
	}
	return txsByInstr
}
