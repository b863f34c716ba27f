package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/CasteSan/investment-tracker/date"
	"github.com/CasteSan/investment-tracker/log"
)

// Config is the engine's complete construction-time configuration. There is
// no process-global state; two engines with different strategies can replay
// the same ledger concurrently.
type Config struct {
	// "FIFO" or "LIFO". Empty defaults to FIFO.
	Strategy string
	// Months on each side of a loss-making sale in which a repurchase
	// makes the loss non-deductible. Zero defaults to 2.
	WashSaleWindowMonths int
	// Progressive rate table. Nil defaults to the Spanish savings table.
	Brackets TaxBrackets
}

// Engine derives lot state, realized gains, positions and fiscal summaries
// from a transaction ledger. It is stateless across calls: every query
// replays the full ledger from scratch. Correct by construction beats
// incremental at personal-portfolio scale.
type Engine struct {
	strategy         LotSelectionStrategy
	washWindowMonths int
	brackets         TaxBrackets
}

func NewEngine(cfg Config) (*Engine, error) {
	strategyName := cfg.Strategy
	if strategyName == "" {
		strategyName = "FIFO"
	}
	strategy, err := StrategyForName(strategyName)
	if err != nil {
		return nil, err
	}

	windowMonths := cfg.WashSaleWindowMonths
	if windowMonths == 0 {
		windowMonths = DefaultWashSaleWindowMonths
	}
	if windowMonths < 0 {
		return nil, fmt.Errorf("negative wash sale window (%d months)", windowMonths)
	}

	brackets := cfg.Brackets
	if brackets == nil {
		brackets = DefaultSpanishSavingsBrackets()
	}
	if err := brackets.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tax brackets: %w", err)
	}

	return &Engine{
		strategy:         strategy,
		washWindowMonths: windowMonths,
		brackets:         brackets,
	}, nil
}

// ReplayResult is everything one full pass over the ledger produces. Sales
// are already wash-sale annotated.
type ReplayResult struct {
	Sales     []*RealizedSale
	Transfers []*TransferOutcome
	OpenLots  map[string][]*Lot
}

// Replay runs the full ledger through a fresh lot tracker. The input must
// already be in chronological order (ties broken by read index); anything
// else fails with OutOfOrderTransactionError.
func (e *Engine) Replay(txs []*Tx) (*ReplayResult, error) {
	tracker := NewLotTracker(e.strategy)
	sales := make([]*RealizedSale, 0, len(txs)/4)
	transfers := make([]*TransferOutcome, 0)

	for _, tx := range txs {
		sale, transfer, err := tracker.Apply(tx)
		if err != nil {
			return nil, err
		}
		if sale != nil {
			sales = append(sales, sale)
		}
		if transfer != nil {
			transfers = append(transfers, transfer)
		}
	}
	log.Verbosef("replayed %d transactions: %d sales, %d transfers out\n",
		len(txs), len(sales), len(transfers))

	return &ReplayResult{
		Sales:     AnnotateWashSales(sales, txs, e.washWindowMonths),
		Transfers: transfers,
		OpenLots:  tracker.AllOpenLots(),
	}, nil
}

// Positions replays the ledger and summarizes the open lots per instrument,
// valued with the externally supplied prices (accounting currency, keyed by
// instrument).
func (e *Engine) Positions(txs []*Tx, prices map[string]decimal.Decimal) ([]*Position, error) {
	result, err := e.Replay(txs)
	if err != nil {
		return nil, err
	}
	return BuildPositions(result.OpenLots, prices), nil
}

// FiscalYearSummaries replays the ledger and aggregates realized results by
// calendar year, net of wash-sale disallowed losses.
func (e *Engine) FiscalYearSummaries(txs []*Tx) (map[int]*FiscalYearSummary, error) {
	result, err := e.Replay(txs)
	if err != nil {
		return nil, err
	}
	return SummarizeFiscalYears(result.Sales, e.brackets), nil
}

// FiscalYearSummary returns the summary for a single year. A year with no
// sales yields an all-zero summary rather than an error.
func (e *Engine) FiscalYearSummary(txs []*Tx, year int) (*FiscalYearSummary, error) {
	summaries, err := e.FiscalYearSummaries(txs)
	if err != nil {
		return nil, err
	}
	if summary, ok := summaries[year]; ok {
		return summary, nil
	}
	return &FiscalYearSummary{
		Year:                year,
		TotalGains:          decimal.Zero,
		TotalLosses:         decimal.Zero,
		NonDeductibleLosses: decimal.Zero,
		NetTaxableBase:      decimal.Zero,
		EstimatedTax:        decimal.Zero,
		ByQuarter:           make(map[int]decimal.Decimal),
	}, nil
}

// SaleSimulation previews the tax impact of a hypothetical sale before it
// is executed.
type SaleSimulation struct {
	Sale            *RealizedSale
	AvailableBefore decimal.Decimal
	EstimatedTax    decimal.Decimal
	NetAfterTax     decimal.Decimal
	// True when a repurchase inside the window would make a loss on this
	// sale non-deductible.
	WashSaleWarning bool
}

const simulatedSaleTxId = "simulated-sale"

// SimulateSale appends a synthetic SELL to an in-memory copy of the ledger
// and replays it. The caller's slice is never mutated and nothing is
// persisted. The sale date must not precede the last ledger entry.
func (e *Engine) SimulateSale(
	txs []*Tx, instrument string, quantity decimal.Decimal,
	unitPrice decimal.Decimal, commission decimal.Decimal,
	saleDate date.Date) (*SaleSimulation, error) {

	if !quantity.IsPositive() {
		return nil, fmt.Errorf("simulated sale quantity must be positive, got %s", quantity)
	}

	var maxReadIndex uint32
	for _, tx := range txs {
		if tx.ReadIndex > maxReadIndex {
			maxReadIndex = tx.ReadIndex
		}
	}
	simTx := &Tx{
		Id:                      simulatedSaleTxId,
		Instrument:              instrument,
		Date:                    saleDate,
		Kind:                    SELL,
		Quantity:                quantity,
		UnitPrice:               unitPrice,
		Commission:              commission,
		Currency:                DEFAULT_CURRENCY,
		CurrToLocalExchangeRate: decimal.NewFromInt(1),
		Memo:                    "simulated sale",
		ReadIndex:               maxReadIndex + 1,
	}

	simTxs := make([]*Tx, 0, len(txs)+1)
	simTxs = append(simTxs, txs...)
	simTxs = append(simTxs, simTx)

	// Available quantity before the simulated sale, for the preview.
	baseResult, err := e.Replay(txs)
	if err != nil {
		return nil, err
	}
	available := decimal.Zero
	for _, lot := range baseResult.OpenLots[instrument] {
		available = available.Add(lot.QuantityRemaining)
	}

	result, err := e.Replay(simTxs)
	if err != nil {
		return nil, err
	}
	var sale *RealizedSale
	for _, s := range result.Sales {
		if s.SaleTxId == simulatedSaleTxId {
			sale = s
			break
		}
	}
	if sale == nil {
		return nil, fmt.Errorf("simulated sale of %s did not produce a realized sale", instrument)
	}

	sim := &SaleSimulation{
		Sale:            sale,
		AvailableBefore: available,
		EstimatedTax:    decimal.Zero,
		NetAfterTax:     sale.Gain,
		WashSaleWarning: IsWashSale(instrument, saleDate, txs, e.washWindowMonths),
	}
	if sale.Gain.IsPositive() {
		sim.EstimatedTax = e.brackets.CalculateTax(sale.Gain)
		sim.NetAfterTax = sale.Gain.Sub(sim.EstimatedTax)
	} else if sim.WashSaleWarning {
		// The loss would not be deductible.
		sim.NetAfterTax = decimal.Zero
	}
	return sim, nil
}
