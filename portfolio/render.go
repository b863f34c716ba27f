package portfolio

import (
	"fmt"
	"strconv"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	decimal_opt "github.com/CasteSan/investment-tracker/decimal_value"
)

// RenderCurrency is the accounting currency code used for display.
// Rendering only; the engine itself is currency-code agnostic.
var RenderCurrency = money.EUR

type _PrintHelper struct {
	PrintAllDecimals bool
}

// CurrStr formats at currency minor units with half-even rounding. This is
// the single place mid-calculation precision is collapsed for display.
func (h _PrintHelper) CurrStr(val decimal.Decimal) string {
	if h.PrintAllDecimals {
		return val.String()
	}
	rounded := val.RoundBank(2)
	return money.New(rounded.Shift(2).IntPart(), RenderCurrency).Display()
}

func (h _PrintHelper) OptCurrStr(val decimal_opt.DecimalOpt) string {
	if val.IsNull {
		return "-"
	}
	return h.CurrStr(val.Decimal)
}

func (h _PrintHelper) PlusMinusCurr(val decimal.Decimal, showPlus bool) string {
	if val.IsNegative() {
		return "-" + h.CurrStr(val.Neg())
	}
	plus := ""
	if showPlus {
		plus = "+"
	}
	return plus + h.CurrStr(val)
}

func (h _PrintHelper) QtyStr(val decimal.Decimal) string {
	return val.String()
}

type RenderTable struct {
	Header []string
	Rows   [][]string
	Footer []string
	Notes  []string
	Errors []error
}

// RenderSalesTableModel renders wash-annotated realized sales, one row per
// sale, with the per-lot breakdown folded into the lots column.
func RenderSalesTableModel(sales []*RealizedSale, renderFullValues bool) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"Instrument", "Sale Date", "Quantity", "Proceeds",
		"Cost Basis", "Gain", "Disallowed", "Lots Consumed"}

	ph := _PrintHelper{PrintAllDecimals: renderFullValues}

	sawWashSale := false
	totalGain := decimal.Zero
	for _, sale := range sales {
		washStr := "-"
		if sale.WashSaleDisallowed.IsPositive() {
			washStr = ph.CurrStr(sale.WashSaleDisallowed) + " *"
			sawWashSale = true
		}
		lotsStr := ""
		for i, c := range sale.Consumed {
			if i > 0 {
				lotsStr += "\n"
			}
			lotsStr += fmt.Sprintf("%s @ %s (%s)",
				ph.QtyStr(c.Quantity), ph.CurrStr(c.UnitCost), c.AcquisitionDate)
		}
		totalGain = totalGain.Add(sale.Gain)
		table.Rows = append(table.Rows, []string{
			sale.Instrument,
			sale.SaleDate.String(),
			ph.QtyStr(sale.Quantity),
			ph.CurrStr(sale.Proceeds),
			ph.CurrStr(sale.CostBasis),
			ph.PlusMinusCurr(sale.Gain, true),
			washStr,
			lotsStr,
		})
	}
	table.Footer = []string{"Total", "", "", "", "", ph.PlusMinusCurr(totalGain, true), "", ""}
	if sawWashSale {
		table.Notes = append(table.Notes,
			" * = loss (partially) non-deductible under the two-month repurchase rule")
	}
	return table
}

func RenderLotsTableModel(openLots map[string][]*Lot, renderFullValues bool) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"Instrument", "Acquired", "Quantity", "Unit Cost",
		"Cost Basis", "Origin Tx"}

	ph := _PrintHelper{PrintAllDecimals: renderFullValues}
	for _, instrument := range sortedLotInstruments(openLots) {
		for _, lot := range openLots[instrument] {
			table.Rows = append(table.Rows, []string{
				lot.Instrument,
				lot.AcquisitionDate.String(),
				ph.QtyStr(lot.QuantityRemaining),
				ph.CurrStr(lot.UnitCost),
				ph.CurrStr(lot.CostBasis()),
				lot.OriginTxId,
			})
		}
	}
	return table
}

func sortedLotInstruments(openLots map[string][]*Lot) []string {
	// BuildPositions already sorts; reuse its ordering.
	positions := BuildPositions(openLots, nil)
	instruments := make([]string, 0, len(positions))
	for _, pos := range positions {
		instruments = append(instruments, pos.Instrument)
	}
	return instruments
}

func RenderPositionsTableModel(positions []*Position, renderFullValues bool) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"Instrument", "Quantity", "Avg Cost", "Cost Basis",
		"Market Value", "Unrealized Gain"}

	ph := _PrintHelper{PrintAllDecimals: renderFullValues}
	sawUnpriced := false
	for _, pos := range positions {
		if pos.MarketValue.IsNull {
			sawUnpriced = true
		}
		table.Rows = append(table.Rows, []string{
			pos.Instrument,
			ph.QtyStr(pos.Quantity),
			ph.CurrStr(pos.WeightedAvgCost),
			ph.CurrStr(pos.CostBasisTotal),
			ph.OptCurrStr(pos.MarketValue),
			ph.OptCurrStr(pos.UnrealizedGain),
		})
	}
	if sawUnpriced {
		table.Notes = append(table.Notes, " - = no current price supplied for instrument")
	}
	return table
}

func RenderFiscalSummaryTableModel(summaries map[int]*FiscalYearSummary, renderFullValues bool) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"Year", "Sales", "Gains", "Losses", "Non-Deductible",
		"Taxable Base", "Estimated Tax"}

	ph := _PrintHelper{PrintAllDecimals: renderFullValues}
	for _, year := range FiscalYearsSorted(summaries) {
		summary := summaries[year]
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(summary.Year),
			strconv.Itoa(summary.SaleCount),
			"+" + ph.CurrStr(summary.TotalGains),
			"-" + ph.CurrStr(summary.TotalLosses),
			ph.CurrStr(summary.NonDeductibleLosses),
			ph.CurrStr(summary.NetTaxableBase),
			ph.CurrStr(summary.EstimatedTax),
		})
	}
	return table
}

func RenderSimulationTableModel(sim *SaleSimulation, renderFullValues bool) *RenderTable {
	ph := _PrintHelper{PrintAllDecimals: renderFullValues}
	table := &RenderTable{}
	table.Header = []string{"", ""}
	table.Rows = [][]string{
		{"Instrument", sim.Sale.Instrument},
		{"Quantity to sell", ph.QtyStr(sim.Sale.Quantity)},
		{"Available quantity", ph.QtyStr(sim.AvailableBefore)},
		{"Proceeds", ph.CurrStr(sim.Sale.Proceeds)},
		{"Cost basis", ph.CurrStr(sim.Sale.CostBasis)},
		{"Gain before tax", ph.PlusMinusCurr(sim.Sale.Gain, true)},
		{"Estimated tax", ph.CurrStr(sim.EstimatedTax)},
		{"Net after tax", ph.PlusMinusCurr(sim.NetAfterTax, true)},
	}
	if sim.WashSaleWarning {
		table.Notes = append(table.Notes,
			"Warning: a repurchase within the two-month window makes any loss on this sale non-deductible")
	}
	return table
}
