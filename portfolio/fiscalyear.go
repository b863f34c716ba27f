package portfolio

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	decimal_opt "github.com/CasteSan/investment-tracker/decimal_value"
	"github.com/CasteSan/investment-tracker/util"
)

// TaxBracket is one rung of a progressive rate table. UpTo is the upper
// threshold of the bracket in the accounting currency; Null means
// unbounded (the top bracket).
type TaxBracket struct {
	UpTo decimal_opt.DecimalOpt
	Rate decimal.Decimal
}

type TaxBrackets []TaxBracket

// DefaultSpanishSavingsBrackets is the IRPF del ahorro table for 2024/25.
// It is only a default; the table is constructor configuration.
func DefaultSpanishSavingsBrackets() TaxBrackets {
	return TaxBrackets{
		{UpTo: decimal_opt.NewFromInt(6000), Rate: decimal.RequireFromString("0.19")},
		{UpTo: decimal_opt.NewFromInt(50000), Rate: decimal.RequireFromString("0.21")},
		{UpTo: decimal_opt.NewFromInt(200000), Rate: decimal.RequireFromString("0.23")},
		{UpTo: decimal_opt.NewFromInt(300000), Rate: decimal.RequireFromString("0.27")},
		{UpTo: decimal_opt.Null, Rate: decimal.RequireFromString("0.28")},
	}
}

func (b TaxBrackets) Validate() error {
	if len(b) == 0 {
		return fmt.Errorf("tax bracket table is empty")
	}
	prev := decimal_opt.Zero
	for i, bracket := range b {
		if bracket.Rate.IsNegative() {
			return fmt.Errorf("bracket %d has negative rate %s", i, bracket.Rate)
		}
		if bracket.UpTo.IsNull {
			if i != len(b)-1 {
				return fmt.Errorf("bracket %d is unbounded but is not the last bracket", i)
			}
			continue
		}
		if !bracket.UpTo.GreaterThan(prev) {
			return fmt.Errorf("bracket %d threshold %s does not exceed the previous threshold %s",
				i, bracket.UpTo, prev)
		}
		prev = bracket.UpTo
	}
	if !b[len(b)-1].UpTo.IsNull {
		return fmt.Errorf("last bracket must be unbounded")
	}
	return nil
}

// CalculateTax applies the table strictly marginally: each slice of the
// base is taxed at its own bracket's rate, never the whole base at the top
// rate. Non-positive bases owe nothing.
func (b TaxBrackets) CalculateTax(taxableBase decimal.Decimal) decimal.Decimal {
	if !taxableBase.IsPositive() {
		return decimal.Zero
	}

	tax := decimal.Zero
	remaining := taxableBase
	prevLimit := decimal.Zero
	for _, bracket := range b {
		if !remaining.IsPositive() {
			break
		}
		var taxableInBracket decimal.Decimal
		if bracket.UpTo.IsNull {
			taxableInBracket = remaining
		} else {
			bracketSize := bracket.UpTo.Decimal.Sub(prevLimit)
			taxableInBracket = util.MinDecimal(remaining, bracketSize)
			prevLimit = bracket.UpTo.Decimal
		}
		tax = tax.Add(taxableInBracket.Mul(bracket.Rate))
		remaining = remaining.Sub(taxableInBracket)
	}
	return tax
}

// SummarizeFiscalYears groups wash-annotated realized sales by the sale's
// calendar year and derives the taxable base and estimated tax per year.
//
// Losses in excess of gains floor the base at zero for the year; tracking
// the carry-forward of the excess is the caller's concern.
func SummarizeFiscalYears(sales []*RealizedSale, brackets TaxBrackets) map[int]*FiscalYearSummary {
	summaries := util.NewDefaultMap[int, *FiscalYearSummary](func(year int) *FiscalYearSummary {
		return &FiscalYearSummary{
			Year:                year,
			TotalGains:          decimal.Zero,
			TotalLosses:         decimal.Zero,
			NonDeductibleLosses: decimal.Zero,
			NetTaxableBase:      decimal.Zero,
			EstimatedTax:        decimal.Zero,
			ByQuarter:           make(map[int]decimal.Decimal),
		}
	})

	for _, sale := range sales {
		summary := summaries.Get(sale.SaleDate.Year())
		summary.SaleCount++
		if sale.Gain.IsNegative() {
			summary.TotalLosses = summary.TotalLosses.Add(sale.Gain.Neg())
			summary.NonDeductibleLosses = summary.NonDeductibleLosses.Add(sale.WashSaleDisallowed)
		} else {
			summary.TotalGains = summary.TotalGains.Add(sale.Gain)
		}
		quarter := sale.SaleDate.Quarter()
		summary.ByQuarter[quarter] = summary.ByQuarter[quarter].Add(sale.Gain)
	}

	result := make(map[int]*FiscalYearSummary, summaries.Len())
	summaries.ForEach(func(year int, summary *FiscalYearSummary) bool {
		deductibleLosses := summary.TotalLosses.Sub(summary.NonDeductibleLosses)
		base := summary.TotalGains.Sub(deductibleLosses)
		if base.IsNegative() {
			base = decimal.Zero
		}
		summary.NetTaxableBase = base
		summary.EstimatedTax = brackets.CalculateTax(base)
		result[year] = summary
		return true
	})
	return result
}

func FiscalYearsSorted(summaries map[int]*FiscalYearSummary) []int {
	years := util.MapKeys(summaries)
	sort.Ints(years)
	return years
}
