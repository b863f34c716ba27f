package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/CasteSan/investment-tracker/date"
	"github.com/CasteSan/investment-tracker/log"
	"github.com/CasteSan/investment-tracker/util"
)

// Wash sale detection: the Spanish "regla de los dos meses". A realized
// loss is non-deductible, in whole or in part, when the same instrument was
// repurchased within a window around the loss-generating sale.
//
// The detector is deliberately decoupled from the lot tracker: it is a pure
// function of the realized sales and the full transaction timeline, so it
// can be tested and reasoned about on its own.

const DefaultWashSaleWindowMonths = 2

func GetFirstDayInWashSalePeriod(saleDate date.Date, windowMonths int) date.Date {
	return saleDate.AddMonths(-windowMonths)
}

func GetLastDayInWashSalePeriod(saleDate date.Date, windowMonths int) date.Date {
	return saleDate.AddMonths(windowMonths)
}

// quantityRepurchasedInWindow sums the quantity acquired (BUY or
// TRANSFER_IN) within the window on either side of the sale date.
// instrTxs holds the sale instrument's transactions only. Acquisitions
// dated exactly on the sale date are not counted.
func quantityRepurchasedInWindow(sale *RealizedSale, instrTxs []*Tx, windowMonths int) decimal.Decimal {
	first := GetFirstDayInWashSalePeriod(sale.SaleDate, windowMonths)
	last := GetLastDayInWashSalePeriod(sale.SaleDate, windowMonths)

	repurchased := decimal.Zero
	for _, tx := range instrTxs {
		if tx.Kind != BUY && tx.Kind != TRANSFER_IN {
			continue
		}
		if tx.Date.Before(first) || tx.Date.After(last) || tx.Date.Equal(sale.SaleDate) {
			continue
		}
		repurchased = repurchased.Add(tx.Quantity)
	}
	return repurchased
}

// AnnotateWashSales flags the non-deductible fraction of every realized
// loss and returns the sales annotated. The disallowed amount is pro-rata:
// repurchased quantity over sold quantity, capped at the full loss. Gains
// are never flagged.
//
// The input sales are not modified.
func AnnotateWashSales(sales []*RealizedSale, txs []*Tx, windowMonths int) []*RealizedSale {
	util.Assertf(windowMonths > 0, "AnnotateWashSales: window of %d months", windowMonths)

	txsByInstr := SplitTxsByInstrument(txs)
	annotated := make([]*RealizedSale, 0, len(sales))
	for _, sale := range sales {
		saleCopy := *sale
		saleCopy.WashSaleDisallowed = decimal.Zero
		if sale.IsLoss() {
			repurchased := quantityRepurchasedInWindow(sale, txsByInstr[sale.Instrument], windowMonths)
			if repurchased.IsPositive() {
				loss := sale.Gain.Neg()
				if repurchased.GreaterThanOrEqual(sale.Quantity) {
					saleCopy.WashSaleDisallowed = loss
				} else {
					saleCopy.WashSaleDisallowed = loss.Mul(repurchased).Div(sale.Quantity)
				}
				log.Tracef("washsale",
					"sale %s of %s: %s repurchased in window, %s of loss disallowed",
					sale.SaleTxId, sale.Instrument, repurchased, saleCopy.WashSaleDisallowed)
			}
		}
		annotated = append(annotated, &saleCopy)
	}
	return annotated
}

// IsWashSale reports whether a hypothetical loss-making sale of the
// instrument on saleDate would currently fall foul of the repurchase rule.
// Used by the sale simulation to warn before any loss is realized.
func IsWashSale(instrument string, saleDate date.Date, txs []*Tx, windowMonths int) bool {
	probe := &RealizedSale{Instrument: instrument, SaleDate: saleDate}
	instrTxs := SplitTxsByInstrument(txs)[instrument]
	return quantityRepurchasedInWindow(probe, instrTxs, windowMonths).IsPositive()
}
