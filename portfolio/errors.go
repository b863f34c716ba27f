package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/CasteSan/investment-tracker/date"
)

// The engine's error taxonomy. All are raised synchronously at the point of
// violation and propagate to the caller unmodified; the engine never
// recovers from them internally, and a failed transaction applies nothing.

// InsufficientInventoryError: a SELL or TRANSFER_OUT requested more quantity
// than is currently held. The engine never clamps to the available quantity.
type InsufficientInventoryError struct {
	Instrument string
	Requested  decimal.Decimal
	Available  decimal.Decimal
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf(
		"insufficient inventory of %s: requested %s, %s available",
		e.Instrument, e.Requested, e.Available)
}

// InvalidTransferError: a TRANSFER_IN is missing its inherited cost basis or
// the original acquisition date. The caller (the pairing collaborator) must
// supply both.
type InvalidTransferError struct {
	TxId   string
	Reason string
}

func (e *InvalidTransferError) Error() string {
	return fmt.Sprintf("invalid transfer in transaction %s: %s", e.TxId, e.Reason)
}

// OutOfOrderTransactionError: the input sequence violates the required
// chronological ordering. Reordering transactions of the same instrument can
// change which lots are consumed, so the engine rejects rather than sorts.
type OutOfOrderTransactionError struct {
	TxId     string
	TxDate   date.Date
	PrevDate date.Date
}

func (e *OutOfOrderTransactionError) Error() string {
	return fmt.Sprintf(
		"transaction %s on %s is out of order (previous transaction was on %s)",
		e.TxId, e.TxDate, e.PrevDate)
}

// UnknownStrategyError: configuration named a lot selection strategy the
// engine does not implement.
type UnknownStrategyError struct {
	Name string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown lot selection strategy %q (want FIFO or LIFO)", e.Name)
}
