package portfolio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/CasteSan/investment-tracker/date"
	"github.com/CasteSan/investment-tracker/util"
)

var CsvDateFormat string = date.DefaultFormat

type ColParser func(string, *Tx) error

var colParserMap = map[string]ColParser{
	"id":                   parseId,
	"instrument":           parseInstrument,
	"date":                 parseTxDate,
	"kind":                 parseKind,
	"quantity":             parseQuantity,
	"price":                parsePrice,
	"commission":           parseCommission,
	"currency":             parseTxCurr,
	"exchange rate":        parseTxFx,
	"inherited cost basis": parseInheritedCostBasis,
	"acquisition date":     parseAcquisitionDate,
	"transfer link":        parseTransferLink,
	"memo":                 parseMemo,
}

var ColNames []string

func init() {
	ColNames = make([]string, 0, len(colParserMap))
	for name := range colParserMap {
		ColNames = append(ColNames, name)
	}
}

func DefaultTx() *Tx {
	return &Tx{
		Instrument: "", Date: date.Date{}, Kind: NO_KIND,
		Quantity: decimal.Zero, UnitPrice: decimal.Zero, Commission: decimal.Zero,
		Currency: DEFAULT_CURRENCY, CurrToLocalExchangeRate: decimal.Zero,
	}
}

func CheckTxSanity(tx *Tx) error {
	if tx.Instrument == "" {
		return fmt.Errorf("transaction has no instrument")
	} else if (tx.Date == date.Date{}) {
		return fmt.Errorf("transaction has no date")
	} else if tx.Kind == NO_KIND {
		return fmt.Errorf("transaction has no kind (buy, sell, transfer_in, transfer_out, dividend)")
	}
	if tx.Kind != DIVIDEND && !tx.Quantity.IsPositive() {
		return fmt.Errorf("%s transaction quantity must be positive, got %s", tx.Kind, tx.Quantity)
	}
	if tx.Commission.IsNegative() {
		return fmt.Errorf("transaction commission is negative (%s)", tx.Commission)
	}
	if tx.UnitPrice.IsNegative() {
		return fmt.Errorf("transaction price is negative (%s)", tx.UnitPrice)
	}
	return nil
}

// fixupTx fills the derivable defaults: local currency rate of 1 and a
// fresh ULID when the file carries no id column.
func fixupTx(tx *Tx, readIndex uint32) {
	if tx.CurrToLocalExchangeRate.IsZero() {
		tx.CurrToLocalExchangeRate = decimal.NewFromInt(1)
	}
	if tx.Id == "" {
		tx.Id = ulid.Make().String()
	}
	tx.ReadIndex = readIndex
}

// ParseTxCsv reads ledger transactions in read order from one CSV stream.
// The header is matched case-insensitively against ColNames; unrecognized
// columns are skipped with a warning. Rates of foreign-currency rows must
// be supplied inline; there is no rate lookup.
func ParseTxCsv(reader io.Reader, desc string, firstReadIndex uint32) ([]*Tx, error) {
	csvR := csv.NewReader(reader)
	records, err := csvR.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV %s: %w", desc, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no rows found in %s", desc)
	}

	header := records[0]
	colParsers := make([]ColParser, len(header))
	for i, col := range header {
		sanCol := strings.TrimSpace(strings.ToLower(col))
		if parser, ok := colParserMap[sanCol]; ok {
			colParsers[i] = parser
		} else {
			fmt.Fprintf(os.Stderr, "Warning: unrecognized column %s\n", sanCol)
			colParsers[i] = parseNothing
		}
	}

	txs := make([]*Tx, 0, len(records)-1)
	for i, record := range records[1:] {
		tx := DefaultTx()
		for j, col := range record {
			if j >= len(colParsers) {
				break
			}
			err = colParsers[j](col, tx)
			if err != nil {
				return nil, fmt.Errorf("error parsing %s at line:col %d:%d: %w", desc, i+2, j, err)
			}
		}
		err = CheckTxSanity(tx)
		if err != nil {
			return nil, fmt.Errorf("error parsing %s at line %d: %w", desc, i+2, err)
		}
		fixupTx(tx, firstReadIndex+uint32(i))
		txs = append(txs, tx)
	}
	return txs, nil
}

func ParseTxCsvFile(fname string, firstReadIndex uint32) ([]*Tx, error) {
	fp, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return ParseTxCsv(fp, fname, firstReadIndex)
}

func parseNothing(data string, tx *Tx) error {
	return nil
}

func parseId(data string, tx *Tx) error {
	tx.Id = strings.TrimSpace(data)
	return nil
}

func parseInstrument(data string, tx *Tx) error {
	tx.Instrument = strings.TrimSpace(data)
	return nil
}

func parseTxDate(data string, tx *Tx) error {
	d, err := date.Parse(CsvDateFormat, strings.TrimSpace(data))
	if err != nil {
		return err
	}
	tx.Date = d
	return nil
}

func parseKind(data string, tx *Tx) error {
	var kind TxKind = NO_KIND
	switch strings.TrimSpace(strings.ToLower(data)) {
	case "buy":
		kind = BUY
	case "sell":
		kind = SELL
	case "transfer_in":
		kind = TRANSFER_IN
	case "transfer_out":
		kind = TRANSFER_OUT
	case "dividend":
		kind = DIVIDEND
	default:
		return fmt.Errorf("invalid transaction kind: '%s'", data)
	}
	tx.Kind = kind
	return nil
}

func parseDecimalCol(data string, name string, dest *decimal.Decimal) error {
	if strings.TrimSpace(data) == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(data))
	if err != nil {
		return fmt.Errorf("error parsing %s: %w", name, err)
	}
	*dest = d
	return nil
}

func parseQuantity(data string, tx *Tx) error {
	return parseDecimalCol(data, "quantity", &tx.Quantity)
}

func parsePrice(data string, tx *Tx) error {
	return parseDecimalCol(data, "price", &tx.UnitPrice)
}

func parseCommission(data string, tx *Tx) error {
	return parseDecimalCol(data, "commission", &tx.Commission)
}

func parseTxCurr(data string, tx *Tx) error {
	tx.Currency = Currency(strings.ToUpper(strings.TrimSpace(data)))
	return nil
}

func parseTxFx(data string, tx *Tx) error {
	return parseDecimalCol(data, "exchange rate", &tx.CurrToLocalExchangeRate)
}

func parseInheritedCostBasis(data string, tx *Tx) error {
	if strings.TrimSpace(data) == "" {
		return nil
	}
	var basis decimal.Decimal
	if err := parseDecimalCol(data, "inherited cost basis", &basis); err != nil {
		return err
	}
	tx.InheritedCostBasis = util.NewOptional(basis)
	return nil
}

func parseAcquisitionDate(data string, tx *Tx) error {
	if strings.TrimSpace(data) == "" {
		return nil
	}
	d, err := date.Parse(CsvDateFormat, strings.TrimSpace(data))
	if err != nil {
		return fmt.Errorf("error parsing acquisition date: %w", err)
	}
	tx.AcquisitionDate = util.NewOptional(d)
	return nil
}

func parseTransferLink(data string, tx *Tx) error {
	tx.TransferLinkId = strings.TrimSpace(data)
	return nil
}

func parseMemo(data string, tx *Tx) error {
	tx.Memo = data
	return nil
}
