package portfolio

import (
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/CasteSan/investment-tracker/date"
)

func parseCsv(t *testing.T, csvText string) []*Tx {
	t.Helper()
	txs, err := ParseTxCsv(strings.NewReader(csvText), "test.csv", 0)
	require.NoError(t, err)
	return txs
}

func TestParseTxCsvAllColumns(t *testing.T) {
	rq := require.New(t)

	txs := parseCsv(t, `id,instrument,date,kind,quantity,price,commission,currency,exchange rate,inherited cost basis,acquisition date,transfer link,memo
tx-1,FOO,2024-01-15,buy,100,10.50,2.95,USD,1.31,,,,first buy
tx-2,FOO,2024-02-20,transfer_in,50,,,,,525.00,2023-06-01,xfer-1,from old broker
`)
	rq.Len(txs, 2)

	buy := txs[0]
	rq.Equal("tx-1", buy.Id)
	rq.Equal("FOO", buy.Instrument)
	rq.Equal(date.MustParseDefault("2024-01-15"), buy.Date)
	rq.Equal(BUY, buy.Kind)
	rqDecEq(t, "100", buy.Quantity)
	rqDecEq(t, "10.50", buy.UnitPrice)
	rqDecEq(t, "2.95", buy.Commission)
	rq.Equal(USD, buy.Currency)
	rqDecEq(t, "1.31", buy.CurrToLocalExchangeRate)
	rq.False(buy.InheritedCostBasis.Present())
	rq.Equal("first buy", buy.Memo)

	xfer := txs[1]
	rq.Equal(TRANSFER_IN, xfer.Kind)
	rq.True(xfer.InheritedCostBasis.Present())
	rqDecEq(t, "525.00", xfer.InheritedCostBasis.MustGet())
	rq.Equal(date.MustParseDefault("2023-06-01"), xfer.AcquisitionDate.MustGet())
	rq.Equal("xfer-1", xfer.TransferLinkId)
	// Unset rate defaults to the local currency.
	rqDecEq(t, "1", xfer.CurrToLocalExchangeRate)
}

func TestParseTxCsvMintsIdsWhenAbsent(t *testing.T) {
	rq := require.New(t)

	txs := parseCsv(t, `instrument,date,kind,quantity,price
FOO,2024-01-15,buy,100,10
FOO,2024-01-16,buy,100,10
`)
	rq.Len(txs, 2)
	rq.NotEmpty(txs[0].Id)
	rq.NotEqual(txs[0].Id, txs[1].Id)
	_, err := ulid.Parse(txs[0].Id)
	rq.NoError(err)
}

func TestParseTxCsvReadIndexSequence(t *testing.T) {
	rq := require.New(t)

	txs, err := ParseTxCsv(strings.NewReader(`instrument,date,kind,quantity,price
FOO,2024-01-15,buy,100,10
FOO,2024-01-16,sell,50,12
`), "test.csv", 7)
	rq.NoError(err)
	rq.Equal(uint32(7), txs[0].ReadIndex)
	rq.Equal(uint32(8), txs[1].ReadIndex)
}

func TestParseTxCsvRejectsBadKind(t *testing.T) {
	_, err := ParseTxCsv(strings.NewReader(`instrument,date,kind,quantity,price
FOO,2024-01-15,short,100,10
`), "test.csv", 0)
	require.ErrorContains(t, err, "invalid transaction kind")
}

func TestParseTxCsvSanityChecks(t *testing.T) {
	rq := require.New(t)

	_, err := ParseTxCsv(strings.NewReader(`instrument,date,kind,quantity,price
FOO,2024-01-15,buy,0,10
`), "test.csv", 0)
	rq.ErrorContains(err, "quantity must be positive")

	_, err = ParseTxCsv(strings.NewReader(`instrument,date,kind,quantity,price,commission
FOO,2024-01-15,buy,10,10,-1
`), "test.csv", 0)
	rq.ErrorContains(err, "commission is negative")

	_, err = ParseTxCsv(strings.NewReader(`date,kind,quantity,price
2024-01-15,buy,10,10
`), "test.csv", 0)
	rq.ErrorContains(err, "no instrument")
}

func TestParseTxCsvDividendQuantityOptional(t *testing.T) {
	txs := parseCsv(t, `instrument,date,kind,quantity,price
FOO,2024-03-15,dividend,,
`)
	require.Equal(t, DIVIDEND, txs[0].Kind)
	rqDecEq(t, "0", txs[0].Quantity)
}

func TestParseTxCsvSkipsUnknownColumns(t *testing.T) {
	txs := parseCsv(t, `instrument,date,kind,quantity,price,broker notes
FOO,2024-01-15,buy,100,10,ignore me
`)
	require.Len(t, txs, 1)
	require.Equal(t, "", txs[0].Memo)
}

func TestSortTxsByDateThenReadIndex(t *testing.T) {
	rq := require.New(t)

	txs := []*Tx{
		TTx{Id: "c", TDay: 5, Kind: BUY, Qty: "1", Price: "1", RIdx: 2}.X(),
		TTx{Id: "a", TDay: 1, Kind: BUY, Qty: "1", Price: "1", RIdx: 1}.X(),
		TTx{Id: "b", TDay: 5, Kind: BUY, Qty: "1", Price: "1", RIdx: 1}.X(),
	}
	sorted := SortTxs(txs)
	rq.Equal("a", sorted[0].Id)
	rq.Equal("b", sorted[1].Id)
	rq.Equal("c", sorted[2].Id)
}

func TestSplitTxsByInstrument(t *testing.T) {
	rq := require.New(t)

	txs := []*Tx{
		TTx{Id: "1", TDay: 1, Instr: "AAA", Kind: BUY, Qty: "1", Price: "1"}.X(),
		TTx{Id: "2", TDay: 2, Instr: "BBB", Kind: BUY, Qty: "1", Price: "1"}.X(),
		TTx{Id: "3", TDay: 3, Instr: "AAA", Kind: SELL, Qty: "1", Price: "2"}.X(),
	}
	byInstr := SplitTxsByInstrument(txs)
	rq.Len(byInstr, 2)
	rq.Len(byInstr["AAA"], 2)
	rq.Len(byInstr["BBB"], 1)
	rq.Equal("1", byInstr["AAA"][0].Id)
	rq.Equal("3", byInstr["AAA"][1].Id)
}
