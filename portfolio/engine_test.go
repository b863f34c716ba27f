package portfolio

import (
	"testing"

	"github.com/stretchr/testify/require"

	decimal_opt "github.com/CasteSan/investment-tracker/decimal_value"
)

func mustEngine(t *testing.T, cfg Config) *Engine {
	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	return engine
}

func TestNewEngineDefaults(t *testing.T) {
	rq := require.New(t)

	engine := mustEngine(t, Config{})
	rq.Equal("FIFO", engine.strategy.Name())
	rq.Equal(DefaultWashSaleWindowMonths, engine.washWindowMonths)
	rq.Len(engine.brackets, len(DefaultSpanishSavingsBrackets()))
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	rq := require.New(t)

	_, err := NewEngine(Config{Strategy: "HIFO"})
	var stratErr *UnknownStrategyError
	rq.ErrorAs(err, &stratErr)
	rq.Equal("HIFO", stratErr.Name)

	_, err = NewEngine(Config{WashSaleWindowMonths: -1})
	rq.Error(err)

	_, err = NewEngine(Config{Brackets: TaxBrackets{
		{UpTo: decimal_opt.NewFromInt(6000), Rate: dec("0.19")},
	}})
	rq.ErrorContains(err, "invalid tax brackets")
}

func TestReplayEndToEnd(t *testing.T) {
	rq := require.New(t)

	engine := mustEngine(t, Config{Strategy: "FIFO"})
	result, err := engine.Replay([]*Tx{
		TTx{Id: "b1", TDay: 1, Kind: BUY, Qty: "100", Price: "10"}.X(),
		TTx{Id: "b2", TDay: 30, Kind: BUY, Qty: "50", Price: "12"}.X(),
		TTx{Id: "s1", TDay: 60, Kind: SELL, Qty: "120", Price: "15"}.X(),
	})
	rq.NoError(err)

	rq.Len(result.Sales, 1)
	sale := result.Sales[0]
	// 120×15 − (100×10 + 20×12)
	rqDecEq(t, "1800", sale.Proceeds)
	rqDecEq(t, "1240", sale.CostBasis)
	rqDecEq(t, "560", sale.Gain)
	crq := NewCustomRequire(t)
	crq.Equal([]LotConsumption{
		{LotOriginTxId: "b1", AcquisitionDate: mkDate(1), Quantity: dec("100"),
			UnitCost: dec("10"), CostBasis: dec("1000"), Commission: dec("0")},
		{LotOriginTxId: "b2", AcquisitionDate: mkDate(30), Quantity: dec("20"),
			UnitCost: dec("12"), CostBasis: dec("240"), Commission: dec("0")},
	}, sale.Consumed)

	lots := result.OpenLots[defaultTestInstrument]
	rq.Len(lots, 1)
	rqDecEq(t, "30", lots[0].QuantityRemaining)
}

func TestReplayAnnotatesWashSales(t *testing.T) {
	rq := require.New(t)

	engine := mustEngine(t, Config{})
	result, err := engine.Replay([]*Tx{
		TTx{Id: "b1", TDay: 1, Kind: BUY, Qty: "50", Price: "20"}.X(),
		TTx{Id: "s1", TDay: 100, Kind: SELL, Qty: "50", Price: "10"}.X(),
		TTx{Id: "b2", TDay: 120, Kind: BUY, Qty: "50", Price: "9"}.X(),
	})
	rq.NoError(err)

	rq.Len(result.Sales, 1)
	rqDecEq(t, "-500", result.Sales[0].Gain)
	rqDecEq(t, "500", result.Sales[0].WashSaleDisallowed)
}

func TestReplayRejectsUnorderedLedger(t *testing.T) {
	rq := require.New(t)

	engine := mustEngine(t, Config{})
	_, err := engine.Replay([]*Tx{
		TTx{Id: "b1", TDay: 10, Kind: BUY, Qty: "10", Price: "10"}.X(),
		TTx{Id: "b2", TDay: 5, Kind: BUY, Qty: "10", Price: "10"}.X(),
	})
	var orderErr *OutOfOrderTransactionError
	rq.ErrorAs(err, &orderErr)
	rq.Equal("b2", orderErr.TxId)
}

func TestEngineFiscalYearSummaries(t *testing.T) {
	rq := require.New(t)

	engine := mustEngine(t, Config{Brackets: testBrackets()})
	summaries, err := engine.FiscalYearSummaries([]*Tx{
		TTx{Id: "b1", TDay: 1, Kind: BUY, Qty: "100", Price: "10"}.X(),
		TTx{Id: "s1", TDay: 200, Kind: SELL, Qty: "100", Price: "20"}.X(),
	})
	rq.NoError(err)
	rq.Len(summaries, 1)
	rqDecEq(t, "1000", summaries[2024].NetTaxableBase)
	rqDecEq(t, "190", summaries[2024].EstimatedTax)
}

func TestEngineFiscalYearSummaryEmptyYear(t *testing.T) {
	rq := require.New(t)

	engine := mustEngine(t, Config{})
	summary, err := engine.FiscalYearSummary([]*Tx{
		TTx{Id: "b1", TDay: 1, Kind: BUY, Qty: "10", Price: "10"}.X(),
	}, 2019)
	rq.NoError(err)
	rq.Equal(2019, summary.Year)
	rq.Equal(0, summary.SaleCount)
	rqDecEq(t, "0", summary.EstimatedTax)
}

func TestSimulateSaleGain(t *testing.T) {
	rq := require.New(t)

	txs := []*Tx{
		TTx{Id: "b1", TDay: 1, Kind: BUY, Qty: "100", Price: "10"}.X(),
	}
	engine := mustEngine(t, Config{Brackets: testBrackets()})
	sim, err := engine.SimulateSale(txs, defaultTestInstrument,
		dec("100"), dec("20"), dec("0"), mkDate(200))
	rq.NoError(err)

	rqDecEq(t, "100", sim.AvailableBefore)
	rqDecEq(t, "1000", sim.Sale.Gain)
	rqDecEq(t, "190", sim.EstimatedTax)
	rqDecEq(t, "810", sim.NetAfterTax)
	rq.False(sim.WashSaleWarning)

	// The caller's ledger is untouched.
	rq.Len(txs, 1)
	result, err := engine.Replay(txs)
	rq.NoError(err)
	rq.Empty(result.Sales)
}

func TestSimulateSaleWashWarning(t *testing.T) {
	rq := require.New(t)

	// A recent buy sits inside the wash window of the simulated loss-making
	// sale, so the loss would not be deductible.
	txs := []*Tx{
		TTx{Id: "b1", TDay: 1, Kind: BUY, Qty: "100", Price: "20"}.X(),
		TTx{Id: "b2", TDay: 170, Kind: BUY, Qty: "10", Price: "11"}.X(),
	}
	engine := mustEngine(t, Config{})
	sim, err := engine.SimulateSale(txs, defaultTestInstrument,
		dec("50"), dec("10"), dec("0"), mkDate(200))
	rq.NoError(err)

	rq.True(sim.WashSaleWarning)
	rqDecEq(t, "-500", sim.Sale.Gain)
	rqDecEq(t, "0", sim.EstimatedTax)
	rqDecEq(t, "0", sim.NetAfterTax)
}

func TestSimulateSaleInsufficientInventory(t *testing.T) {
	rq := require.New(t)

	engine := mustEngine(t, Config{})
	_, err := engine.SimulateSale([]*Tx{
		TTx{Id: "b1", TDay: 1, Kind: BUY, Qty: "10", Price: "10"}.X(),
	}, defaultTestInstrument, dec("50"), dec("10"), dec("0"), mkDate(100))

	var invErr *InsufficientInventoryError
	rq.ErrorAs(err, &invErr)
	rqDecEq(t, "10", invErr.Available)
	rqDecEq(t, "50", invErr.Requested)
}

func TestSimulateSaleRejectsNonPositiveQuantity(t *testing.T) {
	engine := mustEngine(t, Config{})
	_, err := engine.SimulateSale(nil, defaultTestInstrument,
		dec("0"), dec("10"), dec("0"), mkDate(100))
	require.Error(t, err)
}
