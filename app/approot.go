package app

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/CasteSan/investment-tracker/app/outfmt"
	"github.com/CasteSan/investment-tracker/date"
	"github.com/CasteSan/investment-tracker/log"
	ptf "github.com/CasteSan/investment-tracker/portfolio"
	"github.com/CasteSan/investment-tracker/util"
)

type DescribedReader struct {
	Desc   string
	Reader io.Reader
}

// SimulateRequest describes a hypothetical sale to preview. Parsed from
// INSTRUMENT:QTY:PRICE[:COMMISSION] on the command line.
type SimulateRequest struct {
	Instrument string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	Commission decimal.Decimal
}

type Options struct {
	Config *TaxConfig

	// What to report.
	ShowSales     bool
	ShowLots      bool
	ShowPositions bool
	ShowFiscal    bool
	FiscalYear    int // 0 = all years
	Simulate      *SimulateRequest

	// Externally supplied current prices, accounting currency, keyed by
	// instrument. Only used for the positions view.
	Prices map[string]decimal.Decimal

	RenderFullValues bool
}

// loadLedger reads and orders the full transaction ledger from the CSV
// readers. Sorting is a boundary concern: the engine itself only accepts
// ordered input.
func loadLedger(csvReaders []DescribedReader, errPrinter log.ErrorPrinter) ([]*ptf.Tx, error) {
	allTxs := make([]*ptf.Tx, 0, 20)
	for _, csvReader := range csvReaders {
		txs, err := ptf.ParseTxCsv(csvReader.Reader, csvReader.Desc, uint32(len(allTxs)))
		if err != nil {
			errPrinter.Ln("Error:", err)
			return nil, err
		}
		allTxs = append(allTxs, txs...)
	}
	return ptf.SortTxs(allTxs), nil
}

// RunApp is the imperative shell: read the ledger, replay it through a
// freshly configured engine, and write the requested reports.
func RunApp(
	csvReaders []DescribedReader,
	options Options,
	writer outfmt.ReportWriter,
	errPrinter log.ErrorPrinter) error {

	engineCfg, err := options.Config.EngineConfig()
	if err != nil {
		errPrinter.Ln("Error:", err)
		return err
	}
	engine, err := ptf.NewEngine(engineCfg)
	if err != nil {
		errPrinter.Ln("Error:", err)
		return err
	}

	allTxs, err := loadLedger(csvReaders, errPrinter)
	if err != nil {
		return err
	}
	log.Verbosef("loaded %d transactions\n", len(allTxs))

	result, err := engine.Replay(allTxs)
	if err != nil {
		errPrinter.Ln("Error:", err)
		return err
	}

	if options.ShowSales {
		salesByInstr := make(map[string][]*ptf.RealizedSale)
		instruments := make([]string, 0)
		seen := util.NewSet[string]()
		for _, sale := range result.Sales {
			if !seen.Has(sale.Instrument) {
				seen.Add(sale.Instrument)
				instruments = append(instruments, sale.Instrument)
			}
			salesByInstr[sale.Instrument] = append(salesByInstr[sale.Instrument], sale)
		}
		sort.Strings(instruments)
		for _, instr := range instruments {
			table := ptf.RenderSalesTableModel(salesByInstr[instr], options.RenderFullValues)
			if err := writer.PrintRenderTable(outfmt.RealizedSales, instr, table); err != nil {
				return err
			}
		}
	}

	if options.ShowLots {
		table := ptf.RenderLotsTableModel(result.OpenLots, options.RenderFullValues)
		if err := writer.PrintRenderTable(outfmt.OpenLots, "", table); err != nil {
			return err
		}
	}

	if options.ShowPositions {
		positions := ptf.BuildPositions(result.OpenLots, options.Prices)
		table := ptf.RenderPositionsTableModel(positions, options.RenderFullValues)
		if err := writer.PrintRenderTable(outfmt.Positions, "", table); err != nil {
			return err
		}
	}

	if options.ShowFiscal {
		var summaries map[int]*ptf.FiscalYearSummary
		if options.FiscalYear != 0 {
			// A year with no sales still gets an all-zero row.
			summary, err := engine.FiscalYearSummary(allTxs, options.FiscalYear)
			if err != nil {
				errPrinter.Ln("Error:", err)
				return err
			}
			summaries = map[int]*ptf.FiscalYearSummary{options.FiscalYear: summary}
		} else {
			var err error
			summaries, err = engine.FiscalYearSummaries(allTxs)
			if err != nil {
				errPrinter.Ln("Error:", err)
				return err
			}
		}
		table := ptf.RenderFiscalSummaryTableModel(summaries, options.RenderFullValues)
		if err := writer.PrintRenderTable(outfmt.FiscalSummary, "", table); err != nil {
			return err
		}
	}

	if options.Simulate != nil {
		req := options.Simulate
		sim, err := engine.SimulateSale(allTxs, req.Instrument, req.Quantity,
			req.UnitPrice, req.Commission, date.Today())
		if err != nil {
			errPrinter.Ln("Error:", err)
			return err
		}
		table := ptf.RenderSimulationTableModel(sim, options.RenderFullValues)
		if err := writer.PrintRenderTable(outfmt.Simulation, req.Instrument, table); err != nil {
			return err
		}
	}

	return nil
}

// ParseSimulateRequest parses INSTRUMENT:QTY:PRICE[:COMMISSION].
func ParseSimulateRequest(s string) (*SimulateRequest, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 && len(parts) != 4 {
		return nil, fmt.Errorf("invalid simulate format %q (want INSTRUMENT:QTY:PRICE[:COMMISSION])", s)
	}
	qty, err := decimal.NewFromString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid simulate quantity %q: %w", parts[1], err)
	}
	price, err := decimal.NewFromString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("invalid simulate price %q: %w", parts[2], err)
	}
	commission := decimal.Zero
	if len(parts) == 4 {
		commission, err = decimal.NewFromString(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid simulate commission %q: %w", parts[3], err)
		}
	}
	return &SimulateRequest{
		Instrument: parts[0],
		Quantity:   qty,
		UnitPrice:  price,
		Commission: commission,
	}, nil
}

// ParsePriceOptions parses repeated INSTRUMENT:PRICE flags.
func ParsePriceOptions(opts []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	for _, opt := range opts {
		parts := strings.Split(opt, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid price format %q (want INSTRUMENT:PRICE)", opt)
		}
		price, err := decimal.NewFromString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid price %q: %w", parts[1], err)
		}
		if _, ok := prices[parts[0]]; ok {
			return nil, fmt.Errorf("instrument %s priced multiple times", parts[0])
		}
		prices[parts[0]] = price
	}
	return prices, nil
}
