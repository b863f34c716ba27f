package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/CasteSan/investment-tracker/app"
	"github.com/CasteSan/investment-tracker/app/outfmt"
	"github.com/CasteSan/investment-tracker/log"
	ptf "github.com/CasteSan/investment-tracker/portfolio"
)

var TaxConfigPath string
var MethodOpt string
var FiscalYearOpt int
var ShowPositionsOpt bool
var ShowLotsOpt bool
var NoSalesOpt bool
var SimulateOpt string
var PriceOpts []string
var CsvOutputDir string
var RenderFullValuesOpt bool
var CsvDateFormatOpt string

func runRootCmd(cmd *cobra.Command, args []string) {
	errPrinter := &log.StderrErrorPrinter{}

	cfg := app.DefaultTaxConfig()
	if TaxConfigPath != "" {
		var err error
		cfg, err = app.LoadTaxConfig(TaxConfigPath)
		if err != nil {
			errPrinter.F("Error: %v\n", err)
			os.Exit(1)
		}
	}
	if MethodOpt != "" {
		cfg.Method = MethodOpt
	}
	ptf.CsvDateFormat = CsvDateFormatOpt

	options := app.Options{
		Config:           cfg,
		ShowSales:        !NoSalesOpt,
		ShowLots:         ShowLotsOpt,
		ShowPositions:    ShowPositionsOpt,
		ShowFiscal:       true,
		FiscalYear:       FiscalYearOpt,
		RenderFullValues: RenderFullValuesOpt,
	}

	if SimulateOpt != "" {
		sim, err := app.ParseSimulateRequest(SimulateOpt)
		if err != nil {
			errPrinter.F("Error: %v\n", err)
			os.Exit(1)
		}
		options.Simulate = sim
	}
	if len(PriceOpts) > 0 {
		prices, err := app.ParsePriceOptions(PriceOpts)
		if err != nil {
			errPrinter.F("Error: %v\n", err)
			os.Exit(1)
		}
		options.Prices = prices
	}

	var writer outfmt.ReportWriter
	if CsvOutputDir != "" {
		var err error
		writer, err = outfmt.NewCSVWriter(CsvOutputDir)
		if err != nil {
			errPrinter.F("Error: %v\n", err)
			os.Exit(1)
		}
	} else {
		writer = outfmt.NewSTDWriter(os.Stdout)
	}

	csvReaders := make([]app.DescribedReader, 0, len(args))
	files := make([]*os.File, 0, len(args))
	defer func() {
		for _, fp := range files {
			fp.Close()
		}
	}()
	for _, csvName := range args {
		fp, err := os.Open(csvName)
		if err != nil {
			errPrinter.F("Error: %v\n", err)
			os.Exit(1)
		}
		files = append(files, fp)
		csvReaders = append(csvReaders, app.DescribedReader{Desc: csvName, Reader: fp})
	}

	if err := app.RunApp(csvReaders, options, writer, errPrinter); err != nil {
		os.Exit(1)
	}
}

func cmdName() string {
	binName := os.Args[0]
	return filepath.Base(binName)
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   cmdName() + " [LEDGER_CSV ...]",
	Short: "Lot tracking and realized capital gains calculator",
	Long: fmt.Sprintf(
		`Replays a chronological ledger of buy/sell/transfer transactions and
reports open lots, realized gains per sale, wash-sale (two-month rule)
disallowed losses, current positions, and progressive fiscal-year tax
estimates.

Lots are consumed FIFO by default; LIFO can be selected with --method or in
the tax config file. Fund transfers carry their cost basis and original
acquisition date and never generate a tax event.

Each ledger CSV should contain a header with these column names:
%s
Non-essential columns (id, currency, exchange rate, memo) are optional.
Exchange rates are multipliers into the accounting currency.`,
		fmt.Sprint(ptf.ColNames)),
	Run:     runRootCmd,
	Args:    cobra.MinimumNArgs(1),
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&log.VerboseEnabled, "verbose", "v", false,
		"Print verbose output")
	RootCmd.PersistentFlags().StringVarP(&TaxConfigPath, "tax-config", "c", "",
		"Path to a YAML tax configuration (method, wash-sale window, brackets)")
	RootCmd.PersistentFlags().StringVarP(&MethodOpt, "method", "m", "",
		"Lot selection method, FIFO or LIFO. Overrides the tax config.")
	RootCmd.PersistentFlags().StringVar(&CsvDateFormatOpt, "date-fmt", ptf.CsvDateFormat,
		"Format of how dates appear in the csv file. Must represent Jan 2, 2006")
	RootCmd.Flags().IntVarP(&FiscalYearOpt, "year", "y", 0,
		"Restrict the fiscal summary to one calendar year")
	RootCmd.Flags().BoolVarP(&ShowPositionsOpt, "positions", "p", false,
		"Show current positions")
	RootCmd.Flags().BoolVar(&ShowLotsOpt, "lots", false,
		"Show the remaining open lots")
	RootCmd.Flags().BoolVar(&NoSalesOpt, "no-sales", false,
		"Do not show the per-sale realized gain detail")
	RootCmd.Flags().StringVarP(&SimulateOpt, "simulate", "s", "",
		"Preview a hypothetical sale's tax impact, as INSTRUMENT:QTY:PRICE[:COMMISSION]")
	RootCmd.Flags().StringSliceVar(&PriceOpts, "price", []string{},
		"Current price for an instrument, as INSTRUMENT:PRICE. May be provided multiple times.")
	RootCmd.Flags().StringVar(&CsvOutputDir, "csv-output", "",
		"Write reports as CSV files into this directory instead of rendering tables")
	RootCmd.Flags().BoolVar(&RenderFullValuesOpt, "print-full-values", false,
		"Print all decimal places, instead of rounding to currency minor units")
}
