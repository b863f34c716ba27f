package outfmt

import (
	"github.com/CasteSan/investment-tracker/portfolio"
)

type OutputType int

const (
	RealizedSales OutputType = iota
	OpenLots
	Positions
	FiscalSummary
	Simulation
)

type ReportWriter interface {
	PrintRenderTable(outType OutputType, name string, tableModel *portfolio.RenderTable) error
}
