package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	decimal_opt "github.com/CasteSan/investment-tracker/decimal_value"
	"github.com/CasteSan/investment-tracker/portfolio"
)

// TaxConfig is the YAML tax configuration file. Example:
//
//	method: FIFO
//	wash_sale_window_months: 2
//	currency: EUR
//	brackets:
//	  - up_to: "6000"
//	    rate: "0.19"
//	  - up_to: inf
//	    rate: "0.28"
type TaxConfig struct {
	Method               string          `yaml:"method"`
	WashSaleWindowMonths int             `yaml:"wash_sale_window_months"`
	Currency             string          `yaml:"currency"`
	Brackets             []BracketConfig `yaml:"brackets"`
}

type BracketConfig struct {
	// Decimal string, or "inf"/empty for the unbounded top bracket.
	UpTo string `yaml:"up_to"`
	Rate string `yaml:"rate"`
}

func DefaultTaxConfig() *TaxConfig {
	return &TaxConfig{
		Method:               "FIFO",
		WashSaleWindowMonths: portfolio.DefaultWashSaleWindowMonths,
		Currency:             "EUR",
		// Nil brackets select the engine's default Spanish savings table.
		Brackets: nil,
	}
}

func LoadTaxConfig(path string) (*TaxConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tax config %s: %w", path, err)
	}
	return ParseTaxConfig(data)
}

func ParseTaxConfig(data []byte) (*TaxConfig, error) {
	cfg := DefaultTaxConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing tax config: %w", err)
	}
	return cfg, nil
}

// EngineConfig converts the file representation into the engine's
// construction parameters.
func (c *TaxConfig) EngineConfig() (portfolio.Config, error) {
	var brackets portfolio.TaxBrackets
	for i, b := range c.Brackets {
		rate, err := decimal.NewFromString(b.Rate)
		if err != nil {
			return portfolio.Config{}, fmt.Errorf("bracket %d rate %q: %w", i, b.Rate, err)
		}
		upTo := decimal_opt.Null
		trimmed := strings.TrimSpace(strings.ToLower(b.UpTo))
		if trimmed != "" && trimmed != "inf" {
			d, err := decimal.NewFromString(trimmed)
			if err != nil {
				return portfolio.Config{}, fmt.Errorf("bracket %d threshold %q: %w", i, b.UpTo, err)
			}
			upTo = decimal_opt.New(d)
		}
		brackets = append(brackets, portfolio.TaxBracket{UpTo: upTo, Rate: rate})
	}

	return portfolio.Config{
		Strategy:             c.Method,
		WashSaleWindowMonths: c.WashSaleWindowMonths,
		Brackets:             brackets,
	}, nil
}
