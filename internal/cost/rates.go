// Package cost accounts for token usage and USD cost of every LLM call.
// All arithmetic is fixed-decimal; a record's total is always the exact sum
// of its input and output costs.
package cost

import (
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/prodex-cli/internal/config"
)

// ModelRate holds one model's pricing in USD per million tokens.
type ModelRate struct {
	InputPerMTok  decimal.Decimal
	OutputPerMTok decimal.Decimal
}

// Table maps model names to their pricing.
type Table struct {
	rates map[string]ModelRate
}

// NewTable builds a Table from configuration. Rates are decimal strings so
// no float conversion ever touches a price. An empty config yields the
// default table.
func NewTable(cfg config.PricingConfig) (*Table, error) {
	if len(cfg.Models) == 0 {
		return DefaultTable(), nil
	}

	rates := make(map[string]ModelRate, len(cfg.Models))
	for name, mp := range cfg.Models {
		in, err := decimal.NewFromString(mp.InputPerMTok)
		if err != nil {
			return nil, eris.Wrapf(err, "cost: parse input rate for %s", name)
		}
		out, err := decimal.NewFromString(mp.OutputPerMTok)
		if err != nil {
			return nil, eris.Wrapf(err, "cost: parse output rate for %s", name)
		}
		rates[name] = ModelRate{InputPerMTok: in, OutputPerMTok: out}
	}
	return &Table{rates: rates}, nil
}

// DefaultTable returns the built-in pricing table.
func DefaultTable() *Table {
	return &Table{rates: map[string]ModelRate{
		"claude-haiku-4-5-20251001": {
			InputPerMTok:  decimal.RequireFromString("0.80"),
			OutputPerMTok: decimal.RequireFromString("4.00"),
		},
		"claude-sonnet-4-5-20250929": {
			InputPerMTok:  decimal.RequireFromString("3.00"),
			OutputPerMTok: decimal.RequireFromString("15.00"),
		},
		"claude-opus-4-6": {
			InputPerMTok:  decimal.RequireFromString("15.00"),
			OutputPerMTok: decimal.RequireFromString("75.00"),
		},
	}}
}

// Rate looks up a model's pricing.
func (t *Table) Rate(model string) (ModelRate, bool) {
	r, ok := t.rates[model]
	return r, ok
}
