package metrics

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// PriceTable maps a model name to its price in USD per thousand tokens.
// Unknown models fall back to Default.
type PriceTable struct {
	Default float64            `toml:"default"`
	Models  map[string]float64 `toml:"models"`
}

// DefaultPrices returns the compiled-in price table. Rates are blended
// (prompt and completion tokens priced alike), which is deliberately coarse:
// the tracker reports an estimate, not a bill.
func DefaultPrices() PriceTable {
	return PriceTable{
		Default: 0.002,
		Models: map[string]float64{
			"gpt-4":                      0.045,
			"gpt-4-turbo":                0.020,
			"gpt-4o":                     0.0075,
			"gpt-4o-mini":                0.000375,
			"gpt-3.5-turbo":              0.002,
			"claude-sonnet-4-5-20250929": 0.009,
			"claude-haiku-3-5-20241022":  0.0024,
		},
	}
}

// LoadPrices reads a TOML price table from disk. The file overrides the
// compiled-in defaults wholesale apart from unset fields:
//
//	default = 0.002
//	[models]
//	"gpt-4o" = 0.0075
func LoadPrices(path string) (PriceTable, error) {
	table := DefaultPrices()
	var file PriceTable
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return PriceTable{}, fmt.Errorf("loading price table %s: %w", path, err)
	}
	if file.Default > 0 {
		table.Default = file.Default
	}
	for model, price := range file.Models {
		table.Models[model] = price
	}
	return table, nil
}

// PerThousand returns the USD price per thousand tokens for model.
func (t PriceTable) PerThousand(model string) float64 {
	if price, ok := t.Models[model]; ok {
		return price
	}
	return t.Default
}
