package pricing

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/efreitasn/tradeledger/internal/domain"
)

// priceFile is the on-disk layout of a price table:
//
//	default: 100
//	prices:
//	  AAPL: 170
//	  TSLA: 800.50
type priceFile struct {
	Default yaml.Node            `yaml:"default"`
	Prices  map[string]yaml.Node `yaml:"prices"`
}

// LoadFile reads a YAML price table. A missing default falls back to the
// reference default price.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read price file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML price table.
func Parse(data []byte) (*Table, error) {
	var f priceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse price file: %w", err)
	}

	fallback := Reference().Default()
	if f.Default.Kind != 0 {
		d, err := positivePrice(f.Default.Value)
		if err != nil {
			return nil, fmt.Errorf("default: %w", err)
		}
		fallback = d
	}

	prices := make(map[string]decimal.Decimal, len(f.Prices))
	for raw, node := range f.Prices {
		sym, err := domain.NormalizeSymbol(raw)
		if err != nil {
			return nil, err
		}
		d, err := positivePrice(node.Value)
		if err != nil {
			return nil, fmt.Errorf("price of %s: %w", sym, err)
		}
		prices[sym] = d
	}
	return NewTable(prices, fallback), nil
}

func positivePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q", s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("price must be > 0, got %s", s)
	}
	return d, nil
}
