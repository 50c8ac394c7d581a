package fx

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// RateTable is a static set of rates quoted against one base currency.
//
//	base: USD
//	rates:
//	  EUR: 0.92
//	  JPY: 151.3
type RateTable struct {
	Base  string
	Rates map[string]decimal.Decimal
}

type rateFile struct {
	Base  string             `yaml:"base"`
	Rates map[string]float64 `yaml:"rates"`
}

// LoadRateTable reads a YAML rate table from path.
func LoadRateTable(path string) (*RateTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rates file: %w", err)
	}
	return ParseRateTable(data)
}

// ParseRateTable decodes a YAML rate table.
func ParseRateTable(data []byte) (*RateTable, error) {
	var f rateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rates file: %w", err)
	}
	if f.Base == "" {
		return nil, fmt.Errorf("rates file has no base currency")
	}

	table := &RateTable{
		Base:  strings.ToUpper(f.Base),
		Rates: make(map[string]decimal.Decimal, len(f.Rates)+1),
	}
	for code, rate := range f.Rates {
		if rate <= 0 {
			return nil, fmt.Errorf("rate for %s must be positive", code)
		}
		table.Rates[strings.ToUpper(code)] = decimal.NewFromFloat(rate)
	}
	table.Rates[table.Base] = decimal.NewFromInt(1)
	return table, nil
}

// Rate returns the cross rate from one currency to another through the base.
func (t *RateTable) Rate(from, to string) (decimal.Decimal, bool) {
	fromRate, ok := t.Rates[from]
	if !ok {
		return decimal.Zero, false
	}
	toRate, ok := t.Rates[to]
	if !ok {
		return decimal.Zero, false
	}
	return toRate.Div(fromRate), true
}
