package valueobjects

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/NomadCrew/nomad-crew-settlement/errors"
	"github.com/shopspring/decimal"
)

const (
	ErrInvalidAmount    = "INVALID_AMOUNT"
	ErrInvalidCurrency  = "INVALID_CURRENCY"
	ErrCurrencyMismatch = "CURRENCY_MISMATCH"
	ErrInvalidSplit     = "INVALID_SPLIT"
)

// minorUnitDigits is the number of decimal places every currency is stored with.
const minorUnitDigits = 2

var hundred = decimal.NewFromInt(100)

// Amount is a monetary value in minor units (cents).
type Amount int64

// NewAmountFromDecimal converts a decimal major-unit value to cents. Values with
// more than two decimal places are rejected rather than rounded.
func NewAmountFromDecimal(d decimal.Decimal) (Amount, error) {
	cents := d.Shift(minorUnitDigits)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, errors.ValidationFailed(
			ErrInvalidAmount,
			fmt.Sprintf("amount %s has more than %d decimal places", d.String(), minorUnitDigits),
		)
	}
	return Amount(cents.IntPart()), nil
}

// ParseAmount parses a major-unit string such as "12.50".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.ValidationFailed(ErrInvalidAmount, err.Error())
	}
	return NewAmountFromDecimal(d)
}

// Decimal returns the value in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(a)).Div(hundred)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(minorUnitDigits)
}

func (a Amount) IsZero() bool {
	return a == 0
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(raw) == 0 || string(raw) == "null" {
		*a = 0
		return nil
	}
	parsed, err := ParseAmount(string(raw))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Sum adds amounts.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, amt := range amounts {
		total += amt
	}
	return total
}

// Min returns the smaller of two amounts.
func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

// Convert applies an FX rate, rounding half away from zero to whole cents.
func Convert(a Amount, rate decimal.Decimal) Amount {
	converted := decimal.NewFromInt(int64(a)).Mul(rate).Round(0)
	return Amount(converted.IntPart())
}

// SplitEqual divides total into n parts; leftover cents go one each to the first parts.
func SplitEqual(total Amount, n int) ([]Amount, error) {
	if n <= 0 {
		return nil, errors.ValidationFailed(ErrInvalidSplit, "number of parts must be positive")
	}
	if total < 0 {
		return nil, errors.ValidationFailed(ErrInvalidAmount, "amount cannot be negative")
	}

	base := total / Amount(n)
	remainder := total - base*Amount(n)

	parts := make([]Amount, n)
	for i := range parts {
		parts[i] = base
		if Amount(i) < remainder {
			parts[i]++
		}
	}
	return parts, nil
}

// SplitByRatio apportions total by ratios using the largest remainder method,
// so the parts always sum exactly to total.
func SplitByRatio(total Amount, ratios []decimal.Decimal) ([]Amount, error) {
	if len(ratios) == 0 {
		return nil, errors.ValidationFailed(ErrInvalidSplit, "at least one ratio is required")
	}
	if total < 0 {
		return nil, errors.ValidationFailed(ErrInvalidAmount, "amount cannot be negative")
	}

	sum := decimal.Zero
	for _, r := range ratios {
		if r.Sign() < 0 {
			return nil, errors.ValidationFailed(ErrInvalidSplit, "ratios cannot be negative")
		}
		sum = sum.Add(r)
	}
	if sum.Sign() == 0 {
		return nil, errors.ValidationFailed(ErrInvalidSplit, "total ratio must be greater than zero")
	}

	type share struct {
		index     int
		remainder decimal.Decimal
	}

	totalDec := decimal.NewFromInt(int64(total))
	parts := make([]Amount, len(ratios))
	shares := make([]share, len(ratios))
	var allocated Amount
	for i, r := range ratios {
		exact := totalDec.Mul(r).Div(sum)
		floor := exact.Floor()
		parts[i] = Amount(floor.IntPart())
		allocated += parts[i]
		shares[i] = share{index: i, remainder: exact.Sub(floor)}
	}

	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].remainder.GreaterThan(shares[j].remainder)
	})
	for k := 0; allocated < total; k++ {
		parts[shares[k%len(shares)].index]++
		allocated++
	}
	return parts, nil
}

// Currency represents an ISO 4217 currency code.
type Currency string

// ParseCurrency normalizes and validates a three letter currency code.
func ParseCurrency(code string) (Currency, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 3 {
		return "", errors.ValidationFailed(ErrInvalidCurrency, fmt.Sprintf("currency %q is not a 3-letter code", code))
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", errors.ValidationFailed(ErrInvalidCurrency, fmt.Sprintf("currency %q is not a 3-letter code", code))
		}
	}
	return Currency(c), nil
}

func (c Currency) String() string {
	return string(c)
}
