package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAbsAmount bounds transaction amounts to 10 significant digits with 2 decimals.
var MaxAbsAmount = decimal.New(1, 8)

// MaxScale bounds the exponent of parsed decimals in both directions.
// Aligning operands with very different exponents allocates 10^|exp|.
const MaxScale = 18

var cut = decimal.RequireFromString("0.05")

func exponentInRange(d decimal.Decimal) bool {
	e := d.Exponent()
	return e >= -MaxScale && e <= MaxScale
}

// ParseAmount parses a signed decimal amount such as "-12.50" or "12,5".
// The value is rounded half-up to 2 decimal places.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	// Accept a single comma as decimal separator.
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !exponentInRange(d) {
		return decimal.Zero, fmt.Errorf("%w: %q is out of range", ErrInvalidAmount, s)
	}
	d = d.Round(2)
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount checks the storage constraints of a transaction amount.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsZero() {
		return fmt.Errorf("%w: amount cannot be zero", ErrInvalidAmount)
	}
	if d.Abs().GreaterThanOrEqual(MaxAbsAmount) {
		return fmt.Errorf("%w: %s exceeds %s", ErrInvalidAmount, d.String(), MaxAbsAmount.String())
	}
	if !d.Equal(d.Round(2)) {
		return fmt.Errorf("%w: %s has more than 2 decimal places", ErrInvalidAmount, d.String())
	}
	return nil
}

// FromFloat converts through the shortest decimal text of f so that 0.1
// becomes exactly 0.1.
func FromFloat(f float64) (decimal.Decimal, error) {
	return decimal.NewFromString(strconv.FormatFloat(f, 'f', -1, 64))
}

// DeltaFromValue converts a decoded what-if delta into an exact decimal.
// A nil value counts as zero.
func DeltaFromValue(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return checkDelta(val)
	case json.Number:
		return parseDelta(val.String())
	case string:
		return parseDelta(val)
	case float64:
		d, err := FromFloat(val)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidDelta, val)
		}
		return checkDelta(d)
	case float32:
		return DeltaFromValue(float64(val))
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrInvalidDelta, v)
	}
}

// DeltaFromJSON decodes a raw JSON delta. An absent value is zero; null,
// booleans, objects and non-numeric strings are rejected.
func DeltaFromJSON(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return decimal.Zero, nil
	}
	switch s[0] {
	case '"':
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidDelta, s)
		}
		return parseDelta(str)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidDelta, s)
		}
		return parseDelta(n.String())
	default:
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidDelta, s)
	}
}

func parseDelta(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidDelta, s)
	}
	return checkDelta(d)
}

func checkDelta(d decimal.Decimal) (decimal.Decimal, error) {
	if !exponentInRange(d) {
		return decimal.Zero, fmt.Errorf("%w: exponent %d is out of range", ErrInvalidDelta, d.Exponent())
	}
	return d, nil
}

// FivePercentCut returns 5% of spend rounded half-up to cents.
func FivePercentCut(spend decimal.Decimal) decimal.Decimal {
	return spend.Mul(cut).Round(2)
}
