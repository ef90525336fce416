package invoice

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// matches a number glued to its unit, as in "5qtl"
var reGlued = regexp.MustCompile(`^([+-]?\d*\.?\d+)([A-Za-z]+\.?)$`)

var unitFactors = map[string]decimal.Decimal{
	"qtl":       decimal.NewFromInt(100),
	"quintal":   decimal.NewFromInt(100),
	"quintals":  decimal.NewFromInt(100),
	"ton":       decimal.NewFromInt(1000),
	"tons":      decimal.NewFromInt(1000),
	"tonne":     decimal.NewFromInt(1000),
	"tonnes":    decimal.NewFromInt(1000),
	"kg":        decimal.NewFromInt(1),
	"kgs":       decimal.NewFromInt(1),
	"kilogram":  decimal.NewFromInt(1),
	"kilograms": decimal.NewFromInt(1),
}

// NormalizeWeight converts "value unit" text to kilograms. Thousands separators are
// ignored and a missing unit means kilograms. ok is false when the text has no numeric
// prefix. Unknown units return the value unconverted.
func NormalizeWeight(text string, logger *slog.Logger) (kg decimal.Decimal, ok bool) {
	if logger == nil {
		logger = slog.Default()
	}
	fields := strings.Fields(strings.ReplaceAll(text, ",", ""))
	if len(fields) == 0 {
		return decimal.Decimal{}, false
	}

	var unit string
	v, err := decimal.NewFromString(fields[0])
	if err == nil {
		if len(fields) > 1 {
			unit = fields[1]
		}
	} else {
		m := reGlued.FindStringSubmatch(fields[0])
		if m == nil {
			return decimal.Decimal{}, false
		}
		if v, err = decimal.NewFromString(m[1]); err != nil {
			return decimal.Decimal{}, false
		}
		unit = m[2]
	}

	unit = strings.TrimRight(strings.ToLower(unit), ".")
	if unit == "" {
		return v, true
	}
	f, known := unitFactors[unit]
	if !known {
		logger.Warn("invoice.weight.unknown_unit", "weight", text, "unit", unit)
		return v, true
	}
	return v.Mul(f), true
}
