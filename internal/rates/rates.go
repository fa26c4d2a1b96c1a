// Package rates holds the deduction-rate tables aligned with
// Australian tax law divisions, and the category validity checks that
// gate every deduction calculation.
package rates

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Division is the ITAA97 division a category falls under.
type Division string

const (
	Division8  Division = "8"
	Division63 Division = "63"
	// Prohibited categories are personal spending with no nexus to
	// income production; claiming them is disallowed.
	Prohibited Division = "PROHIBITED"
	// IncomeError categories are income lines; treating them as a
	// deduction is a data error, not merely disallowed.
	IncomeError Division = "ERROR"
)

var divisions = map[string]Division{
	"work_accessories":  Division8,
	"software":          Division8,
	"home_office":       Division63,
	"vehicle":           Division8,
	"clothing":          Prohibited,
	"groceries":         Prohibited,
	"salary":            IncomeError,
	"income":            IncomeError,
	"investment":        Division8,
	"subscriptions":     Division8,
	"internet":          Division8,
	"mobile":            Division8,
	"books":             Division8,
	"electronics":       Division8,
	"professional_fees": Division8,
	"training":          Division8,
	"travel":            Division8,
	"accom":             Division8,
	"meals":             Division8,
	"gifts":             Prohibited,
	"donations":         Division8,
	"medical":           Prohibited,
	"pet":               Prohibited,
	"self_care":         Prohibited,
	"entertainment":     Prohibited,
	"bars":              Prohibited,
	"liquor":            Prohibited,
	"nicotine":          Prohibited,
	"refunds":           Prohibited,
	"transfers":         IncomeError,
	"scam":              IncomeError,
	"uncategorized":     Prohibited,
}

var standardRates = map[string]decimal.Decimal{
	"home_office":       decimal.RequireFromString("0.45"),
	"vehicle":           decimal.RequireFromString("0.67"),
	"subscriptions":     decimal.RequireFromString("1.0"),
	"internet":          decimal.RequireFromString("0.3"),
	"mobile":            decimal.RequireFromString("0.5"),
	"software":          decimal.RequireFromString("1.0"),
	"books":             decimal.RequireFromString("1.0"),
	"electronics":       decimal.RequireFromString("0.8"),
	"professional_fees": decimal.RequireFromString("1.0"),
	"training":          decimal.RequireFromString("1.0"),
	"travel":            decimal.RequireFromString("1.0"),
	"accom":             decimal.RequireFromString("1.0"),
	"meals":             decimal.RequireFromString("0.5"),
	"donations":         decimal.RequireFromString("1.0"),
	"investment":        decimal.RequireFromString("0.8"),
	"work_accessories":  decimal.RequireFromString("0.85"),
}

var conservativeRates = map[string]decimal.Decimal{
	"home_office":       decimal.RequireFromString("0.30"),
	"vehicle":           decimal.RequireFromString("0.55"),
	"subscriptions":     decimal.RequireFromString("0.8"),
	"internet":          decimal.RequireFromString("0.2"),
	"mobile":            decimal.RequireFromString("0.35"),
	"software":          decimal.RequireFromString("0.8"),
	"books":             decimal.RequireFromString("0.8"),
	"electronics":       decimal.RequireFromString("0.6"),
	"professional_fees": decimal.RequireFromString("0.8"),
	"training":          decimal.RequireFromString("0.8"),
	"travel":            decimal.RequireFromString("0.8"),
	"accom":             decimal.RequireFromString("0.8"),
	"meals":             decimal.RequireFromString("0.3"),
	"donations":         decimal.RequireFromString("0.9"),
	"investment":        decimal.RequireFromString("0.6"),
	"work_accessories":  decimal.RequireFromString("0.7"),
}

var basisOverrides = map[string]string{
	"home_office": "ATO_DIVISION_63_SIMPLIFIED",
	"vehicle":     "ATO_ITAA97_S8_1_SIMPLIFIED",
	"donations":   "ATO_DIVISION_30",
	"meals":       "ATO_50PCT_RULE",
}

// Validate checks that a category may appear on a deduction at all.
func Validate(category string) error {
	division, ok := divisions[category]
	if !ok {
		return fmt.Errorf("unknown category: %s", category)
	}
	switch division {
	case Prohibited:
		return fmt.Errorf("category %q is never deductible under Australian tax law", category)
	case IncomeError:
		return fmt.Errorf("category %q is income, not a deduction", category)
	}
	return nil
}

// DivisionFor returns the ITAA97 division for a known category.
func DivisionFor(category string) (Division, bool) {
	d, ok := divisions[category]
	return d, ok
}

// Rate returns the deduction rate for a category. Conservative rates
// back the defensible-in-audit posture; standard rates follow the ATO
// published simplified methods.
func Rate(category string, conservative bool) (decimal.Decimal, error) {
	if err := Validate(category); err != nil {
		return decimal.Decimal{}, err
	}

	table := standardRates
	if conservative {
		table = conservativeRates
	}
	rate, ok := table[category]
	if !ok {
		return decimal.Zero, nil
	}
	return rate, nil
}

// Basis returns the audit-friendly rate basis label for a category.
func Basis(category string) (string, error) {
	if err := Validate(category); err != nil {
		return "", err
	}
	if basis, ok := basisOverrides[category]; ok {
		return basis, nil
	}
	return "ITAA97_DIVISION_8_NEXUS_" + strings.ToUpper(category), nil
}
