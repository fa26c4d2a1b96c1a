package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one bank statement line after ingestion. Categories
// are attached by the classifier; the value itself stays immutable, a
// classified copy replaces the original.
type Transaction struct {
	Date        time.Time `json:"date"`
	Amount      Money     `json:"amount"`
	Description string    `json:"description"`
	SourceBank  string    `json:"source_bank"`
	Owner       string    `json:"owner"`
	Categories  []string  `json:"categories,omitempty"`
	IsTransfer  bool      `json:"is_transfer"`
}

// Categorized reports whether the classifier matched anything.
func (t Transaction) Categorized() bool {
	return len(t.Categories) > 0
}

// WithCategories returns a copy carrying the given categories and the
// transfer flag derived from them.
func (t Transaction) WithCategories(cats []string) Transaction {
	out := t
	out.Categories = cats
	out.IsTransfer = false
	for _, c := range cats {
		if c == "transfers" {
			out.IsTransfer = true
			break
		}
	}
	return out
}

// Deduction is one computed deduction line for a category in a fiscal
// year, with the rate and its audit basis.
type Deduction struct {
	FY        int             `json:"fy"`
	Category  string          `json:"category"`
	Amount    Money           `json:"amount"`
	Rate      decimal.Decimal `json:"rate"`
	RateBasis string          `json:"rate_basis"`
}

// Asset is a depreciable asset held for income production.
type Asset struct {
	FY          int    `json:"fy"`
	Description string `json:"description"`
	Cost        Money  `json:"cost"`
	LifeYears   int    `json:"life_years"`
}

// Individual aggregates one person's position for household allocation.
type Individual struct {
	Name       string  `json:"name"`
	FY         int     `json:"fy"`
	Income     Money   `json:"income"`
	Deductions []Money `json:"deductions"`
	Gains      []Money `json:"gains"`
	Losses     []Money `json:"losses"`
}
