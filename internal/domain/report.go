package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// GainsReport is the per-year CGT position for one person.
type GainsReport struct {
	FY           int             `json:"fy"`
	FYLabel      string          `json:"fy_label"`
	Owner        string          `json:"owner,omitempty"`
	Gains        []Gain          `json:"gains"`
	RawTotal     decimal.Decimal `json:"raw_total"`
	TaxableTotal decimal.Decimal `json:"taxable_total"`
	Discounted   int             `json:"discounted"`
	Losses       int             `json:"losses"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// DeductionsReport is the per-year deduction claim for one person.
type DeductionsReport struct {
	FY          int             `json:"fy"`
	FYLabel     string          `json:"fy_label"`
	Owner       string          `json:"owner,omitempty"`
	Deductions  []Deduction     `json:"deductions"`
	Total       decimal.Decimal `json:"total"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// HouseholdSummary combines both individuals' positions after shared
// deductions have been allocated.
type HouseholdSummary struct {
	FY          int              `json:"fy"`
	FYLabel     string           `json:"fy_label"`
	Persons     []PersonPosition `json:"persons"`
	TotalTax    decimal.Decimal  `json:"total_tax"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// PersonPosition is one person's line in the household summary.
type PersonPosition struct {
	Name          string          `json:"name"`
	TaxableIncome decimal.Decimal `json:"taxable_income"`
	Deductions    decimal.Decimal `json:"deductions"`
	NetGains      decimal.Decimal `json:"net_gains"`
	Tax           decimal.Decimal `json:"tax"`
}
