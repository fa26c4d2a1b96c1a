package cgt

import (
	"fmt"
	"time"
)

// DiscountHoldDays is the CGT discount holding threshold. The test is
// strict: a lot held exactly 365 days does not qualify.
const DiscountHoldDays = 365

// FinancialYear maps a date to its Australian financial year, labeled
// by the ending calendar year. The FY runs July 1 to June 30, so
// 2025-03-01 is FY 2025 and 2025-07-01 is FY 2026.
func FinancialYear(d time.Time) int {
	if d.Month() < time.July {
		return d.Year()
	}
	return d.Year() + 1
}

// FYLabel renders the short form used in reports, e.g. "FY25".
func FYLabel(fy int) string {
	return fmt.Sprintf("FY%02d", fy%100)
}

// DiscountEligible reports whether a holding period qualifies for the
// 50% CGT discount.
func DiscountEligible(heldDays int) bool {
	return heldDays > DiscountHoldDays
}

// daysBetween returns whole calendar days from a to b. Trade dates are
// date-only values, so the division is exact.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
