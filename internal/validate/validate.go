// Package validate runs dataset sanity checks before any tax figures
// are computed from a ledger of transactions.
package validate

import (
	"fmt"
	"time"

	"github.com/tysonq/taxmate/internal/domain"
)

// minCoverageSize is the transaction count below which monthly
// coverage is not enforced, so small fixtures pass.
const minCoverageSize = 100

// Error describes a failed dataset check.
type Error struct {
	Check  string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Check, e.Detail)
}

// FYBoundary checks every transaction falls inside the fiscal year,
// July 1 of the prior calendar year through June 30.
func FYBoundary(txns []domain.Transaction, fy int) error {
	if len(txns) == 0 {
		return nil
	}

	start := time.Date(fy-1, time.July, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(fy, time.June, 30, 23, 59, 59, 0, time.UTC)

	for _, txn := range txns {
		if txn.Date.Before(start) || txn.Date.After(end) {
			return &Error{
				Check: "fy_boundary",
				Detail: fmt.Sprintf("transaction on %s outside FY%d boundary (%s to %s): %s",
					txn.Date.Format("2006-01-02"), fy,
					start.Format("2006-01-02"), end.Format("2006-01-02"),
					txn.Description),
			}
		}
	}
	return nil
}

// NoDuplicates rejects any repeated date, amount and description.
func NoDuplicates(txns []domain.Transaction) error {
	type key struct {
		date   string
		amount string
		desc   string
	}
	seen := make(map[key]struct{}, len(txns))

	for _, txn := range txns {
		k := key{
			date:   txn.Date.Format("2006-01-02"),
			amount: txn.Amount.Amount.String(),
			desc:   txn.Description,
		}
		if _, dup := seen[k]; dup {
			return &Error{
				Check: "duplicates",
				Detail: fmt.Sprintf("duplicate transaction: %s %s %s",
					k.date, k.amount, k.desc),
			}
		}
		seen[k] = struct{}{}
	}
	return nil
}

// Unlabeled rejects transactions the classifier left uncategorised.
func Unlabeled(txns []domain.Transaction) error {
	var samples []string
	count := 0
	for _, txn := range txns {
		if !txn.Categorized() {
			count++
			if len(samples) < 3 {
				samples = append(samples, txn.Description)
			}
		}
	}
	if count > 0 {
		return &Error{
			Check:  "unlabeled",
			Detail: fmt.Sprintf("%d unlabeled transactions, e.g. %v", count, samples),
		}
	}
	return nil
}

// MonthlyCoverage checks every month of the fiscal year has at least
// one transaction. Skipped on datasets too small to be a full year.
func MonthlyCoverage(txns []domain.Transaction, fy int) error {
	if len(txns) < minCoverageSize {
		return nil
	}

	seen := make(map[time.Month]struct{})
	for _, txn := range txns {
		seen[txn.Date.Month()] = struct{}{}
	}

	var missing []string
	for m := time.January; m <= time.December; m++ {
		if _, ok := seen[m]; !ok {
			missing = append(missing, m.String())
		}
	}
	if len(missing) > 0 {
		return &Error{
			Check:  "monthly_coverage",
			Detail: fmt.Sprintf("FY%d missing data for months: %v", fy, missing),
		}
	}
	return nil
}

// All runs the full check suite and stops at the first failure.
func All(txns []domain.Transaction, fy int) error {
	if err := FYBoundary(txns, fy); err != nil {
		return err
	}
	if err := NoDuplicates(txns); err != nil {
		return err
	}
	if err := Unlabeled(txns); err != nil {
		return err
	}
	return MonthlyCoverage(txns, fy)
}
