// Package deduce turns classified spending into deduction lines.
package deduce

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tysonq/taxmate/internal/domain"
	"github.com/tysonq/taxmate/internal/rates"
)

// Weights are per-category business-use fractions (0..1). They are an
// explicit argument on every call; nothing here reads process-wide
// state.
type Weights map[string]decimal.Decimal

// Deduce computes deductions for one person's classified transactions
// in one fiscal year.
//
// Only outbound (negative) non-transfer AUD spending participates.
// Each deductible category accumulates its absolute spend, then the
// claimable amount is spend x rate x weight, where a missing weight
// defaults to full business use. Prohibited and income categories are
// skipped, not errors: a bank history legitimately contains both.
func Deduce(txns []domain.Transaction, fy int, weights Weights, conservative bool) []domain.Deduction {
	totals := make(map[string]decimal.Decimal)

	for _, t := range txns {
		if !t.Categorized() || t.IsTransfer {
			continue
		}
		if t.Amount.Currency != domain.AUD || !t.Amount.Amount.IsNegative() {
			continue
		}
		spend := t.Amount.Amount.Abs()
		for _, cat := range t.Categories {
			if rates.Validate(cat) != nil {
				continue
			}
			totals[cat] = totals[cat].Add(spend)
		}
	}

	deductions := make([]domain.Deduction, 0, len(totals))
	for cat, total := range totals {
		rate, err := rates.Rate(cat, conservative)
		if err != nil || rate.IsZero() {
			continue
		}

		weight := decimal.NewFromInt(1)
		if w, ok := weights[cat]; ok {
			weight = w
		}

		amount := total.Mul(rate).Mul(weight)
		if !amount.IsPositive() {
			continue
		}

		basis, err := rates.Basis(cat)
		if err != nil {
			continue
		}

		deductions = append(deductions, domain.Deduction{
			FY:        fy,
			Category:  cat,
			Amount:    domain.NewMoney(amount, domain.AUD),
			Rate:      rate,
			RateBasis: basis,
		})
	}

	sort.Slice(deductions, func(i, j int) bool {
		return deductions[i].Category < deductions[j].Category
	})

	return deductions
}

// Total sums deduction amounts; all deductions are AUD by
// construction.
func Total(deductions []domain.Deduction) domain.Money {
	total := domain.NewMoney(decimal.Zero, domain.AUD)
	for _, d := range deductions {
		total, _ = total.Add(d.Amount)
	}
	return total
}
