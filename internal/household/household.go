// Package household allocates shared deductions between two
// individuals to minimise combined tax liability.
package household

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tysonq/taxmate/internal/domain"
)

type bracket struct {
	threshold decimal.Decimal
	rate      decimal.Decimal
}

var taxFreeThreshold = decimal.NewFromInt(18200)

// Resident tax brackets keyed by the ending calendar year of the
// fiscal year. The stage-3 cuts land in FY25.
var brackets = map[int][]bracket{
	2023: {
		{decimal.Zero, decimal.Zero},
		{decimal.NewFromInt(18200), decimal.RequireFromString("0.19")},
		{decimal.NewFromInt(45000), decimal.RequireFromString("0.325")},
		{decimal.NewFromInt(120000), decimal.RequireFromString("0.37")},
		{decimal.NewFromInt(180000), decimal.RequireFromString("0.45")},
	},
	2024: {
		{decimal.Zero, decimal.Zero},
		{decimal.NewFromInt(18200), decimal.RequireFromString("0.19")},
		{decimal.NewFromInt(45000), decimal.RequireFromString("0.325")},
		{decimal.NewFromInt(120000), decimal.RequireFromString("0.37")},
		{decimal.NewFromInt(180000), decimal.RequireFromString("0.45")},
	},
	2025: {
		{decimal.Zero, decimal.Zero},
		{decimal.NewFromInt(18200), decimal.RequireFromString("0.16")},
		{decimal.NewFromInt(45000), decimal.RequireFromString("0.30")},
		{decimal.NewFromInt(135000), decimal.RequireFromString("0.37")},
		{decimal.NewFromInt(190000), decimal.RequireFromString("0.45")},
	},
}

func bracketsFor(fy int) []bracket {
	if b, ok := brackets[fy]; ok {
		return b
	}
	return brackets[2025]
}

// MarginalRate is the rate at which the last dollar of income is taxed.
func MarginalRate(income decimal.Decimal, fy int) decimal.Decimal {
	rate := decimal.Zero
	for _, b := range bracketsFor(fy) {
		if income.GreaterThanOrEqual(b.threshold) {
			rate = b.rate
		}
	}
	return rate
}

// Liability computes the resident income tax on a taxable income.
func Liability(income domain.Money, fy int) domain.Money {
	amt := income.Amount
	if amt.LessThanOrEqual(taxFreeThreshold) {
		return domain.NewMoney(decimal.Zero, domain.AUD)
	}

	bs := bracketsFor(fy)
	tax := decimal.Zero

	for i, b := range bs {
		if amt.LessThanOrEqual(b.threshold) {
			break
		}
		upper := amt
		if i+1 < len(bs) && bs[i+1].threshold.LessThan(amt) {
			upper = bs[i+1].threshold
		}
		taxable := upper.Sub(b.threshold)
		if taxable.IsPositive() {
			tax = tax.Add(taxable.Mul(b.rate))
		}
	}

	return domain.NewMoney(tax, domain.AUD)
}

// AllocateShared splits pooled deductions between two incomes.
//
// Threshold buffers fill first: deductions consumed below the tax-free
// threshold save nothing, but they preserve bracket space for later
// years. The remainder routes to whoever pays the lower marginal rate,
// keeping the lower earner below their next bracket. Ties go to A.
func AllocateShared(aIncome, bIncome domain.Money, shared []domain.Money, fy int) (domain.Money, domain.Money, error) {
	zero := domain.NewMoney(decimal.Zero, domain.AUD)
	if len(shared) == 0 {
		return zero, zero, nil
	}

	total := zero
	var err error
	for _, d := range shared {
		if total, err = total.Add(d); err != nil {
			return zero, zero, fmt.Errorf("pooling shared deductions: %w", err)
		}
	}

	aBuf := decimal.Max(decimal.Zero, taxFreeThreshold.Sub(aIncome.Amount))
	bBuf := decimal.Max(decimal.Zero, taxFreeThreshold.Sub(bIncome.Amount))

	aAlloc, bAlloc := decimal.Zero, decimal.Zero
	remain := total.Amount

	if aBuf.IsPositive() {
		aAlloc = decimal.Min(aBuf, remain)
		remain = remain.Sub(aAlloc)
	}
	if remain.IsPositive() && bBuf.IsPositive() {
		bAlloc = decimal.Min(bBuf, remain)
		remain = remain.Sub(bAlloc)
	}

	if remain.IsPositive() {
		if MarginalRate(bIncome.Amount, fy).LessThan(MarginalRate(aIncome.Amount, fy)) {
			bAlloc = bAlloc.Add(remain)
		} else {
			aAlloc = aAlloc.Add(remain)
		}
	}

	return domain.NewMoney(aAlloc, domain.AUD), domain.NewMoney(bAlloc, domain.AUD), nil
}

// Allocation is the outcome of optimising a two-person household.
type Allocation struct {
	A    domain.Individual
	B    domain.Individual
	TaxA domain.Money
	TaxB domain.Money
}

// Total is the combined household liability.
func (a Allocation) Total() domain.Money {
	total, _ := a.TaxA.Add(a.TaxB)
	return total
}

// TaxableIncome is income less deductions plus net capital gains,
// everything in AUD.
func TaxableIncome(ind domain.Individual) (domain.Money, error) {
	taxable := ind.Income
	var err error

	for _, d := range ind.Deductions {
		if taxable, err = taxable.Sub(d); err != nil {
			return domain.Money{}, err
		}
	}
	for _, g := range ind.Gains {
		if taxable, err = taxable.Add(g); err != nil {
			return domain.Money{}, err
		}
	}
	for _, l := range ind.Losses {
		if taxable, err = taxable.Sub(l); err != nil {
			return domain.Money{}, err
		}
	}

	return taxable, nil
}

// Optimize pools both individuals' deductions, reallocates them, and
// returns the resulting positions and liabilities. Gains and losses
// stay with their original claimant; only deductions move.
func Optimize(a, b domain.Individual) (Allocation, error) {
	shared := append(append([]domain.Money{}, a.Deductions...), b.Deductions...)

	aShare, bShare, err := AllocateShared(a.Income, b.Income, shared, a.FY)
	if err != nil {
		return Allocation{}, err
	}

	optimised := func(ind domain.Individual, share domain.Money) domain.Individual {
		out := ind
		out.Deductions = nil
		if share.Amount.IsPositive() {
			out.Deductions = []domain.Money{share}
		}
		return out
	}

	aOpt := optimised(a, aShare)
	bOpt := optimised(b, bShare)

	aTaxable, err := TaxableIncome(aOpt)
	if err != nil {
		return Allocation{}, err
	}
	bTaxable, err := TaxableIncome(bOpt)
	if err != nil {
		return Allocation{}, err
	}

	return Allocation{
		A:    aOpt,
		B:    bOpt,
		TaxA: Liability(aTaxable, aOpt.FY),
		TaxB: Liability(bTaxable, bOpt.FY),
	}, nil
}
