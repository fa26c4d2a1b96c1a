// Package depreciation computes prime-cost (straight-line) decline in
// value for capital assets over their effective life.
package depreciation

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tysonq/taxmate/internal/domain"
)

// Entry is one fiscal year's decline for a single asset.
type Entry struct {
	FY         int
	Asset      string
	Annual     domain.Money
	Cumulative domain.Money
	BookValue  domain.Money
}

// AnnualDecline is the prime-cost deduction for one full year.
func AnnualDecline(a domain.Asset) domain.Money {
	if a.LifeYears <= 0 {
		return domain.NewMoney(decimal.Zero, a.Cost.Currency)
	}
	return a.Cost.Div(decimal.NewFromInt(int64(a.LifeYears)))
}

// Schedule expands an asset into one entry per year of its effective
// life, starting from the purchase year. The final year absorbs any
// rounding remainder so the book value lands on exactly zero.
func Schedule(a domain.Asset) []Entry {
	if a.LifeYears <= 0 {
		return nil
	}

	annual := AnnualDecline(a)
	entries := make([]Entry, 0, a.LifeYears)
	cumulative := domain.NewMoney(decimal.Zero, a.Cost.Currency)

	for year := 0; year < a.LifeYears; year++ {
		decline := annual
		if year == a.LifeYears-1 {
			remainder, _ := a.Cost.Sub(cumulative)
			decline = remainder
		}
		cumulative, _ = cumulative.Add(decline)
		book, _ := a.Cost.Sub(cumulative)

		entries = append(entries, Entry{
			FY:         a.FY + year,
			Asset:      a.Description,
			Annual:     decline,
			Cumulative: cumulative,
			BookValue:  book,
		})
	}

	return entries
}

// DeductionsFor collects each asset's decline claimable in the given
// fiscal year, sorted by asset description.
func DeductionsFor(assets []domain.Asset, fy int) []domain.Deduction {
	var out []domain.Deduction
	for _, a := range assets {
		for _, e := range Schedule(a) {
			if e.FY != fy {
				continue
			}
			out = append(out, domain.Deduction{
				FY:        fy,
				Category:  a.Description,
				Amount:    e.Annual,
				Rate:      decimal.NewFromInt(1),
				RateBasis: "ITAA97_DIVISION_40_PRIME_COST",
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// BookValue is the asset's written-down value at the end of the given
// fiscal year, zero once fully depreciated.
func BookValue(a domain.Asset, fy int) domain.Money {
	for _, e := range Schedule(a) {
		if e.FY == fy {
			return e.BookValue
		}
	}
	if fy >= a.FY+a.LifeYears {
		return domain.NewMoney(decimal.Zero, a.Cost.Currency)
	}
	return a.Cost
}
