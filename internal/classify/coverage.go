package classify

import (
	"github.com/shopspring/decimal"

	"github.com/tysonq/taxmate/internal/domain"
)

// Coverage summarises how much of a transaction history the rules
// actually categorise, by count and by dollar volume in each direction.
type Coverage struct {
	Total   int `json:"total"`
	Labeled int `json:"labeled"`

	DebitTotal    decimal.Decimal `json:"debit_total"`
	DebitLabeled  decimal.Decimal `json:"debit_labeled"`
	CreditTotal   decimal.Decimal `json:"credit_total"`
	CreditLabeled decimal.Decimal `json:"credit_labeled"`
}

// MeasureCoverage computes classification coverage over txns.
func MeasureCoverage(txns []domain.Transaction) Coverage {
	cov := Coverage{
		DebitTotal:    decimal.Zero,
		DebitLabeled:  decimal.Zero,
		CreditTotal:   decimal.Zero,
		CreditLabeled: decimal.Zero,
	}

	for _, t := range txns {
		cov.Total++
		labeled := t.Categorized()
		if labeled {
			cov.Labeled++
		}

		amt := t.Amount.Amount
		if amt.IsNegative() {
			abs := amt.Abs()
			cov.DebitTotal = cov.DebitTotal.Add(abs)
			if labeled {
				cov.DebitLabeled = cov.DebitLabeled.Add(abs)
			}
		} else {
			cov.CreditTotal = cov.CreditTotal.Add(amt)
			if labeled {
				cov.CreditLabeled = cov.CreditLabeled.Add(amt)
			}
		}
	}

	return cov
}

// PctTxns is the share of transactions with at least one category.
func (c Coverage) PctTxns() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Labeled) / float64(c.Total) * 100
}

// PctDebit is the share of outbound spending that is categorised.
func (c Coverage) PctDebit() float64 { return pct(c.DebitLabeled, c.DebitTotal) }

// PctCredit is the share of inbound income that is categorised.
func (c Coverage) PctCredit() float64 { return pct(c.CreditLabeled, c.CreditTotal) }

func pct(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	f, _ := part.Div(whole).Mul(decimal.NewFromInt(100)).Float64()
	return f
}
