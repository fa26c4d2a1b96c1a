package cgt

import (
	"github.com/shopspring/decimal"

	"github.com/tysonq/taxmate/internal/domain"
)

// half is the CGT discount factor for holdings past the threshold.
var half = decimal.New(5, -1)

// Emit computes the realised gain for one (lot fragment, sell) pairing.
//
// Raw profit is the price difference over the consumed units less the
// proportional share of both the sell fee and the originating buy fee.
// The taxable gain halves when the holding period exceeds 365 days;
// the halving follows the holding test alone, so a long-held loss is
// also halved.
func Emit(frag Fragment, sell domain.Trade) (domain.Gain, error) {
	diff, err := sell.Price.Sub(frag.Origin.Price)
	if err != nil {
		return domain.Gain{}, err
	}
	gross := diff.Mul(frag.Units)

	// Multiply before dividing: exact shares stay exact.
	sellFeeShare := sell.Fee.Mul(frag.Units).Div(sell.Units)
	buyFeeShare := frag.Origin.Fee.Mul(frag.Units).Div(frag.Origin.Units)

	raw, err := gross.Sub(sellFeeShare)
	if err != nil {
		return domain.Gain{}, err
	}
	raw, err = raw.Sub(buyFeeShare)
	if err != nil {
		return domain.Gain{}, err
	}

	taxable := raw
	if DiscountEligible(daysBetween(frag.Origin.Date, sell.Date)) {
		taxable = raw.Mul(half)
	}

	return domain.Gain{
		FY:          FinancialYear(sell.Date),
		Code:        sell.Code,
		Units:       frag.Units,
		SellDate:    sell.Date,
		RawProfit:   raw,
		TaxableGain: taxable,
		Reason:      frag.Reason,
	}, nil
}
