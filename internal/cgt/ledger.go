package cgt

import (
	"github.com/shopspring/decimal"

	"github.com/tysonq/taxmate/internal/domain"
)

// Lot is a buy trade fragment still available to satisfy future sells.
// RemainingFee always scales against the original lot size, so repeated
// partial fills cannot accumulate rounding drift.
type Lot struct {
	Origin         domain.Trade
	RemainingUnits decimal.Decimal
	RemainingFee   domain.Money

	seq int
}

// Fragment is the slice of a lot consumed by one sell, tagged with the
// priority tier that selected it.
type Fragment struct {
	Origin domain.Trade
	Units  decimal.Decimal
	Reason domain.Reason
}

// Ledger holds the open buy lots of a single instrument and resolves
// sells against them. It is owned exclusively by one replay loop; lots
// are replaced, never mutated.
type Ledger struct {
	code    string
	lots    []Lot
	nextSeq int
}

func NewLedger(code string) *Ledger {
	return &Ledger{code: code}
}

// Open returns the current open lots, oldest insertion first.
func (l *Ledger) Open() []Lot {
	out := make([]Lot, len(l.lots))
	copy(out, l.lots)
	return out
}

// RecordBuy appends a new open lot. Handing it anything but a positive
// buy is a caller contract violation.
func (l *Ledger) RecordBuy(trade domain.Trade) error {
	if trade.Action != domain.ActionBuy {
		return &domain.InvalidTradeError{Code: l.code, Action: trade.Action, Detail: "record_buy requires a buy"}
	}
	if !trade.Units.IsPositive() {
		return &domain.InvalidTradeError{Code: l.code, Action: trade.Action, Detail: "units must be positive"}
	}
	l.lots = append(l.lots, Lot{
		Origin:         trade,
		RemainingUnits: trade.Units,
		RemainingFee:   trade.Fee,
		seq:            l.nextSeq,
	})
	l.nextSeq++
	return nil
}

// ConsumeSell satisfies a sell against the open lots and returns the
// consumed fragments in consumption order.
//
// Candidate lots are ranked by a three-tier priority, re-evaluated for
// each unit of outstanding demand:
//
//  1. loss lots - priced at or above the sell price (harvest losses first)
//  2. discount lots - held more than 365 days at the sell date
//  3. everything else, oldest buy first (FIFO)
//
// Ascending buy date breaks ties inside every tier; equal dates keep
// their arrival order. Exhausting the ledger before the sell is
// satisfied means the history is short-selling or missing buys and
// fails with InsufficientLotsError.
func (l *Ledger) ConsumeSell(trade domain.Trade) ([]Fragment, error) {
	if trade.Action != domain.ActionSell {
		return nil, &domain.InvalidTradeError{Code: l.code, Action: trade.Action, Detail: "consume_sell requires a sell"}
	}
	if !trade.Units.IsPositive() {
		return nil, &domain.InvalidTradeError{Code: l.code, Action: trade.Action, Detail: "units must be positive"}
	}

	var frags []Fragment
	need := trade.Units

	for need.IsPositive() {
		if len(l.lots) == 0 {
			return nil, &domain.InsufficientLotsError{
				Code:     l.code,
				SellDate: trade.Date,
				Wanted:   trade.Units,
				Short:    need,
			}
		}

		i := l.selectLot(trade)
		lot := l.lots[i]
		reason := l.reasonFor(lot, trade)

		if lot.RemainingUnits.LessThanOrEqual(need) {
			frags = append(frags, Fragment{Origin: lot.Origin, Units: lot.RemainingUnits, Reason: reason})
			need = need.Sub(lot.RemainingUnits)
			l.lots = append(l.lots[:i], l.lots[i+1:]...)
			continue
		}

		frags = append(frags, Fragment{Origin: lot.Origin, Units: need, Reason: reason})
		remaining := lot.RemainingUnits.Sub(need)
		l.lots[i] = Lot{
			Origin:         lot.Origin,
			RemainingUnits: remaining,
			RemainingFee:   lot.Origin.Fee.Mul(remaining).Div(lot.Origin.Units),
			seq:            lot.seq,
		}
		need = decimal.Zero
	}

	return frags, nil
}

// selectLot returns the index of the highest-priority open lot for the
// given sell.
func (l *Ledger) selectLot(sell domain.Trade) int {
	best := 0
	for i := 1; i < len(l.lots); i++ {
		if l.ranksBefore(l.lots[i], l.lots[best], sell) {
			best = i
		}
	}
	return best
}

// ranksBefore reports whether lot a outranks lot b for this sell:
// loss before non-loss, then discount-eligible before not, then the
// earlier buy date, then arrival order.
func (l *Ledger) ranksBefore(a, b Lot, sell domain.Trade) bool {
	aLoss, bLoss := l.isLoss(a, sell), l.isLoss(b, sell)
	if aLoss != bLoss {
		return aLoss
	}
	aDisc, bDisc := l.isDiscounted(a, sell), l.isDiscounted(b, sell)
	if aDisc != bDisc {
		return aDisc
	}
	if !a.Origin.Date.Equal(b.Origin.Date) {
		return a.Origin.Date.Before(b.Origin.Date)
	}
	return a.seq < b.seq
}

// isLoss: selling at or below cost.
func (l *Ledger) isLoss(lot Lot, sell domain.Trade) bool {
	return lot.Origin.Price.Amount.GreaterThanOrEqual(sell.Price.Amount)
}

func (l *Ledger) isDiscounted(lot Lot, sell domain.Trade) bool {
	return DiscountEligible(daysBetween(lot.Origin.Date, sell.Date))
}

// reasonFor tags the fragment with the tier that selected the lot.
// A lot that is both discount-eligible and the sole FIFO candidate is
// tagged "discount": eligibility is checked before the FIFO fallback,
// as an explicit rule rather than incidental control flow.
func (l *Ledger) reasonFor(lot Lot, sell domain.Trade) domain.Reason {
	switch {
	case l.isLoss(lot, sell):
		return domain.ReasonLoss
	case l.isDiscounted(lot, sell):
		return domain.ReasonDiscount
	default:
		return domain.ReasonFIFO
	}
}
