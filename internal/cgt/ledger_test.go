package cgt

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tysonq/taxmate/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func aud(v string) domain.Money {
	return domain.NewMoney(decimal.RequireFromString(v), domain.AUD)
}

func buy(date time.Time, code, units, price, fee string) domain.Trade {
	return trade(date, code, domain.ActionBuy, units, price, fee)
}

func sell(date time.Time, code, units, price, fee string) domain.Trade {
	return trade(date, code, domain.ActionSell, units, price, fee)
}

func trade(date time.Time, code string, action domain.Action, units, price, fee string) domain.Trade {
	return domain.Trade{
		Date:   date,
		Code:   code,
		Action: action,
		Units:  decimal.RequireFromString(units),
		Price:  aud(price),
		Fee:    aud(fee),
		Owner:  "tyson",
	}
}

func TestRecordBuyRejectsSell(t *testing.T) {
	l := NewLedger("BHP")
	err := l.RecordBuy(sell(day(2024, 1, 1), "BHP", "100", "10", "0"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidTrade)
}

func TestRecordBuyRejectsNonPositiveUnits(t *testing.T) {
	l := NewLedger("BHP")
	err := l.RecordBuy(buy(day(2024, 1, 1), "BHP", "0", "10", "0"))
	assert.ErrorIs(t, err, domain.ErrInvalidTrade)
}

func TestConsumeSellRejectsBuy(t *testing.T) {
	l := NewLedger("BHP")
	_, err := l.ConsumeSell(buy(day(2024, 1, 1), "BHP", "100", "10", "0"))
	assert.ErrorIs(t, err, domain.ErrInvalidTrade)
}

func TestConsumeSellEmptyLedger(t *testing.T) {
	l := NewLedger("BHP")

	_, err := l.ConsumeSell(sell(day(2024, 1, 1), "BHP", "100", "10", "0"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientLots)

	var short *domain.InsufficientLotsError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, "BHP", short.Code)
	assert.True(t, short.Short.Equal(decimal.NewFromInt(100)))
}

func TestConsumeSellPartiallyExhaustedLedger(t *testing.T) {
	l := NewLedger("BHP")
	require.NoError(t, l.RecordBuy(buy(day(2024, 1, 1), "BHP", "40", "10", "0")))

	_, err := l.ConsumeSell(sell(day(2024, 6, 1), "BHP", "100", "12", "0"))
	require.Error(t, err)

	var short *domain.InsufficientLotsError
	require.True(t, errors.As(err, &short))
	assert.True(t, short.Wanted.Equal(decimal.NewFromInt(100)))
	assert.True(t, short.Short.Equal(decimal.NewFromInt(60)))
}

func TestLossLotConsumedFirst(t *testing.T) {
	l := NewLedger("ABC")
	require.NoError(t, l.RecordBuy(buy(day(2023, 1, 1), "ABC", "100", "10", "5")))
	require.NoError(t, l.RecordBuy(buy(day(2023, 6, 1), "ABC", "100", "15", "5")))

	frags, err := l.ConsumeSell(sell(day(2023, 12, 1), "ABC", "100", "12", "5"))
	require.NoError(t, err)
	require.Len(t, frags, 1)

	// The later, more expensive lot realises a loss and outranks FIFO.
	assert.Equal(t, domain.ReasonLoss, frags[0].Reason)
	assert.True(t, frags[0].Origin.Price.Amount.Equal(decimal.NewFromInt(15)))
	assert.True(t, frags[0].Units.Equal(decimal.NewFromInt(100)))

	open := l.Open()
	require.Len(t, open, 1)
	assert.True(t, open[0].Origin.Price.Amount.Equal(decimal.NewFromInt(10)))
}

func TestBreakEvenLotCountsAsLoss(t *testing.T) {
	l := NewLedger("ABC")
	require.NoError(t, l.RecordBuy(buy(day(2023, 1, 1), "ABC", "100", "8", "0")))
	require.NoError(t, l.RecordBuy(buy(day(2023, 2, 1), "ABC", "100", "12", "0")))

	// Sell at exactly the second lot's cost: >= is a loss candidate.
	frags, err := l.ConsumeSell(sell(day(2023, 12, 1), "ABC", "50", "12", "0"))
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Equal(t, domain.ReasonLoss, frags[0].Reason)
	assert.True(t, frags[0].Origin.Date.Equal(day(2023, 2, 1)))
}

func TestDiscountTierBeforeFIFO(t *testing.T) {
	l := NewLedger("XYZ")
	// Older lot is cheap (no loss); newer lot is also cheap but held
	// long enough to qualify for the discount tier.
	require.NoError(t, l.RecordBuy(buy(day(2023, 6, 1), "XYZ", "100", "10", "0")))
	require.NoError(t, l.RecordBuy(buy(day(2022, 1, 1), "XYZ", "100", "11", "0")))

	frags, err := l.ConsumeSell(sell(day(2024, 1, 1), "XYZ", "100", "20", "0"))
	require.NoError(t, err)
	require.Len(t, frags, 1)

	// 2022-01-01 lot is >365 days old; 2023-06-01 is not.
	assert.Equal(t, domain.ReasonDiscount, frags[0].Reason)
	assert.True(t, frags[0].Origin.Date.Equal(day(2022, 1, 1)))
}

func TestFIFOTieBreakWithinTier(t *testing.T) {
	l := NewLedger("VAS")
	require.NoError(t, l.RecordBuy(buy(day(2024, 2, 1), "VAS", "100", "10", "0")))
	require.NoError(t, l.RecordBuy(buy(day(2024, 1, 1), "VAS", "100", "10", "0")))

	frags, err := l.ConsumeSell(sell(day(2024, 6, 1), "VAS", "100", "20", "0"))
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Equal(t, domain.ReasonFIFO, frags[0].Reason)
	assert.True(t, frags[0].Origin.Date.Equal(day(2024, 1, 1)))
}

func TestEqualDateTieBreakKeepsArrivalOrder(t *testing.T) {
	l := NewLedger("VAS")
	first := buy(day(2024, 1, 1), "VAS", "60", "10", "1")
	second := buy(day(2024, 1, 1), "VAS", "60", "10", "2")
	require.NoError(t, l.RecordBuy(first))
	require.NoError(t, l.RecordBuy(second))

	frags, err := l.ConsumeSell(sell(day(2024, 6, 1), "VAS", "60", "20", "0"))
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.True(t, frags[0].Origin.Fee.Amount.Equal(decimal.NewFromInt(1)))
}

func TestSellCascadesAcrossLots(t *testing.T) {
	l := NewLedger("BHP")
	require.NoError(t, l.RecordBuy(buy(day(2024, 1, 1), "BHP", "100", "10", "0")))
	require.NoError(t, l.RecordBuy(buy(day(2024, 2, 1), "BHP", "100", "11", "0")))

	frags, err := l.ConsumeSell(sell(day(2024, 6, 1), "BHP", "150", "20", "0"))
	require.NoError(t, err)
	require.Len(t, frags, 2)

	// Conservation: fragments sum exactly to the sell quantity.
	total := decimal.Zero
	for _, f := range frags {
		total = total.Add(f.Units)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(150)))

	assert.True(t, frags[0].Units.Equal(decimal.NewFromInt(100)))
	assert.True(t, frags[0].Origin.Date.Equal(day(2024, 1, 1)))
	assert.True(t, frags[1].Units.Equal(decimal.NewFromInt(50)))
	assert.True(t, frags[1].Origin.Date.Equal(day(2024, 2, 1)))

	open := l.Open()
	require.Len(t, open, 1)
	assert.True(t, open[0].RemainingUnits.Equal(decimal.NewFromInt(50)))
}

func TestPartialConsumptionScalesFeeAgainstOriginalLot(t *testing.T) {
	l := NewLedger("BHP")
	require.NoError(t, l.RecordBuy(buy(day(2024, 1, 1), "BHP", "100", "10", "9")))

	// Two successive partial fills of the same lot.
	_, err := l.ConsumeSell(sell(day(2024, 2, 1), "BHP", "30", "20", "0"))
	require.NoError(t, err)

	open := l.Open()
	require.Len(t, open, 1)
	assert.True(t, open[0].RemainingUnits.Equal(decimal.NewFromInt(70)))
	assert.True(t, open[0].RemainingFee.Amount.Equal(decimal.RequireFromString("6.3")))

	_, err = l.ConsumeSell(sell(day(2024, 3, 1), "BHP", "30", "20", "0"))
	require.NoError(t, err)

	open = l.Open()
	require.Len(t, open, 1)
	assert.True(t, open[0].RemainingUnits.Equal(decimal.NewFromInt(40)))
	// 9 * 40/100, scaled against the original lot, not the prior remainder.
	assert.True(t, open[0].RemainingFee.Amount.Equal(decimal.RequireFromString("3.6")))

	// Fee-per-unit ratio is stable across the successive fills.
	ratio := open[0].RemainingFee.Amount.Div(open[0].RemainingUnits)
	assert.True(t, ratio.Equal(decimal.RequireFromString("0.09")))
}

func TestRecordBuyDoesNotMutateOriginalTrade(t *testing.T) {
	l := NewLedger("BHP")
	original := buy(day(2024, 1, 1), "BHP", "100", "10", "8")
	require.NoError(t, l.RecordBuy(original))

	_, err := l.ConsumeSell(sell(day(2024, 2, 1), "BHP", "60", "20", "0"))
	require.NoError(t, err)

	assert.True(t, original.Units.Equal(decimal.NewFromInt(100)))
	assert.True(t, original.Fee.Amount.Equal(decimal.NewFromInt(8)))

	open := l.Open()
	require.Len(t, open, 1)
	assert.True(t, open[0].Origin.Units.Equal(decimal.NewFromInt(100)))
}
