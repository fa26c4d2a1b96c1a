package cgt

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tysonq/taxmate/internal/domain"
)

func TestProcessSimpleBuySell(t *testing.T) {
	engine := NewEngine()

	gains, err := engine.Process([]domain.Trade{
		buy(day(2024, 1, 1), "BHP", "100", "10", "10"),
		sell(day(2024, 6, 1), "BHP", "100", "15", "10"),
	})
	require.NoError(t, err)
	require.Len(t, gains, 1)

	g := gains[0]
	assert.Equal(t, 2024, g.FY)
	assert.Equal(t, "BHP", g.Code)
	// (15-10)*100 minus both the buy and sell fee.
	assert.True(t, g.RawProfit.Amount.Equal(decimal.NewFromInt(480)))
	assert.True(t, g.TaxableGain.Amount.Equal(decimal.NewFromInt(480)))
	assert.Equal(t, domain.ReasonFIFO, g.Reason)
}

func TestProcessLossHarvestedFirst(t *testing.T) {
	engine := NewEngine()

	gains, err := engine.Process([]domain.Trade{
		buy(day(2023, 1, 1), "ABC", "100", "10", "5"),
		buy(day(2023, 6, 1), "ABC", "100", "15", "5"),
		sell(day(2023, 12, 1), "ABC", "100", "12", "5"),
	})
	require.NoError(t, err)
	require.Len(t, gains, 1)

	g := gains[0]
	assert.Equal(t, domain.ReasonLoss, g.Reason)
	// (12-15)*100 - 5 sell fee - 5 buy fee.
	assert.True(t, g.RawProfit.Amount.Equal(decimal.NewFromInt(-310)))
	assert.True(t, g.TaxableGain.Amount.Equal(decimal.NewFromInt(-310)))
	assert.Equal(t, 2024, g.FY)
}

func TestProcessPartialSellLeavesOpenLot(t *testing.T) {
	engine := NewEngine()

	gains, err := engine.Process([]domain.Trade{
		buy(day(2023, 1, 1), "VAS", "100", "10", "10"),
		sell(day(2023, 1, 2), "VAS", "50", "20", "0"),
	})
	require.NoError(t, err)
	require.Len(t, gains, 1)

	g := gains[0]
	// Held one day: no discount. (20-10)*50 minus half the buy fee.
	assert.True(t, g.RawProfit.Amount.Equal(decimal.NewFromInt(495)))
	assert.True(t, g.TaxableGain.Equal(g.RawProfit))
	assert.True(t, g.Units.Equal(decimal.NewFromInt(50)))
}

func TestProcessLongHoldingGetsDiscount(t *testing.T) {
	engine := NewEngine()

	gains, err := engine.Process([]domain.Trade{
		buy(day(2023, 1, 1), "XYZ", "100", "10", "0"),
		sell(day(2025, 1, 10), "XYZ", "100", "15", "0"),
	})
	require.NoError(t, err)
	require.Len(t, gains, 1)

	g := gains[0]
	assert.True(t, g.RawProfit.Amount.Equal(decimal.NewFromInt(500)))
	assert.True(t, g.TaxableGain.Amount.Equal(decimal.NewFromInt(250)))
	// A sole lot that is discount-eligible is tagged discount, not fifo.
	assert.Equal(t, domain.ReasonDiscount, g.Reason)
	assert.Equal(t, 2025, g.FY)
}

func TestProcessDiscountBoundary(t *testing.T) {
	tests := []struct {
		name       string
		sellDate   time.Time
		wantAmount int64
	}{
		{"365 days exactly is not discounted", day(2024, 1, 1), 1000},
		{"366 days is discounted", day(2024, 1, 2), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine()

			gains, err := engine.Process([]domain.Trade{
				buy(day(2023, 1, 1), "XYZ", "100", "10", "0"),
				trade(tt.sellDate, "XYZ", domain.ActionSell, "100", "20", "0"),
			})
			require.NoError(t, err)
			require.Len(t, gains, 1)

			assert.True(t, gains[0].RawProfit.Amount.Equal(decimal.NewFromInt(1000)))
			assert.True(t, gains[0].TaxableGain.Amount.Equal(decimal.NewFromInt(tt.wantAmount)),
				"taxable %s", gains[0].TaxableGain.Amount)
		})
	}
}

func TestProcessSellWithNoBuys(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Process([]domain.Trade{
		sell(day(2024, 1, 1), "GHO", "100", "10", "0"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientLots)
	assert.Contains(t, err.Error(), "GHO")
}

func TestProcessMixedCodesStayIsolated(t *testing.T) {
	engine := NewEngine()

	gains, err := engine.Process([]domain.Trade{
		buy(day(2024, 1, 1), "AAPL", "100", "10", "5"),
		buy(day(2024, 1, 2), "MSFT", "100", "10", "5"),
		sell(day(2024, 6, 1), "MSFT", "100", "15", "5"),
	})
	require.NoError(t, err)
	require.Len(t, gains, 1)

	g := gains[0]
	assert.Equal(t, "MSFT", g.Code)
	assert.True(t, g.RawProfit.Amount.Equal(decimal.NewFromInt(490)))
	assert.Equal(t, domain.ReasonFIFO, g.Reason)
}

func TestProcessMultiFragmentSell(t *testing.T) {
	engine := NewEngine()

	// One sell draws from two lots: a gain fragment per lot, fees
	// prorated per fragment, conservation across fragments.
	gains, err := engine.Process([]domain.Trade{
		buy(day(2024, 1, 1), "BHP", "100", "10", "10"),
		buy(day(2024, 2, 1), "BHP", "100", "12", "10"),
		sell(day(2024, 6, 1), "BHP", "150", "20", "15"),
	})
	require.NoError(t, err)
	require.Len(t, gains, 2)

	total := decimal.Zero
	for _, g := range gains {
		total = total.Add(g.Units)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(150)))

	// First fragment: 100 units of the Jan lot.
	// (20-10)*100 - 15*(100/150) - 10 = 980.
	assert.True(t, gains[0].RawProfit.Amount.Equal(decimal.NewFromInt(980)))
	// Second fragment: 50 units of the Feb lot.
	// (20-12)*50 - 15*(50/150) - 10*(50/100) = 390.
	assert.True(t, gains[1].RawProfit.Amount.Equal(decimal.NewFromInt(390)))
}

func TestProcessOutOfOrderInputIsSorted(t *testing.T) {
	engine := NewEngine()

	// The sell arrives before the buy in the slice; date ordering wins.
	gains, err := engine.Process([]domain.Trade{
		sell(day(2024, 6, 1), "BHP", "100", "15", "0"),
		buy(day(2024, 1, 1), "BHP", "100", "10", "0"),
	})
	require.NoError(t, err)
	require.Len(t, gains, 1)
	assert.True(t, gains[0].RawProfit.Amount.Equal(decimal.NewFromInt(500)))
}

func TestProcessIsDeterministic(t *testing.T) {
	engine := NewEngine()

	trades := []domain.Trade{
		buy(day(2023, 1, 1), "BHP", "100", "10", "5"),
		buy(day(2023, 2, 1), "VAS", "200", "90", "5"),
		buy(day(2023, 6, 1), "BHP", "100", "15", "5"),
		sell(day(2023, 12, 1), "BHP", "150", "12", "5"),
		sell(day(2024, 8, 1), "VAS", "120", "95", "5"),
	}

	first, err := engine.Process(trades)
	require.NoError(t, err)
	second, err := engine.Process(trades)
	require.NoError(t, err)

	require.Equal(t, first, second)

	// Output is grouped by ascending code regardless of input order.
	assert.Equal(t, "BHP", first[0].Code)
	assert.Equal(t, "VAS", first[len(first)-1].Code)
}

func TestEmitCurrencyMismatchPropagates(t *testing.T) {
	engine := NewEngine()

	usdSell := sell(day(2024, 6, 1), "BHP", "100", "15", "0")
	usdSell.Price = domain.NewMoney(decimal.NewFromInt(15), "USD")

	_, err := engine.Process([]domain.Trade{
		buy(day(2024, 1, 1), "BHP", "100", "10", "0"),
		usdSell,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCurrencyMismatch)
}

func BenchmarkEngineProcess(b *testing.B) {
	codes := []string{"BHP", "VAS", "CBA", "WES"}

	var trades []domain.Trade
	for i := 0; i < 2000; i++ {
		code := codes[i%len(codes)]
		date := day(2020, 1, 1).AddDate(0, 0, i)
		trades = append(trades, buy(date, code, "100", fmt.Sprintf("%d", 10+i%20), "5"))
		if i%4 == 3 {
			trades = append(trades, sell(date.AddDate(0, 0, 1), code, "150", fmt.Sprintf("%d", 12+i%20), "5"))
		}
	}

	engine := NewEngine()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := engine.Process(trades); err != nil {
			b.Fatal(err)
		}
	}
}
