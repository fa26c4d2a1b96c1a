package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AUD is the currency every bank converter emits unless the source file
// carries its own currency column.
const AUD = "AUD"

// Money is an exact decimal amount tagged with a currency. Values are
// immutable; every operation returns a new Money.
type Money struct {
	Amount   decimal.Decimal `db:"amount" json:"amount"`
	Currency string          `db:"currency" json:"currency"`
}

func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// MoneyFromString parses a decimal string into Money.
func MoneyFromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return Money{Amount: d, Currency: currency}, nil
}

// Add returns m + other. Mixing currencies is a caller bug and fails
// with CurrencyMismatchError; there is no implicit conversion.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, &CurrencyMismatchError{Op: "add", Left: m.Currency, Right: other.Currency}
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub returns m - other, with the same currency contract as Add.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, &CurrencyMismatchError{Op: "subtract", Left: m.Currency, Right: other.Currency}
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// Mul scales the amount by a dimensionless factor. Used for discount
// and fee proration only, never for currency conversion.
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor), Currency: m.Currency}
}

// Div divides the amount by a dimensionless factor. Proration always
// multiplies before dividing so exact ratios stay exact.
func (m Money) Div(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Div(factor), Currency: m.Currency}
}

// Equal reports value equality: same currency and numerically equal
// amounts, regardless of decimal representation.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) String() string {
	return m.Amount.String() + " " + m.Currency
}
