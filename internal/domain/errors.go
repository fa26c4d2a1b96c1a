package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinels for errors.Is checks. The typed errors below wrap these so
// callers can branch on category without unpacking context.
var (
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrInsufficientLots = errors.New("insufficient open lots")
	ErrInvalidTrade     = errors.New("invalid trade")
)

// CurrencyMismatchError reports a Money operation across currencies.
// Always a programming error upstream, never retryable.
type CurrencyMismatchError struct {
	Op    string
	Left  string
	Right string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("cannot %s %s and %s", e.Op, e.Left, e.Right)
}

func (e *CurrencyMismatchError) Unwrap() error { return ErrCurrencyMismatch }

// InsufficientLotsError reports a sell that exhausted the open lots of
// an instrument before being satisfied: the trade history is
// short-selling or missing buy records. Fatal for the instrument.
type InsufficientLotsError struct {
	Code     string
	SellDate time.Time
	Wanted   decimal.Decimal
	Short    decimal.Decimal
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("insufficient open lots for %s: sell of %s units on %s short by %s",
		e.Code, e.Wanted, e.SellDate.Format("2006-01-02"), e.Short)
}

func (e *InsufficientLotsError) Unwrap() error { return ErrInsufficientLots }

// InvalidTradeError reports a malformed trade handed to the ledger:
// wrong action for the operation, or zero/negative units.
type InvalidTradeError struct {
	Code   string
	Action Action
	Detail string
}

func (e *InvalidTradeError) Error() string {
	return fmt.Sprintf("invalid %s trade for %s: %s", e.Action, e.Code, e.Detail)
}

func (e *InvalidTradeError) Unwrap() error { return ErrInvalidTrade }
