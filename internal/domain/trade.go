package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is the side of a trade fill.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Trade is one fill from a broker export. Immutable: the matching
// engine reads trades but never modifies them; partial consumption of
// a buy produces a new lot value instead.
type Trade struct {
	Date   time.Time       `json:"date"`
	Code   string          `json:"code"`
	Action Action          `json:"action"`
	Units  decimal.Decimal `json:"units"`
	Price  Money           `json:"price"`
	Fee    Money           `json:"fee"`
	Owner  string          `json:"owner"`
}

// TradeFilter narrows queries against stored trades.
type TradeFilter struct {
	Code      string
	Owner     string
	StartDate *time.Time
	EndDate   *time.Time
}
