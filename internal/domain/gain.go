package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reason records which priority tier of the lot ledger selected the
// matched lot for a sell.
type Reason string

const (
	// ReasonLoss: the lot was priced at or above the sell price and was
	// consumed first to realise the loss (loss harvesting).
	ReasonLoss Reason = "loss"
	// ReasonDiscount: the lot had been held more than 365 days and
	// qualified for the CGT discount tier.
	ReasonDiscount Reason = "discount"
	// ReasonFIFO: oldest remaining lot, no higher-priority rule applied.
	ReasonFIFO Reason = "fifo"
)

// Gain is one realised capital gain or loss: the pairing of a single
// buy-lot fragment with a single sell trade. A sell that draws from
// several lots emits several gains. Immutable; the ordered gain
// sequence is the engine's primary output and audit trail.
type Gain struct {
	FY          int             `json:"fy"`
	Code        string          `json:"code"`
	Units       decimal.Decimal `json:"units"`
	SellDate    time.Time       `json:"sell_date"`
	RawProfit   Money           `json:"raw_profit"`
	TaxableGain Money           `json:"taxable_gain"`
	Reason      Reason          `json:"reason"`
}
