package cgt

import (
	"fmt"
	"sort"

	"github.com/tysonq/taxmate/internal/domain"
)

// Engine replays a trade history and produces the realised gain
// sequence. It is a pure function of its input: the same trades yield
// an identical gain sequence on every call.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Process groups trades by instrument code, replays each group in
// chronological order against a fresh ledger, and emits gains in
// consumption order. Groups are processed in ascending code order so
// the concatenated output is deterministic.
//
// The first error aborts the whole batch: a data-integrity fault in
// one instrument's history makes the entire export suspect, so no
// partial result is returned.
func (e *Engine) Process(trades []domain.Trade) ([]domain.Gain, error) {
	groups := make(map[string][]domain.Trade)
	for _, t := range trades {
		groups[t.Code] = append(groups[t.Code], t)
	}

	codes := make([]string, 0, len(groups))
	for code := range groups {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var gains []domain.Gain
	for _, code := range codes {
		got, err := e.processInstrument(code, groups[code])
		if err != nil {
			return nil, fmt.Errorf("processing %s: %w", code, err)
		}
		gains = append(gains, got...)
	}

	return gains, nil
}

// processInstrument replays one instrument's history. Sorting is
// stable: trades on the same date keep their original relative order.
func (e *Engine) processInstrument(code string, trades []domain.Trade) ([]domain.Gain, error) {
	ordered := make([]domain.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	ledger := NewLedger(code)
	var gains []domain.Gain

	for _, t := range ordered {
		switch t.Action {
		case domain.ActionBuy:
			if err := ledger.RecordBuy(t); err != nil {
				return nil, err
			}
		case domain.ActionSell:
			frags, err := ledger.ConsumeSell(t)
			if err != nil {
				return nil, err
			}
			for _, frag := range frags {
				g, err := Emit(frag, t)
				if err != nil {
					return nil, err
				}
				gains = append(gains, g)
			}
		default:
			return nil, &domain.InvalidTradeError{Code: code, Action: t.Action, Detail: "unknown action"}
		}
	}

	return gains, nil
}
