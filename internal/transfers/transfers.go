// Package transfers reconciles money movements between household
// members so they are never double counted as spending.
package transfers

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tysonq/taxmate/internal/domain"
)

// Transfer is the consolidated flow between one ordered pair of people.
type Transfer struct {
	FromPerson string
	ToPerson   string
	Amount     domain.Money
	DateFirst  time.Time
	DateLast   time.Time
	TxnCount   int
}

// Pair keys a reconciled transfer by sender and recipient.
type Pair struct {
	From string
	To   string
}

// IsTransfer reports whether the transaction was labelled as a
// transfer by the keyword rules.
func IsTransfer(txn domain.Transaction) bool {
	for _, c := range txn.Categories {
		if c == "transfers" {
			return true
		}
	}
	return false
}

var nonPersonHints = []string{"other bank", "savings", "cash"}

// ExtractRecipient pulls the counterparty name out of a bank
// description. Understands "transfer to <name>" and
// "direct credit <ref> <name>" formats.
func ExtractRecipient(description string) string {
	desc := strings.ToLower(description)

	if idx := strings.LastIndex(desc, "transfer to"); idx >= 0 {
		after := strings.TrimSpace(desc[idx+len("transfer to"):])
		if after != "" && !containsAny(after, nonPersonHints) {
			after = strings.ReplaceAll(after, "app", "")
			after = strings.ReplaceAll(after, "netbank", "")
			return strings.TrimSpace(after)
		}
	}

	if idx := strings.LastIndex(desc, "direct credit"); idx >= 0 {
		after := strings.TrimSpace(desc[idx+len("direct credit"):])
		parts := strings.Fields(after)
		if len(parts) >= 2 {
			// First token is the payment reference number.
			return strings.Join(parts[1:], " ")
		}
	}

	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Reconcile groups labelled outbound transfers by sender/recipient
// pair. Debits and descriptions with no recognisable recipient are
// skipped.
func Reconcile(txns []domain.Transaction) map[Pair]Transfer {
	pairs := make(map[Pair][]domain.Transaction)

	for _, txn := range txns {
		if !IsTransfer(txn) || txn.Amount.Amount.IsNegative() {
			continue
		}
		recipient := ExtractRecipient(txn.Description)
		if recipient == "" {
			continue
		}
		key := Pair{From: txn.Owner, To: recipient}
		pairs[key] = append(pairs[key], txn)
	}

	result := make(map[Pair]Transfer, len(pairs))
	for key, group := range pairs {
		sort.Slice(group, func(i, j int) bool { return group[i].Date.Before(group[j].Date) })

		total := domain.NewMoney(decimal.Zero, group[0].Amount.Currency)
		for _, txn := range group {
			total, _ = total.Add(txn.Amount)
		}

		result[key] = Transfer{
			FromPerson: key.From,
			ToPerson:   key.To,
			Amount:     total,
			DateFirst:  group[0].Date,
			DateLast:   group[len(group)-1].Date,
			TxnCount:   len(group),
		}
	}

	return result
}

// NetPosition is what the person has sent minus what they have
// received. Positive means money flowed out on balance.
func NetPosition(transfers map[Pair]Transfer, person string) domain.Money {
	balance := decimal.Zero
	currency := ""

	for _, t := range transfers {
		switch person {
		case t.FromPerson:
			balance = balance.Add(t.Amount.Amount)
		case t.ToPerson:
			balance = balance.Sub(t.Amount.Amount)
		}
		if currency == "" {
			currency = t.Amount.Currency
		}
	}

	if currency == "" {
		currency = domain.AUD
	}
	return domain.NewMoney(balance, currency)
}
