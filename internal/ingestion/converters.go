package ingestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tysonq/taxmate/internal/domain"
)

// ConvertFunc turns one statement row, keyed by header name, into a
// normalised transaction.
type ConvertFunc func(row map[string]string) (domain.Transaction, error)

// Converters maps a source bank name to its row converter. The beem
// username decides transaction sign for that source.
func Converters(beemUsername string) map[string]ConvertFunc {
	return map[string]ConvertFunc{
		"anz":  func(row map[string]string) (domain.Transaction, error) { return stdBank(row, "anz") },
		"cba":  func(row map[string]string) (domain.Transaction, error) { return stdBank(row, "cba") },
		"beem": func(row map[string]string) (domain.Transaction, error) { return beem(row, beemUsername) },
		"wise": wise,
	}
}

var dayFirstFormats = []string{"02/01/2006", "2/1/2006", "02-01-2006", "2006-01-02"}

var monthFirstFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

func parseDate(s string, dayFirst bool) (time.Time, error) {
	formats := monthFirstFormats
	if dayFirst {
		formats = dayFirstFormats
	}
	s = strings.TrimSpace(s)
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// sanitizeDesc lowercases and strips punctuation so keyword rules
// match regardless of bank formatting quirks.
func sanitizeDesc(desc string) string {
	desc = strings.ToLower(strings.TrimSpace(desc))
	desc = strings.ReplaceAll(desc, `"`, "")
	desc = strings.ReplaceAll(desc, "-", " ")
	desc = strings.ReplaceAll(desc, "'", "")
	return desc
}

func stdBank(row map[string]string, bank string) (domain.Transaction, error) {
	date, err := parseDate(row["date_raw"], true)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%s row: %w", bank, err)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(row["amount"]))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%s row: invalid amount %q", bank, row["amount"])
	}

	return domain.Transaction{
		Date:        date,
		Amount:      domain.NewMoney(amount, domain.AUD),
		Description: sanitizeDesc(row["description_raw"]),
		SourceBank:  bank,
		Owner:       row["owner"],
	}, nil
}

func beem(row map[string]string, username string) (domain.Transaction, error) {
	date, err := parseDate(row["datetime"], false)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("beem row: %w", err)
	}

	raw := strings.NewReplacer("$", "", ",", "").Replace(row["amount_str"])
	abs, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("beem row: invalid amount %q", row["amount_str"])
	}

	amount := abs
	if row["payer"] == username {
		amount = abs.Neg()
	}

	direction, target := "to", row["recipient"]
	if row["recipient"] == username {
		direction, target = "from", row["payer"]
	}
	desc := fmt.Sprintf("beem %s %s %s for %s",
		strings.ToLower(row["type"]), direction, target, row["message"])

	return domain.Transaction{
		Date:        date,
		Amount:      domain.NewMoney(amount, domain.AUD),
		Description: sanitizeDesc(desc),
		SourceBank:  "beem",
		Owner:       row["owner"],
	}, nil
}

func wise(row map[string]string) (domain.Transaction, error) {
	date, err := parseDate(row["created_on"], false)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("wise row: %w", err)
	}

	fee := decimal.Zero
	if s := strings.TrimSpace(row["target_fee_amount"]); s != "" {
		if fee, err = decimal.NewFromString(s); err != nil {
			return domain.Transaction{}, fmt.Errorf("wise row: invalid fee %q", s)
		}
	}
	after, err := decimal.NewFromString(strings.TrimSpace(row["target_amount_after_fees"]))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("wise row: invalid amount %q", row["target_amount_after_fees"])
	}
	total := after.Add(fee)

	currency := strings.ToUpper(strings.TrimSpace(row["target_currency"]))
	if currency == "" {
		currency = domain.AUD
	}

	direction := strings.ToLower(row["direction"])
	var amount decimal.Decimal
	var desc string
	switch direction {
	case "in":
		amount = total
		desc = fmt.Sprintf("wise deposit in %s", currency)
	case "neutral":
		desc = fmt.Sprintf("wise conversion from %s to %s", row["source_currency"], currency)
	case "cancelled":
		desc = fmt.Sprintf("wise cancelled payment to %s", row["target_name"])
	default:
		amount = total.Neg()
		desc = fmt.Sprintf("wise payment in %s to %s", currency, row["target_name"])
	}

	return domain.Transaction{
		Date:        date,
		Amount:      domain.NewMoney(amount, currency),
		Description: sanitizeDesc(desc),
		SourceBank:  "wise",
		Owner:       row["owner"],
	}, nil
}
