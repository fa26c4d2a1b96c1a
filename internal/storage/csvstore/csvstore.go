// Package csvstore writes and reads the audit CSVs kept next to the
// raw statements, one set per person per fiscal year.
package csvstore

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tysonq/taxmate/internal/domain"
)

const dateLayout = "2006-01-02"

func writeAll(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func readAll(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}

// WriteTransactions persists classified transactions for audit.
func WriteTransactions(txns []domain.Transaction, path string) error {
	header := []string{"date", "amount", "currency", "description", "source_bank", "owner", "categories", "is_transfer"}
	rows := make([][]string, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, []string{
			t.Date.Format(dateLayout),
			t.Amount.Amount.String(),
			t.Amount.Currency,
			t.Description,
			t.SourceBank,
			t.Owner,
			strings.Join(t.Categories, "|"),
			strconv.FormatBool(t.IsTransfer),
		})
	}
	return writeAll(path, header, rows)
}

// ReadTransactions loads a previously written transactions CSV.
func ReadTransactions(path string) ([]domain.Transaction, error) {
	_, rows, err := readAll(path)
	if err != nil {
		return nil, err
	}

	var txns []domain.Transaction
	for _, row := range rows {
		if len(row) < 8 {
			continue
		}
		date, err := time.Parse(dateLayout, row[0])
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", row[0], err)
		}
		amount, err := decimal.NewFromString(row[1])
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", row[1], err)
		}
		var cats []string
		if row[6] != "" {
			cats = strings.Split(row[6], "|")
		}
		isTransfer, _ := strconv.ParseBool(row[7])

		txns = append(txns, domain.Transaction{
			Date:        date,
			Amount:      domain.NewMoney(amount, row[2]),
			Description: row[3],
			SourceBank:  row[4],
			Owner:       row[5],
			Categories:  cats,
			IsTransfer:  isTransfer,
		})
	}
	return txns, nil
}

// WriteTrades persists normalised trades.
func WriteTrades(trades []domain.Trade, path string) error {
	header := []string{"date", "code", "action", "units", "price", "fee", "owner"}
	rows := make([][]string, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, []string{
			t.Date.Format(dateLayout),
			t.Code,
			string(t.Action),
			t.Units.String(),
			t.Price.Amount.String(),
			t.Fee.Amount.String(),
			t.Owner,
		})
	}
	return writeAll(path, header, rows)
}

// ReadTrades loads a trades CSV written by WriteTrades.
func ReadTrades(path string) ([]domain.Trade, error) {
	_, rows, err := readAll(path)
	if err != nil {
		return nil, err
	}

	var trades []domain.Trade
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}
		date, err := time.Parse(dateLayout, row[0])
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", row[0], err)
		}
		units, err := decimal.NewFromString(row[3])
		if err != nil {
			return nil, fmt.Errorf("invalid units %q: %w", row[3], err)
		}
		price, err := decimal.NewFromString(row[4])
		if err != nil {
			return nil, fmt.Errorf("invalid price %q: %w", row[4], err)
		}
		fee, err := decimal.NewFromString(row[5])
		if err != nil {
			return nil, fmt.Errorf("invalid fee %q: %w", row[5], err)
		}

		trades = append(trades, domain.Trade{
			Date:   date,
			Code:   row[1],
			Action: domain.Action(row[2]),
			Units:  units,
			Price:  domain.NewMoney(price, domain.AUD),
			Fee:    domain.NewMoney(fee, domain.AUD),
			Owner:  row[6],
		})
	}
	return trades, nil
}

// WriteGains persists the CGT outcome per matched fragment.
func WriteGains(gains []domain.Gain, path string) error {
	header := []string{"fy", "code", "units", "sell_date", "raw_profit", "taxable_gain", "reason"}
	rows := make([][]string, 0, len(gains))
	for _, g := range gains {
		rows = append(rows, []string{
			strconv.Itoa(g.FY),
			g.Code,
			g.Units.String(),
			g.SellDate.Format(dateLayout),
			g.RawProfit.Amount.String(),
			g.TaxableGain.Amount.String(),
			string(g.Reason),
		})
	}
	return writeAll(path, header, rows)
}

// ReadGains loads a gains CSV written by WriteGains.
func ReadGains(path string) ([]domain.Gain, error) {
	_, rows, err := readAll(path)
	if err != nil {
		return nil, err
	}

	var gains []domain.Gain
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}
		fy, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("invalid fy %q: %w", row[0], err)
		}
		units, err := decimal.NewFromString(row[2])
		if err != nil {
			return nil, fmt.Errorf("invalid units %q: %w", row[2], err)
		}
		sellDate, err := time.Parse(dateLayout, row[3])
		if err != nil {
			return nil, fmt.Errorf("invalid sell date %q: %w", row[3], err)
		}
		raw, err := decimal.NewFromString(row[4])
		if err != nil {
			return nil, fmt.Errorf("invalid raw profit %q: %w", row[4], err)
		}
		taxable, err := decimal.NewFromString(row[5])
		if err != nil {
			return nil, fmt.Errorf("invalid taxable gain %q: %w", row[5], err)
		}

		gains = append(gains, domain.Gain{
			FY:          fy,
			Code:        row[1],
			Units:       units,
			SellDate:    sellDate,
			RawProfit:   domain.NewMoney(raw, domain.AUD),
			TaxableGain: domain.NewMoney(taxable, domain.AUD),
			Reason:      domain.Reason(row[6]),
		})
	}
	return gains, nil
}

// WriteDeductions persists the deduction summary.
func WriteDeductions(deductions []domain.Deduction, path string) error {
	header := []string{"fy", "category", "amount", "currency", "rate", "rate_basis"}
	rows := make([][]string, 0, len(deductions))
	for _, d := range deductions {
		rows = append(rows, []string{
			strconv.Itoa(d.FY),
			d.Category,
			d.Amount.Amount.String(),
			d.Amount.Currency,
			d.Rate.String(),
			d.RateBasis,
		})
	}
	return writeAll(path, header, rows)
}

// WriteWeights persists per-category apportionment weights.
func WriteWeights(weights map[string]decimal.Decimal, path string) error {
	cats := make([]string, 0, len(weights))
	for cat := range weights {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	rows := make([][]string, 0, len(cats))
	for _, cat := range cats {
		rows = append(rows, []string{cat, weights[cat].String()})
	}
	return writeAll(path, []string{"category", "weight"}, rows)
}

// ReadWeights loads apportionment weights.
func ReadWeights(path string) (map[string]decimal.Decimal, error) {
	_, rows, err := readAll(path)
	if err != nil {
		return nil, err
	}

	weights := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		w, err := decimal.NewFromString(row[1])
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", row[1], err)
		}
		weights[row[0]] = w
	}
	return weights, nil
}
