package ingestion

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tysonq/taxmate/internal/domain"
)

// StatementReader turns raw bank statement CSVs into normalised
// transactions using the per-bank converters.
type StatementReader struct {
	converters map[string]ConvertFunc
}

func NewStatementReader(beemUsername string) *StatementReader {
	return &StatementReader{converters: Converters(beemUsername)}
}

// Read parses one statement. The bank selects the converter; the
// owner is stamped on every row.
func (r *StatementReader) Read(reader io.Reader, bank, owner string) ([]domain.Transaction, error) {
	convert, ok := r.converters[bank]
	if !ok {
		return nil, fmt.Errorf("unknown source bank %q", bank)
	}

	csvReader := csv.NewReader(reader)
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s header: %w", bank, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.ToLower(header[i]))
	}

	var txns []domain.Transaction
	line := 1
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", bank, line, err)
		}
		if len(record) < len(header) {
			continue
		}

		row := make(map[string]string, len(header)+1)
		for i, h := range header {
			row[h] = record[i]
		}
		row["owner"] = owner

		txn, err := convert(row)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", bank, line, err)
		}
		txns = append(txns, txn)
	}

	return txns, nil
}

// ReadDir loads every statement under dir laid out as
// <owner>/<bank>.csv or <owner>/<bank>_<anything>.csv.
func (r *StatementReader) ReadDir(dir string) ([]domain.Transaction, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading statements dir: %w", err)
	}

	var all []domain.Transaction
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		owner := entry.Name()

		files, err := filepath.Glob(filepath.Join(dir, owner, "*.csv"))
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			bank := bankFromFilename(filepath.Base(file))
			if _, known := r.converters[bank]; !known {
				continue
			}

			f, err := os.Open(file)
			if err != nil {
				return nil, fmt.Errorf("opening %s: %w", file, err)
			}
			txns, err := r.Read(f, bank, owner)
			f.Close()
			if err != nil {
				return nil, err
			}
			all = append(all, txns...)
		}
	}

	return all, nil
}

func bankFromFilename(name string) string {
	name = strings.TrimSuffix(strings.ToLower(name), ".csv")
	if idx := strings.Index(name, "_"); idx > 0 {
		name = name[:idx]
	}
	return name
}
