package ingestion

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tysonq/taxmate/internal/domain"
)

// TradeParser reads broker trade exports concurrently. Rows are
// independent, so workers parse batches and results are merged; row
// order is restored by the engine's date sort downstream.
type TradeParser struct {
	batchSize int
	workers   int
}

func NewTradeParser(batchSize, workers int) *TradeParser {
	return &TradeParser{
		batchSize: batchSize,
		workers:   workers,
	}
}

type ParseResult struct {
	Trades []domain.Trade
	Errors []error
}

// Parse consumes a CSV with columns
// date,code,action,units,price,fee,owner and a header row.
func (p *TradeParser) Parse(ctx context.Context, reader io.Reader) (*ParseResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.LazyQuotes = true

	jobs := make(chan []string, p.workers*2)
	results := make(chan *ParseResult, p.workers)

	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go p.worker(ctx, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)

		if _, err := csvReader.Read(); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			default:
				record, err := csvReader.Read()
				if err == io.EOF {
					return
				}
				if err != nil {
					continue
				}
				jobs <- record
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	finalResult := &ParseResult{
		Trades: make([]domain.Trade, 0, p.batchSize),
		Errors: make([]error, 0),
	}

	for result := range results {
		finalResult.Trades = append(finalResult.Trades, result.Trades...)
		finalResult.Errors = append(finalResult.Errors, result.Errors...)
	}

	return finalResult, nil
}

func (p *TradeParser) worker(ctx context.Context, jobs <-chan []string,
	results chan<- *ParseResult, wg *sync.WaitGroup) {

	defer wg.Done()

	batch := &ParseResult{
		Trades: make([]domain.Trade, 0, p.batchSize),
	}

	for {
		select {
		case <-ctx.Done():
			if len(batch.Trades) > 0 || len(batch.Errors) > 0 {
				results <- batch
			}
			return

		case record, ok := <-jobs:
			if !ok {
				// Row errors alone still make the batch worth flushing.
				if len(batch.Trades) > 0 || len(batch.Errors) > 0 {
					results <- batch
				}
				return
			}

			trade, err := p.parseRecord(record)
			if err != nil {
				batch.Errors = append(batch.Errors, err)
				continue
			}

			batch.Trades = append(batch.Trades, *trade)

			if len(batch.Trades) >= p.batchSize {
				results <- batch
				batch = &ParseResult{
					Trades: make([]domain.Trade, 0, p.batchSize),
				}
			}
		}
	}
}

func (p *TradeParser) parseRecord(record []string) (*domain.Trade, error) {
	if len(record) < 6 {
		return nil, fmt.Errorf("short trade record: %v", record)
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(record[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid trade date: %w", err)
	}

	action := domain.Action(strings.ToLower(strings.TrimSpace(record[2])))
	if action != domain.ActionBuy && action != domain.ActionSell {
		return nil, fmt.Errorf("invalid trade action %q", record[2])
	}

	units, err := decimal.NewFromString(strings.TrimSpace(record[3]))
	if err != nil {
		return nil, fmt.Errorf("invalid units: %w", err)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(record[4]))
	if err != nil {
		return nil, fmt.Errorf("invalid price: %w", err)
	}

	fee, err := decimal.NewFromString(strings.TrimSpace(record[5]))
	if err != nil {
		return nil, fmt.Errorf("invalid fee: %w", err)
	}

	owner := ""
	if len(record) > 6 {
		owner = strings.TrimSpace(record[6])
	}

	return &domain.Trade{
		Date:   date,
		Code:   strings.ToUpper(strings.TrimSpace(record[1])),
		Action: action,
		Units:  units,
		Price:  domain.NewMoney(price, domain.AUD),
		Fee:    domain.NewMoney(fee, domain.AUD),
		Owner:  owner,
	}, nil
}
