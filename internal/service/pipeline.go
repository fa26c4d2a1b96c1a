package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tysonq/taxmate/internal/cgt"
	"github.com/tysonq/taxmate/internal/classify"
	"github.com/tysonq/taxmate/internal/config"
	"github.com/tysonq/taxmate/internal/deduce"
	"github.com/tysonq/taxmate/internal/domain"
	"github.com/tysonq/taxmate/internal/ingestion"
	"github.com/tysonq/taxmate/internal/storage/csvstore"
	"github.com/tysonq/taxmate/internal/storage/postgres"
	"github.com/tysonq/taxmate/internal/transfers"
	"github.com/tysonq/taxmate/internal/validate"
	"github.com/tysonq/taxmate/pkg/logger"
	"github.com/tysonq/taxmate/pkg/metrics"
)

// Pipeline runs the full yearly workflow for every person found in
// the statements directory: ingest, classify, validate, reconcile
// transfers, deduce deductions, match capital gains, persist.
//
// The repository, loader and reports are optional; without them the
// run writes audit CSVs only.
type Pipeline struct {
	cfg        *config.Config
	statements *ingestion.StatementReader
	parser     *ingestion.TradeParser
	engine     *cgt.Engine

	repo    *postgres.Repository
	loader  *ingestion.BulkLoader
	reports *ReportService
}

func NewPipeline(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		statements: ingestion.NewStatementReader(cfg.BeemUsername),
		parser:     ingestion.NewTradeParser(cfg.BatchSize, cfg.Workers),
		engine:     cgt.NewEngine(),
	}
}

// WithStorage attaches database persistence and cache invalidation.
func (p *Pipeline) WithStorage(repo *postgres.Repository, loader *ingestion.BulkLoader, reports *ReportService) *Pipeline {
	p.repo = repo
	p.loader = loader
	p.reports = reports
	return p
}

// PersonResult is what one person's run produced.
type PersonResult struct {
	Person     string
	TxnCount   int
	Coverage   classify.Coverage
	Deductions []domain.Deduction
	Gains      []domain.Gain
	NetSent    domain.Money
}

// Run processes the fiscal year end to end. Persons run concurrently;
// the first failure cancels the rest.
func (p *Pipeline) Run(ctx context.Context, fy int) (map[string]*PersonResult, error) {
	fyDir := filepath.Join(p.cfg.BaseDir, strings.ToLower(cgt.FYLabel(fy)))
	rawDir := filepath.Join(fyDir, "raw")

	timer := metrics.NewTimer()
	txns, err := p.statements.ReadDir(rawDir)
	if err != nil {
		return nil, fmt.Errorf("ingesting statements: %w", err)
	}
	metrics.PipelineDuration.WithLabelValues("ingest").Observe(timer.Elapsed().Seconds())
	for _, t := range txns {
		metrics.RecordTransactionIngested(t.SourceBank)
	}

	rules, err := classify.LoadRules(p.cfg.RulesDir)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	weights, err := p.loadWeights()
	if err != nil {
		return nil, err
	}

	classified := classify.Apply(txns, rules)

	// Transfers reconcile across the whole household before the
	// per-person split, so both directions of a pair are visible.
	reconciled := transfers.Reconcile(classified)

	byPerson := make(map[string][]domain.Transaction)
	for _, t := range classified {
		byPerson[t.Owner] = append(byPerson[t.Owner], t)
	}

	persons := make([]string, 0, len(byPerson))
	for person := range byPerson {
		persons = append(persons, person)
	}
	sort.Strings(persons)

	results := make(map[string]*PersonResult, len(persons))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, person := range persons {
		person := person
		g.Go(func() error {
			result, err := p.runPerson(ctx, fyDir, fy, person, byPerson[person], weights)
			if err != nil {
				return fmt.Errorf("processing %s: %w", person, err)
			}
			result.NetSent = transfers.NetPosition(reconciled, person)

			mu.Lock()
			results[person] = result
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if p.reports != nil {
		if err := p.reports.InvalidateFY(ctx, fy); err != nil {
			logger.Warn("cache invalidation failed", zap.Int("fy", fy), zap.Error(err))
		}
	}

	return results, nil
}

func (p *Pipeline) runPerson(ctx context.Context, fyDir string, fy int, person string,
	txns []domain.Transaction, weights deduce.Weights) (*PersonResult, error) {

	log := logger.Log.With(zap.String("person", person), zap.Int("fy", fy))

	timer := metrics.NewTimer()
	if err := validate.All(txns, fy); err != nil {
		return nil, err
	}
	metrics.PipelineDuration.WithLabelValues("validate").Observe(timer.Elapsed().Seconds())

	coverage := classify.MeasureCoverage(txns)
	log.Info("transactions classified",
		zap.Int("count", coverage.Total),
		zap.Float64("pct_labeled", coverage.PctTxns()))

	deductions := deduce.Deduce(txns, fy, weights, p.cfg.Conservative)

	trades, err := p.loadTrades(ctx, fyDir, person)
	if err != nil {
		return nil, err
	}

	timer = metrics.NewTimer()
	allGains, err := p.engine.Process(trades)
	if err != nil {
		return nil, err
	}
	metrics.PipelineDuration.WithLabelValues("cgt").Observe(timer.Elapsed().Seconds())

	var gains []domain.Gain
	for _, gain := range allGains {
		if gain.FY == fy {
			gains = append(gains, gain)
			metrics.RecordGainEmitted(string(gain.Reason))
		}
	}
	log.Info("capital gains matched",
		zap.Int("trades", len(trades)), zap.Int("gains", len(gains)))

	if err := p.persist(ctx, fyDir, fy, person, txns, trades, gains, deductions); err != nil {
		return nil, err
	}

	return &PersonResult{
		Person:     person,
		TxnCount:   len(txns),
		Coverage:   coverage,
		Deductions: deductions,
		Gains:      gains,
	}, nil
}

func (p *Pipeline) loadWeights() (deduce.Weights, error) {
	path := filepath.Join(p.cfg.BaseDir, "weights.csv")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return deduce.Weights{}, nil
	}

	raw, err := csvstore.ReadWeights(path)
	if err != nil {
		return nil, fmt.Errorf("loading weights: %w", err)
	}

	return deduce.Weights(raw), nil
}

// loadTrades reads the person's broker export if one exists.
func (p *Pipeline) loadTrades(ctx context.Context, fyDir, person string) ([]domain.Trade, error) {
	path := filepath.Join(fyDir, "raw", person, "trades.csv")
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening trades: %w", err)
	}
	defer f.Close()

	result, err := p.parser.Parse(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("parsing trades: %w", err)
	}
	for range result.Trades {
		metrics.RecordTradeIngested("success")
	}
	for _, parseErr := range result.Errors {
		metrics.RecordTradeIngested("error")
		logger.Warn("bad trade row", zap.String("person", person), zap.Error(parseErr))
	}

	trades := result.Trades
	for i := range trades {
		if trades[i].Owner == "" {
			trades[i].Owner = person
		}
	}
	return trades, nil
}

func (p *Pipeline) persist(ctx context.Context, fyDir string, fy int, person string,
	txns []domain.Transaction, trades []domain.Trade,
	gains []domain.Gain, deductions []domain.Deduction) error {

	dataDir := filepath.Join(fyDir, person, "data")
	if err := csvstore.WriteTransactions(txns, filepath.Join(dataDir, "transactions.csv")); err != nil {
		return err
	}
	if err := csvstore.WriteTrades(trades, filepath.Join(dataDir, "trades.csv")); err != nil {
		return err
	}
	if err := csvstore.WriteGains(gains, filepath.Join(dataDir, "gains.csv")); err != nil {
		return err
	}
	if err := csvstore.WriteDeductions(deductions, filepath.Join(dataDir, "deductions.csv")); err != nil {
		return err
	}

	if p.repo == nil {
		return nil
	}

	if p.loader != nil && len(trades) > 0 {
		if _, err := p.loader.LoadTradesConcurrent(ctx, trades); err != nil {
			return fmt.Errorf("loading trades into database: %w", err)
		}
	}
	if err := p.repo.SaveGains(ctx, person, gains); err != nil {
		return err
	}
	return p.repo.SaveDeductions(ctx, person, deductions)
}
