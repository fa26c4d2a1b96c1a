package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tysonq/taxmate/internal/cgt"
	"github.com/tysonq/taxmate/internal/domain"
	"github.com/tysonq/taxmate/internal/storage/cache"
	"github.com/tysonq/taxmate/internal/storage/postgres"
	"github.com/tysonq/taxmate/pkg/logger"
	"github.com/tysonq/taxmate/pkg/metrics"
)

// ReportService assembles per-year reports from persisted results,
// with a cache-aside layer so repeated API hits stay cheap.
type ReportService struct {
	repo  *postgres.Repository
	cache *cache.RedisCache
}

func NewReportService(repo *postgres.Repository, redisCache *cache.RedisCache) *ReportService {
	return &ReportService{
		repo:  repo,
		cache: redisCache,
	}
}

func (s *ReportService) GetGainsReport(ctx context.Context, fy int, owner string) (*domain.GainsReport, error) {
	key := cache.GainsKey(fy, owner)

	var cached domain.GainsReport
	if s.getCached(ctx, key, &cached) {
		metrics.RecordReportRequest("gains", true)
		return &cached, nil
	}
	metrics.RecordReportRequest("gains", false)

	timer := metrics.NewTimer()
	gains, err := s.repo.ListGains(ctx, fy, owner)
	metrics.RecordDatabaseQuery("list_gains", statusOf(err), timer.Elapsed().Seconds())
	if err != nil {
		return nil, fmt.Errorf("loading gains for FY%d: %w", fy, err)
	}

	report := buildGainsReport(fy, owner, gains)
	s.putCached(ctx, key, report)
	return report, nil
}

func (s *ReportService) GetDeductionsReport(ctx context.Context, fy int, owner string) (*domain.DeductionsReport, error) {
	key := cache.DeductionsKey(fy, owner)

	var cached domain.DeductionsReport
	if s.getCached(ctx, key, &cached) {
		metrics.RecordReportRequest("deductions", true)
		return &cached, nil
	}
	metrics.RecordReportRequest("deductions", false)

	timer := metrics.NewTimer()
	deductions, err := s.repo.ListDeductions(ctx, fy, owner)
	metrics.RecordDatabaseQuery("list_deductions", statusOf(err), timer.Elapsed().Seconds())
	if err != nil {
		return nil, fmt.Errorf("loading deductions for FY%d: %w", fy, err)
	}

	total := decimal.Zero
	for _, d := range deductions {
		total = total.Add(d.Amount.Amount)
	}

	report := &domain.DeductionsReport{
		FY:          fy,
		FYLabel:     cgt.FYLabel(fy),
		Owner:       owner,
		Deductions:  deductions,
		Total:       total,
		GeneratedAt: time.Now().UTC(),
	}
	s.putCached(ctx, key, report)
	return report, nil
}

// GetSummary builds the household-level view across all owners.
func (s *ReportService) GetSummary(ctx context.Context, fy int) (*domain.HouseholdSummary, error) {
	key := cache.SummaryKey(fy)

	var cached domain.HouseholdSummary
	if s.getCached(ctx, key, &cached) {
		metrics.RecordReportRequest("summary", true)
		return &cached, nil
	}
	metrics.RecordReportRequest("summary", false)

	owners, err := s.repo.ListOwners(ctx, fy)
	if err != nil {
		return nil, fmt.Errorf("listing owners for FY%d: %w", fy, err)
	}

	var persons []domain.PersonPosition
	for _, owner := range owners {
		gains, err := s.repo.ListGains(ctx, fy, owner)
		if err != nil {
			return nil, fmt.Errorf("loading gains for FY%d: %w", fy, err)
		}
		deductions, err := s.repo.ListDeductions(ctx, fy, owner)
		if err != nil {
			return nil, fmt.Errorf("loading deductions for FY%d: %w", fy, err)
		}

		netGains := decimal.Zero
		for _, g := range gains {
			netGains = netGains.Add(g.TaxableGain.Amount)
		}
		totalDeductions := decimal.Zero
		for _, d := range deductions {
			totalDeductions = totalDeductions.Add(d.Amount.Amount)
		}

		persons = append(persons, domain.PersonPosition{
			Name:       owner,
			NetGains:   netGains,
			Deductions: totalDeductions,
		})
	}

	summary := &domain.HouseholdSummary{
		FY:          fy,
		FYLabel:     cgt.FYLabel(fy),
		Persons:     persons,
		GeneratedAt: time.Now().UTC(),
	}
	s.putCached(ctx, key, summary)
	return summary, nil
}

// InvalidateFY drops every cached report for the year, called after a
// pipeline run rewrites the underlying tables.
func (s *ReportService) InvalidateFY(ctx context.Context, fy int) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.DeletePattern(ctx, fmt.Sprintf("taxmate:*:%d*", fy)); err != nil {
		return fmt.Errorf("invalidating FY%d cache: %w", fy, err)
	}
	return nil
}

func buildGainsReport(fy int, owner string, gains []domain.Gain) *domain.GainsReport {
	rawTotal := decimal.Zero
	taxableTotal := decimal.Zero
	discounted, losses := 0, 0

	for _, g := range gains {
		rawTotal = rawTotal.Add(g.RawProfit.Amount)
		taxableTotal = taxableTotal.Add(g.TaxableGain.Amount)
		switch g.Reason {
		case domain.ReasonDiscount:
			discounted++
		case domain.ReasonLoss:
			losses++
		}
	}

	return &domain.GainsReport{
		FY:           fy,
		FYLabel:      cgt.FYLabel(fy),
		Owner:        owner,
		Gains:        gains,
		RawTotal:     rawTotal,
		TaxableTotal: taxableTotal,
		Discounted:   discounted,
		Losses:       losses,
		GeneratedAt:  time.Now().UTC(),
	}
}

func (s *ReportService) getCached(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		metrics.RecordCacheHit()
		return true
	}
	metrics.RecordCacheMiss()
	if !errors.Is(err, cache.ErrNotFound) {
		logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *ReportService) putCached(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
