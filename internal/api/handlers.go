package api

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tysonq/taxmate/internal/service"
	"github.com/tysonq/taxmate/internal/storage/cache"
	"github.com/tysonq/taxmate/internal/storage/postgres"
	"github.com/tysonq/taxmate/pkg/logger"
)

type Handler struct {
	db      *postgres.DB
	cache   *cache.RedisCache
	reports *service.ReportService
}

func NewHandler(db *postgres.DB, redisCache *cache.RedisCache, reports *service.ReportService) *Handler {
	return &Handler{
		db:      db,
		cache:   redisCache,
		reports: reports,
	}
}

// parseFY accepts "2025", "25" and "fy25".
func parseFY(raw string) (int, error) {
	raw = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "fy")
	fy, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid fiscal year %q", raw)
	}
	if fy < 100 {
		fy += 2000
	}
	return fy, nil
}

func (h *Handler) GetGains(c *fiber.Ctx) error {
	start := time.Now()

	fy, err := parseFY(c.Params("fy"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	owner := c.Query("owner")

	report, err := h.reports.GetGainsReport(c.Context(), fy, owner)
	if err != nil {
		logger.Error("gains report failed", zap.Int("fy", fy), zap.Error(err))
		return internalError(c, "failed to build gains report")
	}

	return c.JSON(GainsResponse{
		FY:             report.FYLabel,
		Owner:          report.Owner,
		Gains:          report.Gains,
		RawTotal:       report.RawTotal,
		TaxableTotal:   report.TaxableTotal,
		Discounted:     report.Discounted,
		Losses:         report.Losses,
		ProcessingTime: time.Since(start).String(),
	})
}

func (h *Handler) GetDeductions(c *fiber.Ctx) error {
	start := time.Now()

	fy, err := parseFY(c.Params("fy"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	owner := c.Query("owner")

	report, err := h.reports.GetDeductionsReport(c.Context(), fy, owner)
	if err != nil {
		logger.Error("deductions report failed", zap.Int("fy", fy), zap.Error(err))
		return internalError(c, "failed to build deductions report")
	}

	return c.JSON(DeductionsResponse{
		FY:             report.FYLabel,
		Owner:          report.Owner,
		Deductions:     report.Deductions,
		Total:          report.Total,
		ProcessingTime: time.Since(start).String(),
	})
}

func (h *Handler) GetSummary(c *fiber.Ctx) error {
	start := time.Now()

	fy, err := parseFY(c.Params("fy"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	summary, err := h.reports.GetSummary(c.Context(), fy)
	if err != nil {
		logger.Error("summary failed", zap.Int("fy", fy), zap.Error(err))
		return internalError(c, "failed to build summary")
	}

	if len(summary.Persons) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:     fmt.Sprintf("no results stored for FY%d", fy),
			Code:      fiber.StatusNotFound,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	return c.JSON(SummaryResponse{
		FY:             summary.FYLabel,
		Persons:        summary.Persons,
		ProcessingTime: time.Since(start).String(),
	})
}

func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Version:   "1.0.0",
		Timestamp: time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]ServiceHealth)

	dbStart := time.Now()
	if err := h.db.HealthCheck(ctx); err != nil {
		services["database"] = ServiceHealth{
			Status: "unhealthy",
			Error:  err.Error(),
		}
	} else {
		services["database"] = ServiceHealth{
			Status:  "healthy",
			Latency: time.Since(dbStart).String(),
		}
	}

	redisStart := time.Now()
	if err := h.cache.HealthCheck(ctx); err != nil {
		services["redis"] = ServiceHealth{
			Status: "unhealthy",
			Error:  err.Error(),
		}
	} else {
		services["redis"] = ServiceHealth{
			Status:  "healthy",
			Latency: time.Since(redisStart).String(),
		}
	}

	status := "ready"
	for _, svc := range services {
		if svc.Status != "healthy" {
			status = "not_ready"
			break
		}
	}

	response := HealthResponse{
		Status:    status,
		Version:   "1.0.0",
		Timestamp: time.Now(),
		Services:  services,
	}

	if status != "ready" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response)
	}

	return c.JSON(response)
}

func (h *Handler) InvalidateCache(c *fiber.Ctx) error {
	pattern := c.Params("pattern")
	if pattern == "" {
		return badRequest(c, "pattern is required")
	}

	if err := h.cache.DeletePattern(c.Context(), pattern); err != nil {
		logger.Error("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		return internalError(c, "failed to invalidate cache")
	}

	return c.JSON(fiber.Map{
		"status":  "ok",
		"pattern": pattern,
	})
}

func (h *Handler) GetSystemStats(c *fiber.Ctx) error {
	stats := h.db.Stats()

	return c.JSON(SystemStatsResponse{
		Database: DatabaseStats{
			ActiveConnections: stats.AcquiredConns(),
			IdleConnections:   stats.IdleConns(),
			TotalConnections:  stats.TotalConns(),
			WaitCount:         stats.EmptyAcquireCount(),
			WaitDuration:      stats.AcquireDuration().String(),
		},
		ActiveGoroutines: runtime.NumGoroutine(),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:     msg,
		Code:      fiber.StatusBadRequest,
		RequestID: getRequestID(c),
		Timestamp: time.Now(),
	})
}

func internalError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:     msg,
		Code:      fiber.StatusInternalServerError,
		RequestID: getRequestID(c),
		Timestamp: time.Now(),
	})
}

func getRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestID").(string); ok {
		return id
	}
	return ""
}
