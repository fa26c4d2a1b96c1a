package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tysonq/taxmate/internal/domain"
)

type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version"`
	Timestamp time.Time                `json:"timestamp"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

type ServiceHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      int       `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type GainsResponse struct {
	FY             string          `json:"fy"`
	Owner          string          `json:"owner,omitempty"`
	Gains          []domain.Gain   `json:"gains"`
	RawTotal       decimal.Decimal `json:"raw_total"`
	TaxableTotal   decimal.Decimal `json:"taxable_total"`
	Discounted     int             `json:"discounted"`
	Losses         int             `json:"losses"`
	ProcessingTime string          `json:"processing_time,omitempty"`
}

type DeductionsResponse struct {
	FY             string             `json:"fy"`
	Owner          string             `json:"owner,omitempty"`
	Deductions     []domain.Deduction `json:"deductions"`
	Total          decimal.Decimal    `json:"total"`
	ProcessingTime string             `json:"processing_time,omitempty"`
}

type SummaryResponse struct {
	FY             string                  `json:"fy"`
	Persons        []domain.PersonPosition `json:"persons"`
	ProcessingTime string                  `json:"processing_time,omitempty"`
}

type DatabaseStats struct {
	ActiveConnections int32  `json:"active_connections"`
	IdleConnections   int32  `json:"idle_connections"`
	TotalConnections  int32  `json:"total_connections"`
	WaitCount         int64  `json:"wait_count"`
	WaitDuration      string `json:"wait_duration"`
}

type SystemStatsResponse struct {
	Database         DatabaseStats `json:"database"`
	ActiveGoroutines int           `json:"active_goroutines"`
}
