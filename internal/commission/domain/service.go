package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrBookingNotFound     = errors.New("booking_not_found")
	ErrBookingNotCompleted = errors.New("booking_not_completed")
	ErrInvalidRate         = errors.New("invalid_commission_rate")
	ErrInvalidPeriod       = errors.New("invalid_period")
)

type CalculateRequest struct {
	BookingID snowflake.ID
	Source    string
}

type UpdateRateRequest struct {
	Rate      float64
	ChangedBy string
}

type ReportRequest struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	GeneratedBy string
}

type DailyEarnings struct {
	Date     string  `json:"date"`
	Bookings int     `json:"bookings"`
	Earnings float64 `json:"earnings"`
}

// EarningsReport summarizes a host's money position. TotalEarnings and
// TotalPaidOut are scoped to the requested period; PendingEarnings counts all
// currently confirmed bookings regardless of period.
type EarningsReport struct {
	HostID             string          `json:"host_id"`
	PeriodStart        time.Time       `json:"period_start"`
	PeriodEnd          time.Time       `json:"period_end"`
	CompletedBookings  int             `json:"completed_bookings"`
	TotalRevenue       float64         `json:"total_revenue"`
	TotalCommissions   float64         `json:"total_commissions"`
	TotalEarnings      float64         `json:"total_earnings"`
	PendingEarnings    float64         `json:"pending_earnings"`
	TotalPaidOut       float64         `json:"total_paid_out"`
	AvailableForPayout float64         `json:"available_for_payout"`
	DailyBreakdown     []DailyEarnings `json:"daily_breakdown"`
}

type SweepResult struct {
	Processed int     `json:"processed"`
	Skipped   int     `json:"skipped"`
	Total     float64 `json:"total_commission"`
}

// PayoutReader is the slice of the payout store the earnings aggregation
// needs. Implemented by the payout repository.
type PayoutReader interface {
	SumForHost(ctx context.Context, db *gorm.DB, hostID string, from, to time.Time) (float64, error)
}

type Service interface {
	Calculate(ctx context.Context, req CalculateRequest) (*Record, error)
	CurrentRate(ctx context.Context) (float64, error)
	UpdateRate(ctx context.Context, req UpdateRateRequest) (*RateChange, error)
	HostEarnings(ctx context.Context, hostID string, from, to time.Time) (*EarningsReport, error)
	GenerateReport(ctx context.Context, req ReportRequest) (*Report, error)
	SweepCompleted(ctx context.Context, from, to time.Time) (*SweepResult, error)
}
