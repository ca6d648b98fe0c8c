package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/salasbeats/marketplace/internal/authorization"
	commissiondomain "github.com/salasbeats/marketplace/internal/commission/domain"
	"github.com/salasbeats/marketplace/internal/identity"
)

type calculateCommissionRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
}

func (s *Server) CalculateCommission(c *gin.Context) {
	var req calculateCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("booking_id", "invalid_request", "booking id is required"))
		return
	}
	bookingID, err := snowflake.ParseString(req.BookingID)
	if err != nil {
		AbortWithError(c, newValidationError("booking_id", "invalid_id", "invalid booking id"))
		return
	}

	record, err := s.commissionSvc.Calculate(c.Request.Context(), commissiondomain.CalculateRequest{
		BookingID: bookingID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": record})
}

type updateRateRequest struct {
	Rate *float64 `json:"rate" binding:"required"`
}

func (s *Server) UpdateCommissionRate(c *gin.Context) {
	var req updateRateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Rate == nil {
		AbortWithError(c, newValidationError("rate", "invalid_request", "rate is required"))
		return
	}

	caller, _ := identity.CallerFromContext(c.Request.Context())
	change, err := s.commissionSvc.UpdateRate(c.Request.Context(), commissiondomain.UpdateRateRequest{
		Rate:      *req.Rate,
		ChangedBy: caller.ID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": change})
}

type generateReportRequest struct {
	PeriodStart string `json:"period_start" binding:"required"`
	PeriodEnd   string `json:"period_end" binding:"required"`
}

func (s *Server) GenerateCommissionReport(c *gin.Context) {
	var req generateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "period_start and period_end are required"))
		return
	}
	start, err := time.Parse(time.RFC3339, req.PeriodStart)
	if err != nil {
		AbortWithError(c, newValidationError("period_start", "invalid_date", "invalid period start"))
		return
	}
	end, err := time.Parse(time.RFC3339, req.PeriodEnd)
	if err != nil {
		AbortWithError(c, newValidationError("period_end", "invalid_date", "invalid period end"))
		return
	}

	caller, _ := identity.CallerFromContext(c.Request.Context())
	report, err := s.commissionSvc.GenerateReport(c.Request.Context(), commissiondomain.ReportRequest{
		PeriodStart: start.UTC(),
		PeriodEnd:   end.UTC(),
		GeneratedBy: caller.ID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) HostEarnings(c *gin.Context) {
	hostID := strings.TrimSpace(c.Param("id"))
	if hostID == "" {
		AbortWithError(c, newValidationError("id", "invalid_id", "host id is required"))
		return
	}

	// Hosts may only read their own earnings; admins may read anyone's.
	caller, _ := identity.CallerFromContext(c.Request.Context())
	if caller.Role != identity.RoleAdmin && caller.ID != hostID {
		AbortWithError(c, authorization.ErrPermissionDenied)
		return
	}

	now := s.clock.Now()
	from := now.AddDate(0, -1, 0)
	to := now
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			AbortWithError(c, newValidationError("from", "invalid_date", "invalid from date"))
			return
		}
		from = parsed
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			AbortWithError(c, newValidationError("to", "invalid_date", "invalid to date"))
			return
		}
		to = parsed.AddDate(0, 0, 1)
	}

	report, err := s.commissionSvc.HostEarnings(c.Request.Context(), hostID, from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}
