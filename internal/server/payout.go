package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/salasbeats/marketplace/internal/identity"
	payoutdomain "github.com/salasbeats/marketplace/internal/payout/domain"
)

type requestPayoutRequest struct {
	Amount   float64 `json:"amount" binding:"required"`
	Currency string  `json:"currency"`
}

func (s *Server) RequestPayout(c *gin.Context) {
	var req requestPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("amount", "invalid_request", "amount is required"))
		return
	}

	caller, _ := identity.CallerFromContext(c.Request.Context())
	payout, err := s.payoutSvc.RequestPayout(c.Request.Context(), payoutdomain.RequestPayoutRequest{
		HostID:      caller.ID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		RequestedBy: caller.ID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payout})
}

func (s *Server) ListPayouts(c *gin.Context) {
	caller, _ := identity.CallerFromContext(c.Request.Context())

	payouts, err := s.payoutSvc.ListForHost(c.Request.Context(), caller.ID, 50)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payouts})
}
