package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

// PaymentWebhook ingests processor events. Signature verification is the
// only authentication on this route, so a bad signature is a hard reject.
func (s *Server) PaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, ErrInternal)
		return
	}

	event, err := s.eventParser.VerifyAndParse(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.payoutSvc.HandleEvent(c.Request.Context(), event); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
