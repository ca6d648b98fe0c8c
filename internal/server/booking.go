package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	bookingdomain "github.com/salasbeats/marketplace/internal/booking/domain"
)

type createBookingRequest struct {
	ListingID       string  `json:"listing_id" binding:"required"`
	StartDate       string  `json:"start_date" binding:"required"`
	EndDate         string  `json:"end_date"`
	StartTime       string  `json:"start_time" binding:"required"`
	EndTime         string  `json:"end_time" binding:"required"`
	Guests          int     `json:"guests" binding:"required"`
	TotalAmount     float64 `json:"total_amount" binding:"required"`
	SpecialRequests string  `json:"special_requests"`
}

func (s *Server) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}
	listingID, err := snowflake.ParseString(req.ListingID)
	if err != nil {
		AbortWithError(c, newValidationError("listing_id", "invalid_id", "invalid listing id"))
		return
	}

	booking, err := s.bookingSvc.Create(c.Request.Context(), bookingdomain.CreateBookingRequest{
		ListingID:       listingID,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Guests:          req.Guests,
		TotalAmount:     req.TotalAmount,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": booking})
}

func (s *Server) GetBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	booking, err := s.bookingSvc.GetBooking(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": booking})
}

type transitionBookingRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

func (s *Server) TransitionBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req transitionBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}
	status, ok := bookingdomain.ParseStatus(req.Status)
	if !ok {
		AbortWithError(c, newValidationError("status", "invalid_status", "unknown booking status"))
		return
	}

	booking, err := s.bookingSvc.Transition(c.Request.Context(), bookingdomain.TransitionRequest{
		BookingID: id,
		Status:    status,
		Reason:    req.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": booking})
}

type cancelBookingRequest struct {
	Reason         string   `json:"reason"`
	RefundOverride *float64 `json:"refund_override"`
}

func (s *Server) CancelBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
			return
		}
	}

	booking, err := s.bookingSvc.Cancel(c.Request.Context(), bookingdomain.CancelRequest{
		BookingID:      id,
		Reason:         req.Reason,
		RefundOverride: req.RefundOverride,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": booking})
}

type attachPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

func (s *Server) AttachBookingPayment(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req attachPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("payment_intent_id", "invalid_request", "payment intent id is required"))
		return
	}

	booking, err := s.bookingSvc.AttachPayment(c.Request.Context(), bookingdomain.AttachPaymentRequest{
		BookingID:       id,
		PaymentIntentID: req.PaymentIntentID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": booking})
}

func (s *Server) CheckAvailability(c *gin.Context) {
	listingID, err := snowflake.ParseString(strings.TrimSpace(c.Query("listing_id")))
	if err != nil {
		AbortWithError(c, newValidationError("listing_id", "invalid_id", "invalid listing id"))
		return
	}

	result, err := s.bookingSvc.CheckAvailability(c.Request.Context(), bookingdomain.AvailabilityRequest{
		ListingID: listingID,
		Date:      c.Query("date"),
		StartTime: c.Query("start_time"),
		EndTime:   c.Query("end_time"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func bookingID(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid booking id"))
		return 0, false
	}
	return id, true
}
