package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/salasbeats/marketplace/internal/authorization"
	bookingdomain "github.com/salasbeats/marketplace/internal/booking/domain"
	commissiondomain "github.com/salasbeats/marketplace/internal/commission/domain"
	hostdomain "github.com/salasbeats/marketplace/internal/host/domain"
	payoutdomain "github.com/salasbeats/marketplace/internal/payout/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInternal        = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// mapError translates domain errors into the API's error kinds. Unknown
// errors deliberately collapse into internal so nothing leaks.
func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_argument",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var invalidTransition *bookingdomain.InvalidTransitionError
	if errors.As(err, &invalidTransition) {
		return http.StatusConflict, errorPayload{
			Type:    "failed_precondition",
			Message: invalidTransition.Error(),
		}
	}

	switch {
	case errors.Is(err, ErrUnauthenticated),
		errors.Is(err, authorization.ErrUnauthenticated):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthenticated",
			Message: "authentication required",
		}

	case errors.Is(err, authorization.ErrPermissionDenied),
		errors.Is(err, payoutdomain.ErrBadSignature):
		return http.StatusForbidden, errorPayload{
			Type:    "permission_denied",
			Message: "permission denied",
		}

	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}

	case isInvalidArgumentError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_argument",
			Message: err.Error(),
		}

	case errors.Is(err, hostdomain.ErrAlreadyOnboarded):
		return http.StatusConflict, errorPayload{
			Type:    "already_exists",
			Message: err.Error(),
		}

	case isFailedPreconditionError(err):
		return http.StatusConflict, errorPayload{
			Type:    "failed_precondition",
			Message: err.Error(),
		}

	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, bookingdomain.ErrNotFound),
		errors.Is(err, bookingdomain.ErrListingNotFound),
		errors.Is(err, commissiondomain.ErrBookingNotFound),
		errors.Is(err, hostdomain.ErrNotFound),
		errors.Is(err, payoutdomain.ErrNotFound),
		errors.Is(err, payoutdomain.ErrHostNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isInvalidArgumentError(err error) bool {
	switch {
	case errors.Is(err, bookingdomain.ErrInvalidTimeWindow),
		errors.Is(err, bookingdomain.ErrInvalidDate),
		errors.Is(err, bookingdomain.ErrInvalidAmount),
		errors.Is(err, bookingdomain.ErrInvalidStatus),
		errors.Is(err, bookingdomain.ErrTooManyGuests),
		errors.Is(err, commissiondomain.ErrInvalidRate),
		errors.Is(err, commissiondomain.ErrInvalidPeriod),
		errors.Is(err, hostdomain.ErrInvalidStatus),
		errors.Is(err, payoutdomain.ErrInvalidAmount):
		return true
	default:
		return false
	}
}

func isFailedPreconditionError(err error) bool {
	switch {
	case errors.Is(err, bookingdomain.ErrSlotUnavailable),
		errors.Is(err, bookingdomain.ErrListingUnavailable),
		errors.Is(err, bookingdomain.ErrAlreadyTerminal),
		errors.Is(err, commissiondomain.ErrBookingNotCompleted),
		errors.Is(err, hostdomain.ErrNoAccount),
		errors.Is(err, payoutdomain.ErrNoProcessorAccount),
		errors.Is(err, payoutdomain.ErrPayoutsDisabled),
		errors.Is(err, payoutdomain.ErrBelowMinimum),
		errors.Is(err, payoutdomain.ErrInsufficientFunds),
		errors.Is(err, payoutdomain.ErrPayoutInFlight):
		return true
	default:
		return false
	}
}
