package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	allocationdomain "github.com/shipdesk/shipdesk/internal/allocation/domain"
	assignmentdomain "github.com/shipdesk/shipdesk/internal/assignment/domain"
	bookingdomain "github.com/shipdesk/shipdesk/internal/booking/domain"
	ledgerdomain "github.com/shipdesk/shipdesk/internal/ledger/domain"
	settlementdomain "github.com/shipdesk/shipdesk/internal/settlement/domain"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

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

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, assignmentdomain.ErrRangeOverlap):
		payload := errorPayload{
			Type:    "range_overlap",
			Message: "range overlaps an active assignment",
		}
		var overlap *assignmentdomain.OverlapError
		if errors.As(err, &overlap) {
			payload.Detail = overlap.Error()
		}
		return http.StatusConflict, payload
	case errors.Is(err, allocationdomain.ErrNoAssignment):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "no_assignment",
			Message: "tenant has no active number ranges, request a grant first",
		}
	case errors.Is(err, allocationdomain.ErrRangesExhausted):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "ranges_exhausted",
			Message: "all granted numbers are consumed, request a new grant",
		}
	case errors.Is(err, settlementdomain.ErrNothingToInvoice):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "nothing_to_invoice",
			Message: "no unpaid usage in the period",
		}
	case errors.Is(err, allocationdomain.ErrAllocationContention):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "allocation_contention",
			Message: "allocation retries exhausted, retry the request",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, tenant.ErrInvalidType),
		errors.Is(err, assignmentdomain.ErrInvalidTenant),
		errors.Is(err, assignmentdomain.ErrInvalidRange),
		errors.Is(err, assignmentdomain.ErrInvalidGrantor),
		errors.Is(err, assignmentdomain.ErrInvalidID),
		errors.Is(err, ledgerdomain.ErrInvalidTenant),
		errors.Is(err, ledgerdomain.ErrInvalidNumber),
		errors.Is(err, ledgerdomain.ErrInvalidBookingRef),
		errors.Is(err, ledgerdomain.ErrInvalidPaymentType),
		errors.Is(err, ledgerdomain.ErrInvalidInvoiceRef),
		errors.Is(err, ledgerdomain.ErrNumberNotAssigned),
		errors.Is(err, bookingdomain.ErrInvalidTenant),
		errors.Is(err, bookingdomain.ErrInvalidSender),
		errors.Is(err, bookingdomain.ErrInvalidReceiver),
		errors.Is(err, bookingdomain.ErrInvalidStatus),
		errors.Is(err, bookingdomain.ErrInvalidTransition),
		errors.Is(err, settlementdomain.ErrInvalidTenant),
		errors.Is(err, settlementdomain.ErrInvalidPeriod),
		errors.Is(err, settlementdomain.ErrInvalidAmount),
		errors.Is(err, settlementdomain.ErrInvalidSetter):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, assignmentdomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrNotFound),
		errors.Is(err, bookingdomain.ErrNotFound),
		errors.Is(err, settlementdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog feeds the request logger a compact type and code.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return "internal", payload.Type
	}
	return "domain", payload.Type
}
