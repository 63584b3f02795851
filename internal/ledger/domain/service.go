package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shipdesk/shipdesk/internal/tenant"
)

type Service interface {
	// RecordUsage durably marks one number as consumed by one booking.
	// This is the sole place the uniqueness invariant is enforced: a
	// concurrent writer racing for the same number gets ErrDuplicateUsage
	// and must re-propose a candidate.
	RecordUsage(ctx context.Context, req RecordUsageRequest) (*UsageRecord, error)
	// Get and GetByBookingRef are the read surface for manifest and
	// dispatch views. Neither mutates the ledger.
	Get(ctx context.Context, id snowflake.ID) (*UsageRecord, error)
	GetByBookingRef(ctx context.Context, bookingRef string) (*UsageRecord, error)
	FindUnpaid(ctx context.Context, ref tenant.Ref, paymentType *PaymentType) ([]UsageRecord, error)
	FindUnpaidInPeriod(ctx context.Context, ref tenant.Ref, start, end time.Time) ([]UsageRecord, error)
	MarkInvoiced(ctx context.Context, ids []snowflake.ID, invoiceRef string) error
	MarkPaid(ctx context.Context, ids []snowflake.ID) error
	ConsumedNumbers(ctx context.Context, ref tenant.Ref) ([]int64, error)
}

type RecordUsageRequest struct {
	Tenant            tenant.Ref
	ConsignmentNumber int64
	BookingRef        string
	PaymentType       PaymentType
	ChargeableWeight  float64
	ActualWeight      string
	PerKgWeight       string
	FreightCharge     float64
	TotalAmount       float64
}

var (
	ErrInvalidTenant      = errors.New("invalid_tenant")
	ErrInvalidNumber      = errors.New("invalid_consignment_number")
	ErrInvalidBookingRef  = errors.New("invalid_booking_ref")
	ErrInvalidPaymentType = errors.New("invalid_payment_type")
	ErrInvalidInvoiceRef  = errors.New("invalid_invoice_ref")
	// ErrNumberNotAssigned rejects numbers outside the tenant's active ranges.
	ErrNumberNotAssigned = errors.New("number_not_assigned")
	// ErrDuplicateUsage signals the uniqueness constraint fired. Callers
	// translate it into a re-proposal, never surface it to the end caller.
	ErrDuplicateUsage = errors.New("duplicate_usage")
	ErrNotFound       = errors.New("not_found")
)

// ParsePaymentType validates the FP/TP classification.
func ParsePaymentType(value string) (PaymentType, error) {
	switch PaymentType(value) {
	case PaymentTypeFreightPaid:
		return PaymentTypeFreightPaid, nil
	case PaymentTypeToPay:
		return PaymentTypeToPay, nil
	default:
		return "", ErrInvalidPaymentType
	}
}
