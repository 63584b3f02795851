package domain

import (
	"context"
	"errors"

	"github.com/shipdesk/shipdesk/pkg/db/pagination"
)

type Service interface {
	// Create allocates a consignment number from the tenant's granted
	// ranges and persists the booking carrying it.
	Create(ctx context.Context, req CreateRequest) (*Booking, error)
	Get(ctx context.Context, bookingRef string) (*Booking, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	// Cancel flips the booking status. The consumed number stays consumed.
	Cancel(ctx context.Context, bookingRef string) (*Booking, error)
	UpdateStatus(ctx context.Context, bookingRef string, status Status) (*Booking, error)
}

type CreateRequest struct {
	TenantType       string            `json:"tenant_type"`
	TenantID         string            `json:"tenant_id"`
	SenderName       string            `json:"sender_name"`
	SenderAddress    string            `json:"sender_address"`
	SenderPincode    string            `json:"sender_pincode"`
	ReceiverName     string            `json:"receiver_name"`
	ReceiverAddress  string            `json:"receiver_address"`
	ReceiverPincode  string            `json:"receiver_pincode"`
	PaymentType      string            `json:"payment_type"`
	ChargeableWeight float64           `json:"chargeable_weight"`
	ActualWeight     string            `json:"actual_weight"`
	PerKgWeight      string            `json:"per_kg_weight"`
	FreightCharge    float64           `json:"freight_charge"`
	TotalAmount      float64           `json:"total_amount"`
	Metadata         map[string]string `json:"metadata"`
}

type ListRequest struct {
	TenantType string `form:"tenant_type"`
	TenantID   string `form:"tenant_id"`
	Status     string `form:"status"`
	PageToken  string `form:"page_token"`
	PageSize   int    `form:"page_size"`
}

type ListResponse struct {
	Bookings []Booking           `json:"bookings"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidTenant   = errors.New("invalid_tenant")
	ErrInvalidSender   = errors.New("invalid_sender")
	ErrInvalidReceiver = errors.New("invalid_receiver")
	ErrInvalidStatus   = errors.New("invalid_status")
	// ErrInvalidTransition rejects status changes that skip or reverse
	// the booked, dispatched, delivered progression.
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrNotFound          = errors.New("not_found")
)

// ParseStatus validates a booking status string.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusBooked, StatusDispatched, StatusDelivered, StatusCancelled:
		return Status(value), nil
	default:
		return "", ErrInvalidStatus
	}
}
