// Package domain holds the booking model and the flow that consumes
// consignment numbers on behalf of callers.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/shipdesk/shipdesk/internal/ledger/domain"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusBooked     Status = "booked"
	StatusDispatched Status = "dispatched"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Booking embeds the consignment number handed out at creation.
// Cancellation flips the status here; the ledger entry for the number is
// append-only and stays untouched.
type Booking struct {
	ID                snowflake.ID             `gorm:"primaryKey"`
	BookingRef        string                   `gorm:"type:text;not null;uniqueIndex:ux_bookings_ref"`
	TenantType        tenant.Type              `gorm:"type:text;not null;index:ix_bookings_tenant,priority:1"`
	TenantID          snowflake.ID             `gorm:"not null;index:ix_bookings_tenant,priority:2"`
	ConsignmentNumber int64                    `gorm:"not null;index:ix_bookings_number"`
	SenderName        string                   `gorm:"type:text;not null"`
	SenderAddress     string                   `gorm:"type:text"`
	SenderPincode     string                   `gorm:"type:text"`
	ReceiverName      string                   `gorm:"type:text;not null"`
	ReceiverAddress   string                   `gorm:"type:text"`
	ReceiverPincode   string                   `gorm:"type:text"`
	PaymentType       ledgerdomain.PaymentType `gorm:"type:text;not null"`
	ChargeableWeight  float64                  `gorm:"not null;default:0"`
	ActualWeight      string                   `gorm:"type:text"`
	PerKgWeight       string                   `gorm:"type:text"`
	FreightCharge     float64                  `gorm:"not null;default:0"`
	TotalAmount       float64                  `gorm:"not null;default:0"`
	Status            Status                   `gorm:"type:text;not null;index:ix_bookings_status"`
	Metadata          datatypes.JSON           `gorm:"type:json"`
	CreatedAt         time.Time                `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time                `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Booking) TableName() string { return "bookings" }

// Tenant returns the owning tenant reference.
func (b *Booking) Tenant() tenant.Ref {
	return tenant.Ref{Type: b.TenantType, ID: b.TenantID}
}
