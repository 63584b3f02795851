// Package domain contains the append-only usage ledger: the durable proof
// that a consignment number was consumed by a booking.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shipdesk/shipdesk/internal/tenant"
)

// PaymentStatus progresses one way: unpaid to paid or invoiced. There is no
// regression and no delete; a cancelled booking keeps its ledger entry.
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusInvoiced PaymentStatus = "invoiced"
)

// PaymentType classifies the booking at creation time and never changes.
type PaymentType string

const (
	PaymentTypeFreightPaid PaymentType = "FP"
	PaymentTypeToPay       PaymentType = "TP"
)

// UsageRecord marks one consignment number as consumed by one booking.
// The unique index over (tenant_type, tenant_id, consignment_number) is the
// uniqueness guarantee the whole allocation subsystem exists to protect.
type UsageRecord struct {
	ID                snowflake.ID  `gorm:"primaryKey"`
	TenantType        tenant.Type   `gorm:"type:text;not null;uniqueIndex:ux_consignment_usages_number,priority:1"`
	TenantID          snowflake.ID  `gorm:"not null;uniqueIndex:ux_consignment_usages_number,priority:2"`
	ConsignmentNumber int64         `gorm:"not null;uniqueIndex:ux_consignment_usages_number,priority:3"`
	BookingRef        string        `gorm:"type:text;not null;index:ix_consignment_usages_booking"`
	PaymentStatus     PaymentStatus `gorm:"type:text;not null;default:unpaid;index:ix_consignment_usages_status"`
	PaymentType       PaymentType   `gorm:"type:text;not null"`
	ChargeableWeight  float64       `gorm:"not null;default:0"`
	ActualWeight      string        `gorm:"type:text"`
	PerKgWeight       string        `gorm:"type:text"`
	FreightCharge     float64       `gorm:"not null;default:0"`
	TotalAmount       float64       `gorm:"not null;default:0"`
	Commission        float64       `gorm:"not null;default:0"`
	InvoiceRef        *string       `gorm:"type:text"`
	ConsumedAt        time.Time     `gorm:"not null"`
	CreatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UsageRecord) TableName() string { return "consignment_usages" }

// Tenant returns the consuming tenant reference.
func (u *UsageRecord) Tenant() tenant.Ref {
	return tenant.Ref{Type: u.TenantType, ID: u.TenantID}
}
