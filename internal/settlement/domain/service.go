package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/shipdesk/shipdesk/internal/ledger/domain"
	"github.com/shipdesk/shipdesk/internal/tenant"
)

type Service interface {
	// ComputePeriod aggregates the tenant's usage for one calendar month.
	// Safe to re-invoke: derived weight and commission already persisted on
	// a record are reused, never recomputed.
	ComputePeriod(ctx context.Context, ref tenant.Ref, month, year int) (*SettlementReport, error)
	SetOverride(ctx context.Context, req SetOverrideRequest) (*SettlementOverride, error)
	ClearOverride(ctx context.Context, ref tenant.Ref, month, year int) error
	// GenerateInvoice batches the period's unpaid records under a fresh
	// invoice reference and transitions them to invoiced.
	GenerateInvoice(ctx context.Context, ref tenant.Ref, month, year int) (*InvoiceResult, error)
}

type SetOverrideRequest struct {
	Tenant tenant.Ref
	Month  int
	Year   int
	Amount float64
	SetBy  string
	Notes  string
}

// SettlementRow is one usage record with its settled weight and commission.
type SettlementRow struct {
	RecordID          snowflake.ID               `json:"record_id"`
	ConsignmentNumber int64                      `json:"consignment_number"`
	BookingRef        string                     `json:"booking_ref"`
	PaymentType       ledgerdomain.PaymentType   `json:"payment_type"`
	PaymentStatus     ledgerdomain.PaymentStatus `json:"payment_status"`
	Weight            float64                    `json:"weight"`
	Commission        float64                    `json:"commission"`
	FreightCharge     float64                    `json:"freight_charge"`
	TotalAmount       float64                    `json:"total_amount"`
	ConsumedAt        time.Time                  `json:"consumed_at"`
}

type SettlementReport struct {
	TenantType        tenant.Type     `json:"tenant_type"`
	TenantID          string          `json:"tenant_id"`
	Month             int             `json:"month"`
	Year              int             `json:"year"`
	Rows              []SettlementRow `json:"rows"`
	TotalTransactions int             `json:"total_transactions"`
	TotalWeight       float64         `json:"total_weight"`
	TotalCommission   float64         `json:"total_commission"`
	GrandTotal        float64         `json:"grand_total"`
	AutoCharge        float64         `json:"auto_charge"`
	ManualOverride    *float64        `json:"manual_override,omitempty"`
	EffectiveCharge   float64         `json:"effective_charge"`
	RemainingBalance  float64         `json:"remaining_balance"`
}

type InvoiceResult struct {
	InvoiceRef  string  `json:"invoice_ref"`
	RecordCount int     `json:"record_count"`
	TotalAmount float64 `json:"total_amount"`
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidPeriod = errors.New("invalid_period")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidSetter = errors.New("invalid_setter")
	// ErrNothingToInvoice means the period holds no unpaid records.
	ErrNothingToInvoice = errors.New("nothing_to_invoice")
	ErrNotFound         = errors.New("not_found")
)
