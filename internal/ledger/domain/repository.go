package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rec *UsageRecord) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*UsageRecord, error)
	FindByBookingRef(ctx context.Context, db *gorm.DB, bookingRef string) (*UsageRecord, error)
	// ConsumedNumbers returns every number the tenant has consumed, ascending.
	ConsumedNumbers(ctx context.Context, db *gorm.DB, ref tenant.Ref) ([]int64, error)
	CountConsumed(ctx context.Context, db *gorm.DB, ref tenant.Ref) (int64, error)
	FindUnpaid(ctx context.Context, db *gorm.DB, ref tenant.Ref, paymentType *PaymentType) ([]UsageRecord, error)
	FindUnpaidInPeriod(ctx context.Context, db *gorm.DB, ref tenant.Ref, start, end time.Time) ([]UsageRecord, error)
	FindInPeriod(ctx context.Context, db *gorm.DB, ref tenant.Ref, start, end time.Time) ([]UsageRecord, error)
	// MarkInvoiced transitions unpaid records to invoiced. Already-invoiced
	// ids are skipped, making the call idempotent.
	MarkInvoiced(ctx context.Context, db *gorm.DB, ids []snowflake.ID, invoiceRef string, at time.Time) error
	MarkPaid(ctx context.Context, db *gorm.DB, ids []snowflake.ID, at time.Time) error
	// UpdateSettlement backfills derived weight and commission, guarded so
	// non-zero stored figures are never rewritten.
	UpdateSettlement(ctx context.Context, db *gorm.DB, id snowflake.ID, weight, commission float64, at time.Time) error
}
