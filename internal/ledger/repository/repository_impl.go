package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/shipdesk/shipdesk/internal/ledger/domain"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"gorm.io/gorm"
)

const selectColumns = `id, tenant_type, tenant_id, consignment_number, booking_ref, payment_status, payment_type,
	 chargeable_weight, actual_weight, per_kg_weight, freight_charge, total_amount, commission, invoice_ref,
	 consumed_at, created_at, updated_at`

type repo struct{}

func Provide() ledgerdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rec *ledgerdomain.UsageRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO consignment_usages (id, tenant_type, tenant_id, consignment_number, booking_ref, payment_status, payment_type,
		 chargeable_weight, actual_weight, per_kg_weight, freight_charge, total_amount, commission, invoice_ref, consumed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.TenantType,
		rec.TenantID,
		rec.ConsignmentNumber,
		rec.BookingRef,
		rec.PaymentStatus,
		rec.PaymentType,
		rec.ChargeableWeight,
		rec.ActualWeight,
		rec.PerKgWeight,
		rec.FreightCharge,
		rec.TotalAmount,
		rec.Commission,
		rec.InvoiceRef,
		rec.ConsumedAt,
		rec.CreatedAt,
		rec.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ledgerdomain.UsageRecord, error) {
	var rec ledgerdomain.UsageRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM consignment_usages WHERE id = ?`,
		id,
	).Scan(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, nil
	}
	return &rec, nil
}

func (r *repo) FindByBookingRef(ctx context.Context, db *gorm.DB, bookingRef string) (*ledgerdomain.UsageRecord, error) {
	var rec ledgerdomain.UsageRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM consignment_usages WHERE booking_ref = ?`,
		bookingRef,
	).Scan(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, nil
	}
	return &rec, nil
}

func (r *repo) ConsumedNumbers(ctx context.Context, db *gorm.DB, ref tenant.Ref) ([]int64, error) {
	var numbers []int64
	err := db.WithContext(ctx).Raw(
		`SELECT consignment_number FROM consignment_usages
		 WHERE tenant_type = ? AND tenant_id = ?
		 ORDER BY consignment_number ASC`,
		ref.Type,
		ref.ID,
	).Scan(&numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

func (r *repo) CountConsumed(ctx context.Context, db *gorm.DB, ref tenant.Ref) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM consignment_usages WHERE tenant_type = ? AND tenant_id = ?`,
		ref.Type,
		ref.ID,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) FindUnpaid(ctx context.Context, db *gorm.DB, ref tenant.Ref, paymentType *ledgerdomain.PaymentType) ([]ledgerdomain.UsageRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM consignment_usages
		 WHERE tenant_type = ? AND tenant_id = ? AND payment_status = ?`
	args := []any{ref.Type, ref.ID, ledgerdomain.PaymentStatusUnpaid}
	if paymentType != nil {
		query += ` AND payment_type = ?`
		args = append(args, *paymentType)
	}
	query += ` ORDER BY consumed_at ASC`

	var records []ledgerdomain.UsageRecord
	err := db.WithContext(ctx).Raw(query, args...).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) FindUnpaidInPeriod(ctx context.Context, db *gorm.DB, ref tenant.Ref, start, end time.Time) ([]ledgerdomain.UsageRecord, error) {
	var records []ledgerdomain.UsageRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM consignment_usages
		 WHERE tenant_type = ? AND tenant_id = ? AND payment_status = ?
		   AND consumed_at >= ? AND consumed_at < ?
		 ORDER BY consumed_at ASC`,
		ref.Type,
		ref.ID,
		ledgerdomain.PaymentStatusUnpaid,
		start,
		end,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) FindInPeriod(ctx context.Context, db *gorm.DB, ref tenant.Ref, start, end time.Time) ([]ledgerdomain.UsageRecord, error) {
	var records []ledgerdomain.UsageRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM consignment_usages
		 WHERE tenant_type = ? AND tenant_id = ?
		   AND consumed_at >= ? AND consumed_at < ?
		 ORDER BY consumed_at ASC`,
		ref.Type,
		ref.ID,
		start,
		end,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) MarkInvoiced(ctx context.Context, db *gorm.DB, ids []snowflake.ID, invoiceRef string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE consignment_usages
		 SET payment_status = ?, invoice_ref = ?, updated_at = ?
		 WHERE id IN ? AND payment_status = ?`,
		ledgerdomain.PaymentStatusInvoiced,
		invoiceRef,
		at,
		ids,
		ledgerdomain.PaymentStatusUnpaid,
	).Error
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, ids []snowflake.ID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE consignment_usages
		 SET payment_status = ?, updated_at = ?
		 WHERE id IN ? AND payment_status = ?`,
		ledgerdomain.PaymentStatusPaid,
		at,
		ids,
		ledgerdomain.PaymentStatusUnpaid,
	).Error
}

func (r *repo) UpdateSettlement(ctx context.Context, db *gorm.DB, id snowflake.ID, weight, commission float64, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE consignment_usages
		 SET chargeable_weight = CASE WHEN chargeable_weight = 0 THEN ? ELSE chargeable_weight END,
		     commission = CASE WHEN commission = 0 THEN ? ELSE commission END,
		     updated_at = ?
		 WHERE id = ?`,
		weight,
		commission,
		at,
		id,
	).Error
}
