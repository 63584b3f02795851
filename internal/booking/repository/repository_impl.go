package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/shipdesk/shipdesk/internal/booking/domain"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"github.com/shipdesk/shipdesk/pkg/db/option"
	"github.com/shipdesk/shipdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

const selectColumns = `id, booking_ref, tenant_type, tenant_id, consignment_number,
	 sender_name, sender_address, sender_pincode, receiver_name, receiver_address, receiver_pincode,
	 payment_type, chargeable_weight, actual_weight, per_kg_weight, freight_charge, total_amount,
	 status, metadata, created_at, updated_at`

type repo struct{}

func Provide() bookingdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, b *bookingdomain.Booking) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bookings (id, booking_ref, tenant_type, tenant_id, consignment_number,
		 sender_name, sender_address, sender_pincode, receiver_name, receiver_address, receiver_pincode,
		 payment_type, chargeable_weight, actual_weight, per_kg_weight, freight_charge, total_amount,
		 status, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.BookingRef,
		b.TenantType,
		b.TenantID,
		b.ConsignmentNumber,
		b.SenderName,
		b.SenderAddress,
		b.SenderPincode,
		b.ReceiverName,
		b.ReceiverAddress,
		b.ReceiverPincode,
		b.PaymentType,
		b.ChargeableWeight,
		b.ActualWeight,
		b.PerKgWeight,
		b.FreightCharge,
		b.TotalAmount,
		b.Status,
		b.Metadata,
		b.CreatedAt,
		b.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*bookingdomain.Booking, error) {
	var b bookingdomain.Booking
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM bookings WHERE id = ?`,
		id,
	).Scan(&b).Error
	if err != nil {
		return nil, err
	}
	if b.ID == 0 {
		return nil, nil
	}
	return &b, nil
}

func (r *repo) FindByRef(ctx context.Context, db *gorm.DB, bookingRef string) (*bookingdomain.Booking, error) {
	var b bookingdomain.Booking
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM bookings WHERE booking_ref = ?`,
		bookingRef,
	).Scan(&b).Error
	if err != nil {
		return nil, err
	}
	if b.ID == 0 {
		return nil, nil
	}
	return &b, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ref tenant.Ref, filter bookingdomain.ListFilter, page pagination.Pagination) ([]*bookingdomain.Booking, error) {
	var bookings []*bookingdomain.Booking
	stmt := db.WithContext(ctx).
		Model(&bookingdomain.Booking{}).
		Where("tenant_type = ? AND tenant_id = ?", ref.Type, ref.ID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_at <= ?", *filter.CreatedTo)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status bookingdomain.Status, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		at,
		id,
	).Error
}
