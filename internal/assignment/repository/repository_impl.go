package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	assignmentdomain "github.com/shipdesk/shipdesk/internal/assignment/domain"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() assignmentdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, ra *assignmentdomain.RangeAssignment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO consignment_ranges (id, tenant_type, tenant_id, start_number, end_number, total_numbers, granted_by, notes, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ra.ID,
		ra.TenantType,
		ra.TenantID,
		ra.StartNumber,
		ra.EndNumber,
		ra.TotalNumbers,
		ra.GrantedBy,
		ra.Notes,
		ra.Active,
		ra.CreatedAt,
		ra.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*assignmentdomain.RangeAssignment, error) {
	var ra assignmentdomain.RangeAssignment
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_type, tenant_id, start_number, end_number, total_numbers, granted_by, notes, active, created_at, updated_at
		 FROM consignment_ranges WHERE id = ?`,
		id,
	).Scan(&ra).Error
	if err != nil {
		return nil, err
	}
	if ra.ID == 0 {
		return nil, nil
	}
	return &ra, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, ref tenant.Ref) ([]assignmentdomain.RangeAssignment, error) {
	var ranges []assignmentdomain.RangeAssignment
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_type, tenant_id, start_number, end_number, total_numbers, granted_by, notes, active, created_at, updated_at
		 FROM consignment_ranges
		 WHERE tenant_type = ? AND tenant_id = ? AND active
		 ORDER BY start_number ASC`,
		ref.Type,
		ref.ID,
	).Scan(&ranges).Error
	if err != nil {
		return nil, err
	}
	return ranges, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ref tenant.Ref) ([]assignmentdomain.RangeAssignment, error) {
	var ranges []assignmentdomain.RangeAssignment
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_type, tenant_id, start_number, end_number, total_numbers, granted_by, notes, active, created_at, updated_at
		 FROM consignment_ranges
		 WHERE tenant_type = ? AND tenant_id = ?
		 ORDER BY start_number ASC`,
		ref.Type,
		ref.ID,
	).Scan(&ranges).Error
	if err != nil {
		return nil, err
	}
	return ranges, nil
}

func (r *repo) FindOverlap(ctx context.Context, db *gorm.DB, start, end int64) (*assignmentdomain.RangeAssignment, error) {
	var ra assignmentdomain.RangeAssignment
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_type, tenant_id, start_number, end_number, total_numbers, granted_by, notes, active, created_at, updated_at
		 FROM consignment_ranges
		 WHERE active AND start_number <= ? AND end_number >= ?
		 LIMIT 1`,
		end,
		start,
	).Scan(&ra).Error
	if err != nil {
		return nil, err
	}
	if ra.ID == 0 {
		return nil, nil
	}
	return &ra, nil
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool) error {
	return db.WithContext(ctx).Exec(
		`UPDATE consignment_ranges SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active,
		id,
	).Error
}
