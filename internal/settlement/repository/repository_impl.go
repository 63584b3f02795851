package repository

import (
	"context"

	settlementdomain "github.com/shipdesk/shipdesk/internal/settlement/domain"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"gorm.io/gorm"
)

const selectColumns = `id, tenant_type, tenant_id, month, year, amount, set_by, notes, created_at, updated_at`

type repo struct{}

func Provide() settlementdomain.OverrideRepository {
	return &repo{}
}

func (r *repo) Get(ctx context.Context, db *gorm.DB, ref tenant.Ref, month, year int) (*settlementdomain.SettlementOverride, error) {
	var o settlementdomain.SettlementOverride
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM settlement_overrides
		 WHERE tenant_type = ? AND tenant_id = ? AND month = ? AND year = ?`,
		ref.Type,
		ref.ID,
		month,
		year,
	).Scan(&o).Error
	if err != nil {
		return nil, err
	}
	if o.ID == 0 {
		return nil, nil
	}
	return &o, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, o *settlementdomain.SettlementOverride) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE settlement_overrides
		 SET amount = ?, set_by = ?, notes = ?, updated_at = ?
		 WHERE tenant_type = ? AND tenant_id = ? AND month = ? AND year = ?`,
		o.Amount,
		o.SetBy,
		o.Notes,
		o.UpdatedAt,
		o.TenantType,
		o.TenantID,
		o.Month,
		o.Year,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO settlement_overrides (id, tenant_type, tenant_id, month, year, amount, set_by, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID,
		o.TenantType,
		o.TenantID,
		o.Month,
		o.Year,
		o.Amount,
		o.SetBy,
		o.Notes,
		o.CreatedAt,
		o.UpdatedAt,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, ref tenant.Ref, month, year int) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM settlement_overrides
		 WHERE tenant_type = ? AND tenant_id = ? AND month = ? AND year = ?`,
		ref.Type,
		ref.ID,
		month,
		year,
	).Error
}
