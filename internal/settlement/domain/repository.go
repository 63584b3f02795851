package domain

import (
	"context"

	"github.com/shipdesk/shipdesk/internal/tenant"
	"gorm.io/gorm"
)

type OverrideRepository interface {
	// Get returns the override for the period, or nil when none is set.
	Get(ctx context.Context, db *gorm.DB, ref tenant.Ref, month, year int) (*SettlementOverride, error)
	Upsert(ctx context.Context, db *gorm.DB, o *SettlementOverride) error
	Delete(ctx context.Context, db *gorm.DB, ref tenant.Ref, month, year int) error
}
