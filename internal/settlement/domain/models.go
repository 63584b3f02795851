// Package domain defines the settlement engine contract: period aggregation
// over the usage ledger, a manual charge override, and batch invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shipdesk/shipdesk/internal/tenant"
)

// SettlementOverride is an administrator-set replacement for the
// auto-computed period charge. The derived figure is never overwritten in
// storage; the override is consulted only when a report is assembled.
type SettlementOverride struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	TenantType tenant.Type  `gorm:"type:text;not null;uniqueIndex:ux_settlement_overrides_period,priority:1"`
	TenantID   snowflake.ID `gorm:"not null;uniqueIndex:ux_settlement_overrides_period,priority:2"`
	Month      int          `gorm:"not null;uniqueIndex:ux_settlement_overrides_period,priority:3"`
	Year       int          `gorm:"not null;uniqueIndex:ux_settlement_overrides_period,priority:4"`
	Amount     float64      `gorm:"not null"`
	SetBy      string       `gorm:"type:text;not null"`
	Notes      string       `gorm:"type:text"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SettlementOverride) TableName() string { return "settlement_overrides" }
