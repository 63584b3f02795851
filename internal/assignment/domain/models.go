// Package domain contains persistence models for administratively granted
// consignment number ranges.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shipdesk/shipdesk/internal/tenant"
)

// RangeAssignment is an inclusive interval of consignment numbers granted to
// one tenant. Rows are never mutated after creation except the Active flip.
type RangeAssignment struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	TenantType   tenant.Type  `gorm:"type:text;not null;index:ix_consignment_ranges_tenant,priority:1"`
	TenantID     snowflake.ID `gorm:"not null;index:ix_consignment_ranges_tenant,priority:2"`
	StartNumber  int64        `gorm:"not null;index:ix_consignment_ranges_start"`
	EndNumber    int64        `gorm:"not null"`
	TotalNumbers int64        `gorm:"not null"`
	GrantedBy    string       `gorm:"type:text;not null"`
	Notes        string       `gorm:"type:text"`
	Active       bool         `gorm:"not null;default:true"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (RangeAssignment) TableName() string { return "consignment_ranges" }

// Tenant returns the owning tenant reference.
func (r *RangeAssignment) Tenant() tenant.Ref {
	return tenant.Ref{Type: r.TenantType, ID: r.TenantID}
}
