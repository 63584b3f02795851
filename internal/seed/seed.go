// Package seed provisions demo data for local and self-hosted installs.
package seed

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"gorm.io/gorm"
)

// EnsureDemoGrant creates one corporate tenant with a starter range when
// the install has no grants at all. Re-running is a no-op.
func EnsureDemoGrant(conn *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := conn.Raw(`SELECT COUNT(1) FROM consignment_ranges`).Scan(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	return conn.Exec(
		`INSERT INTO consignment_ranges (id, tenant_type, tenant_id, start_number, end_number, total_numbers,
		 granted_by, notes, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		node.Generate(),
		tenant.TypeCorporate,
		node.Generate(),
		int64(100_000_000),
		int64(100_000_999),
		int64(1000),
		"seed",
		"demo starter range",
		true,
		now,
		now,
	).Error
}
