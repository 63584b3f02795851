package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, ra *RangeAssignment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*RangeAssignment, error)
	// ListActive returns the tenant's active ranges ordered by start_number
	// ascending. The order decides which numbers are handed out first.
	ListActive(ctx context.Context, db *gorm.DB, ref tenant.Ref) ([]RangeAssignment, error)
	List(ctx context.Context, db *gorm.DB, ref tenant.Ref) ([]RangeAssignment, error)
	// FindOverlap returns any active range intersecting [start, end].
	FindOverlap(ctx context.Context, db *gorm.DB, start, end int64) (*RangeAssignment, error)
	SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool) error
}
