package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"github.com/shipdesk/shipdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status      Status
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, b *Booking) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	FindByRef(ctx context.Context, db *gorm.DB, bookingRef string) (*Booking, error)
	List(ctx context.Context, db *gorm.DB, ref tenant.Ref, filter ListFilter, page pagination.Pagination) ([]*Booking, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, at time.Time) error
}
