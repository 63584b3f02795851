// Package option composes query modifiers onto a gorm statement.
package option

import (
	"time"

	"github.com/shipdesk/shipdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type Option interface {
	Apply(stmt *gorm.DB) *gorm.DB
}

type paginationOption struct {
	page pagination.Pagination
}

// ApplyPagination turns a cursor token into a keyset filter over
// (created_at, id) descending. Fetches one extra row so the caller can
// detect a following page.
func ApplyPagination(page pagination.Pagination) Option {
	return paginationOption{page: page}
}

func (o paginationOption) Apply(stmt *gorm.DB) *gorm.DB {
	size := o.page.PageSize
	if size <= 0 {
		size = 10
	}
	if o.page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(o.page.PageToken)
		if err == nil && cursor.ID != "" {
			if ts, parseErr := time.Parse(time.RFC3339, cursor.CreatedAt); parseErr == nil {
				stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)", ts, ts, cursor.ID)
			}
		}
	}
	return stmt.Limit(size + 1)
}
