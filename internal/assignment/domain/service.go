package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shipdesk/shipdesk/internal/tenant"
)

type Service interface {
	// Grant issues a new number range to a tenant after floor, size and
	// system-wide overlap validation.
	Grant(ctx context.Context, req GrantRequest) (*Response, error)
	ListActive(ctx context.Context, ref tenant.Ref) ([]Response, error)
	List(ctx context.Context, ref tenant.Ref) ([]Response, error)
	GetByID(ctx context.Context, id string) (*Response, error)
	// Revoke soft-revokes a grant. Numbers already consumed are unaffected.
	Revoke(ctx context.Context, id string) error
}

type GrantRequest struct {
	TenantType  string `json:"tenant_type"`
	TenantID    string `json:"tenant_id"`
	StartNumber int64  `json:"start_number"`
	EndNumber   int64  `json:"end_number"`
	GrantedBy   string `json:"granted_by"`
	Notes       string `json:"notes"`
}

type Response struct {
	ID           string    `json:"id"`
	TenantType   string    `json:"tenant_type"`
	TenantID     string    `json:"tenant_id"`
	StartNumber  int64     `json:"start_number"`
	EndNumber    int64     `json:"end_number"`
	TotalNumbers int64     `json:"total_numbers"`
	GrantedBy    string    `json:"granted_by"`
	Notes        string    `json:"notes,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var (
	ErrInvalidTenant  = errors.New("invalid_tenant")
	ErrInvalidRange   = errors.New("invalid_range")
	ErrInvalidGrantor = errors.New("invalid_granted_by")
	ErrRangeOverlap   = errors.New("range_overlap")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidID      = errors.New("invalid_id")
)

// OverlapError reports the active range a grant request collided with.
type OverlapError struct {
	ConflictingID    snowflake.ID
	ConflictingStart int64
	ConflictingEnd   int64
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("range_overlap: conflicts with assignment %s [%d, %d]",
		e.ConflictingID, e.ConflictingStart, e.ConflictingEnd)
}

func (e *OverlapError) Unwrap() error { return ErrRangeOverlap }

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
