// Package domain defines the consignment number allocator contract. The
// allocator never holds number state of its own: a candidate is proposed
// from the range and usage tables, then claimed by inserting a usage row,
// so database uniqueness is the only arbiter between concurrent callers.
package domain

import (
	"context"
	"errors"

	ledgerdomain "github.com/shipdesk/shipdesk/internal/ledger/domain"
	"github.com/shipdesk/shipdesk/internal/tenant"
)

type Service interface {
	// NextNumber proposes the lowest unconsumed number across the tenant's
	// active ranges without claiming it. Purely advisory: by the time the
	// caller acts on it the number may already be taken.
	NextNumber(ctx context.Context, ref tenant.Ref) (int64, error)
	// Allocate proposes and durably claims a number in one call, retrying
	// on uniqueness conflicts up to the configured attempt bound.
	Allocate(ctx context.Context, req AllocateRequest) (*ledgerdomain.UsageRecord, error)
	// Quota reports assigned, used and available counts. Always computed
	// from the tables on read, never cached.
	Quota(ctx context.Context, ref tenant.Ref) (*QuotaResponse, error)
}

type AllocateRequest struct {
	Tenant           tenant.Ref
	BookingRef       string
	PaymentType      ledgerdomain.PaymentType
	ChargeableWeight float64
	ActualWeight     string
	PerKgWeight      string
	FreightCharge    float64
	TotalAmount      float64
}

type QuotaResponse struct {
	TenantType tenant.Type `json:"tenant_type"`
	TenantID   string      `json:"tenant_id"`
	Assigned   int64       `json:"assigned"`
	Used       int64       `json:"used"`
	Available  int64       `json:"available"`
}

var (
	// ErrNoAssignment means the tenant has no active ranges at all.
	ErrNoAssignment = errors.New("no_assignment")
	// ErrRangesExhausted means every number in every active range is consumed.
	ErrRangesExhausted = errors.New("ranges_exhausted")
	// ErrAllocationContention means the claim lost the uniqueness race on
	// every attempt. Retryable from the caller's side.
	ErrAllocationContention = errors.New("allocation_contention")
)
