package service

import (
	"context"
	"errors"

	allocationdomain "github.com/shipdesk/shipdesk/internal/allocation/domain"
	assignmentdomain "github.com/shipdesk/shipdesk/internal/assignment/domain"
	"github.com/shipdesk/shipdesk/internal/config"
	ledgerdomain "github.com/shipdesk/shipdesk/internal/ledger/domain"
	obsmetrics "github.com/shipdesk/shipdesk/internal/observability/metrics"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	AllocCfg       *config.AllocationConfigHolder
	AssignmentRepo assignmentdomain.Repository
	LedgerRepo     ledgerdomain.Repository
	Ledger         ledgerdomain.Service
	ObsMetrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	allocCfg       *config.AllocationConfigHolder
	assignmentRepo assignmentdomain.Repository
	ledgerRepo     ledgerdomain.Repository
	ledger         ledgerdomain.Service
	obsMetrics     *obsmetrics.Metrics
}

func New(p Params) allocationdomain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("allocation.service"),
		allocCfg:       p.AllocCfg,
		assignmentRepo: p.AssignmentRepo,
		ledgerRepo:     p.LedgerRepo,
		ledger:         p.Ledger,
		obsMetrics:     p.ObsMetrics,
	}
}

func (s *Service) NextNumber(ctx context.Context, ref tenant.Ref) (int64, error) {
	if !ref.Valid() {
		return 0, ledgerdomain.ErrInvalidTenant
	}
	candidate, _, err := s.propose(ctx, ref, nil)
	return candidate, err
}

func (s *Service) Allocate(ctx context.Context, req allocationdomain.AllocateRequest) (*ledgerdomain.UsageRecord, error) {
	if !req.Tenant.Valid() {
		return nil, ledgerdomain.ErrInvalidTenant
	}

	maxAttempts := s.allocCfg.Get().MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	// Numbers claimed and lost within this call. Without the skip set the
	// loop would re-propose the same candidate on every attempt when the
	// scan races a concurrent writer.
	skip := map[int64]struct{}{}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate, _, err := s.propose(ctx, req.Tenant, skip)
		if err != nil {
			return nil, err
		}

		rec, err := s.ledger.RecordUsage(ctx, ledgerdomain.RecordUsageRequest{
			Tenant:            req.Tenant,
			ConsignmentNumber: candidate,
			BookingRef:        req.BookingRef,
			PaymentType:       req.PaymentType,
			ChargeableWeight:  req.ChargeableWeight,
			ActualWeight:      req.ActualWeight,
			PerKgWeight:       req.PerKgWeight,
			FreightCharge:     req.FreightCharge,
			TotalAmount:       req.TotalAmount,
		})
		if err == nil {
			s.obsMetrics.RecordAllocation(ctx, string(req.Tenant.Type), attempt)
			s.log.Debug("number allocated",
				zap.String("tenant_type", string(req.Tenant.Type)),
				zap.String("tenant_id", req.Tenant.ID.String()),
				zap.Int64("consignment_number", candidate),
				zap.Int("attempts", attempt),
			)
			return rec, nil
		}
		if !errors.Is(err, ledgerdomain.ErrDuplicateUsage) {
			return nil, err
		}

		// Lost the race for this candidate. Re-propose and try again.
		skip[candidate] = struct{}{}
		s.obsMetrics.RecordAllocationConflict(ctx, string(req.Tenant.Type))
	}

	s.log.Warn("allocation contention exhausted retries",
		zap.String("tenant_type", string(req.Tenant.Type)),
		zap.String("tenant_id", req.Tenant.ID.String()),
		zap.Int("attempts", maxAttempts),
	)
	return nil, allocationdomain.ErrAllocationContention
}

func (s *Service) Quota(ctx context.Context, ref tenant.Ref) (*allocationdomain.QuotaResponse, error) {
	if !ref.Valid() {
		return nil, ledgerdomain.ErrInvalidTenant
	}

	ranges, err := s.assignmentRepo.ListActive(ctx, s.db, ref)
	if err != nil {
		return nil, err
	}
	var assigned int64
	for i := range ranges {
		assigned += ranges[i].TotalNumbers
	}

	used, err := s.ledgerRepo.CountConsumed(ctx, s.db, ref)
	if err != nil {
		return nil, err
	}

	available := assigned - used
	if available < 0 {
		available = 0
	}
	return &allocationdomain.QuotaResponse{
		TenantType: ref.Type,
		TenantID:   ref.ID.String(),
		Assigned:   assigned,
		Used:       used,
		Available:  available,
	}, nil
}

// propose scans the tenant's active ranges in grant order and returns the
// lowest number that is neither consumed nor in the skip set. Returns the
// number of assigned ranges alongside so callers can distinguish an empty
// grant from exhausted ones.
func (s *Service) propose(ctx context.Context, ref tenant.Ref, skip map[int64]struct{}) (int64, int, error) {
	ranges, err := s.assignmentRepo.ListActive(ctx, s.db, ref)
	if err != nil {
		return 0, 0, err
	}
	if len(ranges) == 0 {
		s.obsMetrics.RecordAllocationExhausted(ctx, string(ref.Type), "no_assignment")
		return 0, 0, allocationdomain.ErrNoAssignment
	}

	consumed, err := s.ledgerRepo.ConsumedNumbers(ctx, s.db, ref)
	if err != nil {
		return 0, 0, err
	}
	taken := make(map[int64]struct{}, len(consumed)+len(skip))
	for _, n := range consumed {
		taken[n] = struct{}{}
	}
	for n := range skip {
		taken[n] = struct{}{}
	}

	for i := range ranges {
		for n := ranges[i].StartNumber; n <= ranges[i].EndNumber; n++ {
			if _, ok := taken[n]; !ok {
				return n, len(ranges), nil
			}
		}
	}

	s.obsMetrics.RecordAllocationExhausted(ctx, string(ref.Type), "ranges_exhausted")
	return 0, len(ranges), allocationdomain.ErrRangesExhausted
}
