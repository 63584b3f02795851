package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	assignmentdomain "github.com/shipdesk/shipdesk/internal/assignment/domain"
	"github.com/shipdesk/shipdesk/internal/clock"
	ledgerdomain "github.com/shipdesk/shipdesk/internal/ledger/domain"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"github.com/shipdesk/shipdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Repo           ledgerdomain.Repository
	AssignmentRepo assignmentdomain.Repository
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	repo           ledgerdomain.Repository
	assignmentRepo assignmentdomain.Repository
}

func New(p Params) ledgerdomain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("ledger.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		assignmentRepo: p.AssignmentRepo,
	}
}

func (s *Service) RecordUsage(ctx context.Context, req ledgerdomain.RecordUsageRequest) (*ledgerdomain.UsageRecord, error) {
	if !req.Tenant.Valid() {
		return nil, ledgerdomain.ErrInvalidTenant
	}
	if req.ConsignmentNumber <= 0 {
		return nil, ledgerdomain.ErrInvalidNumber
	}
	bookingRef := strings.TrimSpace(req.BookingRef)
	if bookingRef == "" {
		return nil, ledgerdomain.ErrInvalidBookingRef
	}
	paymentType, err := ledgerdomain.ParsePaymentType(string(req.PaymentType))
	if err != nil {
		return nil, err
	}

	// The number must lie inside an active range owned by this tenant.
	ranges, err := s.assignmentRepo.ListActive(ctx, s.db, req.Tenant)
	if err != nil {
		return nil, err
	}
	if !numberAssigned(ranges, req.ConsignmentNumber) {
		return nil, ledgerdomain.ErrNumberNotAssigned
	}

	now := s.clock.Now()
	rec := &ledgerdomain.UsageRecord{
		ID:                s.genID.Generate(),
		TenantType:        req.Tenant.Type,
		TenantID:          req.Tenant.ID,
		ConsignmentNumber: req.ConsignmentNumber,
		BookingRef:        bookingRef,
		PaymentStatus:     ledgerdomain.PaymentStatusUnpaid,
		PaymentType:       paymentType,
		ChargeableWeight:  req.ChargeableWeight,
		ActualWeight:      strings.TrimSpace(req.ActualWeight),
		PerKgWeight:       strings.TrimSpace(req.PerKgWeight),
		FreightCharge:     req.FreightCharge,
		TotalAmount:       req.TotalAmount,
		ConsumedAt:        now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Insert(ctx, s.db, rec); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, ledgerdomain.ErrDuplicateUsage
		}
		return nil, err
	}

	s.log.Debug("usage recorded",
		zap.String("tenant_type", string(rec.TenantType)),
		zap.String("tenant_id", rec.TenantID.String()),
		zap.Int64("consignment_number", rec.ConsignmentNumber),
		zap.String("booking_ref", rec.BookingRef),
	)
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*ledgerdomain.UsageRecord, error) {
	if id == 0 {
		return nil, ledgerdomain.ErrNotFound
	}
	rec, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ledgerdomain.ErrNotFound
	}
	return rec, nil
}

func (s *Service) GetByBookingRef(ctx context.Context, bookingRef string) (*ledgerdomain.UsageRecord, error) {
	bookingRef = strings.TrimSpace(bookingRef)
	if bookingRef == "" {
		return nil, ledgerdomain.ErrInvalidBookingRef
	}
	rec, err := s.repo.FindByBookingRef(ctx, s.db, bookingRef)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ledgerdomain.ErrNotFound
	}
	return rec, nil
}

func (s *Service) FindUnpaid(ctx context.Context, ref tenant.Ref, paymentType *ledgerdomain.PaymentType) ([]ledgerdomain.UsageRecord, error) {
	if !ref.Valid() {
		return nil, ledgerdomain.ErrInvalidTenant
	}
	if paymentType != nil {
		if _, err := ledgerdomain.ParsePaymentType(string(*paymentType)); err != nil {
			return nil, err
		}
	}
	return s.repo.FindUnpaid(ctx, s.db, ref, paymentType)
}

func (s *Service) FindUnpaidInPeriod(ctx context.Context, ref tenant.Ref, start, end time.Time) ([]ledgerdomain.UsageRecord, error) {
	if !ref.Valid() {
		return nil, ledgerdomain.ErrInvalidTenant
	}
	return s.repo.FindUnpaidInPeriod(ctx, s.db, ref, start, end)
}

func (s *Service) MarkInvoiced(ctx context.Context, ids []snowflake.ID, invoiceRef string) error {
	invoiceRef = strings.TrimSpace(invoiceRef)
	if invoiceRef == "" {
		return ledgerdomain.ErrInvalidInvoiceRef
	}
	return s.repo.MarkInvoiced(ctx, s.db, ids, invoiceRef, s.clock.Now())
}

func (s *Service) MarkPaid(ctx context.Context, ids []snowflake.ID) error {
	return s.repo.MarkPaid(ctx, s.db, ids, s.clock.Now())
}

func (s *Service) ConsumedNumbers(ctx context.Context, ref tenant.Ref) ([]int64, error) {
	if !ref.Valid() {
		return nil, ledgerdomain.ErrInvalidTenant
	}
	return s.repo.ConsumedNumbers(ctx, s.db, ref)
}

func numberAssigned(ranges []assignmentdomain.RangeAssignment, number int64) bool {
	for i := range ranges {
		if number >= ranges[i].StartNumber && number <= ranges[i].EndNumber {
			return true
		}
	}
	return false
}
