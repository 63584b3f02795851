package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	allocationdomain "github.com/shipdesk/shipdesk/internal/allocation/domain"
	bookingdomain "github.com/shipdesk/shipdesk/internal/booking/domain"
	"github.com/shipdesk/shipdesk/internal/clock"
	ledgerdomain "github.com/shipdesk/shipdesk/internal/ledger/domain"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"github.com/shipdesk/shipdesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      bookingdomain.Repository
	Allocator allocationdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      bookingdomain.Repository
	allocator allocationdomain.Service
}

func New(p Params) bookingdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("booking.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		allocator: p.Allocator,
	}
}

func (s *Service) Create(ctx context.Context, req bookingdomain.CreateRequest) (*bookingdomain.Booking, error) {
	ref, err := parseTenant(req.TenantType, req.TenantID)
	if err != nil {
		return nil, err
	}
	senderName := strings.TrimSpace(req.SenderName)
	if senderName == "" {
		return nil, bookingdomain.ErrInvalidSender
	}
	receiverName := strings.TrimSpace(req.ReceiverName)
	if receiverName == "" {
		return nil, bookingdomain.ErrInvalidReceiver
	}
	paymentType, err := ledgerdomain.ParsePaymentType(req.PaymentType)
	if err != nil {
		return nil, err
	}

	var metadata datatypes.JSON
	if len(req.Metadata) > 0 {
		raw, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, err
		}
		metadata = datatypes.JSON(raw)
	}

	bookingRef := uuid.NewString()

	// The allocate call both proposes the number and writes the ledger
	// entry for it, so the uniqueness guarantee is settled before the
	// booking row exists.
	rec, err := s.allocator.Allocate(ctx, allocationdomain.AllocateRequest{
		Tenant:           ref,
		BookingRef:       bookingRef,
		PaymentType:      paymentType,
		ChargeableWeight: req.ChargeableWeight,
		ActualWeight:     req.ActualWeight,
		PerKgWeight:      req.PerKgWeight,
		FreightCharge:    req.FreightCharge,
		TotalAmount:      req.TotalAmount,
	})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	b := &bookingdomain.Booking{
		ID:                s.genID.Generate(),
		BookingRef:        bookingRef,
		TenantType:        ref.Type,
		TenantID:          ref.ID,
		ConsignmentNumber: rec.ConsignmentNumber,
		SenderName:        senderName,
		SenderAddress:     strings.TrimSpace(req.SenderAddress),
		SenderPincode:     strings.TrimSpace(req.SenderPincode),
		ReceiverName:      receiverName,
		ReceiverAddress:   strings.TrimSpace(req.ReceiverAddress),
		ReceiverPincode:   strings.TrimSpace(req.ReceiverPincode),
		PaymentType:       paymentType,
		ChargeableWeight:  req.ChargeableWeight,
		ActualWeight:      strings.TrimSpace(req.ActualWeight),
		PerKgWeight:       strings.TrimSpace(req.PerKgWeight),
		FreightCharge:     req.FreightCharge,
		TotalAmount:       req.TotalAmount,
		Status:            bookingdomain.StatusBooked,
		Metadata:          metadata,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Insert(ctx, s.db, b); err != nil {
		s.log.Error("booking insert failed after allocation",
			zap.String("booking_ref", bookingRef),
			zap.Int64("consignment_number", rec.ConsignmentNumber),
			zap.Error(err),
		)
		return nil, err
	}

	s.log.Info("booking created",
		zap.String("booking_ref", bookingRef),
		zap.String("tenant_type", string(ref.Type)),
		zap.String("tenant_id", ref.ID.String()),
		zap.Int64("consignment_number", rec.ConsignmentNumber),
	)
	return b, nil
}

func (s *Service) Get(ctx context.Context, bookingRef string) (*bookingdomain.Booking, error) {
	bookingRef = strings.TrimSpace(bookingRef)
	if bookingRef == "" {
		return nil, bookingdomain.ErrNotFound
	}
	b, err := s.repo.FindByRef(ctx, s.db, bookingRef)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, bookingdomain.ErrNotFound
	}
	return b, nil
}

func (s *Service) List(ctx context.Context, req bookingdomain.ListRequest) (*bookingdomain.ListResponse, error) {
	ref, err := parseTenant(req.TenantType, req.TenantID)
	if err != nil {
		return nil, err
	}

	filter := bookingdomain.ListFilter{}
	if req.Status != "" {
		status, err := bookingdomain.ParseStatus(req.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, ref, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return nil, err
	}

	pageInfo, items := pagination.BuildCursorPageInfo(items, pageSize, func(b *bookingdomain.Booking) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        b.ID.String(),
			CreatedAt: b.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	bookings := make([]bookingdomain.Booking, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		bookings = append(bookings, *item)
	}

	resp := &bookingdomain.ListResponse{Bookings: bookings}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Cancel(ctx context.Context, bookingRef string) (*bookingdomain.Booking, error) {
	return s.UpdateStatus(ctx, bookingRef, bookingdomain.StatusCancelled)
}

func (s *Service) UpdateStatus(ctx context.Context, bookingRef string, status bookingdomain.Status) (*bookingdomain.Booking, error) {
	if _, err := bookingdomain.ParseStatus(string(status)); err != nil {
		return nil, err
	}
	b, err := s.Get(ctx, bookingRef)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(b.Status, status) {
		return nil, bookingdomain.ErrInvalidTransition
	}

	now := s.clock.Now()
	if err := s.repo.UpdateStatus(ctx, s.db, b.ID, status, now); err != nil {
		return nil, err
	}
	b.Status = status
	b.UpdatedAt = now

	s.log.Info("booking status changed",
		zap.String("booking_ref", b.BookingRef),
		zap.String("status", string(status)),
	)
	return b, nil
}

// transitionAllowed encodes the one-way booking lifecycle. Delivered and
// cancelled are terminal.
func transitionAllowed(from, to bookingdomain.Status) bool {
	switch from {
	case bookingdomain.StatusBooked:
		return to == bookingdomain.StatusDispatched || to == bookingdomain.StatusCancelled
	case bookingdomain.StatusDispatched:
		return to == bookingdomain.StatusDelivered || to == bookingdomain.StatusCancelled
	default:
		return false
	}
}

func parseTenant(tenantType, tenantID string) (tenant.Ref, error) {
	parsedType, err := tenant.ParseType(tenantType)
	if err != nil {
		return tenant.Ref{}, bookingdomain.ErrInvalidTenant
	}
	id, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || id == 0 {
		return tenant.Ref{}, bookingdomain.ErrInvalidTenant
	}
	return tenant.Ref{Type: parsedType, ID: id}, nil
}
