package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shipdesk/shipdesk/internal/clock"
	"github.com/shipdesk/shipdesk/internal/config"
	ledgerdomain "github.com/shipdesk/shipdesk/internal/ledger/domain"
	obsmetrics "github.com/shipdesk/shipdesk/internal/observability/metrics"
	settlementdomain "github.com/shipdesk/shipdesk/internal/settlement/domain"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	AllocCfg     *config.AllocationConfigHolder
	LedgerRepo   ledgerdomain.Repository
	OverrideRepo settlementdomain.OverrideRepository
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	allocCfg     *config.AllocationConfigHolder
	ledgerRepo   ledgerdomain.Repository
	overrideRepo settlementdomain.OverrideRepository
	obsMetrics   *obsmetrics.Metrics
}

func New(p Params) settlementdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("settlement.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		allocCfg:     p.AllocCfg,
		ledgerRepo:   p.LedgerRepo,
		overrideRepo: p.OverrideRepo,
		obsMetrics:   p.ObsMetrics,
	}
}

func (s *Service) ComputePeriod(ctx context.Context, ref tenant.Ref, month, year int) (*settlementdomain.SettlementReport, error) {
	if !ref.Valid() {
		return nil, settlementdomain.ErrInvalidTenant
	}
	start, end, err := periodBounds(month, year)
	if err != nil {
		return nil, err
	}

	records, err := s.ledgerRepo.FindInPeriod(ctx, s.db, ref, start, end)
	if err != nil {
		return nil, err
	}

	rate := s.allocCfg.Get().CommissionRatePerKg
	now := s.clock.Now()

	report := &settlementdomain.SettlementReport{
		TenantType: ref.Type,
		TenantID:   ref.ID.String(),
		Month:      month,
		Year:       year,
		Rows:       make([]settlementdomain.SettlementRow, 0, len(records)),
	}

	for i := range records {
		rec := &records[i]

		weight := rec.ChargeableWeight
		if weight == 0 {
			weight = fallbackWeight(rec)
		}
		commission := rec.Commission
		if commission == 0 {
			commission = weight * rate
		}

		// Backfill persists derived figures for records that never had
		// them. The update is guarded in SQL so non-zero stored values
		// survive a re-run untouched.
		if rec.ChargeableWeight == 0 || rec.Commission == 0 {
			if err := s.ledgerRepo.UpdateSettlement(ctx, s.db, rec.ID, weight, commission, now); err != nil {
				return nil, err
			}
		}

		report.Rows = append(report.Rows, settlementdomain.SettlementRow{
			RecordID:          rec.ID,
			ConsignmentNumber: rec.ConsignmentNumber,
			BookingRef:        rec.BookingRef,
			PaymentType:       rec.PaymentType,
			PaymentStatus:     rec.PaymentStatus,
			Weight:            weight,
			Commission:        commission,
			FreightCharge:     rec.FreightCharge,
			TotalAmount:       rec.TotalAmount,
			ConsumedAt:        rec.ConsumedAt,
		})
		report.TotalWeight += weight
		report.TotalCommission += commission
		report.GrandTotal += rec.TotalAmount
	}
	report.TotalTransactions = len(report.Rows)
	report.AutoCharge = report.GrandTotal - report.TotalCommission

	override, err := s.overrideRepo.Get(ctx, s.db, ref, month, year)
	if err != nil {
		return nil, err
	}
	if override != nil {
		amount := override.Amount
		report.ManualOverride = &amount
		report.EffectiveCharge = amount
	} else {
		report.EffectiveCharge = report.AutoCharge
	}
	report.RemainingBalance = report.GrandTotal - report.EffectiveCharge

	s.obsMetrics.RecordSettlementRun(ctx, string(ref.Type))
	s.log.Debug("settlement period computed",
		zap.String("tenant_type", string(ref.Type)),
		zap.String("tenant_id", ref.ID.String()),
		zap.Int("month", month),
		zap.Int("year", year),
		zap.Int("transactions", report.TotalTransactions),
	)
	return report, nil
}

func (s *Service) SetOverride(ctx context.Context, req settlementdomain.SetOverrideRequest) (*settlementdomain.SettlementOverride, error) {
	if !req.Tenant.Valid() {
		return nil, settlementdomain.ErrInvalidTenant
	}
	if _, _, err := periodBounds(req.Month, req.Year); err != nil {
		return nil, err
	}
	if req.Amount < 0 {
		return nil, settlementdomain.ErrInvalidAmount
	}
	setBy := strings.TrimSpace(req.SetBy)
	if setBy == "" {
		return nil, settlementdomain.ErrInvalidSetter
	}

	now := s.clock.Now()
	o := &settlementdomain.SettlementOverride{
		ID:         s.genID.Generate(),
		TenantType: req.Tenant.Type,
		TenantID:   req.Tenant.ID,
		Month:      req.Month,
		Year:       req.Year,
		Amount:     req.Amount,
		SetBy:      setBy,
		Notes:      strings.TrimSpace(req.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.overrideRepo.Upsert(ctx, s.db, o); err != nil {
		return nil, err
	}
	return s.overrideRepo.Get(ctx, s.db, req.Tenant, req.Month, req.Year)
}

func (s *Service) ClearOverride(ctx context.Context, ref tenant.Ref, month, year int) error {
	if !ref.Valid() {
		return settlementdomain.ErrInvalidTenant
	}
	if _, _, err := periodBounds(month, year); err != nil {
		return err
	}
	return s.overrideRepo.Delete(ctx, s.db, ref, month, year)
}

func (s *Service) GenerateInvoice(ctx context.Context, ref tenant.Ref, month, year int) (*settlementdomain.InvoiceResult, error) {
	if !ref.Valid() {
		return nil, settlementdomain.ErrInvalidTenant
	}
	start, end, err := periodBounds(month, year)
	if err != nil {
		return nil, err
	}

	records, err := s.ledgerRepo.FindUnpaidInPeriod(ctx, s.db, ref, start, end)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, settlementdomain.ErrNothingToInvoice
	}

	invoiceRef := "INV-" + s.genID.Generate().String()
	ids := make([]snowflake.ID, 0, len(records))
	var total float64
	for i := range records {
		ids = append(ids, records[i].ID)
		total += records[i].TotalAmount
	}
	if err := s.ledgerRepo.MarkInvoiced(ctx, s.db, ids, invoiceRef, s.clock.Now()); err != nil {
		return nil, err
	}

	s.obsMetrics.RecordInvoiceGenerated(ctx, string(ref.Type))
	s.log.Info("invoice generated",
		zap.String("tenant_type", string(ref.Type)),
		zap.String("tenant_id", ref.ID.String()),
		zap.String("invoice_ref", invoiceRef),
		zap.Int("records", len(ids)),
	)
	return &settlementdomain.InvoiceResult{
		InvoiceRef:  invoiceRef,
		RecordCount: len(ids),
		TotalAmount: total,
	}, nil
}

// fallbackWeight derives a weight for records booked without the structured
// field. Actual weight wins over the per kilogram figure; unparseable
// strings degrade to zero instead of failing the period.
func fallbackWeight(rec *ledgerdomain.UsageRecord) float64 {
	if w, ok := parseWeight(rec.ActualWeight); ok {
		return w
	}
	if w, ok := parseWeight(rec.PerKgWeight); ok {
		return w
	}
	return 0
}

func parseWeight(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	w, err := strconv.ParseFloat(raw, 64)
	if err != nil || w < 0 {
		return 0, false
	}
	return w, true
}

func periodBounds(month, year int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 || year < 2000 || year > 9999 {
		return time.Time{}, time.Time{}, settlementdomain.ErrInvalidPeriod
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}
