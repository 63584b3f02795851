package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	allocationdomain "github.com/shipdesk/shipdesk/internal/allocation/domain"
	allocationservice "github.com/shipdesk/shipdesk/internal/allocation/service"
	assignmentdomain "github.com/shipdesk/shipdesk/internal/assignment/domain"
	assignmentrepo "github.com/shipdesk/shipdesk/internal/assignment/repository"
	"github.com/shipdesk/shipdesk/internal/clock"
	"github.com/shipdesk/shipdesk/internal/config"
	ledgerdomain "github.com/shipdesk/shipdesk/internal/ledger/domain"
	ledgerrepo "github.com/shipdesk/shipdesk/internal/ledger/repository"
	ledgerservice "github.com/shipdesk/shipdesk/internal/ledger/service"
	settlementdomain "github.com/shipdesk/shipdesk/internal/settlement/domain"
	settlementrepo "github.com/shipdesk/shipdesk/internal/settlement/repository"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	node       *snowflake.Node
	clk        *clock.FakeClock
	ledger     ledgerdomain.Service
	allocator  allocationdomain.Service
	settlement settlementdomain.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if err := db.AutoMigrate(
		&assignmentdomain.RangeAssignment{},
		&ledgerdomain.UsageRecord{},
		&settlementdomain.SettlementOverride{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC))
	allocCfg := config.NewStaticAllocationConfig(config.AllocationConfig{
		NumberingFloor:      100_000_000,
		MaxRangeSize:        10_000,
		CommissionRatePerKg: 10,
		MaxAttempts:         5,
	})

	aRepo := assignmentrepo.Provide()
	lRepo := ledgerrepo.Provide()
	ledger := ledgerservice.New(ledgerservice.Params{
		DB:             db,
		Log:            zap.NewNop(),
		GenID:          node,
		Clock:          clk,
		Repo:           lRepo,
		AssignmentRepo: aRepo,
	})
	allocator := allocationservice.New(allocationservice.Params{
		DB:             db,
		Log:            zap.NewNop(),
		AllocCfg:       allocCfg,
		AssignmentRepo: aRepo,
		LedgerRepo:     lRepo,
		Ledger:         ledger,
	})
	settlement := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clk,
		AllocCfg:     allocCfg,
		LedgerRepo:   lRepo,
		OverrideRepo: settlementrepo.Provide(),
	})
	return &fixture{db: db, node: node, clk: clk, ledger: ledger, allocator: allocator, settlement: settlement}
}

func (f *fixture) grant(t *testing.T, ref tenant.Ref, start, end int64) {
	t.Helper()
	now := f.clk.Now()
	err := assignmentrepo.Provide().Insert(context.Background(), f.db, &assignmentdomain.RangeAssignment{
		ID:           f.node.Generate(),
		TenantType:   ref.Type,
		TenantID:     ref.ID,
		StartNumber:  start,
		EndNumber:    end,
		TotalNumbers: end - start + 1,
		GrantedBy:    "ops@test",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
}

func TestEndToEndAllocationAndSettlement(t *testing.T) {
	f := setup(t)
	ref := tenant.Ref{Type: tenant.TypeCorporate, ID: f.node.Generate()}
	f.grant(t, ref, 871026572, 871026574)

	bookings := []struct {
		weight float64
		charge float64
	}{
		{2, 500},
		{3, 750},
		{0, 300},
	}
	wantNumbers := []int64{871026572, 871026573, 871026574}
	for i, b := range bookings {
		rec, err := f.allocator.Allocate(context.Background(), allocationdomain.AllocateRequest{
			Tenant:           ref,
			BookingRef:       fmt.Sprintf("bk-%d", i),
			PaymentType:      ledgerdomain.PaymentTypeFreightPaid,
			ChargeableWeight: b.weight,
			FreightCharge:    b.charge,
			TotalAmount:      b.charge,
		})
		if err != nil {
			t.Fatalf("allocate %d: %v", i, err)
		}
		if rec.ConsignmentNumber != wantNumbers[i] {
			t.Fatalf("allocate %d: expected %d, got %d", i, wantNumbers[i], rec.ConsignmentNumber)
		}
	}

	_, err := f.allocator.Allocate(context.Background(), allocationdomain.AllocateRequest{
		Tenant:      ref,
		BookingRef:  "bk-overflow",
		PaymentType: ledgerdomain.PaymentTypeFreightPaid,
	})
	if !errors.Is(err, allocationdomain.ErrRangesExhausted) {
		t.Fatalf("expected ranges exhausted, got %v", err)
	}

	report, err := f.settlement.ComputePeriod(context.Background(), ref, 3, 2026)
	if err != nil {
		t.Fatalf("compute period: %v", err)
	}
	if report.TotalTransactions != 3 {
		t.Fatalf("expected 3 transactions, got %d", report.TotalTransactions)
	}
	if report.TotalWeight != 5 {
		t.Fatalf("expected total weight 5, got %v", report.TotalWeight)
	}
	if report.TotalCommission != 50 {
		t.Fatalf("expected total commission 50, got %v", report.TotalCommission)
	}
	if report.GrandTotal != 1550 {
		t.Fatalf("expected grand total 1550, got %v", report.GrandTotal)
	}
	if report.AutoCharge != 1500 {
		t.Fatalf("expected auto charge 1500, got %v", report.AutoCharge)
	}
	if report.ManualOverride != nil {
		t.Fatalf("expected no override, got %v", *report.ManualOverride)
	}
	if report.EffectiveCharge != 1500 {
		t.Fatalf("expected effective charge 1500, got %v", report.EffectiveCharge)
	}
	if report.RemainingBalance != 50 {
		t.Fatalf("expected remaining balance 50, got %v", report.RemainingBalance)
	}
}

func TestComputePeriodIdempotent(t *testing.T) {
	f := setup(t)
	ref := tenant.Ref{Type: tenant.TypeOfficeUser, ID: f.node.Generate()}
	f.grant(t, ref, 100_000_000, 100_000_010)

	// Booked without the structured weight field. The first run derives
	// it from the actual weight string and backfills.
	if _, err := f.ledger.RecordUsage(context.Background(), ledgerdomain.RecordUsageRequest{
		Tenant:            ref,
		ConsignmentNumber: 100_000_000,
		BookingRef:        "bk-fallback",
		PaymentType:       ledgerdomain.PaymentTypeToPay,
		ActualWeight:      "2.5",
		TotalAmount:       400,
	}); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	first, err := f.settlement.ComputePeriod(context.Background(), ref, 3, 2026)
	if err != nil {
		t.Fatalf("first compute: %v", err)
	}
	if first.TotalWeight != 2.5 || first.TotalCommission != 25 {
		t.Fatalf("unexpected first run figures: weight %v commission %v", first.TotalWeight, first.TotalCommission)
	}

	second, err := f.settlement.ComputePeriod(context.Background(), ref, 3, 2026)
	if err != nil {
		t.Fatalf("second compute: %v", err)
	}
	if second.TotalWeight != first.TotalWeight ||
		second.TotalCommission != first.TotalCommission ||
		second.GrandTotal != first.GrandTotal ||
		second.AutoCharge != first.AutoCharge ||
		second.RemainingBalance != first.RemainingBalance {
		t.Fatalf("re-run changed figures: %+v vs %+v", first, second)
	}

	// Backfill must have persisted the derived figures.
	var stored struct {
		ChargeableWeight float64
		Commission       float64
	}
	if err := f.db.Raw(`SELECT chargeable_weight, commission FROM consignment_usages WHERE booking_ref = ?`, "bk-fallback").Scan(&stored).Error; err != nil {
		t.Fatalf("read back: %v", err)
	}
	if stored.ChargeableWeight != 2.5 || stored.Commission != 25 {
		t.Fatalf("backfill not persisted: %+v", stored)
	}

	// A new record only changes figures attributable to it.
	if _, err := f.ledger.RecordUsage(context.Background(), ledgerdomain.RecordUsageRequest{
		Tenant:            ref,
		ConsignmentNumber: 100_000_001,
		BookingRef:        "bk-extra",
		PaymentType:       ledgerdomain.PaymentTypeFreightPaid,
		ChargeableWeight:  1,
		TotalAmount:       100,
	}); err != nil {
		t.Fatalf("record extra: %v", err)
	}
	third, err := f.settlement.ComputePeriod(context.Background(), ref, 3, 2026)
	if err != nil {
		t.Fatalf("third compute: %v", err)
	}
	if third.TotalWeight != first.TotalWeight+1 || third.TotalCommission != first.TotalCommission+10 || third.GrandTotal != first.GrandTotal+100 {
		t.Fatalf("unexpected figures after new record: %+v", third)
	}
}

func TestWeightFallbackPrecedence(t *testing.T) {
	f := setup(t)
	ref := tenant.Ref{Type: tenant.TypeCourier, ID: f.node.Generate()}
	f.grant(t, ref, 100_000_000, 100_000_010)

	cases := []struct {
		name           string
		req            ledgerdomain.RecordUsageRequest
		wantWeight     float64
		wantCommission float64
	}{
		{
			name: "chargeable wins over strings",
			req: ledgerdomain.RecordUsageRequest{
				ChargeableWeight: 4,
				ActualWeight:     "9",
				PerKgWeight:      "7",
			},
			wantWeight:     4,
			wantCommission: 40,
		},
		{
			name: "actual weight string",
			req: ledgerdomain.RecordUsageRequest{
				ActualWeight: "3",
				PerKgWeight:  "7",
			},
			wantWeight:     3,
			wantCommission: 30,
		},
		{
			name: "per kg string when actual is garbage",
			req: ledgerdomain.RecordUsageRequest{
				ActualWeight: "n/a",
				PerKgWeight:  "2",
			},
			wantWeight:     2,
			wantCommission: 20,
		},
		{
			name:           "all missing degrades to zero",
			req:            ledgerdomain.RecordUsageRequest{},
			wantWeight:     0,
			wantCommission: 0,
		},
	}

	for i, tc := range cases {
		req := tc.req
		req.Tenant = ref
		req.ConsignmentNumber = 100_000_000 + int64(i)
		req.BookingRef = fmt.Sprintf("bk-%d", i)
		req.PaymentType = ledgerdomain.PaymentTypeFreightPaid
		req.TotalAmount = 100
		if _, err := f.ledger.RecordUsage(context.Background(), req); err != nil {
			t.Fatalf("%s: record usage: %v", tc.name, err)
		}
	}

	report, err := f.settlement.ComputePeriod(context.Background(), ref, 3, 2026)
	if err != nil {
		t.Fatalf("compute period: %v", err)
	}
	if len(report.Rows) != len(cases) {
		t.Fatalf("expected %d rows, got %d", len(cases), len(report.Rows))
	}
	for i, tc := range cases {
		row := report.Rows[i]
		if row.Weight != tc.wantWeight {
			t.Fatalf("%s: expected weight %v, got %v", tc.name, tc.wantWeight, row.Weight)
		}
		if row.Commission != tc.wantCommission {
			t.Fatalf("%s: expected commission %v, got %v", tc.name, tc.wantCommission, row.Commission)
		}
	}
}

func TestManualOverride(t *testing.T) {
	f := setup(t)
	ref := tenant.Ref{Type: tenant.TypeCorporate, ID: f.node.Generate()}
	f.grant(t, ref, 100_000_000, 100_000_010)

	if _, err := f.ledger.RecordUsage(context.Background(), ledgerdomain.RecordUsageRequest{
		Tenant:            ref,
		ConsignmentNumber: 100_000_000,
		BookingRef:        "bk-1",
		PaymentType:       ledgerdomain.PaymentTypeFreightPaid,
		ChargeableWeight:  5,
		TotalAmount:       1550,
	}); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	if _, err := f.settlement.SetOverride(context.Background(), settlementdomain.SetOverrideRequest{
		Tenant: ref,
		Month:  3,
		Year:   2026,
		Amount: 1400,
		SetBy:  "admin@test",
	}); err != nil {
		t.Fatalf("set override: %v", err)
	}

	report, err := f.settlement.ComputePeriod(context.Background(), ref, 3, 2026)
	if err != nil {
		t.Fatalf("compute period: %v", err)
	}
	if report.ManualOverride == nil || *report.ManualOverride != 1400 {
		t.Fatalf("expected override 1400, got %v", report.ManualOverride)
	}
	if report.EffectiveCharge != 1400 {
		t.Fatalf("expected effective charge 1400, got %v", report.EffectiveCharge)
	}
	if report.RemainingBalance != 150 {
		t.Fatalf("expected remaining balance 150, got %v", report.RemainingBalance)
	}
	// The auto-computed figure is preserved alongside the override.
	if report.AutoCharge != 1500 {
		t.Fatalf("expected auto charge 1500, got %v", report.AutoCharge)
	}

	// Re-setting replaces the amount, not a second row.
	if _, err := f.settlement.SetOverride(context.Background(), settlementdomain.SetOverrideRequest{
		Tenant: ref,
		Month:  3,
		Year:   2026,
		Amount: 1450,
		SetBy:  "admin@test",
	}); err != nil {
		t.Fatalf("replace override: %v", err)
	}
	var count int64
	if err := f.db.Raw(`SELECT COUNT(1) FROM settlement_overrides`).Scan(&count).Error; err != nil {
		t.Fatalf("count overrides: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single override row, got %d", count)
	}

	if err := f.settlement.ClearOverride(context.Background(), ref, 3, 2026); err != nil {
		t.Fatalf("clear override: %v", err)
	}
	report, err = f.settlement.ComputePeriod(context.Background(), ref, 3, 2026)
	if err != nil {
		t.Fatalf("compute after clear: %v", err)
	}
	if report.ManualOverride != nil || report.EffectiveCharge != report.AutoCharge {
		t.Fatalf("expected auto charge after clear, got %+v", report)
	}
}

func TestGenerateInvoice(t *testing.T) {
	f := setup(t)
	ref := tenant.Ref{Type: tenant.TypeMedicine, ID: f.node.Generate()}
	f.grant(t, ref, 100_000_000, 100_000_010)

	for i := 0; i < 3; i++ {
		if _, err := f.ledger.RecordUsage(context.Background(), ledgerdomain.RecordUsageRequest{
			Tenant:            ref,
			ConsignmentNumber: 100_000_000 + int64(i),
			BookingRef:        fmt.Sprintf("bk-%d", i),
			PaymentType:       ledgerdomain.PaymentTypeFreightPaid,
			ChargeableWeight:  1,
			TotalAmount:       200,
		}); err != nil {
			t.Fatalf("record usage %d: %v", i, err)
		}
	}

	result, err := f.settlement.GenerateInvoice(context.Background(), ref, 3, 2026)
	if err != nil {
		t.Fatalf("generate invoice: %v", err)
	}
	if result.RecordCount != 3 || result.TotalAmount != 600 {
		t.Fatalf("unexpected invoice result %+v", result)
	}
	if result.InvoiceRef == "" {
		t.Fatal("expected an invoice reference")
	}

	var invoiced int64
	if err := f.db.Raw(
		`SELECT COUNT(1) FROM consignment_usages WHERE payment_status = ? AND invoice_ref = ?`,
		ledgerdomain.PaymentStatusInvoiced, result.InvoiceRef,
	).Scan(&invoiced).Error; err != nil {
		t.Fatalf("count invoiced: %v", err)
	}
	if invoiced != 3 {
		t.Fatalf("expected 3 invoiced records, got %d", invoiced)
	}

	// Everything in the period is invoiced now.
	if _, err := f.settlement.GenerateInvoice(context.Background(), ref, 3, 2026); !errors.Is(err, settlementdomain.ErrNothingToInvoice) {
		t.Fatalf("expected nothing to invoice, got %v", err)
	}
}
