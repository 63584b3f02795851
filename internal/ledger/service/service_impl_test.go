package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	assignmentdomain "github.com/shipdesk/shipdesk/internal/assignment/domain"
	assignmentrepo "github.com/shipdesk/shipdesk/internal/assignment/repository"
	"github.com/shipdesk/shipdesk/internal/clock"
	ledgerdomain "github.com/shipdesk/shipdesk/internal/ledger/domain"
	"github.com/shipdesk/shipdesk/internal/ledger/repository"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

func setupLedger(t *testing.T, node *snowflake.Node) (ledgerdomain.Service, *clock.FakeClock, *gorm.DB) {
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
	if err := db.AutoMigrate(&assignmentdomain.RangeAssignment{}, &ledgerdomain.UsageRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:             db,
		Log:            zap.NewNop(),
		GenID:          node,
		Clock:          clk,
		Repo:           repository.Provide(),
		AssignmentRepo: assignmentrepo.Provide(),
	})
	return svc, clk, db
}

func seedActiveRange(t *testing.T, db *gorm.DB, node *snowflake.Node, ref tenant.Ref, start, end int64) {
	t.Helper()
	now := time.Now().UTC()
	err := assignmentrepo.Provide().Insert(context.Background(), db, &assignmentdomain.RangeAssignment{
		ID:           node.Generate(),
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
		t.Fatalf("seed range: %v", err)
	}
}

func usageReq(ref tenant.Ref, number int64, bookingRef string) ledgerdomain.RecordUsageRequest {
	return ledgerdomain.RecordUsageRequest{
		Tenant:            ref,
		ConsignmentNumber: number,
		BookingRef:        bookingRef,
		PaymentType:       ledgerdomain.PaymentTypeFreightPaid,
		ChargeableWeight:  2,
		FreightCharge:     500,
		TotalAmount:       500,
	}
}

func TestGetAndGetByBookingRef(t *testing.T) {
	node := mustNode(t)
	ref := tenant.Ref{Type: tenant.TypeCorporate, ID: node.Generate()}
	svc, _, db := setupLedger(t, node)
	seedActiveRange(t, db, node, ref, 1000, 1010)

	rec, err := svc.RecordUsage(context.Background(), usageReq(ref, 1000, "bk-1"))
	if err != nil {
		t.Fatalf("record usage: %v", err)
	}

	byID, err := svc.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.ConsignmentNumber != 1000 || byID.BookingRef != "bk-1" {
		t.Fatalf("unexpected record %+v", byID)
	}

	byRef, err := svc.GetByBookingRef(context.Background(), "bk-1")
	if err != nil {
		t.Fatalf("get by booking ref: %v", err)
	}
	if byRef.ID != rec.ID {
		t.Fatalf("expected record %s, got %s", rec.ID, byRef.ID)
	}

	if _, err := svc.Get(context.Background(), node.Generate()); !errors.Is(err, ledgerdomain.ErrNotFound) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
	if _, err := svc.GetByBookingRef(context.Background(), "bk-missing"); !errors.Is(err, ledgerdomain.ErrNotFound) {
		t.Fatalf("expected not found for unknown booking ref, got %v", err)
	}
	if _, err := svc.GetByBookingRef(context.Background(), "  "); !errors.Is(err, ledgerdomain.ErrInvalidBookingRef) {
		t.Fatalf("expected invalid booking ref, got %v", err)
	}
}

func TestRecordUsageEnforcesUniqueness(t *testing.T) {
	node := mustNode(t)
	ref := tenant.Ref{Type: tenant.TypeCorporate, ID: node.Generate()}
	svc, _, db := setupLedger(t, node)
	seedActiveRange(t, db, node, ref, 1000, 1010)

	rec, err := svc.RecordUsage(context.Background(), usageReq(ref, 1000, "bk-1"))
	if err != nil {
		t.Fatalf("record usage: %v", err)
	}
	if rec.PaymentStatus != ledgerdomain.PaymentStatusUnpaid {
		t.Fatalf("expected unpaid status at creation, got %s", rec.PaymentStatus)
	}

	_, err = svc.RecordUsage(context.Background(), usageReq(ref, 1000, "bk-2"))
	if !errors.Is(err, ledgerdomain.ErrDuplicateUsage) {
		t.Fatalf("expected duplicate usage, got %v", err)
	}

	var count int64
	if err := db.Raw(`SELECT COUNT(1) FROM consignment_usages`).Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single row, got %d", count)
	}
}

func TestRecordUsageRejectsUnassignedNumber(t *testing.T) {
	node := mustNode(t)
	ref := tenant.Ref{Type: tenant.TypeCorporate, ID: node.Generate()}
	other := tenant.Ref{Type: tenant.TypeCourier, ID: node.Generate()}
	svc, _, db := setupLedger(t, node)
	seedActiveRange(t, db, node, ref, 1000, 1010)

	// Outside any range.
	if _, err := svc.RecordUsage(context.Background(), usageReq(ref, 5000, "bk-1")); !errors.Is(err, ledgerdomain.ErrNumberNotAssigned) {
		t.Fatalf("expected number not assigned, got %v", err)
	}
	// Inside a range, but owned by a different tenant.
	if _, err := svc.RecordUsage(context.Background(), usageReq(other, 1000, "bk-2")); !errors.Is(err, ledgerdomain.ErrNumberNotAssigned) {
		t.Fatalf("expected number not assigned for foreign tenant, got %v", err)
	}
}

func TestMarkInvoicedIdempotent(t *testing.T) {
	node := mustNode(t)
	ref := tenant.Ref{Type: tenant.TypeCorporate, ID: node.Generate()}
	svc, _, db := setupLedger(t, node)
	seedActiveRange(t, db, node, ref, 1000, 1010)

	var ids []snowflake.ID
	for i := 0; i < 3; i++ {
		rec, err := svc.RecordUsage(context.Background(), usageReq(ref, 1000+int64(i), fmt.Sprintf("bk-%d", i)))
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		ids = append(ids, rec.ID)
	}

	if err := svc.MarkInvoiced(context.Background(), ids, "INV-1"); err != nil {
		t.Fatalf("mark invoiced: %v", err)
	}
	// Re-invoking on already-invoiced ids is a no-op, not an error.
	if err := svc.MarkInvoiced(context.Background(), ids, "INV-2"); err != nil {
		t.Fatalf("mark invoiced again: %v", err)
	}

	var refs []string
	if err := db.Raw(`SELECT DISTINCT invoice_ref FROM consignment_usages WHERE invoice_ref IS NOT NULL`).Scan(&refs).Error; err != nil {
		t.Fatalf("read refs: %v", err)
	}
	if len(refs) != 1 || refs[0] != "INV-1" {
		t.Fatalf("expected all rows to keep INV-1, got %v", refs)
	}
}

func TestPaymentStatusOneWay(t *testing.T) {
	node := mustNode(t)
	ref := tenant.Ref{Type: tenant.TypeCorporate, ID: node.Generate()}
	svc, _, db := setupLedger(t, node)
	seedActiveRange(t, db, node, ref, 1000, 1010)

	rec, err := svc.RecordUsage(context.Background(), usageReq(ref, 1000, "bk-1"))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := svc.MarkPaid(context.Background(), []snowflake.ID{rec.ID}); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	// A paid record never regresses to invoiced.
	if err := svc.MarkInvoiced(context.Background(), []snowflake.ID{rec.ID}, "INV-1"); err != nil {
		t.Fatalf("mark invoiced: %v", err)
	}

	var status string
	if err := db.Raw(`SELECT payment_status FROM consignment_usages WHERE id = ?`, rec.ID).Scan(&status).Error; err != nil {
		t.Fatalf("read status: %v", err)
	}
	if status != string(ledgerdomain.PaymentStatusPaid) {
		t.Fatalf("expected paid to stick, got %s", status)
	}
}

func TestFindUnpaidFilters(t *testing.T) {
	node := mustNode(t)
	ref := tenant.Ref{Type: tenant.TypeCorporate, ID: node.Generate()}
	svc, clk, db := setupLedger(t, node)
	seedActiveRange(t, db, node, ref, 1000, 1010)

	fp := usageReq(ref, 1000, "bk-fp")
	tp := usageReq(ref, 1001, "bk-tp")
	tp.PaymentType = ledgerdomain.PaymentTypeToPay
	if _, err := svc.RecordUsage(context.Background(), fp); err != nil {
		t.Fatalf("record fp: %v", err)
	}
	clk.Advance(time.Hour)
	if _, err := svc.RecordUsage(context.Background(), tp); err != nil {
		t.Fatalf("record tp: %v", err)
	}

	all, err := svc.FindUnpaid(context.Background(), ref, nil)
	if err != nil {
		t.Fatalf("find unpaid: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 unpaid, got %d", len(all))
	}

	fpOnly := ledgerdomain.PaymentTypeFreightPaid
	filtered, err := svc.FindUnpaid(context.Background(), ref, &fpOnly)
	if err != nil {
		t.Fatalf("find unpaid fp: %v", err)
	}
	if len(filtered) != 1 || filtered[0].BookingRef != "bk-fp" {
		t.Fatalf("expected just the FP record, got %+v", filtered)
	}

	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	inPeriod, err := svc.FindUnpaidInPeriod(context.Background(), ref, start, start.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("find unpaid in period: %v", err)
	}
	if len(inPeriod) != 2 {
		t.Fatalf("expected 2 in period, got %d", len(inPeriod))
	}
	// Ordered by consumption time ascending.
	if inPeriod[0].BookingRef != "bk-fp" || inPeriod[1].BookingRef != "bk-tp" {
		t.Fatalf("unexpected order: %s then %s", inPeriod[0].BookingRef, inPeriod[1].BookingRef)
	}
}
