package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	assignmentdomain "github.com/shipdesk/shipdesk/internal/assignment/domain"
	"github.com/shipdesk/shipdesk/internal/assignment/repository"
	"github.com/shipdesk/shipdesk/internal/clock"
	"github.com/shipdesk/shipdesk/internal/config"
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

func setupService(t *testing.T, node *snowflake.Node) (assignmentdomain.Service, *gorm.DB) {
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
	if err := db.AutoMigrate(&assignmentdomain.RangeAssignment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.SystemClock{},
		AllocCfg: config.NewStaticAllocationConfig(config.AllocationConfig{
			NumberingFloor:      100,
			MaxRangeSize:        10_000,
			CommissionRatePerKg: 10,
			MaxAttempts:         5,
		}),
		Repo: repository.Provide(),
	})
	return svc, db
}

func grantReq(ref tenant.Ref, start, end int64) assignmentdomain.GrantRequest {
	return assignmentdomain.GrantRequest{
		TenantType:  string(ref.Type),
		TenantID:    ref.ID.String(),
		StartNumber: start,
		EndNumber:   end,
		GrantedBy:   "ops@test",
	}
}

func TestGrantValidation(t *testing.T) {
	node := mustNode(t)
	ref := tenant.Ref{Type: tenant.TypeCorporate, ID: node.Generate()}
	svc, _ := setupService(t, node)

	cases := []struct {
		name string
		req  assignmentdomain.GrantRequest
		want error
	}{
		{"below floor", grantReq(ref, 50, 150), assignmentdomain.ErrInvalidRange},
		{"end before start", grantReq(ref, 600, 500), assignmentdomain.ErrInvalidRange},
		{"oversized", grantReq(ref, 1000, 20_000), assignmentdomain.ErrInvalidRange},
		{"unknown tenant type", assignmentdomain.GrantRequest{TenantType: "vendor", TenantID: ref.ID.String(), StartNumber: 500, EndNumber: 600, GrantedBy: "ops@test"}, assignmentdomain.ErrInvalidTenant},
		{"missing grantor", assignmentdomain.GrantRequest{TenantType: string(ref.Type), TenantID: ref.ID.String(), StartNumber: 500, EndNumber: 600}, assignmentdomain.ErrInvalidGrantor},
	}
	for _, tc := range cases {
		if _, err := svc.Grant(context.Background(), tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestGrantOverlapRejected(t *testing.T) {
	node := mustNode(t)
	ref := tenant.Ref{Type: tenant.TypeCorporate, ID: node.Generate()}
	other := tenant.Ref{Type: tenant.TypeCourier, ID: node.Generate()}
	svc, _ := setupService(t, node)

	granted, err := svc.Grant(context.Background(), grantReq(ref, 500, 600))
	if err != nil {
		t.Fatalf("grant: %v", err)
	}

	// Numbers are one global namespace, so the other tenant collides too.
	_, err = svc.Grant(context.Background(), grantReq(other, 550, 650))
	if !errors.Is(err, assignmentdomain.ErrRangeOverlap) {
		t.Fatalf("expected overlap, got %v", err)
	}
	var overlap *assignmentdomain.OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("expected an overlap error with conflict details, got %T", err)
	}
	if overlap.ConflictingID.String() != granted.ID {
		t.Fatalf("expected conflict with %s, got %s", granted.ID, overlap.ConflictingID)
	}
	if overlap.ConflictingStart != 500 || overlap.ConflictingEnd != 600 {
		t.Fatalf("unexpected conflict bounds [%d, %d]", overlap.ConflictingStart, overlap.ConflictingEnd)
	}

	// Adjacent range right after the conflict succeeds.
	if _, err := svc.Grant(context.Background(), grantReq(other, 601, 650)); err != nil {
		t.Fatalf("adjacent grant: %v", err)
	}
}

func TestRevokeFreesRangeForRegrant(t *testing.T) {
	node := mustNode(t)
	ref := tenant.Ref{Type: tenant.TypeOfficeUser, ID: node.Generate()}
	svc, _ := setupService(t, node)

	granted, err := svc.Grant(context.Background(), grantReq(ref, 500, 600))
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := svc.Revoke(context.Background(), granted.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	active, err := svc.ListActive(context.Background(), ref)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active ranges after revoke, got %d", len(active))
	}
	all, err := svc.List(context.Background(), ref)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].Active {
		t.Fatalf("expected one inactive range, got %+v", all)
	}

	// Only active ranges count toward the overlap check; identical bounds
	// may be granted again once the original is revoked.
	regranted, err := svc.Grant(context.Background(), grantReq(ref, 500, 600))
	if err != nil {
		t.Fatalf("regrant of revoked range: %v", err)
	}
	if !regranted.Active {
		t.Fatalf("expected regranted range to be active, got %+v", regranted)
	}
	if err := svc.Revoke(context.Background(), regranted.ID); err != nil {
		t.Fatalf("revoke regrant: %v", err)
	}

	if _, err := svc.Grant(context.Background(), grantReq(ref, 550, 650)); err != nil {
		t.Fatalf("overlapping grant over revoked range: %v", err)
	}
}

func TestListActiveOrderedByStart(t *testing.T) {
	node := mustNode(t)
	ref := tenant.Ref{Type: tenant.TypeMedicine, ID: node.Generate()}
	svc, _ := setupService(t, node)

	if _, err := svc.Grant(context.Background(), grantReq(ref, 2000, 2002)); err != nil {
		t.Fatalf("grant high: %v", err)
	}
	if _, err := svc.Grant(context.Background(), grantReq(ref, 1000, 1002)); err != nil {
		t.Fatalf("grant low: %v", err)
	}

	active, err := svc.ListActive(context.Background(), ref)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(active))
	}
	if active[0].StartNumber != 1000 || active[1].StartNumber != 2000 {
		t.Fatalf("expected ascending start order, got %d then %d", active[0].StartNumber, active[1].StartNumber)
	}
}
