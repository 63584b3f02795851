package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	assignmentdomain "github.com/shipdesk/shipdesk/internal/assignment/domain"
	"github.com/shipdesk/shipdesk/internal/clock"
	"github.com/shipdesk/shipdesk/internal/config"
	obsmetrics "github.com/shipdesk/shipdesk/internal/observability/metrics"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"github.com/shipdesk/shipdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	AllocCfg   *config.AllocationConfigHolder
	Repo       assignmentdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	allocCfg   *config.AllocationConfigHolder
	repo       assignmentdomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) assignmentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("assignment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		allocCfg:   p.AllocCfg,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Grant(ctx context.Context, req assignmentdomain.GrantRequest) (*assignmentdomain.Response, error) {
	ref, err := parseTenant(req.TenantType, req.TenantID)
	if err != nil {
		return nil, err
	}

	grantedBy := strings.TrimSpace(req.GrantedBy)
	if grantedBy == "" {
		return nil, assignmentdomain.ErrInvalidGrantor
	}

	cfg := s.allocCfg.Get()
	if req.StartNumber < cfg.NumberingFloor {
		return nil, assignmentdomain.ErrInvalidRange
	}
	if req.EndNumber < req.StartNumber {
		return nil, assignmentdomain.ErrInvalidRange
	}
	total := req.EndNumber - req.StartNumber + 1
	if total > cfg.MaxRangeSize {
		return nil, assignmentdomain.ErrInvalidRange
	}

	now := s.clock.Now()
	ra := &assignmentdomain.RangeAssignment{
		ID:           s.genID.Generate(),
		TenantType:   ref.Type,
		TenantID:     ref.ID,
		StartNumber:  req.StartNumber,
		EndNumber:    req.EndNumber,
		TotalNumbers: total,
		GrantedBy:    grantedBy,
		Notes:        strings.TrimSpace(req.Notes),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Overlap check and insert run in one transaction. Postgres
	// additionally enforces non-overlap of active ranges with an
	// exclusion constraint, so a concurrent grant racing past this
	// check still fails at the insert.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conflict, err := s.repo.FindOverlap(ctx, tx, req.StartNumber, req.EndNumber)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &assignmentdomain.OverlapError{
				ConflictingID:    conflict.ID,
				ConflictingStart: conflict.StartNumber,
				ConflictingEnd:   conflict.EndNumber,
			}
		}
		return s.repo.Insert(ctx, tx, ra)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			if conflict, findErr := s.repo.FindOverlap(ctx, s.db, req.StartNumber, req.EndNumber); findErr == nil && conflict != nil {
				return nil, &assignmentdomain.OverlapError{
					ConflictingID:    conflict.ID,
					ConflictingStart: conflict.StartNumber,
					ConflictingEnd:   conflict.EndNumber,
				}
			}
			return nil, assignmentdomain.ErrRangeOverlap
		}
		return nil, err
	}

	s.obsMetrics.RecordRangeGrant(ctx, string(ref.Type))
	s.log.Info("range granted",
		zap.String("tenant_type", string(ref.Type)),
		zap.String("tenant_id", ref.ID.String()),
		zap.Int64("start_number", ra.StartNumber),
		zap.Int64("end_number", ra.EndNumber),
	)

	return toResponse(ra), nil
}

func (s *Service) ListActive(ctx context.Context, ref tenant.Ref) ([]assignmentdomain.Response, error) {
	if !ref.Valid() {
		return nil, assignmentdomain.ErrInvalidTenant
	}

	items, err := s.repo.ListActive(ctx, s.db, ref)
	if err != nil {
		return nil, err
	}

	resp := make([]assignmentdomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) List(ctx context.Context, ref tenant.Ref) ([]assignmentdomain.Response, error) {
	if !ref.Valid() {
		return nil, assignmentdomain.ErrInvalidTenant
	}

	items, err := s.repo.List(ctx, s.db, ref)
	if err != nil {
		return nil, err
	}

	resp := make([]assignmentdomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*assignmentdomain.Response, error) {
	assignmentID, err := assignmentdomain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return nil, assignmentdomain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, assignmentID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, assignmentdomain.ErrNotFound
	}
	return toResponse(item), nil
}

func (s *Service) Revoke(ctx context.Context, id string) error {
	assignmentID, err := assignmentdomain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return assignmentdomain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, assignmentID)
	if err != nil {
		return err
	}
	if item == nil {
		return assignmentdomain.ErrNotFound
	}

	if err := s.repo.SetActive(ctx, s.db, assignmentID, false); err != nil {
		return err
	}

	s.log.Info("range revoked",
		zap.String("assignment_id", assignmentID.String()),
		zap.Int64("start_number", item.StartNumber),
		zap.Int64("end_number", item.EndNumber),
	)
	return nil
}

func parseTenant(tenantType, tenantID string) (tenant.Ref, error) {
	parsedType, err := tenant.ParseType(tenantType)
	if err != nil {
		return tenant.Ref{}, assignmentdomain.ErrInvalidTenant
	}
	id, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || id == 0 {
		return tenant.Ref{}, assignmentdomain.ErrInvalidTenant
	}
	return tenant.Ref{Type: parsedType, ID: id}, nil
}

func toResponse(ra *assignmentdomain.RangeAssignment) *assignmentdomain.Response {
	return &assignmentdomain.Response{
		ID:           ra.ID.String(),
		TenantType:   string(ra.TenantType),
		TenantID:     ra.TenantID.String(),
		StartNumber:  ra.StartNumber,
		EndNumber:    ra.EndNumber,
		TotalNumbers: ra.TotalNumbers,
		GrantedBy:    ra.GrantedBy,
		Notes:        ra.Notes,
		Active:       ra.Active,
		CreatedAt:    ra.CreatedAt,
		UpdatedAt:    ra.UpdatedAt,
	}
}
