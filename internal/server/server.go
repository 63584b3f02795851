package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shipdesk/shipdesk/internal/allocation"
	allocationdomain "github.com/shipdesk/shipdesk/internal/allocation/domain"
	"github.com/shipdesk/shipdesk/internal/assignment"
	assignmentdomain "github.com/shipdesk/shipdesk/internal/assignment/domain"
	"github.com/shipdesk/shipdesk/internal/booking"
	bookingdomain "github.com/shipdesk/shipdesk/internal/booking/domain"
	"github.com/shipdesk/shipdesk/internal/config"
	"github.com/shipdesk/shipdesk/internal/ledger"
	ledgerdomain "github.com/shipdesk/shipdesk/internal/ledger/domain"
	"github.com/shipdesk/shipdesk/internal/observability"
	obsmiddleware "github.com/shipdesk/shipdesk/internal/observability/logger"
	obsmetrics "github.com/shipdesk/shipdesk/internal/observability/metrics"
	obstracing "github.com/shipdesk/shipdesk/internal/observability/tracing"
	"github.com/shipdesk/shipdesk/internal/settlement"
	settlementdomain "github.com/shipdesk/shipdesk/internal/settlement/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	assignment.Module,
	ledger.Module,
	allocation.Module,
	settlement.Module,
	booking.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(TenantContext())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	assignmentSvc assignmentdomain.Service
	allocationSvc allocationdomain.Service
	ledgerSvc     ledgerdomain.Service
	settlementSvc settlementdomain.Service
	bookingSvc    bookingdomain.Service
	obsMetrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	AssignmentSvc assignmentdomain.Service
	AllocationSvc allocationdomain.Service
	LedgerSvc     ledgerdomain.Service
	SettlementSvc settlementdomain.Service
	BookingSvc    bookingdomain.Service
	ObsMetrics    *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		assignmentSvc: p.AssignmentSvc,
		allocationSvc: p.AllocationSvc,
		ledgerSvc:     p.LedgerSvc,
		settlementSvc: p.SettlementSvc,
		bookingSvc:    p.BookingSvc,
		obsMetrics:    p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	bookings := api.Group("/bookings")
	bookings.POST("", s.CreateBooking)
	bookings.GET("", s.ListBookings)
	bookings.GET("/:booking_ref", s.GetBooking)
	bookings.POST("/:booking_ref/cancel", s.CancelBooking)
	bookings.POST("/:booking_ref/status", s.UpdateBookingStatus)
	bookings.GET("/:booking_ref/usage", s.GetBookingUsage)

	usages := api.Group("/usages")
	usages.GET("/:id", s.GetUsage)

	ranges := api.Group("/ranges")
	ranges.POST("", s.GrantRange)
	ranges.GET("", s.ListRanges)
	ranges.GET("/:id", s.GetRange)
	ranges.POST("/:id/revoke", s.RevokeRange)

	allocation := api.Group("/allocation")
	allocation.GET("/next-number", s.NextNumber)
	allocation.GET("/quota", s.Quota)

	settlement := api.Group("/settlement")
	settlement.GET("/report", s.SettlementReport)
	settlement.PUT("/override", s.SetSettlementOverride)
	settlement.DELETE("/override", s.ClearSettlementOverride)
	settlement.POST("/invoice", s.GenerateInvoice)
	settlement.GET("/unpaid", s.ListUnpaid)
}
