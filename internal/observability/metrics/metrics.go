package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	allocations          metric.Int64Counter
	allocationConflicts  metric.Int64Counter
	allocationExhausted  metric.Int64Counter
	rangeGrants          metric.Int64Counter
	settlementRuns       metric.Int64Counter
	invoicesGenerated    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "shipdesk"
	}
	meter := provider.Meter(name)

	allocations, err := meter.Int64Counter("shipdesk_allocations_total")
	if err != nil {
		return nil, err
	}
	allocationConflicts, err := meter.Int64Counter("shipdesk_allocation_conflicts_total")
	if err != nil {
		return nil, err
	}
	allocationExhausted, err := meter.Int64Counter("shipdesk_allocation_exhausted_total")
	if err != nil {
		return nil, err
	}
	rangeGrants, err := meter.Int64Counter("shipdesk_range_grants_total")
	if err != nil {
		return nil, err
	}
	settlementRuns, err := meter.Int64Counter("shipdesk_settlement_runs_total")
	if err != nil {
		return nil, err
	}
	invoicesGenerated, err := meter.Int64Counter("shipdesk_invoices_generated_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		allocations:         allocations,
		allocationConflicts: allocationConflicts,
		allocationExhausted: allocationExhausted,
		rangeGrants:         rangeGrants,
		settlementRuns:      settlementRuns,
		invoicesGenerated:   invoicesGenerated,
	}, nil
}

// RecordAllocation increments successful allocation counts.
func (m *Metrics) RecordAllocation(ctx context.Context, tenantType string, attempts int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("tenant_type", strings.TrimSpace(tenantType)),
		attribute.Int("attempts", attempts),
	)
	m.allocations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAllocationConflict increments duplicate-number retry counts.
func (m *Metrics) RecordAllocationConflict(ctx context.Context, tenantType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("tenant_type", strings.TrimSpace(tenantType)))
	m.allocationConflicts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAllocationExhausted increments quota-exhaustion counts.
func (m *Metrics) RecordAllocationExhausted(ctx context.Context, tenantType, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("tenant_type", strings.TrimSpace(tenantType)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.allocationExhausted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRangeGrant increments range grant counts.
func (m *Metrics) RecordRangeGrant(ctx context.Context, tenantType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("tenant_type", strings.TrimSpace(tenantType)))
	m.rangeGrants.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSettlementRun increments settlement computation counts.
func (m *Metrics) RecordSettlementRun(ctx context.Context, tenantType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("tenant_type", strings.TrimSpace(tenantType)))
	m.settlementRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordInvoiceGenerated increments invoice generation counts.
func (m *Metrics) RecordInvoiceGenerated(ctx context.Context, tenantType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("tenant_type", strings.TrimSpace(tenantType)))
	m.invoicesGenerated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"tenant_type": {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
	"attempts":    {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
