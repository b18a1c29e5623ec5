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
	workflowTransitions metric.Int64Counter
	transitionConflicts metric.Int64Counter
	riskRecomputes      metric.Int64Counter
	rtmLinkMutations    metric.Int64Counter
	auditWrites         metric.Int64Counter
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

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "qualitrace"
	}
	meter := provider.Meter(name)

	workflowTransitions, err := meter.Int64Counter("qualitrace_workflow_transitions_total")
	if err != nil {
		return nil, err
	}
	transitionConflicts, err := meter.Int64Counter("qualitrace_transition_conflicts_total")
	if err != nil {
		return nil, err
	}
	riskRecomputes, err := meter.Int64Counter("qualitrace_risk_recomputes_total")
	if err != nil {
		return nil, err
	}
	rtmLinkMutations, err := meter.Int64Counter("qualitrace_rtm_link_mutations_total")
	if err != nil {
		return nil, err
	}
	auditWrites, err := meter.Int64Counter("qualitrace_audit_writes_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		workflowTransitions: workflowTransitions,
		transitionConflicts: transitionConflicts,
		riskRecomputes:      riskRecomputes,
		rtmLinkMutations:    rtmLinkMutations,
		auditWrites:         auditWrites,
	}, nil
}

// RecordWorkflowTransition increments successful transition counts.
func (m *Metrics) RecordWorkflowTransition(ctx context.Context, entity, toStatus string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("entity", strings.TrimSpace(entity)),
		attribute.String("to_status", strings.TrimSpace(toStatus)),
	)
	m.workflowTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTransitionConflict increments lost-update conflict counts.
func (m *Metrics) RecordTransitionConflict(ctx context.Context, entity string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("entity", strings.TrimSpace(entity)))
	m.transitionConflicts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRiskRecompute increments risk score recompute counts.
func (m *Metrics) RecordRiskRecompute(ctx context.Context, level string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("risk_level", strings.TrimSpace(level)))
	m.riskRecomputes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRTMLinkMutation increments RTM link add/remove counts.
func (m *Metrics) RecordRTMLinkMutation(ctx context.Context, op string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("op", strings.TrimSpace(op)))
	m.rtmLinkMutations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAuditWrite increments audit log write counts.
func (m *Metrics) RecordAuditWrite(ctx context.Context, action string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("action", strings.TrimSpace(action)))
	m.auditWrites.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"entity":      {},
	"to_status":   {},
	"risk_level":  {},
	"op":          {},
	"action":      {},
	"endpoint":    {},
	"status_code": {},
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
