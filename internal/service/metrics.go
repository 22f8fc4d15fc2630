package service

import (
	"context"
	"fmt"

	"github.com/prperemyshlev/identity-service/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds the identity counters exported on /metrics
type Metrics struct {
	logins        metric.Int64Counter
	quotaDenials  metric.Int64Counter
	tokensRevoked metric.Int64Counter
}

// NewMetrics registers the counters on the given meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	logins, err := meter.Int64Counter("identity.logins",
		metric.WithDescription("Login attempts by result"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logins counter: %w", err)
	}

	quotaDenials, err := meter.Int64Counter("identity.quota.denials",
		metric.WithDescription("Quota-bound mutations refused by resource"))
	if err != nil {
		return nil, fmt.Errorf("failed to create quota denials counter: %w", err)
	}

	tokensRevoked, err := meter.Int64Counter("identity.tokens.revoked",
		metric.WithDescription("Session revocations by reason"))
	if err != nil {
		return nil, fmt.Errorf("failed to create revocations counter: %w", err)
	}

	return &Metrics{logins: logins, quotaDenials: quotaDenials, tokensRevoked: tokensRevoked}, nil
}

// NoopMetrics returns counters that record nothing
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("identity"))
	return m
}

func (m *Metrics) login(ctx context.Context, result string) {
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) quotaDenied(ctx context.Context, resource domain.Resource) {
	m.quotaDenials.Add(ctx, 1, metric.WithAttributes(attribute.String("resource", string(resource))))
}

func (m *Metrics) revoked(ctx context.Context, reason domain.RevocationReason) {
	m.tokensRevoked.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(reason))))
}
