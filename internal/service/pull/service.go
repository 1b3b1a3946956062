// Package pull visits every profile with a registry identifier and runs the
// configured inbound actions on it.
package pull

import (
	"context"
	"iter"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/heartmarshall/orcid-sync/internal/adapter/postgres/profile"
	"github.com/heartmarshall/orcid-sync/internal/domain"
	"github.com/heartmarshall/orcid-sync/internal/service/inbound"
	"github.com/heartmarshall/orcid-sync/internal/telemetry"
)

type profileRepo interface {
	Stream(ctx context.Context, f profile.StreamFilter) iter.Seq2[domain.Profile, error]
}

type entityRepo interface {
	Update(ctx context.Context, e domain.Entity) (domain.Entity, error)
}

// Options control one pull run.
type Options struct {
	// LinkedOnly skips profiles that have not granted registry access.
	LinkedOnly bool
}

// Service is the pull orchestrator.
type Service struct {
	profiles profileRepo
	entities entityRepo
	actions  []inbound.Action
	names    []string
	pageSize int
	metrics  *telemetry.SyncMetrics
	tracer   trace.Tracer
	log      *slog.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithMetrics counts visited profiles on m.
func WithMetrics(m *telemetry.SyncMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithTracer opens one span per visited profile.
func WithTracer(t trace.Tracer) ServiceOption {
	return func(s *Service) { s.tracer = t }
}

// NewService creates a new pull Service running actions in order.
func NewService(
	log *slog.Logger,
	profiles profileRepo,
	entities entityRepo,
	actions *inbound.Registry,
	pageSize int,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		profiles: profiles,
		entities: entities,
		actions:  actions.Actions(),
		names:    actions.Names(),
		pageSize: pageSize,
		tracer:   noop.NewTracerProvider().Tracer(""),
		log:      log.With("service", "pull"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}
