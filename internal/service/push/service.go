// Package push drains the work queue into the registry.
package push

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/heartmarshall/orcid-sync/internal/config"
	"github.com/heartmarshall/orcid-sync/internal/domain"
	"github.com/heartmarshall/orcid-sync/internal/telemetry"
)

type queueRepo interface {
	ListCandidates(ctx context.Context, f domain.QueueFilter) ([]domain.QueueRecord, error)
	IncrementAttempts(ctx context.Context, id uuid.UUID) (domain.QueueRecord, error)
	DeleteIfUnchanged(ctx context.Context, id uuid.UUID, op domain.Operation) (bool, error)
	SetPutCode(ctx context.Context, id uuid.UUID, putCode *string) error
	RecordFailure(ctx context.Context, id uuid.UUID, msg string) error
}

type historyRepo interface {
	Append(ctx context.Context, h domain.HistoryRecord) (domain.HistoryRecord, error)
}

type preferenceRepo interface {
	GetPreferencesByOwners(ctx context.Context, owners []uuid.UUID) (map[uuid.UUID]domain.Preferences, error)
}

type registryTransport interface {
	Synchronize(ctx context.Context, req domain.SyncRequest) (domain.SyncResult, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// failureWriteTimeout bounds storing a row's last error once its record
// timeout has run out.
const failureWriteTimeout = 5 * time.Second

// Outcome labels of the push records metric.
const (
	outcomeSuccess = "success"
	outcomeInvalid = "invalid"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

// Options control one push run.
type Options struct {
	// Force drains rows regardless of their attempt count and also takes
	// owners whose preference is MANUAL.
	Force bool
}

// Service is the push orchestrator.
type Service struct {
	queue     queueRepo
	history   historyRepo
	prefs     preferenceRepo
	transport registryTransport
	tx        txManager
	metrics   *telemetry.SyncMetrics
	tracer    trace.Tracer
	log       *slog.Logger

	maxAttempts   int
	batchLimit    int
	recordTimeout time.Duration
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithMetrics records per-record outcomes on m.
func WithMetrics(m *telemetry.SyncMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithTracer opens one span per pushed record.
func WithTracer(t trace.Tracer) ServiceOption {
	return func(s *Service) { s.tracer = t }
}

// NewService creates a new push Service.
func NewService(
	log *slog.Logger,
	cfg config.PushConfig,
	queue queueRepo,
	history historyRepo,
	prefs preferenceRepo,
	transport registryTransport,
	tx txManager,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		queue:         queue,
		history:       history,
		prefs:         prefs,
		transport:     transport,
		tx:            tx,
		tracer:        noop.NewTracerProvider().Tracer(""),
		log:           log.With("service", "push"),
		maxAttempts:   cfg.MaxAttempts,
		batchLimit:    cfg.BatchLimit,
		recordTimeout: cfg.RecordTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}
