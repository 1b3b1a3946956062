// Package content is the commit hook of the surrounding content system:
// every entity write goes through it so the change detector sees it in
// the same transaction.
package content

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/orcid-sync/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type entityRepo interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Entity, error)
	Create(ctx context.Context, e domain.Entity) (domain.Entity, error)
	Update(ctx context.Context, e domain.Entity) (domain.Entity, error)
	Delete(ctx context.Context, id uuid.UUID) (domain.Entity, error)
}

type changeConsumer interface {
	Consume(ctx context.Context, changes []domain.Change) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service writes entities and feeds the change detector.
type Service struct {
	log      *slog.Logger
	entities entityRepo
	detector changeConsumer
	tx       txManager
}

// NewService creates a new content Service.
func NewService(
	log *slog.Logger,
	entities entityRepo,
	detector changeConsumer,
	tx txManager,
) *Service {
	return &Service{
		log:      log.With("service", "content"),
		entities: entities,
		detector: detector,
		tx:       tx,
	}
}
