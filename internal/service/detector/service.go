// Package detector turns committed entity changes into work queue rows.
package detector

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/orcid-sync/internal/domain"
)

type queueRepo interface {
	Enqueue(ctx context.Context, rec domain.QueueRecord) (bool, error)
	MarkDelete(ctx context.Context, owner, entity uuid.UUID, rt domain.RecordType, putCode *string) error
	MarkPendingDelete(ctx context.Context, owner, entity uuid.UUID, rt domain.RecordType) (bool, error)
}

type historyRepo interface {
	LatestPutCode(ctx context.Context, owner, entity uuid.UUID) (*string, error)
	LatestByOwner(ctx context.Context, owner uuid.UUID, rt domain.RecordType) ([]domain.HistoryRecord, error)
}

type preferenceRepo interface {
	GetPreferencesByOwners(ctx context.Context, owners []uuid.UUID) (map[uuid.UUID]domain.Preferences, error)
}

// Detector is the change detector. Consume must run inside the transaction
// that committed the changes; its repositories join it through ctx.
type Detector struct {
	queue   queueRepo
	history historyRepo
	prefs   preferenceRepo
	log     *slog.Logger
}

// NewDetector creates a new change Detector.
func NewDetector(
	log *slog.Logger,
	queue queueRepo,
	history historyRepo,
	prefs preferenceRepo,
) *Detector {
	return &Detector{
		queue:   queue,
		history: history,
		prefs:   prefs,
		log:     log.With("service", "detector"),
	}
}
