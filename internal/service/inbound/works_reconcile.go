package inbound

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/orcid-sync/internal/config"
	"github.com/heartmarshall/orcid-sync/internal/domain"
)

type workLister interface {
	WorkPutCodes(ctx context.Context, token, orcidID string) ([]string, error)
}

type historyRepo interface {
	LatestByOwner(ctx context.Context, owner uuid.UUID, rt domain.RecordType) ([]domain.HistoryRecord, error)
	Append(ctx context.Context, h domain.HistoryRecord) (domain.HistoryRecord, error)
}

type queueRepo interface {
	ClearPutCode(ctx context.Context, owner, entity uuid.UUID, rt domain.RecordType) (bool, error)
}

type entityRepo interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Entity, error)
}

type changeConsumer interface {
	Consume(ctx context.Context, changes []domain.Change) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

const vanishedMessage = "remote record vanished"

// WorksReconcile notices works the owner deleted on the registry side.
// The ledger forgets their put codes and the publications are queued again
// so the next push re-creates them.
type WorksReconcile struct {
	client   workLister
	history  historyRepo
	queue    queueRepo
	entities entityRepo
	detector changeConsumer
	tx       txManager
	log      *slog.Logger
}

// NewWorksReconcile creates the works-reconcile action.
func NewWorksReconcile(
	log *slog.Logger,
	client workLister,
	history historyRepo,
	queue queueRepo,
	entities entityRepo,
	detector changeConsumer,
	tx txManager,
) *WorksReconcile {
	return &WorksReconcile{
		client:   client,
		history:  history,
		queue:    queue,
		entities: entities,
		detector: detector,
		tx:       tx,
		log:      log.With("action", config.ActionWorksReconcile),
	}
}

func (a *WorksReconcile) Name() string { return config.ActionWorksReconcile }

func (a *WorksReconcile) Apply(ctx context.Context, p *domain.Profile, orcidID string) error {
	if !p.Linked() || !p.Preferences().Allows(domain.RecordTypePublication) {
		return nil
	}

	latest, err := a.history.LatestByOwner(ctx, p.ID, domain.RecordTypePublication)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	var synced []domain.HistoryRecord
	for _, h := range latest {
		if domain.HasPutCode(h.PutCode) {
			synced = append(synced, h)
		}
	}
	if len(synced) == 0 {
		return nil
	}

	codes, err := a.client.WorkPutCodes(ctx, p.Credential.AccessToken, orcidID)
	if err != nil {
		return fmt.Errorf("list registry works: %w", err)
	}
	remote := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		remote[c] = struct{}{}
	}

	var errs []error
	for _, h := range synced {
		if _, ok := remote[*h.PutCode]; ok {
			continue
		}
		if err := a.requeue(ctx, h); err != nil {
			errs = append(errs, fmt.Errorf("publication %s: %w", h.EntityID, err))
			continue
		}
		a.log.InfoContext(ctx, "work vanished from registry, queued again",
			slog.String("profile_id", p.ID.String()),
			slog.String("entity_id", h.EntityID.String()),
			slog.String("put_code", *h.PutCode),
		)
	}
	return errors.Join(errs...)
}

func (a *WorksReconcile) requeue(ctx context.Context, h domain.HistoryRecord) error {
	return a.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := a.history.Append(ctx, domain.HistoryRecord{
			OwnerID:    h.OwnerID,
			EntityID:   h.EntityID,
			RecordType: h.RecordType,
			Operation:  domain.OperationResync,
			Status:     404,
			Message:    vanishedMessage,
		}); err != nil {
			return err
		}
		// A row still pending would otherwise keep addressing the vanished work.
		if _, err := a.queue.ClearPutCode(ctx, h.OwnerID, h.EntityID, h.RecordType); err != nil {
			return err
		}

		e, err := a.entities.Get(ctx, h.EntityID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return a.detector.Consume(ctx, []domain.Change{{Kind: domain.ChangeModified, Entity: e}})
	})
}
