package content

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/orcid-sync/internal/domain"
)

// Create stores a new entity.
func (s *Service) Create(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	var created domain.Entity
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		created, err = s.entities.Create(txCtx, e)
		if err != nil {
			return fmt.Errorf("create entity: %w", err)
		}
		return s.detector.Consume(txCtx, []domain.Change{{Kind: domain.ChangeCreated, Entity: created}})
	})
	if err != nil {
		return domain.Entity{}, err
	}

	s.log.InfoContext(ctx, "entity created",
		slog.String("entity_id", created.ID.String()),
		slog.String("type", created.Type.String()),
	)
	return created, nil
}

// Update replaces the metadata of an existing entity.
func (s *Service) Update(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	var updated domain.Entity
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		updated, err = s.entities.Update(txCtx, e)
		if err != nil {
			return fmt.Errorf("update entity: %w", err)
		}
		return s.detector.Consume(txCtx, []domain.Change{{Kind: domain.ChangeModified, Entity: updated}})
	})
	if err != nil {
		return domain.Entity{}, err
	}

	s.log.InfoContext(ctx, "entity updated", slog.String("entity_id", updated.ID.String()))
	return updated, nil
}

// Delete removes an entity. The detector sees its last state.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		last, err := s.entities.Delete(txCtx, id)
		if err != nil {
			return fmt.Errorf("delete entity: %w", err)
		}
		return s.detector.Consume(txCtx, []domain.Change{{Kind: domain.ChangeDeleted, Entity: last}})
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "entity deleted", slog.String("entity_id", id.String()))
	return nil
}

// Touch queues the current state of the given entities for synchronization
// without changing them.
func (s *Service) Touch(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		changes := make([]domain.Change, 0, len(ids))
		for _, id := range ids {
			e, err := s.entities.Get(txCtx, id)
			if err != nil {
				return fmt.Errorf("load entity %s: %w", id, err)
			}
			changes = append(changes, domain.Change{Kind: domain.ChangeModified, Entity: e})
		}
		return s.detector.Consume(txCtx, changes)
	})
}
