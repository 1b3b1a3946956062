package detector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/orcid-sync/internal/domain"
)

// Consume enqueues the work implied by one commit. Running it twice for the
// same commit leaves the queue as after the first run.
func (d *Detector) Consume(ctx context.Context, changes []domain.Change) error {
	if len(changes) == 0 {
		return nil
	}

	prefs, err := d.prefs.GetPreferencesByOwners(ctx, ownersOf(changes))
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}

	for _, c := range changes {
		var err error
		switch c.Entity.Type {
		case domain.EntityTypePerson:
			if c.Kind == domain.ChangeDeleted {
				continue
			}
			err = d.consumeProfile(ctx, c.Entity, prefs[c.Entity.ID])
		default:
			err = d.consumeEntity(ctx, c, prefs)
		}
		if err != nil {
			return fmt.Errorf("%s %s %s: %w", c.Kind, c.Entity.Type, c.Entity.ID, err)
		}
	}
	return nil
}

func (d *Detector) consumeEntity(ctx context.Context, c domain.Change, prefs map[uuid.UUID]domain.Preferences) error {
	rt, ok := c.Entity.RecordType()
	if !ok {
		return nil
	}

	for _, owner := range c.Entity.Owners() {
		if !prefs[owner].Allows(rt) {
			continue
		}

		putCode, err := d.history.LatestPutCode(ctx, owner, c.Entity.ID)
		if err != nil {
			return err
		}

		if c.Kind == domain.ChangeDeleted {
			if err := d.markDeleted(ctx, owner, c.Entity.ID, rt, putCode); err != nil {
				return err
			}
			continue
		}

		if err := d.enqueue(ctx, owner, c.Entity.ID, rt, putCode); err != nil {
			return err
		}
	}
	return nil
}

// consumeProfile diffs the profile's field values against what the ledger
// says was last pushed for each allowed field type.
func (d *Detector) consumeProfile(ctx context.Context, person domain.Entity, prefs domain.Preferences) error {
	owner := person.ID

	for _, rt := range domain.ProfileFieldTypes() {
		if !prefs.Allows(rt) {
			continue
		}

		latest, err := d.history.LatestByOwner(ctx, owner, rt)
		if err != nil {
			return err
		}
		synced := make(map[uuid.UUID]*string, len(latest))
		for _, h := range latest {
			if domain.HasPutCode(h.PutCode) {
				synced[h.EntityID] = h.PutCode
			}
		}

		current := make(map[uuid.UUID]struct{})
		for _, f := range domain.ProfileFields(person, rt) {
			current[f.ID] = struct{}{}
			if _, ok := synced[f.ID]; ok {
				continue
			}
			if err := d.enqueue(ctx, owner, f.ID, rt, nil); err != nil {
				return err
			}
		}

		for id, putCode := range synced {
			if _, ok := current[id]; ok {
				continue
			}
			if err := d.markDeleted(ctx, owner, id, rt, putCode); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Detector) enqueue(ctx context.Context, owner, entity uuid.UUID, rt domain.RecordType, putCode *string) error {
	created, err := d.queue.Enqueue(ctx, domain.QueueRecord{
		OwnerID:    owner,
		EntityID:   entity,
		RecordType: rt,
		Operation:  domain.OperationResync,
		PutCode:    putCode,
	})
	if err != nil {
		return err
	}
	if created {
		d.log.DebugContext(ctx, "queued resync",
			slog.String("owner_id", owner.String()),
			slog.String("entity_id", entity.String()),
			slog.String("record_type", rt.String()),
		)
	}
	return nil
}

// markDeleted turns the pending row into a DELETE. Without a remembered put
// code a row is only rewritten, never created: the registry has nothing to
// delete.
func (d *Detector) markDeleted(ctx context.Context, owner, entity uuid.UUID, rt domain.RecordType, putCode *string) error {
	if !domain.HasPutCode(putCode) {
		_, err := d.queue.MarkPendingDelete(ctx, owner, entity, rt)
		return err
	}
	if err := d.queue.MarkDelete(ctx, owner, entity, rt, putCode); err != nil {
		return err
	}
	d.log.DebugContext(ctx, "queued delete",
		slog.String("owner_id", owner.String()),
		slog.String("entity_id", entity.String()),
		slog.String("record_type", rt.String()),
		slog.String("put_code", *putCode),
	)
	return nil
}

func ownersOf(changes []domain.Change) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var owners []uuid.UUID
	for _, c := range changes {
		for _, o := range c.Entity.Owners() {
			if _, ok := seen[o]; ok {
				continue
			}
			seen[o] = struct{}{}
			owners = append(owners, o)
		}
	}
	return owners
}
