package push

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader/v7"

	"github.com/heartmarshall/orcid-sync/internal/domain"
)

const (
	maxBatch = 100
	wait     = 2 * time.Millisecond
)

// preferenceLoader caches owner preferences for a single run. Priming it
// with every candidate owner turns the lookups into batched queries; it is
// dropped when the run ends so the next run sees fresh preferences.
type preferenceLoader struct {
	loader *dataloader.Loader[uuid.UUID, domain.Preferences]
}

func newPreferenceLoader(repo preferenceRepo) *preferenceLoader {
	return &preferenceLoader{
		loader: dataloader.NewBatchedLoader(
			newPreferencesBatchFn(repo),
			dataloader.WithWait[uuid.UUID, domain.Preferences](wait),
			dataloader.WithBatchCapacity[uuid.UUID, domain.Preferences](maxBatch),
		),
	}
}

// Prime loads the preferences of owners in batches.
func (l *preferenceLoader) Prime(ctx context.Context, owners []uuid.UUID) {
	if len(owners) == 0 {
		return
	}
	// Errors surface again from Get for the owners concerned.
	_, _ = l.loader.LoadMany(ctx, owners)()
}

// Get returns the preferences of owner. Owners without a profile get the
// zero Preferences, which disables everything.
func (l *preferenceLoader) Get(ctx context.Context, owner uuid.UUID) (domain.Preferences, error) {
	return l.loader.Load(ctx, owner)()
}

func newPreferencesBatchFn(repo preferenceRepo) dataloader.BatchFunc[uuid.UUID, domain.Preferences] {
	return func(ctx context.Context, keys []uuid.UUID) []*dataloader.Result[domain.Preferences] {
		prefs, err := repo.GetPreferencesByOwners(ctx, keys)
		if err != nil {
			results := make([]*dataloader.Result[domain.Preferences], len(keys))
			for i := range results {
				results[i] = &dataloader.Result[domain.Preferences]{Error: err}
			}
			return results
		}

		results := make([]*dataloader.Result[domain.Preferences], len(keys))
		for i, key := range keys {
			p, ok := prefs[key]
			if !ok {
				p = domain.Preferences{OwnerID: key}
			}
			results[i] = &dataloader.Result[domain.Preferences]{Data: p}
		}
		return results
	}
}
