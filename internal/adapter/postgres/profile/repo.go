// Package profile reads researcher profiles (Person entities with their
// registry credentials) from PostgreSQL.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	postgres "github.com/heartmarshall/orcid-sync/internal/adapter/postgres"
	"github.com/heartmarshall/orcid-sync/internal/domain"
)

const defaultPageSize = 100

const orcidExpr = "(e.metadata -> 'person.identifier.orcid' -> 0 ->> 'value')"

type row struct {
	ID          uuid.UUID  `db:"id"`
	EntityType  string     `db:"entity_type"`
	Metadata    []byte     `db:"metadata"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	AccessToken *string    `db:"access_token"`
	Scopes      []string   `db:"scopes"`
	ExpiresAt   *time.Time `db:"expires_at"`
}

func (r row) toDomain() (domain.Profile, error) {
	md := domain.Metadata{}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &md); err != nil {
			return domain.Profile{}, fmt.Errorf("decode metadata of %s: %w", r.ID, err)
		}
	}
	e := domain.Entity{
		ID:        r.ID,
		Type:      domain.EntityType(r.EntityType),
		Metadata:  md,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}

	var cred *domain.Credential
	if r.AccessToken != nil {
		cred = &domain.Credential{AccessToken: *r.AccessToken, Scopes: r.Scopes, ExpiresAt: r.ExpiresAt}
	}
	return domain.NewProfile(e, cred), nil
}

// StreamFilter selects the profiles yielded by Stream.
type StreamFilter struct {
	// LinkedOnly restricts the stream to profiles with a stored credential.
	LinkedOnly bool
	PageSize   int
}

// Repo provides read access to profiles.
type Repo struct {
	db postgres.Querier
}

// New creates a new profile repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

func selectProfiles() sq.SelectBuilder {
	return postgres.Psql.
		Select(
			"e.id", "e.entity_type", "e.metadata", "e.created_at", "e.updated_at",
			"c.access_token", "c.scopes", "c.expires_at",
		).
		From("entities e").
		LeftJoin("registry_credentials c ON c.profile_id = e.id").
		Where(sq.Eq{"e.entity_type": string(domain.EntityTypePerson)})
}

// Get returns the profile with the given id.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (domain.Profile, error) {
	query, args, err := selectProfiles().Where(sq.Eq{"e.id": id}).ToSql()
	if err != nil {
		return domain.Profile{}, fmt.Errorf("profile.Get: build: %w", err)
	}

	var rw row
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &rw, query, args...); err != nil {
		return domain.Profile{}, fmt.Errorf("profile.Get: %w", postgres.MapError(err, "profile", id))
	}
	p, err := rw.toDomain()
	if err != nil {
		return domain.Profile{}, fmt.Errorf("profile.Get: %w", err)
	}
	return p, nil
}

// Stream yields every profile carrying a registry identifier, ordered by id.
// Pages are fetched on demand with keyset pagination, so only one page is
// held in memory and iteration can resume after the last id seen. The
// sequence stops after yielding the first error.
func (r *Repo) Stream(ctx context.Context, f StreamFilter) iter.Seq2[domain.Profile, error] {
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return func(yield func(domain.Profile, error) bool) {
		var after uuid.UUID
		for {
			page, err := r.page(ctx, f.LinkedOnly, after, pageSize)
			if err != nil {
				yield(domain.Profile{}, err)
				return
			}
			for _, p := range page {
				if !yield(p, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
			after = page[len(page)-1].ID
		}
	}
}

func (r *Repo) page(ctx context.Context, linkedOnly bool, after uuid.UUID, limit int) ([]domain.Profile, error) {
	b := selectProfiles().
		Where(sq.NotEq{orcidExpr: ""}).
		OrderBy("e.id").
		Limit(uint64(limit))
	if after != uuid.Nil {
		b = b.Where(sq.Gt{"e.id": after})
	}
	if linkedOnly {
		b = b.Where(sq.NotEq{"c.access_token": nil})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("profile.Stream: build: %w", err)
	}

	var rows []row
	if err := pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.db), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("profile.Stream: %w", err)
	}

	out := make([]domain.Profile, 0, len(rows))
	for _, rw := range rows {
		p, err := rw.toDomain()
		if err != nil {
			return nil, fmt.Errorf("profile.Stream: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// GetPreferencesByOwners loads the synchronization preferences of the given
// owners in one query. Owners that are not profiles are absent from the map.
func (r *Repo) GetPreferencesByOwners(ctx context.Context, owners []uuid.UUID) (map[uuid.UUID]domain.Preferences, error) {
	out := make(map[uuid.UUID]domain.Preferences, len(owners))
	if len(owners) == 0 {
		return out, nil
	}

	query, args, err := postgres.Psql.
		Select("id", "metadata").
		From("entities").
		Where(sq.Eq{"entity_type": string(domain.EntityTypePerson)}).
		Where("id = ANY(?)", owners).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("profile.GetPreferencesByOwners: build: %w", err)
	}

	var rows []struct {
		ID       uuid.UUID `db:"id"`
		Metadata []byte    `db:"metadata"`
	}
	if err := pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.db), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("profile.GetPreferencesByOwners: %w", err)
	}

	for _, rw := range rows {
		md := domain.Metadata{}
		if err := json.Unmarshal(rw.Metadata, &md); err != nil {
			return nil, fmt.Errorf("profile.GetPreferencesByOwners: decode metadata of %s: %w", rw.ID, err)
		}
		out[rw.ID] = domain.PreferencesOf(domain.Entity{ID: rw.ID, Type: domain.EntityTypePerson, Metadata: md})
	}
	return out, nil
}
