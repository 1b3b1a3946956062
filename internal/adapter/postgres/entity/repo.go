// Package entity implements content entity persistence using PostgreSQL.
package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	postgres "github.com/heartmarshall/orcid-sync/internal/adapter/postgres"
	"github.com/heartmarshall/orcid-sync/internal/domain"
)

const table = "entities"

var columns = []string{"id", "entity_type", "metadata", "created_at", "updated_at"}

type row struct {
	ID         uuid.UUID `db:"id"`
	EntityType string    `db:"entity_type"`
	Metadata   []byte    `db:"metadata"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r row) toDomain() (domain.Entity, error) {
	md := domain.Metadata{}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &md); err != nil {
			return domain.Entity{}, fmt.Errorf("decode metadata of %s: %w", r.ID, err)
		}
	}
	return domain.Entity{
		ID:        r.ID,
		Type:      domain.EntityType(r.EntityType),
		Metadata:  md,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

func encodeMetadata(md domain.Metadata) ([]byte, error) {
	if md == nil {
		md = domain.Metadata{}
	}
	return json.Marshal(md)
}

// Repo stores entities. It does not notify the change detector; callers that
// need outbound synchronization go through the content service.
type Repo struct {
	db postgres.Querier
}

// New creates a new entity repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// Get returns an entity by id.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (domain.Entity, error) {
	query, args, err := postgres.Psql.
		Select(columns...).
		From(table).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Entity{}, fmt.Errorf("entity.Get: build: %w", err)
	}
	return r.getOne(ctx, "entity.Get", id, query, args)
}

// Create inserts e. A zero id is replaced by a new one.
func (r *Repo) Create(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	if !e.Type.IsValid() {
		return domain.Entity{}, domain.NewValidationError("entity_type", "unknown entity type "+e.Type.String())
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	raw, err := encodeMetadata(e.Metadata)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("entity.Create: %w", err)
	}

	query, args, err := postgres.Psql.
		Insert(table).
		Columns("id", "entity_type", "metadata").
		Values(e.ID, string(e.Type), raw).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return domain.Entity{}, fmt.Errorf("entity.Create: build: %w", err)
	}
	return r.getOne(ctx, "entity.Create", e.ID, query, args)
}

// Update replaces the metadata of e.
func (r *Repo) Update(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	raw, err := encodeMetadata(e.Metadata)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("entity.Update: %w", err)
	}

	query, args, err := postgres.Psql.
		Update(table).
		Set("metadata", raw).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": e.ID}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return domain.Entity{}, fmt.Errorf("entity.Update: build: %w", err)
	}
	return r.getOne(ctx, "entity.Update", e.ID, query, args)
}

// Delete removes an entity and returns its last state.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) (domain.Entity, error) {
	query, args, err := postgres.Psql.
		Delete(table).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return domain.Entity{}, fmt.Errorf("entity.Delete: build: %w", err)
	}
	return r.getOne(ctx, "entity.Delete", id, query, args)
}

func (r *Repo) getOne(ctx context.Context, op string, id uuid.UUID, query string, args []any) (domain.Entity, error) {
	var rw row
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &rw, query, args...); err != nil {
		return domain.Entity{}, fmt.Errorf("%s: %w", op, postgres.MapError(err, "entity", id))
	}
	e, err := rw.toDomain()
	if err != nil {
		return domain.Entity{}, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}
