// Package history implements the append-only synchronization ledger.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	postgres "github.com/heartmarshall/orcid-sync/internal/adapter/postgres"
	"github.com/heartmarshall/orcid-sync/internal/domain"
)

const table = "sync_history"

var columns = []string{
	"id", "owner_id", "entity_id", "record_type", "operation",
	"put_code", "status", "message", "payload_digest", "created_at",
}

type row struct {
	ID            uuid.UUID `db:"id"`
	OwnerID       uuid.UUID `db:"owner_id"`
	EntityID      uuid.UUID `db:"entity_id"`
	RecordType    string    `db:"record_type"`
	Operation     string    `db:"operation"`
	PutCode       *string   `db:"put_code"`
	Status        int       `db:"status"`
	Message       string    `db:"message"`
	PayloadDigest string    `db:"payload_digest"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r row) toDomain() domain.HistoryRecord {
	return domain.HistoryRecord{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		EntityID:      r.EntityID,
		RecordType:    domain.RecordType(r.RecordType),
		Operation:     domain.Operation(r.Operation),
		PutCode:       r.PutCode,
		Status:        r.Status,
		Message:       r.Message,
		PayloadDigest: r.PayloadDigest,
		CreatedAt:     r.CreatedAt,
	}
}

// Repo provides ledger persistence backed by PostgreSQL. Rows are only ever
// inserted.
type Repo struct {
	db postgres.Querier
}

// New creates a new history repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// Append adds h to the ledger and returns it with id and timestamp set.
func (r *Repo) Append(ctx context.Context, h domain.HistoryRecord) (domain.HistoryRecord, error) {
	query, args, err := postgres.Psql.
		Insert(table).
		Columns("owner_id", "entity_id", "record_type", "operation", "put_code", "status", "message", "payload_digest").
		Values(h.OwnerID, h.EntityID, string(h.RecordType), string(h.Operation), h.PutCode, h.Status, h.Message, h.PayloadDigest).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("history.Append: build: %w", err)
	}

	err = postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("history.Append: %w", postgres.MapError(err, "history_record", h.EntityID))
	}
	return h, nil
}

// Latest returns the most recent ledger row for (owner, entity).
func (r *Repo) Latest(ctx context.Context, owner, entity uuid.UUID) (domain.HistoryRecord, error) {
	query, args, err := postgres.Psql.
		Select(columns...).
		From(table).
		Where(sq.Eq{"owner_id": owner, "entity_id": entity}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("history.Latest: build: %w", err)
	}

	var rw row
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &rw, query, args...); err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("history.Latest: %w", postgres.MapError(err, "history_record", entity))
	}
	return rw.toDomain(), nil
}

// LatestPutCode returns the put code recorded by the most recent ledger row
// for (owner, entity), or nil when the entity was never synchronized or its
// external record is gone.
func (r *Repo) LatestPutCode(ctx context.Context, owner, entity uuid.UUID) (*string, error) {
	h, err := r.Latest(ctx, owner, entity)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !domain.HasPutCode(h.PutCode) {
		return nil, nil
	}
	return h.PutCode, nil
}

// LatestByOwner returns, for every entity of type rt synchronized on
// behalf of owner, its most recent ledger row.
func (r *Repo) LatestByOwner(ctx context.Context, owner uuid.UUID, rt domain.RecordType) ([]domain.HistoryRecord, error) {
	query, args, err := postgres.Psql.
		Select(columns...).
		Options("DISTINCT ON (entity_id)").
		From(table).
		Where(sq.Eq{"owner_id": owner, "record_type": string(rt)}).
		OrderBy("entity_id", "created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("history.LatestByOwner: build: %w", err)
	}

	var rows []row
	if err := pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.db), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("history.LatestByOwner: %w", err)
	}

	out := make([]domain.HistoryRecord, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out, nil
}

// ListByEntity returns the ledger of (owner, entity), newest first.
func (r *Repo) ListByEntity(ctx context.Context, owner, entity uuid.UUID, limit int) ([]domain.HistoryRecord, error) {
	b := postgres.Psql.
		Select(columns...).
		From(table).
		Where(sq.Eq{"owner_id": owner, "entity_id": entity}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("history.ListByEntity: build: %w", err)
	}

	var rows []row
	if err := pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.db), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("history.ListByEntity: %w", err)
	}

	out := make([]domain.HistoryRecord, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out, nil
}
