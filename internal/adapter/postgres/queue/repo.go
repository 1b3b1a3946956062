// Package queue implements the synchronization work queue using PostgreSQL.
package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	postgres "github.com/heartmarshall/orcid-sync/internal/adapter/postgres"
	"github.com/heartmarshall/orcid-sync/internal/domain"
)

const table = "sync_queue"

var columns = []string{
	"id", "owner_id", "entity_id", "record_type", "operation",
	"put_code", "attempts", "last_error", "created_at", "updated_at",
}

// row mirrors a sync_queue row for scanning.
type row struct {
	ID         uuid.UUID `db:"id"`
	OwnerID    uuid.UUID `db:"owner_id"`
	EntityID   uuid.UUID `db:"entity_id"`
	RecordType string    `db:"record_type"`
	Operation  string    `db:"operation"`
	PutCode    *string   `db:"put_code"`
	Attempts   *int      `db:"attempts"`
	LastError  *string   `db:"last_error"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r row) toDomain() domain.QueueRecord {
	return domain.QueueRecord{
		ID:         r.ID,
		OwnerID:    r.OwnerID,
		EntityID:   r.EntityID,
		RecordType: domain.RecordType(r.RecordType),
		Operation:  domain.Operation(r.Operation),
		PutCode:    r.PutCode,
		Attempts:   r.Attempts,
		LastError:  r.LastError,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// Repo provides work queue persistence backed by PostgreSQL. Every method
// joins the transaction carried by ctx, if any.
type Repo struct {
	db postgres.Querier
}

// New creates a new queue repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// Enqueue inserts rec unless a row for the same owner, entity and record
// type is already pending. It reports whether a row was created.
func (r *Repo) Enqueue(ctx context.Context, rec domain.QueueRecord) (bool, error) {
	if !rec.Operation.IsValid() {
		return false, domain.NewValidationError("operation", "unknown operation "+rec.Operation.String())
	}

	query, args, err := postgres.Psql.
		Insert(table).
		Columns("owner_id", "entity_id", "record_type", "operation", "put_code").
		Values(rec.OwnerID, rec.EntityID, string(rec.RecordType), string(rec.Operation), rec.PutCode).
		Suffix("ON CONFLICT (owner_id, entity_id, record_type) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("queue.Enqueue: build: %w", err)
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("queue.Enqueue: %w", postgres.MapError(err, "queue_record", rec.EntityID))
	}
	return tag.RowsAffected() == 1, nil
}

// MarkDelete turns the pending row into a DELETE, creating it when absent.
// A non-nil putCode replaces the remembered one.
func (r *Repo) MarkDelete(ctx context.Context, owner, entity uuid.UUID, rt domain.RecordType, putCode *string) error {
	query, args, err := postgres.Psql.
		Insert(table).
		Columns("owner_id", "entity_id", "record_type", "operation", "put_code").
		Values(owner, entity, string(rt), string(domain.OperationDelete), putCode).
		Suffix(`ON CONFLICT (owner_id, entity_id, record_type) DO UPDATE
			SET operation = EXCLUDED.operation,
			    put_code = COALESCE(EXCLUDED.put_code, ` + table + `.put_code),
			    updated_at = now()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("queue.MarkDelete: build: %w", err)
	}

	if _, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("queue.MarkDelete: %w", postgres.MapError(err, "queue_record", entity))
	}
	return nil
}

// MarkPendingDelete turns an existing pending row into a DELETE. It reports
// whether such a row existed; nothing is created otherwise.
func (r *Repo) MarkPendingDelete(ctx context.Context, owner, entity uuid.UUID, rt domain.RecordType) (bool, error) {
	query, args, err := postgres.Psql.
		Update(table).
		Set("operation", string(domain.OperationDelete)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"owner_id": owner, "entity_id": entity, "record_type": string(rt)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("queue.MarkPendingDelete: build: %w", err)
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("queue.MarkPendingDelete: %w", postgres.MapError(err, "queue_record", entity))
	}
	return tag.RowsAffected() > 0, nil
}

// ListCandidates returns rows eligible for a push run, oldest first. Unless
// f.Force is set, rows that already used f.MaxAttempts attempts are left out.
// f.After and f.Limit page through the result.
func (r *Repo) ListCandidates(ctx context.Context, f domain.QueueFilter) ([]domain.QueueRecord, error) {
	b := postgres.Psql.
		Select(columns...).
		From(table).
		OrderBy("created_at", "id")
	if !f.Force {
		b = b.Where(sq.Lt{"COALESCE(attempts, 0)": f.MaxAttempts})
	}
	if f.After != nil {
		b = b.Where(sq.Expr("(created_at, id) > (?, ?)", f.After.CreatedAt, f.After.ID))
	}
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}
	return r.selectRecords(ctx, "queue.ListCandidates", b)
}

// List returns rows with at least minAttempts attempts, most attempted first.
func (r *Repo) List(ctx context.Context, minAttempts, limit int) ([]domain.QueueRecord, error) {
	b := postgres.Psql.
		Select(columns...).
		From(table).
		OrderBy("COALESCE(attempts, 0) DESC", "created_at")
	if minAttempts > 0 {
		b = b.Where(sq.GtOrEq{"COALESCE(attempts, 0)": minAttempts})
	}
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return r.selectRecords(ctx, "queue.List", b)
}

func (r *Repo) selectRecords(ctx context.Context, op string, b sq.SelectBuilder) ([]domain.QueueRecord, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build: %w", op, err)
	}

	var rows []row
	if err := pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.db), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]domain.QueueRecord, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out, nil
}

// IncrementAttempts counts one processing attempt and returns the row as it
// is after the increment. A row deleted concurrently yields ErrNotFound.
func (r *Repo) IncrementAttempts(ctx context.Context, id uuid.UUID) (domain.QueueRecord, error) {
	query, args, err := postgres.Psql.
		Update(table).
		Set("attempts", sq.Expr("COALESCE(attempts, 0) + 1")).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return domain.QueueRecord{}, fmt.Errorf("queue.IncrementAttempts: build: %w", err)
	}

	var rw row
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &rw, query, args...); err != nil {
		return domain.QueueRecord{}, fmt.Errorf("queue.IncrementAttempts: %w", postgres.MapError(err, "queue_record", id))
	}
	return rw.toDomain(), nil
}

// DeleteIfUnchanged removes the row only while its operation is still op.
// It reports whether the row was removed.
func (r *Repo) DeleteIfUnchanged(ctx context.Context, id uuid.UUID, op domain.Operation) (bool, error) {
	query, args, err := postgres.Psql.
		Delete(table).
		Where(sq.Eq{"id": id, "operation": string(op)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("queue.DeleteIfUnchanged: build: %w", err)
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("queue.DeleteIfUnchanged: %w", postgres.MapError(err, "queue_record", id))
	}
	return tag.RowsAffected() == 1, nil
}

// SetPutCode stores the put code the entity holds after the last attempt
// and clears the last error.
func (r *Repo) SetPutCode(ctx context.Context, id uuid.UUID, putCode *string) error {
	query, args, err := postgres.Psql.
		Update(table).
		Set("put_code", putCode).
		Set("last_error", nil).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("queue.SetPutCode: build: %w", err)
	}

	if _, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("queue.SetPutCode: %w", postgres.MapError(err, "queue_record", id))
	}
	return nil
}

// ClearPutCode makes the pending row forget its put code, so it resolves
// against no remote record. It reports whether such a row existed.
func (r *Repo) ClearPutCode(ctx context.Context, owner, entity uuid.UUID, rt domain.RecordType) (bool, error) {
	query, args, err := postgres.Psql.
		Update(table).
		Set("put_code", nil).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"owner_id": owner, "entity_id": entity, "record_type": string(rt)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("queue.ClearPutCode: build: %w", err)
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("queue.ClearPutCode: %w", postgres.MapError(err, "queue_record", entity))
	}
	return tag.RowsAffected() > 0, nil
}

// RecordFailure stores msg as the row's last error. A row that vanished in
// the meantime is not an error.
func (r *Repo) RecordFailure(ctx context.Context, id uuid.UUID, msg string) error {
	query, args, err := postgres.Psql.
		Update(table).
		Set("last_error", msg).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("queue.RecordFailure: build: %w", err)
	}

	if _, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("queue.RecordFailure: %w", postgres.MapError(err, "queue_record", id))
	}
	return nil
}
