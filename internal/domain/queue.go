package domain

import (
	"time"

	"github.com/google/uuid"
)

// QueueRecord is a pending synchronization intent. At most one exists per
// (OwnerID, EntityID, RecordType).
type QueueRecord struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	EntityID   uuid.UUID
	RecordType RecordType
	Operation  Operation
	PutCode    *string
	// Attempts is nil until the row has been processed once.
	Attempts  *int
	LastError *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AttemptCount returns Attempts with nil read as zero.
func (r QueueRecord) AttemptCount() int {
	if r.Attempts == nil {
		return 0
	}
	return *r.Attempts
}

// QueueFilter selects push candidates.
type QueueFilter struct {
	// MaxAttempts excludes rows with attempts >= MaxAttempts unless Force is set.
	MaxAttempts int
	Force       bool
	// After, when set, starts the listing behind that row in (created_at, id) order.
	After *QueueCursor
	Limit int
}

// QueueCursor marks a position in the candidate order.
type QueueCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Cursor returns the position of r in the candidate order.
func (r QueueRecord) Cursor() *QueueCursor {
	return &QueueCursor{CreatedAt: r.CreatedAt, ID: r.ID}
}
