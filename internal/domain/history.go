package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryRecord is one entry of the append-only result ledger.
type HistoryRecord struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	EntityID   uuid.UUID
	RecordType RecordType
	Operation  Operation
	// PutCode is the external identifier the entity holds after this attempt.
	PutCode       *string
	Status        int
	Message       string
	PayloadDigest string
	CreatedAt     time.Time
}

// Succeeded reports whether the registry accepted the attempt.
func (h HistoryRecord) Succeeded() bool {
	return ClassifyStatus(h.Status) == OutcomeSuccess
}
