package domain

import "github.com/google/uuid"

// SyncRequest asks the registry transport to bring one queued intent in line
// with the current local state.
type SyncRequest struct {
	OwnerID    uuid.UUID
	EntityID   uuid.UUID
	RecordType RecordType
	Operation  Operation
	PutCode    *string
}

// SyncResult is the registry's answer to a SyncRequest.
type SyncResult struct {
	// Operation is the concrete operation that was resolved and sent.
	Operation Operation
	// Transmitted is false when no registry call was needed.
	Transmitted   bool
	Status        int
	PutCode       *string
	Message       string
	PayloadDigest string
}
