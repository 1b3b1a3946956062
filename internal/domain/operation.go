package domain

// Operation is the intent stored on a queue row and the action recorded in
// the ledger. Resync means "recompute from the current local state"; it is
// only ever stored on queue rows, never sent to the registry.
type Operation string

const (
	OperationInsert Operation = "INSERT"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
	OperationResync Operation = "RESYNC"
)

func (o Operation) String() string { return string(o) }

func (o Operation) IsValid() bool {
	switch o {
	case OperationInsert, OperationUpdate, OperationDelete, OperationResync:
		return true
	}
	return false
}

// Resolve computes the concrete registry operation for a queued intent.
//
// putCode is the external identifier remembered for the entity and exists
// reports whether the entity is still present locally. The boolean result is
// false when nothing has to be sent: a deletion of something the registry
// never received.
func (o Operation) Resolve(putCode *string, exists bool) (Operation, bool) {
	known := HasPutCode(putCode)

	if o == OperationDelete || !exists {
		return OperationDelete, known
	}

	if o == OperationInsert {
		return OperationInsert, true
	}

	// Update and Resync both depend on whether a remote record exists.
	if known {
		return OperationUpdate, true
	}
	return OperationInsert, true
}

// HasPutCode reports whether p holds a non-empty put code.
func HasPutCode(p *string) bool {
	return p != nil && *p != ""
}
