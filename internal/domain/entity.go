package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntityType is the kind of a content entity.
type EntityType string

const (
	EntityTypePublication EntityType = "Publication"
	EntityTypeProject     EntityType = "Project"
	EntityTypePerson      EntityType = "Person"
)

func (t EntityType) String() string { return string(t) }

func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypePublication, EntityTypeProject, EntityTypePerson:
		return true
	}
	return false
}

// Entity is a content record owned by the surrounding content system.
type Entity struct {
	ID        uuid.UUID
	Type      EntityType
	Metadata  Metadata
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordType returns the registry record type of an entity-level record.
// Persons are synchronized through their profile fields instead and
// report false.
func (e Entity) RecordType() (RecordType, bool) {
	switch e.Type {
	case EntityTypePublication:
		return RecordTypePublication, true
	case EntityTypeProject:
		return RecordTypeProject, true
	}
	return "", false
}

// Owners returns the profiles on whose behalf the entity is synchronized,
// in metadata order and without duplicates. Authorities that are not
// profile ids are ignored.
func (e Entity) Owners() []uuid.UUID {
	var fields []string
	switch e.Type {
	case EntityTypePublication:
		fields = []string{FieldAuthor}
	case EntityTypeProject:
		fields = []string{FieldInvestigator, FieldCoinvestigator}
	case EntityTypePerson:
		return []uuid.UUID{e.ID}
	}

	seen := make(map[uuid.UUID]struct{})
	var owners []uuid.UUID
	for _, f := range fields {
		for _, v := range e.Metadata[f] {
			id, err := uuid.Parse(v.Authority)
			if err != nil || id == uuid.Nil {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			owners = append(owners, id)
		}
	}
	return owners
}

// ChangeKind says what happened to an entity in a committed transaction.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// Change is one entity touched by a local commit. For deletions Entity holds
// the last known state.
type Change struct {
	Kind   ChangeKind
	Entity Entity
}
