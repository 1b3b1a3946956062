package domain

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// SyncPreference is the per-owner, per-scope synchronization policy.
type SyncPreference string

const (
	SyncDisabled SyncPreference = "DISABLED"
	SyncManual   SyncPreference = "MANUAL"
	SyncBatch    SyncPreference = "BATCH"
	SyncAll      SyncPreference = "ALL"
)

func (p SyncPreference) String() string { return string(p) }

func (p SyncPreference) IsValid() bool {
	switch p {
	case SyncDisabled, SyncManual, SyncBatch, SyncAll:
		return true
	}
	return false
}

// ParseSyncPreference parses a stored preference. Unknown or empty values
// are treated as DISABLED.
func ParseSyncPreference(s string) SyncPreference {
	p := SyncPreference(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return SyncDisabled
	}
	return p
}

// PreferenceScope groups record types sharing one preference value.
type PreferenceScope string

const (
	ScopePublications PreferenceScope = "publications"
	ScopeProjects     PreferenceScope = "projects"
	ScopeProfile      PreferenceScope = "profile"
)

// Preferences is the synchronization configuration of one owner.
type Preferences struct {
	OwnerID      uuid.UUID
	Publications SyncPreference
	Projects     SyncPreference
	Profile      SyncPreference
	// ProfileSections restricts which profile field types are synchronized.
	// Empty means every section.
	ProfileSections []RecordType
}

// For returns the preference governing record type t.
func (p Preferences) For(t RecordType) SyncPreference {
	var pref SyncPreference
	switch t.Scope() {
	case ScopePublications:
		pref = p.Publications
	case ScopeProjects:
		pref = p.Projects
	default:
		pref = p.Profile
	}
	if pref == "" {
		return SyncDisabled
	}
	return pref
}

// Allows reports whether changes of type t should be enqueued at all.
func (p Preferences) Allows(t RecordType) bool {
	if p.For(t) == SyncDisabled {
		return false
	}
	if t.IsProfileField() && len(p.ProfileSections) > 0 {
		return slices.Contains(p.ProfileSections, t)
	}
	return true
}

// Drainable reports whether the push orchestrator may act on queued rows of
// type t. Scheduled runs take BATCH and ALL owners; forced runs also take
// MANUAL owners. DISABLED owners are never pushed.
func (p Preferences) Drainable(t RecordType, force bool) bool {
	switch p.For(t) {
	case SyncBatch, SyncAll:
		return true
	case SyncManual:
		return force
	}
	return false
}
