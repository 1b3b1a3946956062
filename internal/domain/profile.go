package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Credential is the registry access token released by a profile owner.
type Credential struct {
	AccessToken string
	Scopes      []string
	ExpiresAt   *time.Time
}

// Expired reports whether the credential is past its expiry at now.
func (c Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// Profile is a Person entity that carries a registry identifier.
type Profile struct {
	Entity
	ORCID      string
	Credential *Credential
}

// NewProfile builds a Profile view over a Person entity.
func NewProfile(e Entity, cred *Credential) Profile {
	return Profile{
		Entity:     e,
		ORCID:      e.Metadata.First(FieldORCID),
		Credential: cred,
	}
}

// Linked reports whether the owner released an access credential.
func (p Profile) Linked() bool {
	return p.Credential != nil && p.Credential.AccessToken != ""
}

// Preferences parses the synchronization preferences stored on the profile.
func (p Profile) Preferences() Preferences {
	return PreferencesOf(p.Entity)
}

// PreferencesOf parses the synchronization preferences of a Person entity.
func PreferencesOf(e Entity) Preferences {
	prefs := Preferences{
		OwnerID:      e.ID,
		Publications: ParseSyncPreference(e.Metadata.First(FieldSyncPublications)),
		Projects:     ParseSyncPreference(e.Metadata.First(FieldSyncProjects)),
		Profile:      ParseSyncPreference(e.Metadata.First(FieldSyncProfile)),
	}
	for _, s := range e.Metadata.Values(FieldSyncProfileSections) {
		rt := RecordType(s)
		if rt.IsProfileField() {
			prefs.ProfileSections = append(prefs.ProfileSections, rt)
		}
	}
	return prefs
}

// ProfileField is one value of a profile field type. Its ID is stable for
// a given owner, type and value, so it can be tracked in the queue and
// ledger like any other entity.
type ProfileField struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	RecordType RecordType
	Value      string
}

// ProfileFieldID derives the identity of a profile field value.
func ProfileFieldID(owner uuid.UUID, t RecordType, value string) uuid.UUID {
	return uuid.NewSHA1(owner, []byte(string(t)+"::"+strings.TrimSpace(value)))
}

// ProfileFields returns the current values of profile field type t.
func ProfileFields(e Entity, t RecordType) []ProfileField {
	field := t.MetadataField()
	if field == "" {
		return nil
	}
	values := e.Metadata.Values(field)
	out := make([]ProfileField, len(values))
	for i, v := range values {
		out[i] = ProfileField{
			ID:         ProfileFieldID(e.ID, t, v),
			OwnerID:    e.ID,
			RecordType: t,
			Value:      v,
		}
	}
	return out
}

// FindProfileField looks up the current value of type t with the given id.
func FindProfileField(e Entity, t RecordType, id uuid.UUID) (ProfileField, bool) {
	for _, f := range ProfileFields(e, t) {
		if f.ID == id {
			return f, true
		}
	}
	return ProfileField{}, false
}
