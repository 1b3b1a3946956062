package domain

// RecordType discriminates what kind of registry record a queue row or
// ledger row refers to.
type RecordType string

const (
	RecordTypePublication RecordType = "Publication"
	RecordTypeProject     RecordType = "Project"

	// Profile field record types: every value of these fields is pushed as
	// its own registry record.
	RecordTypeKeyword            RecordType = "Keyword"
	RecordTypeOtherName          RecordType = "OtherName"
	RecordTypeResearcherURL      RecordType = "ResearcherURL"
	RecordTypeExternalIdentifier RecordType = "ExternalIdentifier"
	RecordTypeAddress            RecordType = "Address"
)

// profileFieldTypes lists profile field types in push order.
var profileFieldTypes = []RecordType{
	RecordTypeOtherName,
	RecordTypeKeyword,
	RecordTypeAddress,
	RecordTypeResearcherURL,
	RecordTypeExternalIdentifier,
}

// ProfileFieldTypes returns every profile-level record type.
func ProfileFieldTypes() []RecordType {
	out := make([]RecordType, len(profileFieldTypes))
	copy(out, profileFieldTypes)
	return out
}

func (t RecordType) String() string { return string(t) }

func (t RecordType) IsValid() bool {
	switch t {
	case RecordTypePublication, RecordTypeProject:
		return true
	}
	return t.IsProfileField()
}

// IsProfileField reports whether t is stored on the profile itself.
func (t RecordType) IsProfileField() bool {
	switch t {
	case RecordTypeKeyword, RecordTypeOtherName, RecordTypeResearcherURL,
		RecordTypeExternalIdentifier, RecordTypeAddress:
		return true
	}
	return false
}

// Scope returns the preference scope that governs t.
func (t RecordType) Scope() PreferenceScope {
	switch t {
	case RecordTypePublication:
		return ScopePublications
	case RecordTypeProject:
		return ScopeProjects
	default:
		return ScopeProfile
	}
}

// MetadataField returns the profile metadata field holding values of a
// profile field type, or "" for entity-level types.
func (t RecordType) MetadataField() string {
	switch t {
	case RecordTypeKeyword:
		return FieldKeyword
	case RecordTypeOtherName:
		return FieldOtherName
	case RecordTypeResearcherURL:
		return FieldResearcherURL
	case RecordTypeExternalIdentifier:
		return FieldScopusAuthorID
	case RecordTypeAddress:
		return FieldCountry
	}
	return ""
}
