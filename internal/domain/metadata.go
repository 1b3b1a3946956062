package domain

import "strings"

// Metadata field names read and written by the synchronization engine.
const (
	FieldTitle          = "dc.title"
	FieldAuthor         = "dc.contributor.author"
	FieldDateIssued     = "dc.date.issued"
	FieldType           = "dc.type"
	FieldDOI            = "dc.identifier.doi"
	FieldURI            = "dc.identifier.uri"
	FieldJournal        = "dc.relation.ispartof"
	FieldAbstract       = "dc.description.abstract"
	FieldInvestigator   = "project.investigator"
	FieldCoinvestigator = "project.coinvestigator"
	FieldFunderName     = "project.funder.name"
	FieldFunderCity     = "project.funder.city"
	FieldFunderCountry  = "project.funder.country"
	FieldStartDate      = "project.startDate"
	FieldEndDate        = "project.endDate"
	FieldAwardNumber    = "project.identifier.award"

	FieldORCID          = "person.identifier.orcid"
	FieldGivenName      = "person.givenName"
	FieldFamilyName     = "person.familyName"
	FieldBiography      = "person.biography"
	FieldKeyword        = "dc.subject"
	FieldOtherName      = "person.name.variant"
	FieldResearcherURL  = "oairecerif.identifier.url"
	FieldScopusAuthorID = "person.identifier.scopus-author-id"
	FieldCountry        = "person.country"

	FieldSyncPublications    = "orcid.sync.publications"
	FieldSyncProjects        = "orcid.sync.projects"
	FieldSyncProfile         = "orcid.sync.profile"
	FieldSyncProfileSections = "orcid.sync.profile-sections"
	FieldWebhookRegistered   = "orcid.webhook"
)

// MetadataValue is a single value of a metadata field. Authority links the
// value to another entity (for example an author to their profile).
type MetadataValue struct {
	Value     string `json:"value"`
	Authority string `json:"authority,omitempty"`
}

// Metadata maps a field name to its ordered values.
type Metadata map[string][]MetadataValue

// First returns the first non-blank value of field, or "".
func (m Metadata) First(field string) string {
	for _, v := range m[field] {
		if s := strings.TrimSpace(v.Value); s != "" {
			return s
		}
	}
	return ""
}

// Values returns the non-blank values of field in order, without duplicates.
func (m Metadata) Values(field string) []string {
	seen := make(map[string]struct{}, len(m[field]))
	out := make([]string, 0, len(m[field]))
	for _, v := range m[field] {
		s := strings.TrimSpace(v.Value)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Set replaces all values of field. Passing no values removes the field.
func (m Metadata) Set(field string, values ...string) {
	if len(values) == 0 {
		delete(m, field)
		return
	}
	mv := make([]MetadataValue, len(values))
	for i, v := range values {
		mv[i] = MetadataValue{Value: v}
	}
	m[field] = mv
}

// Clone returns a deep copy of m.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = append([]MetadataValue(nil), v...)
	}
	return out
}
