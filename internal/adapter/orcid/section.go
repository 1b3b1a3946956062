package orcid

import "github.com/heartmarshall/orcid-sync/internal/domain"

// Section is the path segment of a member API activity or person section.
type Section string

const (
	SectionWork                Section = "work"
	SectionFunding             Section = "funding"
	SectionKeywords            Section = "keywords"
	SectionOtherNames          Section = "other-names"
	SectionResearcherURLs      Section = "researcher-urls"
	SectionExternalIdentifiers Section = "external-identifiers"
	SectionAddress             Section = "address"
)

// SectionFor maps a record type to the API section that stores it.
func SectionFor(rt domain.RecordType) (Section, bool) {
	switch rt {
	case domain.RecordTypePublication:
		return SectionWork, true
	case domain.RecordTypeProject:
		return SectionFunding, true
	case domain.RecordTypeKeyword:
		return SectionKeywords, true
	case domain.RecordTypeOtherName:
		return SectionOtherNames, true
	case domain.RecordTypeResearcherURL:
		return SectionResearcherURLs, true
	case domain.RecordTypeExternalIdentifier:
		return SectionExternalIdentifiers, true
	case domain.RecordTypeAddress:
		return SectionAddress, true
	}
	return "", false
}
