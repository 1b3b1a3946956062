package orcid

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/heartmarshall/orcid-sync/internal/domain"
)

// Value is the {"value": ...} wrapper used throughout the v3.0 schema.
type Value struct {
	Value string `json:"value"`
}

func valueOf(s string) *Value {
	if s == "" {
		return nil
	}
	return &Value{Value: s}
}

type Title struct {
	Title Value `json:"title"`
}

type FuzzyDate struct {
	Year  *Value `json:"year,omitempty"`
	Month *Value `json:"month,omitempty"`
	Day   *Value `json:"day,omitempty"`
}

type ExternalID struct {
	Type         string `json:"external-id-type"`
	Value        string `json:"external-id-value"`
	URL          *Value `json:"external-id-url,omitempty"`
	Relationship string `json:"external-id-relationship"`
}

type ExternalIDs struct {
	ExternalID []ExternalID `json:"external-id"`
}

type ContributorAttributes struct {
	Sequence string `json:"contributor-sequence,omitempty"`
	Role     string `json:"contributor-role"`
}

type Contributor struct {
	CreditName Value                 `json:"credit-name"`
	Attributes ContributorAttributes `json:"contributor-attributes"`
}

type Contributors struct {
	Contributor []Contributor `json:"contributor"`
}

// Work is a v3.0 work (publication).
type Work struct {
	PutCode          *json.Number  `json:"put-code,omitempty"`
	Title            Title         `json:"title"`
	JournalTitle     *Value        `json:"journal-title,omitempty"`
	ShortDescription string        `json:"short-description,omitempty"`
	Type             string        `json:"type"`
	PublicationDate  *FuzzyDate    `json:"publication-date,omitempty"`
	ExternalIDs      *ExternalIDs  `json:"external-ids,omitempty"`
	URL              *Value        `json:"url,omitempty"`
	Contributors     *Contributors `json:"contributors,omitempty"`
}

type OrganizationAddress struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

type Organization struct {
	Name    string              `json:"name"`
	Address OrganizationAddress `json:"address"`
}

// Funding is a v3.0 funding (project).
type Funding struct {
	PutCode          *json.Number `json:"put-code,omitempty"`
	Type             string       `json:"type"`
	Title            Title        `json:"title"`
	ShortDescription string       `json:"short-description,omitempty"`
	ExternalIDs      *ExternalIDs `json:"external-ids,omitempty"`
	StartDate        *FuzzyDate   `json:"start-date,omitempty"`
	EndDate          *FuzzyDate   `json:"end-date,omitempty"`
	Organization     Organization `json:"organization"`
}

// Keyword and OtherName share the same shape.
type Keyword struct {
	PutCode *json.Number `json:"put-code,omitempty"`
	Content string       `json:"content"`
}

type OtherName struct {
	PutCode *json.Number `json:"put-code,omitempty"`
	Content string       `json:"content"`
}

type ResearcherURL struct {
	PutCode *json.Number `json:"put-code,omitempty"`
	URLName string       `json:"url-name"`
	URL     Value        `json:"url"`
}

type PersonExternalIdentifier struct {
	PutCode *json.Number `json:"put-code,omitempty"`
	ExternalID
}

type Address struct {
	PutCode *json.Number `json:"put-code,omitempty"`
	Country Value        `json:"country"`
}

var (
	datePattern    = regexp.MustCompile(`^(\d{4})(?:-(\d{2}))?(?:-(\d{2}))?`)
	countryPattern = regexp.MustCompile(`^[A-Z]{2}$`)
)

var workTypes = map[string]string{
	"article":           "journal-article",
	"journal article":   "journal-article",
	"book":              "book",
	"book chapter":      "book-chapter",
	"conference paper":  "conference-paper",
	"conference object": "conference-paper",
	"dataset":           "data-set",
	"doctoral thesis":   "dissertation-thesis",
	"thesis":            "dissertation-thesis",
	"preprint":          "preprint",
	"report":            "report",
	"working paper":     "working-paper",
}

const scopusAuthorURL = "https://www.scopus.com/authid/detail.uri?authorId="

// fieldErrors accumulates payload validation problems.
type fieldErrors []domain.FieldError

func (f *fieldErrors) add(field, msg string) {
	*f = append(*f, domain.FieldError{Field: field, Message: msg})
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return domain.NewValidationErrors(f)
}

func putCodeOf(putCode *string, errs *fieldErrors) *json.Number {
	if !domain.HasPutCode(putCode) {
		return nil
	}
	if _, err := strconv.ParseInt(*putCode, 10, 64); err != nil {
		errs.add("put-code", "must be numeric, got "+strconv.Quote(*putCode))
		return nil
	}
	n := json.Number(*putCode)
	return &n
}

func parseDate(field, raw string, errs *fieldErrors) *FuzzyDate {
	if raw == "" {
		return nil
	}
	m := datePattern.FindStringSubmatch(raw)
	if m == nil {
		errs.add(field, "unparseable date "+strconv.Quote(raw))
		return nil
	}
	d := &FuzzyDate{Year: &Value{Value: m[1]}}
	if m[2] != "" {
		if mo, _ := strconv.Atoi(m[2]); mo < 1 || mo > 12 {
			errs.add(field, "month out of range in "+strconv.Quote(raw))
			return nil
		}
		d.Month = &Value{Value: m[2]}
	}
	if m[2] != "" && m[3] != "" {
		if dd, _ := strconv.Atoi(m[3]); dd < 1 || dd > 31 {
			errs.add(field, "day out of range in "+strconv.Quote(raw))
			return nil
		}
		d.Day = &Value{Value: m[3]}
	}
	return d
}

// BuildWork maps a publication to a work payload.
func BuildWork(e domain.Entity, putCode *string) (*Work, error) {
	var errs fieldErrors
	md := e.Metadata

	w := &Work{
		PutCode:          putCodeOf(putCode, &errs),
		Title:            Title{Title: Value{Value: md.First(domain.FieldTitle)}},
		JournalTitle:     valueOf(md.First(domain.FieldJournal)),
		ShortDescription: truncate(md.First(domain.FieldAbstract), 5000),
		Type:             workType(md.First(domain.FieldType)),
		PublicationDate:  parseDate(domain.FieldDateIssued, md.First(domain.FieldDateIssued), &errs),
		URL:              valueOf(md.First(domain.FieldURI)),
	}
	if w.Title.Title.Value == "" {
		errs.add(domain.FieldTitle, "title is required")
	}

	var ids []ExternalID
	for _, doi := range md.Values(domain.FieldDOI) {
		ids = append(ids, ExternalID{Type: "doi", Value: doi, Relationship: "self"})
	}
	for _, uri := range md.Values(domain.FieldURI) {
		ids = append(ids, ExternalID{Type: "uri", Value: uri, URL: valueOf(uri), Relationship: "self"})
	}
	if len(ids) > 0 {
		w.ExternalIDs = &ExternalIDs{ExternalID: ids}
	}

	var contributors []Contributor
	for i, a := range md[domain.FieldAuthor] {
		name := strings.TrimSpace(a.Value)
		if name == "" {
			continue
		}
		seq := "additional"
		if i == 0 {
			seq = "first"
		}
		contributors = append(contributors, Contributor{
			CreditName: Value{Value: name},
			Attributes: ContributorAttributes{Sequence: seq, Role: "author"},
		})
	}
	if len(contributors) > 0 {
		w.Contributors = &Contributors{Contributor: contributors}
	}

	if err := errs.err(); err != nil {
		return nil, err
	}
	return w, nil
}

// BuildFunding maps a project to a funding payload. The funder's name, city
// and ISO country code are mandatory.
func BuildFunding(e domain.Entity, putCode *string) (*Funding, error) {
	var errs fieldErrors
	md := e.Metadata

	f := &Funding{
		PutCode:          putCodeOf(putCode, &errs),
		Type:             "grant",
		Title:            Title{Title: Value{Value: md.First(domain.FieldTitle)}},
		ShortDescription: truncate(md.First(domain.FieldAbstract), 5000),
		StartDate:        parseDate(domain.FieldStartDate, md.First(domain.FieldStartDate), &errs),
		EndDate:          parseDate(domain.FieldEndDate, md.First(domain.FieldEndDate), &errs),
		Organization: Organization{
			Name: md.First(domain.FieldFunderName),
			Address: OrganizationAddress{
				City:    md.First(domain.FieldFunderCity),
				Country: strings.ToUpper(md.First(domain.FieldFunderCountry)),
			},
		},
	}
	if f.Title.Title.Value == "" {
		errs.add(domain.FieldTitle, "title is required")
	}
	if f.Organization.Name == "" {
		errs.add(domain.FieldFunderName, "funder name is required")
	}
	if f.Organization.Address.City == "" {
		errs.add(domain.FieldFunderCity, "funder city is required")
	}
	if !countryPattern.MatchString(f.Organization.Address.Country) {
		errs.add(domain.FieldFunderCountry, "funder country must be an ISO 3166-1 alpha-2 code")
	}

	if award := md.First(domain.FieldAwardNumber); award != "" {
		f.ExternalIDs = &ExternalIDs{ExternalID: []ExternalID{
			{Type: "grant_number", Value: award, Relationship: "self"},
		}}
	}

	if err := errs.err(); err != nil {
		return nil, err
	}
	return f, nil
}

// BuildProfileField maps one profile field value to its section payload.
func BuildProfileField(f domain.ProfileField, putCode *string) (any, error) {
	var errs fieldErrors
	pc := putCodeOf(putCode, &errs)
	field := f.RecordType.MetadataField()
	value := strings.TrimSpace(f.Value)
	if value == "" {
		errs.add(field, "value is required")
		return nil, errs.err()
	}

	var out any
	switch f.RecordType {
	case domain.RecordTypeKeyword:
		out = &Keyword{PutCode: pc, Content: value}
	case domain.RecordTypeOtherName:
		out = &OtherName{PutCode: pc, Content: value}
	case domain.RecordTypeResearcherURL:
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs.add(field, "must be an absolute http(s) URL")
			break
		}
		out = &ResearcherURL{PutCode: pc, URLName: u.Host, URL: Value{Value: value}}
	case domain.RecordTypeExternalIdentifier:
		out = &PersonExternalIdentifier{PutCode: pc, ExternalID: ExternalID{
			Type:         "Scopus Author ID",
			Value:        value,
			URL:          &Value{Value: scopusAuthorURL + url.QueryEscape(value)},
			Relationship: "self",
		}}
	case domain.RecordTypeAddress:
		country := strings.ToUpper(value)
		if !countryPattern.MatchString(country) {
			errs.add(field, "country must be an ISO 3166-1 alpha-2 code")
			break
		}
		out = &Address{PutCode: pc, Country: Value{Value: country}}
	default:
		errs.add("record_type", "not a profile field: "+f.RecordType.String())
	}

	if err := errs.err(); err != nil {
		return nil, err
	}
	return out, nil
}

func workType(raw string) string {
	if t, ok := workTypes[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return t
	}
	return "other"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
