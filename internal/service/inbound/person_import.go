package inbound

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/orcid-sync/internal/adapter/orcid"
	"github.com/heartmarshall/orcid-sync/internal/config"
	"github.com/heartmarshall/orcid-sync/internal/domain"
)

type personReader interface {
	Person(ctx context.Context, token, orcidID string) (orcid.Person, error)
}

// PersonImport fills empty local name and biography fields from the
// registry's person record. Local values always win.
type PersonImport struct {
	client personReader
	log    *slog.Logger
}

// NewPersonImport creates the person-import action.
func NewPersonImport(log *slog.Logger, client personReader) *PersonImport {
	return &PersonImport{
		client: client,
		log:    log.With("action", config.ActionPersonImport),
	}
}

func (a *PersonImport) Name() string { return config.ActionPersonImport }

func (a *PersonImport) Apply(ctx context.Context, p *domain.Profile, orcidID string) error {
	md := p.Metadata
	if md.First(domain.FieldGivenName) != "" &&
		md.First(domain.FieldFamilyName) != "" &&
		md.First(domain.FieldBiography) != "" {
		return nil
	}
	if !p.Linked() {
		a.log.DebugContext(ctx, "profile not linked, skipping", slog.String("profile_id", p.ID.String()))
		return nil
	}

	person, err := a.client.Person(ctx, p.Credential.AccessToken, orcidID)
	if err != nil {
		return fmt.Errorf("read person record: %w", err)
	}

	if p.Metadata == nil {
		p.Metadata = domain.Metadata{}
	}
	filled := fillEmpty(p.Metadata, domain.FieldGivenName, person.GivenNames)
	filled += fillEmpty(p.Metadata, domain.FieldFamilyName, person.FamilyName)
	filled += fillEmpty(p.Metadata, domain.FieldBiography, person.Biography)

	if filled > 0 {
		a.log.InfoContext(ctx, "imported person fields",
			slog.String("profile_id", p.ID.String()),
			slog.Int("fields", filled),
		)
	}
	return nil
}

func fillEmpty(md domain.Metadata, field, value string) int {
	if value == "" || md.First(field) != "" {
		return 0
	}
	md.Set(field, value)
	return 1
}
