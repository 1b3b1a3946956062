package testhelper

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/orcid-sync/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedEntity inserts an entity with the given type and metadata.
func SeedEntity(t *testing.T, pool *pgxpool.Pool, typ domain.EntityType, md domain.Metadata) domain.Entity {
	t.Helper()

	if md == nil {
		md = domain.Metadata{}
	}
	raw, err := json.Marshal(md)
	if err != nil {
		t.Fatalf("testhelper: SeedEntity marshal metadata: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	e := domain.Entity{
		ID:        uuid.New(),
		Type:      typ,
		Metadata:  md,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = pool.Exec(context.Background(),
		`INSERT INTO entities (id, entity_type, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ID, string(e.Type), raw, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedEntity insert: %v", err)
	}
	return e
}

// SeedProfile creates a Person with a unique ORCID iD and the given
// publication preference. When linked is true an access token is stored too.
func SeedProfile(t *testing.T, pool *pgxpool.Pool, pubPref domain.SyncPreference, linked bool) domain.Profile {
	t.Helper()

	md := domain.Metadata{}
	md.Set(domain.FieldORCID, "0000-0002-"+uniqueSuffix()[:4]+"-"+uniqueSuffix()[:4])
	md.Set(domain.FieldGivenName, "Test")
	md.Set(domain.FieldFamilyName, "Person "+uniqueSuffix())
	if pubPref != "" {
		md.Set(domain.FieldSyncPublications, string(pubPref))
	}

	e := SeedEntity(t, pool, domain.EntityTypePerson, md)

	var cred *domain.Credential
	if linked {
		cred = &domain.Credential{AccessToken: "token-" + uniqueSuffix(), Scopes: []string{"/activities/update"}}
		_, err := pool.Exec(context.Background(),
			`INSERT INTO registry_credentials (profile_id, access_token, scopes) VALUES ($1, $2, $3)`,
			e.ID, cred.AccessToken, cred.Scopes,
		)
		if err != nil {
			t.Fatalf("testhelper: SeedProfile insert credential: %v", err)
		}
	}

	return domain.NewProfile(e, cred)
}

// SeedPublication creates a publication authored by the given profiles.
func SeedPublication(t *testing.T, pool *pgxpool.Pool, authors ...uuid.UUID) domain.Entity {
	t.Helper()

	md := domain.Metadata{}
	md.Set(domain.FieldTitle, "Publication "+uniqueSuffix())
	for _, a := range authors {
		md[domain.FieldAuthor] = append(md[domain.FieldAuthor], domain.MetadataValue{
			Value:     "Author " + a.String()[:8],
			Authority: a.String(),
		})
	}
	return SeedEntity(t, pool, domain.EntityTypePublication, md)
}
