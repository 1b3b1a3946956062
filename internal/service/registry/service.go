// Package registry turns queued intents into ORCID member API calls.
package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/orcid-sync/internal/adapter/orcid"
	"github.com/heartmarshall/orcid-sync/internal/domain"
)

type profileRepo interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Profile, error)
}

type entityRepo interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Entity, error)
}

type orcidClient interface {
	Create(ctx context.Context, token, orcidID string, s orcid.Section, body any) (orcid.Response, error)
	Update(ctx context.Context, token, orcidID string, s orcid.Section, putCode string, body any) (orcid.Response, error)
	Delete(ctx context.Context, token, orcidID string, s orcid.Section, putCode string) (orcid.Response, error)
}

// Transport is the registry transport used by the push orchestrator.
type Transport struct {
	profiles profileRepo
	entities entityRepo
	client   orcidClient
	log      *slog.Logger
	now      func() time.Time
}

// NewTransport creates a new registry Transport.
func NewTransport(
	log *slog.Logger,
	profiles profileRepo,
	entities entityRepo,
	client orcidClient,
) *Transport {
	return &Transport{
		profiles: profiles,
		entities: entities,
		client:   client,
		log:      log.With("service", "registry"),
		now:      time.Now,
	}
}
