package inbound

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/orcid-sync/internal/config"
	"github.com/heartmarshall/orcid-sync/internal/domain"
)

type webhookRegistrar interface {
	RegisterWebhook(ctx context.Context, orcidID, callback string) error
}

const webhookRegistered = "true"

// Webhook asks the registry to notify the callback URL when a record
// changes. Registration happens once per profile and is remembered in the
// profile's metadata.
type Webhook struct {
	client   webhookRegistrar
	callback string
	log      *slog.Logger
}

// NewWebhook creates the webhook action.
func NewWebhook(log *slog.Logger, client webhookRegistrar, callback string) *Webhook {
	return &Webhook{
		client:   client,
		callback: callback,
		log:      log.With("action", config.ActionWebhook),
	}
}

func (a *Webhook) Name() string { return config.ActionWebhook }

func (a *Webhook) Apply(ctx context.Context, p *domain.Profile, orcidID string) error {
	if p.Metadata.First(domain.FieldWebhookRegistered) == webhookRegistered {
		return nil
	}

	if err := a.client.RegisterWebhook(ctx, orcidID, a.callback); err != nil {
		return fmt.Errorf("register webhook: %w", err)
	}

	if p.Metadata == nil {
		p.Metadata = domain.Metadata{}
	}
	p.Metadata.Set(domain.FieldWebhookRegistered, webhookRegistered)
	a.log.InfoContext(ctx, "webhook registered", slog.String("profile_id", p.ID.String()))
	return nil
}
