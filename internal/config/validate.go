package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Registry.validate(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}

	if c.Push.MaxAttempts <= 0 {
		return fmt.Errorf("push: max_attempts must be > 0 (got %d)", c.Push.MaxAttempts)
	}
	if c.Push.BatchLimit < 0 {
		return fmt.Errorf("push: batch_limit must be >= 0 (got %d)", c.Push.BatchLimit)
	}

	if err := c.Pull.validate(); err != nil {
		return fmt.Errorf("pull: %w", err)
	}

	if slices.Contains(c.Pull.Actions, ActionWebhook) && c.Registry.WebhookCallbackURL == "" {
		return fmt.Errorf("pull: action %q requires registry.webhook_callback_url", ActionWebhook)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: sample_ratio must be within [0, 1] (got %v)", c.Telemetry.SampleRatio)
	}

	return nil
}

func (r *RegistryConfig) validate() error {
	if r.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	if u, err := url.Parse(r.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_url %q is not an absolute URL", r.APIURL)
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %s)", r.Timeout)
	}
	return nil
}

func (p *PullConfig) validate() error {
	if p.PageSize <= 0 {
		return fmt.Errorf("page_size must be > 0 (got %d)", p.PageSize)
	}

	actions, err := ParseActions(p.ActionsRaw)
	if err != nil {
		return fmt.Errorf("actions: %w", err)
	}
	p.Actions = actions

	return nil
}

// ParseActions parses a comma-separated list of inbound action names,
// keeping their order. Unknown and repeated names are rejected.
func ParseActions(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	actions := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !slices.Contains(KnownActions, p) {
			return nil, fmt.Errorf("unknown action %q", p)
		}
		if slices.Contains(actions, p) {
			return nil, fmt.Errorf("action %q listed twice", p)
		}
		actions = append(actions, p)
	}

	return actions, nil
}
