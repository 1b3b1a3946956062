package config

import "time"

// Inbound action names accepted in pull.actions.
const (
	ActionPersonImport   = "person-import"
	ActionWorksReconcile = "works-reconcile"
	ActionWebhook        = "webhook"
)

// KnownActions lists every inbound action the pull job can run.
var KnownActions = []string{ActionPersonImport, ActionWorksReconcile, ActionWebhook}

// Config is the root application configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Registry  RegistryConfig  `yaml:"registry"`
	Push      PushConfig      `yaml:"push"`
	Pull      PullConfig      `yaml:"pull"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"5"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	ApplicationName string        `yaml:"application_name"   env:"DATABASE_APPLICATION_NAME"   env-default:"orcid-sync"`
	ConnectAttempts uint          `yaml:"connect_attempts"   env:"DATABASE_CONNECT_ATTEMPTS"   env-default:"3"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// RegistryConfig holds ORCID member API settings.
type RegistryConfig struct {
	APIURL             string        `yaml:"api_url"              env:"REGISTRY_API_URL"              env-default:"https://api.sandbox.orcid.org/v3.0"`
	TokenURL           string        `yaml:"token_url"            env:"REGISTRY_TOKEN_URL"            env-default:"https://sandbox.orcid.org/oauth/token"`
	ClientID           string        `yaml:"client_id"            env:"REGISTRY_CLIENT_ID"`
	ClientSecret       string        `yaml:"client_secret"        env:"REGISTRY_CLIENT_SECRET"`
	WebhookCallbackURL string        `yaml:"webhook_callback_url" env:"REGISTRY_WEBHOOK_CALLBACK_URL"`
	Timeout            time.Duration `yaml:"timeout"              env:"REGISTRY_TIMEOUT"              env-default:"30s"`
	MaxRetries         uint          `yaml:"max_retries"          env:"REGISTRY_MAX_RETRIES"          env-default:"3"`
	UserAgent          string        `yaml:"user_agent"           env:"REGISTRY_USER_AGENT"           env-default:"orcid-sync"`
}

// PushConfig holds outbound synchronization settings.
type PushConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"   env:"PUSH_MAX_ATTEMPTS"   env-default:"3"`
	BatchLimit    int           `yaml:"batch_limit"    env:"PUSH_BATCH_LIMIT"    env-default:"0"`
	RecordTimeout time.Duration `yaml:"record_timeout" env:"PUSH_RECORD_TIMEOUT" env-default:"60s"`
}

// PullConfig holds inbound synchronization settings.
type PullConfig struct {
	LinkedOnly bool   `yaml:"linked_only" env:"PULL_LINKED_ONLY" env-default:"false"`
	PageSize   int    `yaml:"page_size"   env:"PULL_PAGE_SIZE"   env-default:"100"`
	ActionsRaw string `yaml:"actions"     env:"PULL_ACTIONS"     env-default:"person-import,works-reconcile,webhook"`

	// Actions is parsed from ActionsRaw during validation, in order.
	Actions []string `yaml:"-" env:"-"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"      env:"TELEMETRY_ENABLED"      env-default:"false"`
	Endpoint    string  `yaml:"endpoint"     env:"TELEMETRY_ENDPOINT"     env-default:"localhost:4318"`
	Insecure    bool    `yaml:"insecure"     env:"TELEMETRY_INSECURE"     env-default:"true"`
	SampleRatio float64 `yaml:"sample_ratio" env:"TELEMETRY_SAMPLE_RATIO" env-default:"1.0"`
	ServiceName string  `yaml:"service_name" env:"TELEMETRY_SERVICE_NAME" env-default:"orcid-sync"`
}
