package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/moonwalker/assetwatch/pkg/env"
)

const ENV_PREFIX = "ASSETWATCH_"

type Config struct {
	Tick         time.Duration `yaml:"tick"`
	AlertTimeout time.Duration `yaml:"alertTimeout"`
	Workers      int           `yaml:"workers"`
	Refire       string        `yaml:"refire"`
	Timezone     string        `yaml:"timezone"`

	Repo       RepoConfig       `yaml:"repo"`
	Variables  RepoConfig       `yaml:"variables"`
	Datasource DatasourceConfig `yaml:"datasource"`
	Notify     NotifyConfig     `yaml:"notify"`
	Nats       NatsConfig       `yaml:"nats"`
	R2         R2Config         `yaml:"r2"`
	Log        LogConfig        `yaml:"log"`
}

// RepoConfig selects a persistence backend: memory, disk, bolt, redis, s3,
// r2, postgres or natskv.
type RepoConfig struct {
	Kind   string `yaml:"kind"`
	URL    string `yaml:"url"`
	Path   string `yaml:"path"`
	Bucket string `yaml:"bucket"`
}

type DatasourceConfig struct {
	Kind    string            `yaml:"kind"`
	BaseURL string            `yaml:"baseURL"`
	Token   string            `yaml:"token"`
	Timeout time.Duration     `yaml:"timeout"`
	Paths   map[string]string `yaml:"paths"`
}

type NotifyConfig struct {
	Nats    NotifyNatsConfig    `yaml:"nats"`
	Webhook NotifyWebhookConfig `yaml:"webhook"`
	Elastic NotifyElasticConfig `yaml:"elastic"`
}

type NotifyNatsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Subject string `yaml:"subject"`
}

type NotifyWebhookConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type NotifyElasticConfig struct {
	Addresses []string `yaml:"addresses"`
	Index     string   `yaml:"index"`
}

// NatsConfig is the shared connection of the nats sink, the natskv store
// and the command subscription.
type NatsConfig struct {
	URL         string `yaml:"url"`
	NkeyUser    string `yaml:"nkeyUser"`
	NkeySeed    string `yaml:"nkeySeed"`
	Credentials string `yaml:"credentials"`
	Commands    bool   `yaml:"commands"`
}

// R2Config holds the Cloudflare R2 credentials of r2 stores.
type R2Config struct {
	AccountID       string `yaml:"accountId"`
	AccessKeyID     string `yaml:"accessKeyId"`
	AccessKeySecret string `yaml:"accessKeySecret"`
	Endpoint        string `yaml:"endpoint"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Tick:         60 * time.Second,
		AlertTimeout: 10 * time.Second,
		Workers:      4,
		Refire:       "daily",
		Repo:         RepoConfig{Kind: "memory"},
		Variables:    RepoConfig{Kind: "memory"},
		Datasource:   DatasourceConfig{Kind: "static", Timeout: 10 * time.Second},
		Log:          LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults, then applies ASSETWATCH_* environment
// overrides. An empty path only applies defaults and environment.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.UnmarshalStrict(b, c); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	c.applyEnv()
	return c, c.Validate()
}

func (c *Config) applyEnv() {
	c.Tick = env.Duration(ENV_PREFIX+"TICK", c.Tick)
	c.AlertTimeout = env.Duration(ENV_PREFIX+"ALERT_TIMEOUT", c.AlertTimeout)
	c.Workers = env.Int(ENV_PREFIX+"WORKERS", c.Workers)
	c.Refire = env.Get(ENV_PREFIX+"REFIRE", c.Refire)
	c.Timezone = env.Get(ENV_PREFIX+"TIMEZONE", c.Timezone)

	c.Repo.Kind = env.Get(ENV_PREFIX+"REPO_KIND", c.Repo.Kind)
	c.Repo.URL = env.Get(ENV_PREFIX+"REPO_URL", c.Repo.URL)
	c.Repo.Path = env.Get(ENV_PREFIX+"REPO_PATH", c.Repo.Path)
	c.Repo.Bucket = env.Get(ENV_PREFIX+"REPO_BUCKET", c.Repo.Bucket)

	c.Variables.Kind = env.Get(ENV_PREFIX+"VARIABLES_KIND", c.Variables.Kind)
	c.Variables.URL = env.Get(ENV_PREFIX+"VARIABLES_URL", c.Variables.URL)
	c.Variables.Path = env.Get(ENV_PREFIX+"VARIABLES_PATH", c.Variables.Path)
	c.Variables.Bucket = env.Get(ENV_PREFIX+"VARIABLES_BUCKET", c.Variables.Bucket)

	c.Datasource.Kind = env.Get(ENV_PREFIX+"DATASOURCE_KIND", c.Datasource.Kind)
	c.Datasource.BaseURL = env.Get(ENV_PREFIX+"DATASOURCE_URL", c.Datasource.BaseURL)
	c.Datasource.Token = env.Get(ENV_PREFIX+"DATASOURCE_TOKEN", c.Datasource.Token)

	c.Notify.Webhook.URL = env.Get(ENV_PREFIX+"WEBHOOK_URL", c.Notify.Webhook.URL)
	c.Notify.Webhook.Token = env.Get(ENV_PREFIX+"WEBHOOK_TOKEN", c.Notify.Webhook.Token)
	c.Notify.Elastic.Index = env.Get(ENV_PREFIX+"ELASTIC_INDEX", c.Notify.Elastic.Index)
	if addr := env.Get(ENV_PREFIX+"ELASTIC_URL", ""); addr != "" {
		c.Notify.Elastic.Addresses = strings.Split(addr, ",")
	}

	c.Nats.URL = env.Get(ENV_PREFIX+"NATS_URL", c.Nats.URL)
	c.Nats.NkeyUser = env.Get(ENV_PREFIX+"NATS_NKEY_USER", c.Nats.NkeyUser)
	c.Nats.NkeySeed = env.Get(ENV_PREFIX+"NATS_NKEY_SEED", c.Nats.NkeySeed)
	c.Nats.Credentials = env.Get(ENV_PREFIX+"NATS_CREDENTIALS", c.Nats.Credentials)

	c.R2.AccountID = env.Get(ENV_PREFIX+"R2_ACCOUNT_ID", c.R2.AccountID)
	c.R2.AccessKeyID = env.Get(ENV_PREFIX+"R2_ACCESS_KEY_ID", c.R2.AccessKeyID)
	c.R2.AccessKeySecret = env.Get(ENV_PREFIX+"R2_ACCESS_KEY_SECRET", c.R2.AccessKeySecret)
	c.R2.Endpoint = env.Get(ENV_PREFIX+"R2_ENDPOINT", c.R2.Endpoint)

	c.Log.Level = env.Get(ENV_PREFIX+"LOG_LEVEL", c.Log.Level)
	c.Log.Format = env.Get(ENV_PREFIX+"LOG_FORMAT", c.Log.Format)
}

var repoKinds = map[string]bool{
	"memory": true, "disk": true, "bolt": true, "redis": true, "s3": true, "r2": true, "postgres": true, "natskv": true,
}

func (c *Config) Validate() error {
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %s", c.Tick)
	}
	if c.Refire != "daily" && c.Refire != "tick" {
		return fmt.Errorf("refire must be daily or tick, got %q", c.Refire)
	}
	if !repoKinds[c.Repo.Kind] {
		return fmt.Errorf("unknown repo kind %q", c.Repo.Kind)
	}
	if !repoKinds[c.Variables.Kind] || c.Variables.Kind == "postgres" || c.Variables.Kind == "disk" {
		return fmt.Errorf("unknown variables kind %q", c.Variables.Kind)
	}
	if c.Datasource.Kind != "static" && c.Datasource.Kind != "http" {
		return fmt.Errorf("unknown datasource kind %q", c.Datasource.Kind)
	}
	if c.Datasource.Kind == "http" && c.Datasource.BaseURL == "" {
		return fmt.Errorf("datasource baseURL is required for http")
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}
	return nil
}

// Location is the time zone of the start time gate.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
