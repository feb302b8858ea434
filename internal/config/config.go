package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Config holds all configuration for a sync run.
type Config struct {
	AWS     AWSConfig
	Group   GroupConfig
	Rules   RulesConfig
	Sources SourcesConfig
	Store   StoreConfig
	Git     GitConfig
	Run     RunConfig
}

// AWSConfig selects the account and region. Region falls back to the SDK's
// own resolution (environment, shared config) and then to DefaultRegion.
type AWSConfig struct {
	Region        string `env:"AWS_REGION"`
	DefaultRegion string `env:"SGSYNC_DEFAULT_REGION" envDefault:"eu-west-1"`
	Profile       string `env:"AWS_PROFILE"`
	RoleARN       string `env:"SGSYNC_ROLE_ARN"`
}

// GroupConfig identifies the security group to converge.
type GroupConfig struct {
	ID             string `env:"SGSYNC_GROUP_ID"`
	Name           string `env:"SGSYNC_GROUP_NAME" envDefault:"security-group"`
	AllowHeuristic bool   `env:"SGSYNC_ALLOW_HEURISTIC" envDefault:"true"`
}

// RulesConfig names the two ingress rules the sync owns.
type RulesConfig struct {
	Protocol     string `env:"SGSYNC_PROTOCOL" envDefault:"tcp"`
	SSHPort      int    `env:"SGSYNC_SSH_PORT" envDefault:"22"`
	HTTPPort     int    `env:"SGSYNC_HTTP_PORT" envDefault:"80"`
	AllAddresses string `env:"SGSYNC_ALL_ADDRESSES" envDefault:"0.0.0.0/0"`
}

// SourcesConfig holds the endpoints the allow-list is built from.
type SourcesConfig struct {
	CheckIPURL  string        `env:"SGSYNC_CHECKIP_URL" envDefault:"https://checkip.amazonaws.com"`
	RangesURL   string        `env:"SGSYNC_RANGES_URL" envDefault:"https://www.cloudflare.com/ips-v4"`
	HTTPTimeout time.Duration `env:"SGSYNC_HTTP_TIMEOUT" envDefault:"15s"`
}

// StoreConfig locates the version-controlled document.
type StoreConfig struct {
	Path string `env:"SGSYNC_CONFIG_FILE" envDefault:"security-group.yaml"`
}

// GitConfig controls the commit step.
type GitConfig struct {
	Enabled       bool   `env:"SGSYNC_GIT_ENABLED" envDefault:"true"`
	Pull          bool   `env:"SGSYNC_GIT_PULL" envDefault:"true"`
	Push          bool   `env:"SGSYNC_GIT_PUSH" envDefault:"true"`
	CommitMessage string `env:"SGSYNC_COMMIT_MESSAGE" envDefault:"Update security group rules [skip ci]"`
	Dir           string `env:"SGSYNC_GIT_DIR"`
}

// RunConfig holds process-level switches.
type RunConfig struct {
	DryRun    bool   `env:"SGSYNC_DRY_RUN" envDefault:"false"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set.
func LoadDotEnv(files ...string) error {
	return godotenv.Load(files...)
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.AWS); err != nil {
		return nil, fmt.Errorf("parsing aws config: %w", err)
	}
	if err := env.Parse(&cfg.Group); err != nil {
		return nil, fmt.Errorf("parsing group config: %w", err)
	}
	if err := env.Parse(&cfg.Rules); err != nil {
		return nil, fmt.Errorf("parsing rules config: %w", err)
	}
	if err := env.Parse(&cfg.Sources); err != nil {
		return nil, fmt.Errorf("parsing sources config: %w", err)
	}
	if err := env.Parse(&cfg.Store); err != nil {
		return nil, fmt.Errorf("parsing store config: %w", err)
	}
	if err := env.Parse(&cfg.Git); err != nil {
		return nil, fmt.Errorf("parsing git config: %w", err)
	}
	if err := env.Parse(&cfg.Run); err != nil {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.AWS.Region == "" && c.AWS.DefaultRegion == "" {
		return fmt.Errorf("SGSYNC_DEFAULT_REGION must not be empty when AWS_REGION is unset")
	}
	if c.Group.ID == "" && c.Group.Name == "" && !c.Group.AllowHeuristic {
		return fmt.Errorf("one of SGSYNC_GROUP_ID, SGSYNC_GROUP_NAME or SGSYNC_ALLOW_HEURISTIC is required")
	}

	if c.Rules.Protocol == "" {
		return fmt.Errorf("SGSYNC_PROTOCOL is required")
	}
	if !validPort(c.Rules.SSHPort) {
		return fmt.Errorf("SGSYNC_SSH_PORT must be between 1 and 65535, got %d", c.Rules.SSHPort)
	}
	if !validPort(c.Rules.HTTPPort) {
		return fmt.Errorf("SGSYNC_HTTP_PORT must be between 1 and 65535, got %d", c.Rules.HTTPPort)
	}
	if c.Rules.SSHPort == c.Rules.HTTPPort {
		return fmt.Errorf("SGSYNC_SSH_PORT and SGSYNC_HTTP_PORT must differ")
	}
	if c.Rules.AllAddresses == "" {
		return fmt.Errorf("SGSYNC_ALL_ADDRESSES is required")
	}

	if err := validURL("SGSYNC_CHECKIP_URL", c.Sources.CheckIPURL); err != nil {
		return err
	}
	if err := validURL("SGSYNC_RANGES_URL", c.Sources.RangesURL); err != nil {
		return err
	}
	if c.Sources.HTTPTimeout <= 0 {
		return fmt.Errorf("SGSYNC_HTTP_TIMEOUT must be positive")
	}

	if c.Store.Path == "" {
		return fmt.Errorf("SGSYNC_CONFIG_FILE is required")
	}
	if c.Git.Enabled && c.Git.CommitMessage == "" {
		return fmt.Errorf("SGSYNC_COMMIT_MESSAGE is required when git is enabled")
	}

	return nil
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

func validURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
	}
	return nil
}
