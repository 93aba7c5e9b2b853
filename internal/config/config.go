// Package config handles releasebridge configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a releasebridge run.
// It is built once at the command layer and passed down explicitly.
type Config struct {
	GitHub  GitHubConfig  `yaml:"github"`
	Monday  MondayConfig  `yaml:"monday"`
	Logging LoggingConfig `yaml:"logging"`
	Release ReleaseConfig `yaml:"release"`
}

// GitHubConfig defines how pull requests are looked up.
type GitHubConfig struct {
	Token            string       `yaml:"token"`
	Repository       string       `yaml:"repository"` // owner/name, discovered from git when empty
	APIURL           string       `yaml:"api_url"`
	FallbackMaxPages int          `yaml:"fallback_max_pages"`
	App              *AppIdentity `yaml:"app"`
}

// AppIdentity holds GitHub App credentials, used instead of a token when set.
type AppIdentity struct {
	Name           string `yaml:"name"`
	AppID          string `yaml:"app_id"`
	InstallationID string `yaml:"installation_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
}

// HasGitHubApp reports whether the identity carries usable App credentials.
func (a *AppIdentity) HasGitHubApp() bool {
	return a != nil && a.AppID != "" && a.InstallationID != "" && a.PrivateKeyPath != ""
}

// MondayConfig defines the monday.com connection.
type MondayConfig struct {
	APIToken   string `yaml:"api_token"`
	APIURL     string `yaml:"api_url"`
	APIVersion string `yaml:"api_version"`
	ColumnID   string `yaml:"column_id"`
}

// LoggingConfig defines log output and error reporting.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	SentryDSN string `yaml:"sentry_dsn"`
	Env       string `yaml:"env"`
}

// ReleaseConfig holds the per-invocation release inputs.
type ReleaseConfig struct {
	CommitRange string `yaml:"commit_range"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
	Description string `yaml:"description"`
	RepoPath    string `yaml:"repo_path"`
	DryRun      bool   `yaml:"dry_run"`
}

const (
	DefaultGitHubAPIURL = "https://api.github.com"
	DefaultMondayAPIURL = "https://api.monday.com/v2"
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			APIURL:           DefaultGitHubAPIURL,
			FallbackMaxPages: 10,
		},
		Monday: MondayConfig{
			APIURL: DefaultMondayAPIURL,
		},
		Logging: LoggingConfig{
			Level: "info",
			Env:   "production",
		},
		Release: ReleaseConfig{
			RepoPath: ".",
		},
	}
}

// Load reads configuration from path, falling back to the default path.
// A missing file is not an error; defaults are returned instead.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.expandEnvVars()
	return cfg, nil
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	if p := os.Getenv("RELEASEBRIDGE_CONFIG"); p != "" {
		return p
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config/releasebridge/config.yaml")
}

func (c *Config) expandEnvVars() {
	c.GitHub.Token = os.ExpandEnv(c.GitHub.Token)
	c.Monday.APIToken = os.ExpandEnv(c.Monday.APIToken)
	c.Logging.SentryDSN = os.ExpandEnv(c.Logging.SentryDSN)
	if c.GitHub.App != nil {
		c.GitHub.App.PrivateKeyPath = os.ExpandEnv(c.GitHub.App.PrivateKeyPath)
	}
}

// ApplyEnv fills unset values from the ambient environment.
// Explicit values always win over the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	setIfEmpty(&c.GitHub.Token, getenv("GITHUB_TOKEN"))
	setIfEmpty(&c.GitHub.Repository, getenv("GITHUB_REPOSITORY"))
	setIfEmpty(&c.Monday.APIToken, getenv("MONDAY_API_TOKEN"))
	if v := getenv("GITHUB_API_URL"); v != "" && (c.GitHub.APIURL == "" || c.GitHub.APIURL == DefaultGitHubAPIURL) {
		c.GitHub.APIURL = v
	}
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// MissingInputError lists every required input that was not supplied.
type MissingInputError struct {
	Inputs []string
}

func (e *MissingInputError) Error() string {
	return "missing required input: " + strings.Join(e.Inputs, ", ")
}

// Validate checks that all required inputs are present.
func (c *Config) Validate() error {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}

	check("commit_range", c.Release.CommitRange)
	check("version", c.Release.Version)
	check("environment", c.Release.Environment)
	check("description", c.Release.Description)
	check("monday_column_name", c.Monday.ColumnID)
	check("monday_api_token", c.Monday.APIToken)
	if c.GitHub.Token == "" && !c.GitHub.App.HasGitHubApp() {
		missing = append(missing, "github_token")
	}

	if len(missing) > 0 {
		return &MissingInputError{Inputs: missing}
	}
	return nil
}
