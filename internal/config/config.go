package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Databricks domain suffixes for URL detection
var databricksDomains = []string{
	".cloud.databricks.com",
	".azuredatabricks.net",
	".gcp.databricks.com",
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Defaults registered with viper by SetDefaults.
var Defaults = map[string]any{
	"train_command":    "train",
	"builder_command":  "builder",
	"stats_command":    "",
	"tabulate_command": "",
	"results_dir":      "~/experiments/results",
	"datasets_dir":     "~/experiments/databases",
	"trials":           10,
	"timeout":          "0",
	"ledger_path":      "~/experiments/ledger.db",
	"log_level":        "info",
	"tracking_uri":     "",
	"experiment_id":    "",
	"databricks_host":  "",
	"databricks_token": "",
}

// SetDefaults registers Defaults with v.
func SetDefaults(v *viper.Viper) {
	for key, value := range Defaults {
		v.SetDefault(key, value)
	}
}

type Config struct {
	TrainCommand    string
	BuilderCommand  string
	StatsCommand    string
	TabulateCommand string
	ResultsDir      string
	DatasetsDir     string
	Trials          int
	Timeout         string
	LedgerPath      string
	LogLevel        string
	TrackingURI     string
	ExperimentID    string
	DatabricksHost  string
	DatabricksToken string
}

func New() *Config {
	return FromViper(viper.GetViper())
}

// FromViper snapshots the keys of v, expanding ~ in paths.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		TrainCommand:    ExpandHome(v.GetString("train_command")),
		BuilderCommand:  ExpandHome(v.GetString("builder_command")),
		StatsCommand:    ExpandHome(v.GetString("stats_command")),
		TabulateCommand: ExpandHome(v.GetString("tabulate_command")),
		ResultsDir:      ExpandHome(v.GetString("results_dir")),
		DatasetsDir:     ExpandHome(v.GetString("datasets_dir")),
		Trials:          v.GetInt("trials"),
		Timeout:         v.GetString("timeout"),
		LedgerPath:      ExpandHome(v.GetString("ledger_path")),
		LogLevel:        strings.ToLower(v.GetString("log_level")),
		TrackingURI:     v.GetString("tracking_uri"),
		ExperimentID:    v.GetString("experiment_id"),
		DatabricksHost:  v.GetString("databricks_host"),
		DatabricksToken: v.GetString("databricks_token"),
	}
}

func (c *Config) Validate() error {
	if c.TrainCommand == "" {
		return fmt.Errorf("train command is required")
	}
	if c.Trials < 1 {
		return fmt.Errorf("invalid trials: %d (must be at least 1)", c.Trials)
	}
	if _, err := c.RunTimeout(); err != nil {
		return err
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

// ValidateTracking checks the settings needed to publish to MLflow.
func (c *Config) ValidateTracking() error {
	if c.TrackingURI == "" {
		return fmt.Errorf("tracking URI is required")
	}
	if c.ExperimentID == "" {
		return fmt.Errorf("experiment ID is required")
	}
	return nil
}

// RunTimeout parses the per-invocation timeout; zero means none.
func (c *Config) RunTimeout() (time.Duration, error) {
	if c.Timeout == "" || c.Timeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid timeout %q: must not be negative", c.Timeout)
	}
	return d, nil
}

// Tracking reports whether MLflow publishing is configured.
func (c *Config) Tracking() bool {
	return c.TrackingURI != ""
}

// IsDatabricks checks if the tracking URI points to Databricks
func (c *Config) IsDatabricks() bool {
	if c.TrackingURI == "databricks" {
		return true
	}

	if strings.HasPrefix(c.TrackingURI, "databricks://") {
		return true
	}

	if strings.HasPrefix(c.TrackingURI, "https://") {
		host := c.extractHostFromURL(c.TrackingURI)
		return c.isDatabricksHost(host)
	}

	return false
}

func (c *Config) extractHostFromURL(url string) string {
	host := strings.TrimPrefix(url, "https://")
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	return host
}

func (c *Config) isDatabricksHost(host string) bool {
	for _, domain := range databricksDomains {
		if strings.HasSuffix(host, domain) {
			return true
		}
	}
	return false
}

// GetDatabricksProfile extracts the profile name from databricks://{profile} URI
func (c *Config) GetDatabricksProfile() string {
	if !strings.HasPrefix(c.TrackingURI, "databricks://") {
		return ""
	}

	profile := strings.TrimPrefix(c.TrackingURI, "databricks://")
	if idx := strings.Index(profile, "/"); idx != -1 {
		profile = profile[:idx]
	}
	return profile
}

// ExpandHome replaces a leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
