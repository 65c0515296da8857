package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Global     GlobalConfig     `yaml:"global" json:"global"`
	Connection ConnectionConfig `yaml:"connection" json:"connection"`
	Scan       ScanConfig       `yaml:"scan" json:"scan"`
	Reporting  ReportingConfig  `yaml:"reporting" json:"reporting"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Metrics    MetricsConfig    `yaml:"metrics" json:"metrics"`
}

type GlobalConfig struct {
	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
	LogFile   string `yaml:"log_file" json:"log_file"`
	DataDir   string `yaml:"data_dir" json:"data_dir"`
	Quiet     bool   `yaml:"quiet" json:"quiet"`
}

type ConnectionConfig struct {
	Server     string        `yaml:"server" json:"server"`
	Username   string        `yaml:"username" json:"username"`
	Password   string        `yaml:"password" json:"password"`
	Token      string        `yaml:"token" json:"token"`
	Insecure   bool          `yaml:"insecure" json:"insecure"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	RateLimit  int           `yaml:"rate_limit" json:"rate_limit"`
}

type ScanConfig struct {
	BaselinePatterns []string      `yaml:"baseline_patterns" json:"baseline_patterns"`
	PollInterval     time.Duration `yaml:"poll_interval" json:"poll_interval"`
	PollTimeout      time.Duration `yaml:"poll_timeout" json:"poll_timeout"`
}

type ReportingConfig struct {
	Format    string `yaml:"format" json:"format"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`
	Prefix    string `yaml:"prefix" json:"prefix"`
}

type StorageConfig struct {
	Path      string        `yaml:"path" json:"path"`
	Retention time.Duration `yaml:"retention" json:"retention"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
}

// DefaultBaselinePatterns match the standard critical and non-critical
// host-patch baselines shipped with the patch manager.
var DefaultBaselinePatterns = []string{
	"*Critical Host Patches*",
	"*Non-Critical Host Patches*",
}

func DefaultConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			LogLevel:  "info",
			LogFormat: "json",
			DataDir:   "./data",
		},
		Connection: ConnectionConfig{
			Timeout:   30 * time.Second,
			RateLimit: 10,
		},
		Scan: ScanConfig{
			BaselinePatterns: append([]string(nil), DefaultBaselinePatterns...),
			PollInterval:     5 * time.Second,
			PollTimeout:      30 * time.Minute,
		},
		Reporting: ReportingConfig{
			Format:    "csv",
			OutputDir: "./reports",
			Prefix:    "patchlynx-",
		},
		Storage: StorageConfig{
			Path:      "./data/runs",
			Retention: 90 * 24 * time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9180",
		},
	}
}

func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Global.LogLevel) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		errs = append(errs, "global.log_level must be one of trace|debug|info|warn|error|fatal|panic")
	}
	if c.Connection.Timeout <= 0 {
		errs = append(errs, "connection.timeout must be > 0")
	}
	if c.Connection.RateLimit < 0 {
		errs = append(errs, "connection.rate_limit must be >= 0")
	}
	if c.Scan.PollInterval <= 0 {
		errs = append(errs, "scan.poll_interval must be > 0")
	}
	if c.Scan.PollTimeout <= 0 {
		errs = append(errs, "scan.poll_timeout must be > 0")
	}
	if len(c.Scan.BaselinePatterns) == 0 {
		errs = append(errs, "scan.baseline_patterns must include at least one pattern")
	}
	switch c.Reporting.Format {
	case "csv", "xlsx", "console":
	default:
		errs = append(errs, fmt.Sprintf("reporting.format %q is not supported", c.Reporting.Format))
	}
	if c.Reporting.OutputDir == "" {
		errs = append(errs, "reporting.output_dir must not be empty")
	}
	if c.Storage.Path == "" {
		errs = append(errs, "storage.path must not be empty")
	}
	if c.Storage.Retention < 0 {
		errs = append(errs, "storage.retention must be >= 0")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, "metrics.listen must be set when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var (
		data []byte
		err  error
	)
	switch ext {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	default:
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomically write config: %w", err)
	}
	return nil
}

func (c *Config) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse yaml: %w", err)
		}
	}

	return c.Validate()
}
