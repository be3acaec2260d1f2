// Package config manages persistent engine run options for nmstatectl:
// the checkpoint/settle timings transaction.Options exposes, the default
// gen_conf output directory, and audit-log placement, so a user doesn't
// have to repeat flags across invocations.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/nmstate-go/nmstate/pkg/transaction"
)

// Config holds persistent user preferences for the engine CLI.
type Config struct {
	// GenConfDir overrides the default gen_conf output directory.
	GenConfDir string `json:"gen_conf_dir,omitempty"`

	// CheckpointTimeoutSeconds overrides transaction.DefaultCheckpointTimeout.
	CheckpointTimeoutSeconds int `json:"checkpoint_timeout_seconds,omitempty"`

	// SettleTimeoutSeconds overrides transaction.DefaultSettleTimeout.
	SettleTimeoutSeconds int `json:"settle_timeout_seconds,omitempty"`

	// AuditLogPath overrides the default audit log path.
	AuditLogPath string `json:"audit_log_path,omitempty"`

	// AuditMaxSizeMB is the max audit log size in MB before rotation.
	AuditMaxSizeMB int `json:"audit_max_size_mb,omitempty"`

	// AuditMaxBackups is the max number of rotated audit log files.
	AuditMaxBackups int `json:"audit_max_backups,omitempty"`
}

const (
	// DefaultGenConfDir is used when GenConfDir is unset.
	DefaultGenConfDir = "/etc/nmstate-go/gen_conf"

	// DefaultAuditMaxSizeMB is the default maximum audit log size in megabytes.
	DefaultAuditMaxSizeMB = 10

	// DefaultAuditMaxBackups is the default maximum number of rotated audit log files.
	DefaultAuditMaxBackups = 10
)

// DefaultConfigPath returns the default path for the config file.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/nmstate-go_config.json"
	}
	return filepath.Join(home, ".nmstate-go", "config.json")
}

// Load reads config from the default location.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom reads config from a specific path. A missing file is not an
// error: it means run with defaults.
func LoadFrom(path string) (*Config, error) {
	c := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}

	return c, nil
}

// Save writes config to the default location.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo writes config to a specific path, creating parent directories.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetGenConfDir returns the gen_conf output directory with a fallback default.
func (c *Config) GetGenConfDir() string {
	if c.GenConfDir != "" {
		return c.GenConfDir
	}
	return DefaultGenConfDir
}

// GetAuditLogPath returns the audit log path with a fallback default.
func (c *Config) GetAuditLogPath() string {
	if c.AuditLogPath != "" {
		return c.AuditLogPath
	}
	return "/var/log/nmstate-go/audit.log"
}

// GetAuditMaxSizeMB returns the audit max size in MB with a default of 10.
func (c *Config) GetAuditMaxSizeMB() int {
	if c.AuditMaxSizeMB > 0 {
		return c.AuditMaxSizeMB
	}
	return DefaultAuditMaxSizeMB
}

// GetAuditMaxBackups returns the audit max backups with a default of 10.
func (c *Config) GetAuditMaxBackups() int {
	if c.AuditMaxBackups > 0 {
		return c.AuditMaxBackups
	}
	return DefaultAuditMaxBackups
}

// TransactionOptions translates the persisted timeouts into
// transaction.Options, falling back to the package defaults for any
// value the user never overrode.
func (c *Config) TransactionOptions() transaction.Options {
	opts := transaction.DefaultOptions()
	if c.CheckpointTimeoutSeconds > 0 {
		opts.CheckpointTimeout = time.Duration(c.CheckpointTimeoutSeconds) * time.Second
	}
	if c.SettleTimeoutSeconds > 0 {
		opts.SettleTimeout = time.Duration(c.SettleTimeoutSeconds) * time.Second
	}
	return opts
}

// Clear resets all settings to defaults.
func (c *Config) Clear() {
	*c = Config{}
}
