package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nmstate-go/nmstate/pkg/transaction"
)

func TestConfig_Defaults(t *testing.T) {
	c := &Config{}

	if got := c.GetGenConfDir(); got != DefaultGenConfDir {
		t.Errorf("GetGenConfDir() default = %q, want %q", got, DefaultGenConfDir)
	}
	if got := c.GetAuditMaxSizeMB(); got != DefaultAuditMaxSizeMB {
		t.Errorf("GetAuditMaxSizeMB() default = %d, want %d", got, DefaultAuditMaxSizeMB)
	}
	if got := c.GetAuditMaxBackups(); got != DefaultAuditMaxBackups {
		t.Errorf("GetAuditMaxBackups() default = %d, want %d", got, DefaultAuditMaxBackups)
	}
}

func TestConfig_TransactionOptionsFallsBackToDefaults(t *testing.T) {
	c := &Config{}
	opts := c.TransactionOptions()
	want := transaction.DefaultOptions()
	if opts.CheckpointTimeout != want.CheckpointTimeout || opts.SettleTimeout != want.SettleTimeout {
		t.Errorf("TransactionOptions() with no overrides = %+v, want %+v", opts, want)
	}
}

func TestConfig_TransactionOptionsHonorsOverrides(t *testing.T) {
	c := &Config{CheckpointTimeoutSeconds: 30, SettleTimeoutSeconds: 5}
	opts := c.TransactionOptions()
	if opts.CheckpointTimeout != 30*time.Second {
		t.Errorf("CheckpointTimeout = %v, want 30s", opts.CheckpointTimeout)
	}
	if opts.SettleTimeout != 5*time.Second {
		t.Errorf("SettleTimeout = %v, want 5s", opts.SettleTimeout)
	}
}

func TestConfig_Clear(t *testing.T) {
	c := &Config{GenConfDir: "/x", AuditLogPath: "/y", CheckpointTimeoutSeconds: 10}
	c.Clear()
	if c.GenConfDir != "" || c.AuditLogPath != "" || c.CheckpointTimeoutSeconds != 0 {
		t.Error("Clear() should reset all fields to empty")
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "nmstate-go-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "config.json")
	original := &Config{
		GenConfDir:               "/etc/custom/gen_conf",
		CheckpointTimeoutSeconds: 90,
		SettleTimeoutSeconds:     3,
		AuditLogPath:             "/var/log/custom/audit.log",
	}

	if err := original.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}
	if loaded.GenConfDir != original.GenConfDir {
		t.Errorf("GenConfDir mismatch: got %q, want %q", loaded.GenConfDir, original.GenConfDir)
	}
	if loaded.CheckpointTimeoutSeconds != original.CheckpointTimeoutSeconds {
		t.Errorf("CheckpointTimeoutSeconds mismatch: got %d, want %d", loaded.CheckpointTimeoutSeconds, original.CheckpointTimeoutSeconds)
	}
	if loaded.AuditLogPath != original.AuditLogPath {
		t.Errorf("AuditLogPath mismatch: got %q, want %q", loaded.AuditLogPath, original.AuditLogPath)
	}
}

func TestConfig_LoadNonExistent(t *testing.T) {
	c, err := LoadFrom("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("LoadFrom() non-existent should not error: %v", err)
	}
	if c == nil {
		t.Fatal("LoadFrom() should return non-nil Config")
	}
	if c.GenConfDir != "" {
		t.Error("LoadFrom() non-existent should return empty config")
	}
}

func TestConfig_LoadInvalidJSON(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "nmstate-go-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "config.json")
	if err := os.WriteFile(path, []byte("invalid json {"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() with invalid JSON should error")
	}
}

func TestConfig_SaveCreatesDirectory(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "nmstate-go-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "subdir", "nested", "config.json")
	c := &Config{GenConfDir: "/tmp/x"}
	if err := c.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() should create directories: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("SaveTo() should have created the file")
	}
}

func TestLoadSaveRoundTripViaHOME(t *testing.T) {
	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)

	tmpDir, err := os.MkdirTemp("", "nmstate-go-test-home-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)
	os.Setenv("HOME", tmpDir)

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() with non-existent file should not error: %v", err)
	}
	if c.GenConfDir != "" {
		t.Error("Load() with non-existent file should return empty config")
	}

	c.GenConfDir = "/etc/saved/gen_conf"
	if err := c.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() after Save() failed: %v", err)
	}
	if loaded.GenConfDir != "/etc/saved/gen_conf" {
		t.Errorf("After Save(), GenConfDir = %q, want %q", loaded.GenConfDir, "/etc/saved/gen_conf")
	}
}
