package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Connection defaults
	if cfg.ChromePort != "9222" {
		t.Errorf("expected ChromePort 9222, got %s", cfg.ChromePort)
	}
	if cfg.AutoLaunch != false {
		t.Errorf("expected AutoLaunch false, got %v", cfg.AutoLaunch)
	}

	// Output defaults
	if cfg.OutputDir != "./logs" {
		t.Errorf("expected OutputDir ./logs, got %s", cfg.OutputDir)
	}
	if cfg.FlushInterval != 100*time.Millisecond {
		t.Errorf("expected FlushInterval 100ms, got %v", cfg.FlushInterval)
	}
	if cfg.BufferSize != 8*1024 {
		t.Errorf("expected BufferSize 8192, got %d", cfg.BufferSize)
	}

	// Mirror defaults
	if cfg.DocumentDepth != -1 {
		t.Errorf("expected DocumentDepth -1, got %d", cfg.DocumentDepth)
	}
	if !cfg.Pierce {
		t.Error("expected Pierce true")
	}
	if !cfg.MutationCoalescing {
		t.Error("expected MutationCoalescing true")
	}
	if cfg.StyleReloadDelay != 20*time.Millisecond {
		t.Errorf("expected StyleReloadDelay 20ms, got %v", cfg.StyleReloadDelay)
	}

	// Event filtering defaults
	if !cfg.EnableAttributes || !cfg.EnableCharacterData || !cfg.EnableStructure || !cfg.EnableMarkers {
		t.Errorf("expected all event groups enabled, got %+v", cfg)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
chrome_port: "9223"
auto_launch: true
demo: true
output_dir: "./test_logs"
flush_interval: 200ms
buffer_size: 16384
redact: false
document_depth: 4
pierce: false
mutation_coalescing: false
style_reload_delay: 50ms
enable_attributes: true
enable_character_data: false
enable_structure: true
enable_markers: false
metrics_addr: ":9464"
development: true
`

	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.ChromePort != "9223" {
		t.Errorf("expected ChromePort 9223, got %s", cfg.ChromePort)
	}
	if !cfg.AutoLaunch || !cfg.Demo {
		t.Errorf("expected AutoLaunch and Demo true, got %v %v", cfg.AutoLaunch, cfg.Demo)
	}
	if cfg.OutputDir != "./test_logs" {
		t.Errorf("expected OutputDir ./test_logs, got %s", cfg.OutputDir)
	}
	if cfg.FlushInterval != 200*time.Millisecond {
		t.Errorf("expected FlushInterval 200ms, got %v", cfg.FlushInterval)
	}
	if cfg.BufferSize != 16384 {
		t.Errorf("expected BufferSize 16384, got %d", cfg.BufferSize)
	}
	if cfg.Redact != false {
		t.Errorf("expected Redact false, got %v", cfg.Redact)
	}
	if cfg.DocumentDepth != 4 {
		t.Errorf("expected DocumentDepth 4, got %d", cfg.DocumentDepth)
	}
	if cfg.Pierce || cfg.MutationCoalescing {
		t.Errorf("expected Pierce and MutationCoalescing false, got %v %v", cfg.Pierce, cfg.MutationCoalescing)
	}
	if cfg.StyleReloadDelay != 50*time.Millisecond {
		t.Errorf("expected StyleReloadDelay 50ms, got %v", cfg.StyleReloadDelay)
	}
	if cfg.EnableCharacterData != false {
		t.Errorf("expected EnableCharacterData false, got %v", cfg.EnableCharacterData)
	}
	if cfg.EnableMarkers != false {
		t.Errorf("expected EnableMarkers false, got %v", cfg.EnableMarkers)
	}
	if cfg.MetricsAddr != ":9464" {
		t.Errorf("expected MetricsAddr :9464, got %s", cfg.MetricsAddr)
	}
	if !cfg.Development {
		t.Error("expected Development true")
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0o644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err = LoadFromFile(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFromFilePartialConfig(t *testing.T) {
	// Config file with only some values should use defaults for others
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.yaml")

	configContent := `
chrome_port: "9224"
output_dir: "./partial_logs"
`

	err := os.WriteFile(configPath, []byte(configContent), 0o644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.ChromePort != "9224" {
		t.Errorf("expected ChromePort 9224, got %s", cfg.ChromePort)
	}
	if cfg.OutputDir != "./partial_logs" {
		t.Errorf("expected OutputDir ./partial_logs, got %s", cfg.OutputDir)
	}

	// Verify defaults are preserved
	if cfg.Redact != true {
		t.Errorf("expected Redact default true, got %v", cfg.Redact)
	}
	if cfg.DocumentDepth != -1 {
		t.Errorf("expected DocumentDepth default -1, got %d", cfg.DocumentDepth)
	}
	if cfg.StyleReloadDelay != 20*time.Millisecond {
		t.Errorf("expected StyleReloadDelay default 20ms, got %v", cfg.StyleReloadDelay)
	}
}

func TestLoadFromFileEnvOverride(t *testing.T) {
	t.Setenv("DOM_TAIL_CHROME_PORT", "9333")
	t.Setenv("DOM_TAIL_PIERCE", "false")

	cfg, err := LoadFromFile("")
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.ChromePort != "9333" {
		t.Errorf("expected ChromePort 9333 from env, got %s", cfg.ChromePort)
	}
	if cfg.Pierce {
		t.Error("expected Pierce false from env")
	}
}

func TestLoadFromFileRejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(configPath, []byte("document_depth: 0\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected validation error for document_depth 0")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty chrome port",
			modify:  func(c *Config) { c.ChromePort = "" },
			wantErr: true,
		},
		{
			name:    "empty output dir",
			modify:  func(c *Config) { c.OutputDir = "" },
			wantErr: true,
		},
		{
			name:    "buffer size too small",
			modify:  func(c *Config) { c.BufferSize = 100 },
			wantErr: true,
		},
		{
			name:    "zero flush interval",
			modify:  func(c *Config) { c.FlushInterval = 0 },
			wantErr: true,
		},
		{
			name:    "zero document depth",
			modify:  func(c *Config) { c.DocumentDepth = 0 },
			wantErr: true,
		},
		{
			name:    "negative document depth",
			modify:  func(c *Config) { c.DocumentDepth = -2 },
			wantErr: true,
		},
		{
			name:    "positive document depth",
			modify:  func(c *Config) { c.DocumentDepth = 3 },
			wantErr: false,
		},
		{
			name:    "negative style reload delay",
			modify:  func(c *Config) { c.StyleReloadDelay = -time.Millisecond },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
