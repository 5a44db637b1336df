package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/flowengine/logger"
)

type engineSection struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	ElevatedRoles []string      `mapstructure:"elevated_roles"`
}

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Engine        engineSection `mapstructure:"engine"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	tests := []struct {
		name      string
		cfg       ServiceConfig
		wantEnv   string
		wantLevel string
		wantCall  bool
	}{
		{"empty", ServiceConfig{Name: "svc"}, EnvDevelopment, "info", false},
		{"explicit level kept", ServiceConfig{Name: "svc", Environment: EnvProduction, Logging: logger.Config{Level: "warn"}}, EnvProduction, "warn", false},
		{"debug overrides level", ServiceConfig{Name: "svc", Debug: true, Logging: logger.Config{Level: "warn"}}, EnvDevelopment, "debug", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.ApplyDefaults()
			if tc.cfg.Environment != tc.wantEnv {
				t.Errorf("environment = %q, want %q", tc.cfg.Environment, tc.wantEnv)
			}
			if tc.cfg.Logging.Level != tc.wantLevel || tc.cfg.Logging.Caller != tc.wantCall {
				t.Errorf("logging = %+v", tc.cfg.Logging)
			}
		})
	}
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr string
	}{
		{"valid", ServiceConfig{Name: "svc", Environment: "staging"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment must be one of"},
		{"debug in production", ServiceConfig{Name: "svc", Environment: EnvProduction, Debug: true}, "config.debug must be off"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: workflowd
environment: staging
engine:
  timeout: 90s
  elevated_roles: [admin, ops]
`)

	var cfg testConfig
	if err := LoadConfig("workflowd", &cfg, WithConfigFile(path), WithEnvPrefix("FLOWTEST")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "workflowd" {
		t.Errorf("expected name 'workflowd', got %q", cfg.Name)
	}
	if cfg.Engine.Timeout != 90*time.Second {
		t.Errorf("expected 90s timeout, got %v", cfg.Engine.Timeout)
	}
	if len(cfg.Engine.ElevatedRoles) != 2 {
		t.Errorf("expected 2 elevated roles, got %v", cfg.Engine.ElevatedRoles)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "name: workflowd\nengine:\n  timeout: 90s\n")
	t.Setenv("FLOWTEST_ENGINE_TIMEOUT", "2m")
	t.Setenv("ENGINE_TIMEOUT", "5m")

	var cfg testConfig
	if err := LoadConfig("workflowd", &cfg, WithConfigFile(path), WithEnvPrefix("FLOWTEST")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Engine.Timeout != 2*time.Minute {
		t.Errorf("expected prefixed env to win, got %v", cfg.Engine.Timeout)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "name: workflowd\n")
	envPath := writeFile(t, dir, ".env", "FLOWENVTEST_ENVIRONMENT=production\n")
	defer os.Unsetenv("FLOWENVTEST_ENVIRONMENT")

	var cfg testConfig
	err := LoadConfig("workflowd", &cfg, WithConfigFile(path), WithEnvFile(envPath), WithEnvPrefix("FLOWENVTEST"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Environment != "production" {
		t.Errorf("expected environment from .env, got %q", cfg.Environment)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"), WithEnvPrefix("NOPE"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "name: [unterminated\n")

	var cfg testConfig
	if err := LoadConfig("workflowd", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/workflowd/config.yml": true,
		"./.env":                     true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("workflowd", LoaderConfig{})
	if files.ConfigFile != "./cmd/workflowd/config.yml" {
		t.Errorf("expected config file at ./cmd/workflowd/config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env" {
		t.Errorf("expected env file ./.env, got %q", files.EnvFile)
	}
}

func TestResolverExplicitPathsWin(t *testing.T) {
	resolver := &Resolver{FileSystem: &mockFS{files: map[string]bool{"./config.yml": true}}}
	files := resolver.ResolveFiles("svc", LoaderConfig{ConfigFile: "/etc/svc.yml"})
	if files.ConfigFile != "/etc/svc.yml" {
		t.Errorf("expected explicit path, got %q", files.ConfigFile)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("ENGINE_ELEVATED_ROLES")
	want := []string{"engine_elevated_roles", "engine.elevated.roles", "engine.elevated_roles", "engine_elevated.roles"}
	for _, w := range want {
		found := false
		for _, g := range got {
			if g == w {
				found = true
			}
		}
		if !found {
			t.Errorf("expected variant %q in %v", w, got)
		}
	}
	if single := envKeyVariants("NAME"); len(single) != 1 || single[0] != "name" {
		t.Errorf("expected [name], got %v", single)
	}
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	WithEnvPrefix("flowengine_")(&lc)
	if lc.FileSystem == nil {
		t.Error("expected FileSystem to be set")
	}
	if lc.ConfigFile != "/path/to/config.yml" || lc.EnvFile != "/path/to/.env" {
		t.Errorf("unexpected paths: %+v", lc)
	}
	if lc.EnvPrefix != "FLOWENGINE" {
		t.Errorf("expected normalized prefix FLOWENGINE, got %q", lc.EnvPrefix)
	}
}
