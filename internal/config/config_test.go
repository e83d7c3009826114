package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	// No config file: defaults apply
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if !cfg.Discovery.Enabled {
		t.Error("expected discovery to be enabled by default")
	}
	if cfg.Discovery.Cache.TTL != 3600 {
		t.Errorf("expected default cache ttl 3600, got %d", cfg.Discovery.Cache.TTL)
	}
	if cfg.Discovery.Cache.Backend != "memory" {
		t.Errorf("expected default backend memory, got %s", cfg.Discovery.Cache.Backend)
	}
	if !cfg.Discovery.Features.EmbedFields || !cfg.Discovery.Features.Scopes {
		t.Error("expected every discovery feature enabled by default")
	}
	if cfg.Introspection.Driver != "none" {
		t.Errorf("expected default driver none, got %s", cfg.Introspection.Driver)
	}
	if len(cfg.Introspection.Schemas) != 1 || cfg.Introspection.Schemas[0] != "public" {
		t.Errorf("expected default schemas [public], got %v", cfg.Introspection.Schemas)
	}
	if cfg.Ops.Addr != ":8085" {
		t.Errorf("expected default ops addr :8085, got %s", cfg.Ops.Addr)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected default model gpt-4o-mini, got %s", cfg.LLM.Model)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	configContent := `
discovery:
  enabled: false
  generate_examples: false
  static_table: config/entities.yml
  cache:
    ttl: 60
    backend: Redis
    redis:
      addr: redis:6379
  features:
    aliases: false
  alias_mappings:
    Person: [human, folk]
  exclude_properties: [ssn]
introspection:
  driver: postgres
  dsn: postgres://localhost/app
  schemas: [public, crm]
log:
  level: debug
`
	os.WriteFile("scopegraph.yml", []byte(configContent), 0644)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.Discovery.Enabled {
		t.Error("expected discovery to be disabled")
	}
	if cfg.Discovery.Cache.TTLDuration().Seconds() != 60 {
		t.Errorf("expected ttl 60s, got %s", cfg.Discovery.Cache.TTLDuration())
	}
	if cfg.Discovery.Cache.Backend != "redis" {
		t.Errorf("expected backend to be normalized to redis, got %s", cfg.Discovery.Cache.Backend)
	}
	if cfg.Discovery.Cache.Redis.Addr != "redis:6379" {
		t.Errorf("expected redis addr redis:6379, got %s", cfg.Discovery.Cache.Redis.Addr)
	}
	if cfg.Discovery.Features.Aliases {
		t.Error("expected aliases to be disabled")
	}
	if !cfg.Discovery.Features.Properties {
		t.Error("expected unset features to keep their default")
	}
	// viper lower-cases map keys
	if got := cfg.Discovery.AliasMappings["person"]; len(got) != 2 {
		t.Errorf("expected two alias mappings for person, got %v", got)
	}
	if len(cfg.Introspection.Schemas) != 2 {
		t.Errorf("expected two schemas, got %v", cfg.Introspection.Schemas)
	}

	if !filepath.IsAbs(cfg.Discovery.StaticTable) ||
		!strings.HasSuffix(cfg.Discovery.StaticTable, filepath.Join("config", "entities.yml")) {
		t.Errorf("expected static table resolved against the config directory, got %s", cfg.Discovery.StaticTable)
	}
}

func TestLoadExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	os.WriteFile(path, []byte("ops:\n  addr: \":9999\"\n"), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Ops.Addr != ":9999" {
		t.Errorf("expected addr :9999, got %s", cfg.Ops.Addr)
	}
}

func TestLoadExplicitPathMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}

func TestLoadEnvironmentOverride(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	t.Setenv("SCOPEGRAPH_DISCOVERY_CACHE_TTL", "120")
	t.Setenv("SCOPEGRAPH_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Discovery.Cache.TTL != 120 {
		t.Errorf("expected ttl 120 from environment, got %d", cfg.Discovery.Cache.TTL)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected log level warn from environment, got %s", cfg.Log.Level)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"negative ttl", "discovery:\n  cache:\n    ttl: -1\n", "discovery.cache.ttl"},
		{"negative introspection ttl", "introspection:\n  cache_ttl: -5\n", "introspection.cache_ttl"},
		{"unknown backend", "discovery:\n  cache:\n    backend: memcached\n", "discovery.cache.backend"},
		{"unknown driver", "introspection:\n  driver: oracle\n  dsn: x\n", "introspection.driver"},
		{"driver without dsn", "introspection:\n  driver: sqlite\n", "introspection.dsn"},
		{"short jwt secret", "ops:\n  jwt_secret: short\n", "ops.jwt_secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scopegraph.yml")
			os.WriteFile(path, []byte(tt.content), 0644)

			_, err := Load(path)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	os.MkdirAll(nested, 0755)
	os.WriteFile(filepath.Join(root, "scopegraph.yaml"), []byte("{}\n"), 0644)

	oldWd, _ := os.Getwd()
	os.Chdir(nested)
	defer os.Chdir(oldWd)

	path, err := FindConfigFile()
	if err != nil {
		t.Fatalf("expected to find config file, got %v", err)
	}
	if filepath.Base(path) != "scopegraph.yaml" {
		t.Errorf("expected scopegraph.yaml, got %s", path)
	}
}
