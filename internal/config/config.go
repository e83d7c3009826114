// Package config loads the scopegraph configuration file and the static
// entity configuration table.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the base name of the configuration file
const FileName = "scopegraph"

// EnvPrefix prefixes every environment override: SCOPEGRAPH_DISCOVERY_ENABLED
const EnvPrefix = "SCOPEGRAPH"

// Config represents the scopegraph configuration
type Config struct {
	Discovery     Discovery     `mapstructure:"discovery"`
	Introspection Introspection `mapstructure:"introspection"`
	Models        Models        `mapstructure:"models"`
	LLM           LLM           `mapstructure:"llm"`
	Ops           Ops           `mapstructure:"ops"`
	Log           Log           `mapstructure:"log"`
}

// Discovery configures automatic configuration discovery
type Discovery struct {
	Enabled           bool                `mapstructure:"enabled"`
	GenerateExamples  bool                `mapstructure:"generate_examples"`
	Cache             Cache               `mapstructure:"cache"`
	Features          Features            `mapstructure:"features"`
	AliasMappings     map[string][]string `mapstructure:"alias_mappings"`
	ExcludeProperties []string            `mapstructure:"exclude_properties"`
	StaticTable       string              `mapstructure:"static_table"`
}

// Cache configures the discovery cache
type Cache struct {
	Enabled bool   `mapstructure:"enabled"`
	TTL     int    `mapstructure:"ttl"`
	Backend string `mapstructure:"backend"`
	Redis   Redis  `mapstructure:"redis"`
}

// TTLDuration returns the cache TTL as a duration
func (c Cache) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// Redis configures the Redis cache backend
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Features toggles individual discovery facets
type Features struct {
	Properties    bool `mapstructure:"properties"`
	Relationships bool `mapstructure:"relationships"`
	Scopes        bool `mapstructure:"scopes"`
	Aliases       bool `mapstructure:"aliases"`
	EmbedFields   bool `mapstructure:"embed_fields"`
}

// Introspection configures the schema introspector
type Introspection struct {
	Driver   string   `mapstructure:"driver"`
	DSN      string   `mapstructure:"dsn"`
	Schemas  []string `mapstructure:"schemas"`
	CacheTTL int      `mapstructure:"cache_ttl"`
	Retries  int      `mapstructure:"retries"`
	Neo4j    Neo4j    `mapstructure:"neo4j"`
}

// Neo4j holds the Neo4j credentials
type Neo4j struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// Models points at the model manifest
type Models struct {
	Manifest string `mapstructure:"manifest"`
}

// LLM configures the query generator backend
type LLM struct {
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// Ops configures the HTTP ops server
type Ops struct {
	Addr      string `mapstructure:"addr"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Log configures logging
type Log struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Supported backends and drivers
var (
	CacheBackends = []string{"memory", "redis"}
	Drivers       = []string{"none", "postgres", "sqlite", "neo4j"}
)

// minJWTSecretLength is the shortest HS256 secret accepted
const minJWTSecretLength = 16

// New returns a viper instance with defaults, env bindings and the config
// search path set. path may name an explicit file.
func New(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("discovery.enabled", true)
	v.SetDefault("discovery.generate_examples", true)
	v.SetDefault("discovery.cache.enabled", true)
	v.SetDefault("discovery.cache.ttl", 3600)
	v.SetDefault("discovery.cache.backend", "memory")
	v.SetDefault("discovery.cache.redis.addr", "localhost:6379")
	v.SetDefault("discovery.cache.redis.db", 0)
	v.SetDefault("discovery.cache.redis.prefix", "scopegraph:")
	v.SetDefault("discovery.features.properties", true)
	v.SetDefault("discovery.features.relationships", true)
	v.SetDefault("discovery.features.scopes", true)
	v.SetDefault("discovery.features.aliases", true)
	v.SetDefault("discovery.features.embed_fields", true)
	v.SetDefault("discovery.alias_mappings", map[string][]string{})
	v.SetDefault("discovery.exclude_properties", []string{})
	v.SetDefault("discovery.static_table", "")

	v.SetDefault("introspection.driver", "none")
	v.SetDefault("introspection.dsn", "")
	v.SetDefault("introspection.schemas", []string{"public"})
	v.SetDefault("introspection.cache_ttl", 3600)
	v.SetDefault("introspection.retries", 2)
	v.SetDefault("introspection.neo4j.username", "neo4j")
	v.SetDefault("introspection.neo4j.password", "")
	v.SetDefault("introspection.neo4j.database", "")

	v.SetDefault("models.manifest", "models.yml")

	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")

	v.SetDefault("ops.addr", ":8085")
	v.SetDefault("ops.jwt_secret", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load loads the configuration from scopegraph.yml (or the explicit path).
// A missing default file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	return LoadFrom(New(path))
}

// LoadFrom reads and decodes the configuration of an existing viper instance
func LoadFrom(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return Decode(v)
}

// Decode unmarshals and validates the current state of v
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	// Relative paths resolve against the config file's directory
	if file := v.ConfigFileUsed(); file != "" {
		dir := filepath.Dir(file)
		cfg.Discovery.StaticTable = resolvePath(dir, cfg.Discovery.StaticTable)
		cfg.Models.Manifest = resolvePath(dir, cfg.Models.Manifest)
	}
	return &cfg, nil
}

func resolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// FindConfigFile walks up from the working directory looking for
// scopegraph.yml or scopegraph.yaml
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, ext := range []string{".yml", ".yaml"} {
			candidate := filepath.Join(dir, FileName+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s.yml found", FileName)
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Discovery.Cache.TTL < 0 {
		return fmt.Errorf("discovery.cache.ttl must not be negative, got: %d", cfg.Discovery.Cache.TTL)
	}
	if cfg.Introspection.CacheTTL < 0 {
		return fmt.Errorf("introspection.cache_ttl must not be negative, got: %d", cfg.Introspection.CacheTTL)
	}
	if cfg.Introspection.Retries < 0 {
		return fmt.Errorf("introspection.retries must not be negative, got: %d", cfg.Introspection.Retries)
	}

	cfg.Discovery.Cache.Backend = strings.ToLower(cfg.Discovery.Cache.Backend)
	if !oneOf(cfg.Discovery.Cache.Backend, CacheBackends) {
		return fmt.Errorf("discovery.cache.backend must be one of %s, got: %s",
			strings.Join(CacheBackends, ", "), cfg.Discovery.Cache.Backend)
	}

	cfg.Introspection.Driver = strings.ToLower(cfg.Introspection.Driver)
	if cfg.Introspection.Driver == "" {
		cfg.Introspection.Driver = "none"
	}
	if !oneOf(cfg.Introspection.Driver, Drivers) {
		return fmt.Errorf("introspection.driver must be one of %s, got: %s",
			strings.Join(Drivers, ", "), cfg.Introspection.Driver)
	}
	if cfg.Introspection.Driver != "none" && cfg.Introspection.DSN == "" {
		return fmt.Errorf("introspection.dsn is required for driver %s", cfg.Introspection.Driver)
	}

	if secret := cfg.Ops.JWTSecret; secret != "" && len(secret) < minJWTSecretLength {
		return fmt.Errorf("ops.jwt_secret must be at least %d bytes", minJWTSecretLength)
	}
	return nil
}

func oneOf(s string, values []string) bool {
	for _, v := range values {
		if s == v {
			return true
		}
	}
	return false
}
