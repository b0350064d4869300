package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds the indexsync configuration.
type Config struct {
	IndexName   string                      `yaml:"index_name" toml:"index_name"`
	Connections map[string]ConnectionConfig `yaml:"connections" toml:"connections"`
	Connection  string                      `yaml:"connection" toml:"connection"`
	Database    DatabaseConfig              `yaml:"database" toml:"database"`
	Bulk        BulkConfig                  `yaml:"bulk" toml:"bulk"`
	Notify      NotifyConfig                `yaml:"notify" toml:"notify"`
	HTTP        HTTPConfig                  `yaml:"http" toml:"http"`
	Auth        AuthConfig                  `yaml:"auth" toml:"auth"`
	LockDir     string                      `yaml:"lock_dir" toml:"lock_dir"`
	Logging     LoggingConfig               `yaml:"logging" toml:"logging"`
	Types       []TypeConfig                `yaml:"types" toml:"types"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings for admin routes.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys" toml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port" toml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec" toml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec" toml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec" toml:"shutdown_timeout_sec"`
}

// ConnectionConfig holds one named search backend connection.
type ConnectionConfig struct {
	Driver     string   `yaml:"driver" toml:"driver"` // redis, valkey, bleve
	Hosts      []string `yaml:"hosts" toml:"hosts"`
	TimeoutSec int      `yaml:"timeout_sec" toml:"timeout_sec"`
	Serializer string   `yaml:"serializer" toml:"serializer"` // text (default), json
	Username   string   `yaml:"username" toml:"username"`
	Password   string   `yaml:"password" toml:"password"`
	DB         int      `yaml:"db" toml:"db"`
	Dir        string   `yaml:"dir" toml:"dir"` // bleve only, empty = in memory
}

// DatabaseConfig holds the authoritative store connection.
type DatabaseConfig struct {
	Driver       string `yaml:"driver" toml:"driver"` // sqlite (modernc), sqlite3 (cgo)
	DSN          string `yaml:"dsn" toml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns" toml:"max_open_conns"`
}

// BulkConfig holds bulk indexing settings.
type BulkConfig struct {
	ChunkSize        int     `yaml:"chunk_size" toml:"chunk_size"`
	PageSize         int     `yaml:"page_size" toml:"page_size"`
	BatchesPerSecond float64 `yaml:"batches_per_second" toml:"batches_per_second"` // 0 = unlimited
}

// NotifyConfig holds change dispatcher settings.
type NotifyConfig struct {
	Workers int `yaml:"workers" toml:"workers"`
	Buffer  int `yaml:"buffer" toml:"buffer"`
}

// TypeConfig declares one indexable type backed by a table.
type TypeConfig struct {
	Namespace  string        `yaml:"namespace" toml:"namespace"`
	Name       string        `yaml:"name" toml:"name"`
	Table      string        `yaml:"table" toml:"table"`
	PrimaryKey string        `yaml:"primary_key" toml:"primary_key"`
	Parent     string        `yaml:"parent" toml:"parent"` // "<namespace>.<name>" of another type
	Abstract   bool          `yaml:"abstract" toml:"abstract"`
	Where      string        `yaml:"where" toml:"where"`
	Fields     []FieldConfig `yaml:"fields" toml:"fields"`
}

// Ref returns the "<namespace>.<name>" reference used by Parent.
func (t TypeConfig) Ref() string { return t.Namespace + "." + t.Name }

// FieldConfig declares one schema field.
type FieldConfig struct {
	Name   string `yaml:"name" toml:"name"`
	Type   string `yaml:"type" toml:"type"` // integer, long, float, boolean, keyword, text, date
	Column string `yaml:"column" toml:"column"`
}

// DefaultConnection is used when no connections are configured.
var DefaultConnection = ConnectionConfig{Driver: "redis", Hosts: []string{"localhost:9200"}}

var fieldTypes = map[string]bool{
	"integer": true, "long": true, "float": true, "boolean": true,
	"keyword": true, "text": true, "date": true,
}

var indexNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*$`)

// Load reads configuration by environment name (local, dev, prod) from
// config/<env>.yaml or config/<env>.toml.
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from a YAML or TOML file, chosen by extension.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.IndexName == "" {
		c.IndexName = "elastic"
	}
	if len(c.Connections) == 0 {
		def := DefaultConnection
		def.Hosts = append([]string(nil), DefaultConnection.Hosts...)
		c.Connections = map[string]ConnectionConfig{"default": def}
	}
	if c.Connection == "" {
		c.Connection = "default"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Bulk.ChunkSize <= 0 {
		c.Bulk.ChunkSize = 500
	}
	if c.Bulk.PageSize <= 0 {
		c.Bulk.PageSize = 1000
	}
	if c.Notify.Workers <= 0 {
		c.Notify.Workers = 4
	}
	if c.Notify.Buffer <= 0 {
		c.Notify.Buffer = 1000
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	for i := range c.Types {
		if c.Types[i].PrimaryKey == "" {
			c.Types[i].PrimaryKey = "id"
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if !indexNameRegex.MatchString(c.IndexName) {
		return fmt.Errorf("index_name %q must be lowercase letters, digits, '_' or '-'", c.IndexName)
	}
	if _, ok := c.Connections[c.Connection]; !ok {
		return fmt.Errorf("connection %q is not defined in connections", c.Connection)
	}
	for alias, conn := range c.Connections {
		switch conn.Driver {
		case "redis", "valkey":
			if len(conn.Hosts) == 0 {
				return fmt.Errorf("connections.%s.hosts is required", alias)
			}
		case "bleve":
		default:
			return fmt.Errorf("connections.%s.driver must be redis, valkey or bleve, got %q", alias, conn.Driver)
		}
		switch conn.Serializer {
		case "", "text", "json":
		default:
			return fmt.Errorf("connections.%s.serializer must be text or json, got %q", alias, conn.Serializer)
		}
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Bulk.BatchesPerSecond < 0 {
		return fmt.Errorf("bulk.batches_per_second must not be negative")
	}
	return c.validateTypes()
}

func (c *Config) validateTypes() error {
	seen := make(map[string]bool, len(c.Types))
	concrete := false
	for i, t := range c.Types {
		if t.Namespace == "" || t.Name == "" {
			return fmt.Errorf("types[%d]: namespace and name are required", i)
		}
		if seen[t.Ref()] {
			return fmt.Errorf("types[%d]: duplicate type %s", i, t.Ref())
		}
		seen[t.Ref()] = true
		if !t.Abstract {
			concrete = true
			if t.Table == "" {
				return fmt.Errorf("types.%s: table is required", t.Ref())
			}
		}
		names := make(map[string]bool, len(t.Fields))
		for _, f := range t.Fields {
			if f.Name == "" {
				return fmt.Errorf("types.%s: field name is required", t.Ref())
			}
			if names[f.Name] {
				return fmt.Errorf("types.%s: duplicate field %s", t.Ref(), f.Name)
			}
			names[f.Name] = true
			if !fieldTypes[f.Type] {
				return fmt.Errorf("types.%s.%s: unknown field type %q", t.Ref(), f.Name, f.Type)
			}
		}
	}
	// Parents may be declared after their children.
	for _, t := range c.Types {
		if t.Parent != "" && !seen[t.Parent] {
			return fmt.Errorf("types.%s: unknown parent %s", t.Ref(), t.Parent)
		}
	}
	if concrete && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when types are configured")
	}
	return nil
}

// findConfigPath locates the config file, preferring YAML over TOML.
func findConfigPath(env string) string {
	var candidates []string
	for _, ext := range []string{".yaml", ".toml"} {
		candidates = append(candidates, filepath.Join("config", env+ext))
	}

	// Relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	for _, ext := range []string{".yaml", ".toml"} {
		candidates = append(candidates, filepath.Join(projectRoot, "config", env+ext))
	}

	for _, path := range candidates {
		if fileExists(path) {
			return path
		}
	}
	return candidates[0]
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
