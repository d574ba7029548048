package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vango-dev/counter/internal/errors"
	"github.com/vango-dev/counter/pkg/counter"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "counter.json"

	// EnvConfig names a config file to use instead of searching for one.
	EnvConfig = "COUNTER_CONFIG"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultBackend is the default persistence backend.
	DefaultBackend = BackendFile

	// DefaultDir is the default directory of the file backend.
	DefaultDir = ".counter"

	// DefaultHistory is how many devtools events the hub replays.
	DefaultHistory = 100
)

// Persistence backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
	BackendRedis  = "redis"
)

// Config represents the complete counter.json configuration.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `json:"server"`

	// Persist selects and configures the durable medium.
	Persist PersistConfig `json:"persist"`

	// Devtools configures the inspection channel.
	Devtools DevtoolsConfig `json:"devtools"`

	// Metrics configures the Prometheus inspector and /metrics.
	Metrics MetricsConfig `json:"metrics"`

	// Tracing configures OpenTelemetry spans.
	Tracing TracingConfig `json:"tracing"`

	// Log configures the process logger.
	Log LogConfig `json:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

// PersistConfig contains persistence settings. Which fields matter depends
// on Backend.
type PersistConfig struct {
	// Backend is one of memory, file, sqlite, s3, redis.
	Backend string `json:"backend,omitempty"`

	// Key is the storage key. Default: counter-storage.
	Key string `json:"key,omitempty"`

	// Dir is the file backend directory, relative to the config file.
	Dir string `json:"dir,omitempty"`

	// DSN is the sqlite data source name.
	DSN string `json:"dsn,omitempty"`

	// Bucket, Prefix, Region and Endpoint configure the s3 backend.
	// Prefix is also the redis key prefix.
	Bucket   string `json:"bucket,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`

	// Addr and DB configure the redis backend.
	Addr string `json:"addr,omitempty"`
	DB   int    `json:"db,omitempty"`
}

// DevtoolsConfig configures the inspection channel.
type DevtoolsConfig struct {
	// Enabled serves the inspector hub at /devtools.
	Enabled bool `json:"enabled"`

	// Name is the store name reported to inspectors.
	Name string `json:"name,omitempty"`

	// Log also writes every transition to the logger at debug level.
	Log bool `json:"log,omitempty"`

	// History is how many events a new inspector client receives.
	History int `json:"history,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing. Spans go to the global
// tracer provider.
type TracingConfig struct {
	Enabled    bool   `json:"enabled"`
	TracerName string `json:"tracerName,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{
		Devtools: DevtoolsConfig{Enabled: true},
		Metrics:  MetricsConfig{Enabled: true},
	}
	c.applyDefaults()
	return c
}

// Load reads configuration from the specified directory.
// It looks for counter.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No " + filepath.Base(path) + " found in " + filepath.Dir(path)).
				WithSuggestion("Create counter.json or run without --config to use defaults")
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E101").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that the file is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Resolve finds the configuration to use. An explicit path wins, then
// $COUNTER_CONFIG, then counter.json in the working directory or a parent.
// When none of these exist the defaults are returned.
func Resolve(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		return LoadFile(path)
	}

	cfg, err := LoadFromWorkingDir()
	if errors.Code(err) == "E100" {
		return New(), nil
	}
	return cfg, err
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E101").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E101").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}

	if c.Persist.Backend == "" {
		c.Persist.Backend = DefaultBackend
	}
	c.Persist.Backend = strings.ToLower(c.Persist.Backend)
	if c.Persist.Key == "" {
		c.Persist.Key = counter.StorageKey
	}
	if c.Persist.Backend == BackendFile && c.Persist.Dir == "" {
		c.Persist.Dir = DefaultDir
	}

	if c.Devtools.Name == "" {
		c.Devtools.Name = "counter"
	}
	if c.Devtools.History == 0 {
		c.Devtools.History = DefaultHistory
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "counter"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E102").
			WithDetail("Port must be between 0 and 65535, got " + strconv.Itoa(c.Server.Port))
	}

	switch c.Persist.Backend {
	case BackendMemory, BackendFile:
	case BackendSQLite:
		if c.Persist.DSN == "" {
			return errors.New("E104").
				WithDetail("persist.dsn is required for the sqlite backend").
				WithSuggestion(`Set "dsn": "counter.db" in the persist section`)
		}
	case BackendS3:
		if c.Persist.Bucket == "" {
			return errors.New("E104").
				WithDetail("persist.bucket is required for the s3 backend")
		}
		if c.Persist.Region == "" && c.Persist.Endpoint == "" {
			return errors.New("E104").
				WithDetail("persist.region or persist.endpoint is required for the s3 backend")
		}
	case BackendRedis:
		if c.Persist.Addr == "" {
			return errors.New("E104").
				WithDetail("persist.addr is required for the redis backend").
				WithSuggestion(`Set "addr": "localhost:6379" in the persist section`)
		}
	default:
		return errors.New("E103").
			WithDetail("Unknown backend " + strconv.Quote(c.Persist.Backend))
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("E105").
			WithDetail("Unknown log format " + strconv.Quote(c.Log.Format))
	}
	return nil
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// resolve makes p absolute relative to the config file's directory.
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir() == "" {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing counter.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E100").
				WithDetail("No counter.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
