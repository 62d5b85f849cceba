package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileLoader decodes one configuration file format
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extension() string
}

// Loader applies configuration sources in order of increasing priority:
// defaults, base file, environment file, local file (development only),
// then environment variables.
type Loader struct {
	basePath    string
	environment Environment
	fileLoaders []FileLoader
	lookupEnv   func(string) (string, bool)
}

// NewLoader creates a loader reading files under basePath
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	return &Loader{
		basePath:    basePath,
		environment: env,
		fileLoaders: []FileLoader{YAMLLoader{}, JSONLoader{}},
		lookupEnv:   os.LookupEnv,
	}
}

// BasePath returns the configuration directory
func (l *Loader) BasePath() string { return l.basePath }

// Load builds and validates the configuration
func (l *Loader) Load() (*Config, error) {
	cfg := Default(l.environment)
	sources := []string{"defaults"}

	names := []string{"base", strings.ToLower(string(l.environment))}
	if l.environment == Development {
		names = append(names, "local")
	}
	for _, name := range names {
		path, err := l.loadFile(name, cfg)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", name, err)
		}
		sources = append(sources, path)
	}
	// a file may not move the process to another environment
	cfg.Environment = l.environment

	if l.applyEnvironmentVariables(cfg) {
		sources = append(sources, "environment")
	}
	cfg.LoadedFrom = sources
	cfg.applyEnvironmentDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFile(name string, cfg *Config) (string, error) {
	for _, loader := range l.fileLoaders {
		path := filepath.Join(l.basePath, name+"."+loader.Extension())
		file, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		err = loader.Load(file, cfg)
		file.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return path, nil
	}
	return "", fs.ErrNotExist
}

// applyEnvironmentVariables overlays the supported variables and reports
// whether any was set
func (l *Loader) applyEnvironmentVariables(cfg *Config) bool {
	applied := false
	str := func(key string, dst *string) {
		if v, ok := l.lookupEnv(key); ok && v != "" {
			*dst = v
			applied = true
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := l.lookupEnv(key); ok && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
				applied = true
			}
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := l.lookupEnv(key); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
				applied = true
			}
		}
	}

	str("SERVER_ADDRESS", &cfg.Server.Address)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("SNAPSHOT_BACKEND", &cfg.Snapshot.Backend)
	str("SNAPSHOT_KEY", &cfg.Snapshot.Key)
	str("BADGER_PATH", &cfg.Snapshot.BadgerPath)
	str("REDIS_ADDR", &cfg.Snapshot.RedisAddr)
	duration("AUTOSAVE_DELAY", &cfg.Snapshot.AutosaveDelay)
	str("REGISTRY_LOCATION", &cfg.Registry.Location)
	str("DOCUMENTS_ROOT", &cfg.Files.Root)
	boolean("EVENTS_ENABLED", &cfg.Events.Enabled)
	str("EVENT_BUS_NAME", &cfg.Events.BusName)
	str("AWS_REGION", &cfg.Events.Region)
	boolean("ENABLE_METRICS", &cfg.Observability.Metrics)
	boolean("ENABLE_TRACING", &cfg.Observability.Tracing)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Observability.OTLPEndpoint)
	if v, ok := l.lookupEnv("ALLOWED_ORIGINS"); ok && v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
		applied = true
	}
	return applied
}

// YAMLLoader decodes YAML files
type YAMLLoader struct{}

func (YAMLLoader) Load(reader io.Reader, target interface{}) error {
	return yaml.NewDecoder(reader).Decode(target)
}

func (YAMLLoader) Extension() string { return "yaml" }

// JSONLoader decodes JSON files
type JSONLoader struct{}

func (JSONLoader) Load(reader io.Reader, target interface{}) error {
	return json.NewDecoder(reader).Decode(target)
}

func (JSONLoader) Extension() string { return "json" }

// EnvironmentFromEnv reads ENVIRONMENT, defaulting to development
func EnvironmentFromEnv() Environment {
	switch env := Environment(strings.ToLower(os.Getenv("ENVIRONMENT"))); env {
	case Staging, Production:
		return env
	default:
		return Development
	}
}

// Load reads configuration from CONFIG_DIR (default "config") for the
// environment named by ENVIRONMENT
func Load() (*Config, error) {
	dir := os.Getenv("CONFIG_DIR")
	return NewLoader(dir, EnvironmentFromEnv()).Load()
}
