// Package config loads the application configuration from layered YAML
// files and environment variables, validates it and hot reloads it in
// development.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/layout"
	domainconfig "github.com/SubjectCarterSoftware/WhoOwnsThis/domain/config"
	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// Environment names a deployment environment
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config holds all application configuration
type Config struct {
	Environment   Environment   `yaml:"environment" validate:"required,oneof=development staging production"`
	Server        Server        `yaml:"server"`
	Log           Log           `yaml:"log"`
	Graph         Graph         `yaml:"graph"`
	Filters       Filters       `yaml:"filters"`
	Layout        Layout        `yaml:"layout"`
	Snapshot      Snapshot      `yaml:"snapshot"`
	Registry      Registry      `yaml:"registry"`
	Files         Files         `yaml:"files"`
	Events        Events        `yaml:"events"`
	Observability Observability `yaml:"observability"`

	// LoadedFrom lists the sources applied, lowest priority first
	LoadedFrom []string `yaml:"-"`
}

// Server configures the HTTP listener
type Server struct {
	Address         string        `yaml:"address" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// Log configures zap
type Log struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// Graph configures the document and history
type Graph struct {
	DefaultName   string  `yaml:"default_name"`
	MaxHistory    int     `yaml:"max_history" validate:"min=1"`
	SizeFloor     float64 `yaml:"size_floor" validate:"gt=0"`
	DefaultSize   float64 `yaml:"default_size" validate:"gtefield=SizeFloor"`
	NodeKeyPrefix string  `yaml:"node_key_prefix" validate:"required"`
	EdgeKeyPrefix string  `yaml:"edge_key_prefix" validate:"required"`
}

// Filters configures facet discovery and the filter sync
type Filters struct {
	SampleLimit int           `yaml:"sample_limit" validate:"min=1"`
	MinCoverage float64       `yaml:"min_coverage" validate:"gte=0,lte=1"`
	MinDistinct int           `yaml:"min_distinct" validate:"min=1"`
	Candidates  []string      `yaml:"candidates" validate:"dive,required"`
	Reserved    []string      `yaml:"reserved" validate:"dive,required"`
	Debounce    time.Duration `yaml:"debounce" validate:"gte=0"`
}

// Layout configures the iterative layout
type Layout struct {
	Tick                time.Duration `yaml:"tick" validate:"gt=0"`
	Gravity             float64       `yaml:"gravity" validate:"gte=0"`
	ScalingRatio        float64       `yaml:"scaling_ratio" validate:"gt=0"`
	SlowDown            float64       `yaml:"slow_down" validate:"gt=0"`
	StrongGravity       bool          `yaml:"strong_gravity"`
	LinLog              bool          `yaml:"lin_log"`
	EdgeWeightInfluence float64       `yaml:"edge_weight_influence" validate:"gte=0"`
	MaxDisplacement     float64       `yaml:"max_displacement" validate:"gt=0"`
}

// Snapshot configures the local snapshot slot
type Snapshot struct {
	Backend       string        `yaml:"backend" validate:"oneof=none memory badger redis"`
	Key           string        `yaml:"key" validate:"required"`
	BadgerPath    string        `yaml:"badger_path" validate:"required_if=Backend badger"`
	RedisAddr     string        `yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB       int           `yaml:"redis_db" validate:"gte=0"`
	AutosaveDelay time.Duration `yaml:"autosave_delay" validate:"gte=0"`
}

// Registry configures the node-type override document
type Registry struct {
	Location     string        `yaml:"location"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
}

// Files configures where graph documents are opened, saved and loaded from
type Files struct {
	Root string `yaml:"root" validate:"required"`
}

// Events configures the change-event export
type Events struct {
	Enabled bool   `yaml:"enabled"`
	BusName string `yaml:"bus_name" validate:"required_if=Enabled true"`
	Region  string `yaml:"region"`
	Source  string `yaml:"source" validate:"required"`
}

// Observability configures metrics and tracing
type Observability struct {
	Metrics      bool   `yaml:"metrics"`
	Tracing      bool   `yaml:"tracing"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name" validate:"required"`
}

// Default returns a configuration that runs without any files
func Default(env Environment) *Config {
	domain := domainconfig.DefaultDomainConfig()
	fa2 := layout.DefaultSettings()
	return &Config{
		Environment: env,
		Server: Server{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Log: Log{Level: "info"},
		Graph: Graph{
			DefaultName:   domain.DefaultGraphName,
			MaxHistory:    domain.MaxHistory,
			SizeFloor:     domain.SizeFloor,
			DefaultSize:   domain.DefaultSize,
			NodeKeyPrefix: domain.NodeKeyPrefix,
			EdgeKeyPrefix: domain.EdgeKeyPrefix,
		},
		Filters: Filters{
			SampleLimit: domain.FacetSampleLimit,
			MinCoverage: domain.FacetMinCoverage,
			MinDistinct: domain.FacetMinDistinct,
			Candidates:  domain.FacetCandidates,
			Reserved:    domain.ReservedKeys,
			Debounce:    domain.FilterDebounce,
		},
		Layout: Layout{
			Tick:                domain.LayoutTick,
			Gravity:             fa2.Gravity,
			ScalingRatio:        fa2.ScalingRatio,
			SlowDown:            fa2.SlowDown,
			EdgeWeightInfluence: fa2.EdgeWeightInfluence,
			MaxDisplacement:     fa2.MaxDisplacement,
		},
		Snapshot: Snapshot{
			Backend:       "memory",
			Key:           "ownershipmap-autosave",
			BadgerPath:    "data/snapshots",
			RedisAddr:     "localhost:6379",
			AutosaveDelay: 2 * time.Second,
		},
		Registry: Registry{FetchTimeout: 5 * time.Second},
		Files:    Files{Root: "data/documents"},
		Events: Events{
			BusName: "default",
			Region:  "us-east-1",
			Source:  "whoownsthis.graph",
		},
		Observability: Observability{
			Metrics:     true,
			ServiceName: "whoownsthis",
		},
	}
}

// applyEnvironmentDefaults adjusts defaults that differ per environment
func (c *Config) applyEnvironmentDefaults() {
	if c.Environment == Development && c.Log.Level == "info" {
		c.Log.Level = "debug"
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every section against its rules
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.NewValidationError("invalid configuration").WithCause(err)
	}
	fields := make(map[string]interface{}, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := strings.TrimPrefix(fe.Namespace(), "Config.")
		fields[ns] = fe.Tag()
		msgs = append(msgs, fmt.Sprintf("%s failed %q", ns, fe.Tag()))
	}
	return pkgerrors.NewValidationError("invalid configuration: " + strings.Join(msgs, "; ")).
		WithCode("INVALID_CONFIG").
		WithDetails(fields)
}

// IsDevelopment reports whether hot reloading applies
func (c *Config) IsDevelopment() bool { return c.Environment == Development }

// IsProduction reports whether running in production
func (c *Config) IsProduction() bool { return c.Environment == Production }

// DomainConfig derives the domain rules from the graph and filter sections
func (c *Config) DomainConfig() *domainconfig.DomainConfig {
	d := domainconfig.DefaultDomainConfig()
	if c.Graph.DefaultName != "" {
		d.DefaultGraphName = c.Graph.DefaultName
	}
	d.NodeKeyPrefix = c.Graph.NodeKeyPrefix
	d.EdgeKeyPrefix = c.Graph.EdgeKeyPrefix
	d.SizeFloor = c.Graph.SizeFloor
	d.DefaultSize = c.Graph.DefaultSize
	d.MaxHistory = c.Graph.MaxHistory
	d.FacetSampleLimit = c.Filters.SampleLimit
	d.FacetMinCoverage = c.Filters.MinCoverage
	d.FacetMinDistinct = c.Filters.MinDistinct
	if len(c.Filters.Candidates) > 0 {
		d.FacetCandidates = append([]string(nil), c.Filters.Candidates...)
	}
	if len(c.Filters.Reserved) > 0 {
		d.ReservedKeys = append([]string(nil), c.Filters.Reserved...)
	}
	d.FilterDebounce = c.Filters.Debounce
	d.LayoutTick = c.Layout.Tick
	return d
}

// LayoutSettings derives the ForceAtlas2 settings
func (c *Config) LayoutSettings() layout.Settings {
	return layout.Settings{
		Gravity:             c.Layout.Gravity,
		ScalingRatio:        c.Layout.ScalingRatio,
		SlowDown:            c.Layout.SlowDown,
		StrongGravity:       c.Layout.StrongGravity,
		LinLog:              c.Layout.LinLog,
		EdgeWeightInfluence: c.Layout.EdgeWeightInfluence,
		MaxDisplacement:     c.Layout.MaxDisplacement,
	}
}
