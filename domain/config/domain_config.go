package config

import (
	"time"

	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// DomainConfig holds the tunable rules of the graph editor
type DomainConfig struct {
	// Document
	DefaultGraphName string
	NodeKeyPrefix    string
	EdgeKeyPrefix    string

	// Node attributes
	SizeFloor   float64
	DefaultSize float64

	// History
	MaxHistory int

	// Facets
	FacetSampleLimit int
	FacetMinCoverage float64
	FacetMinDistinct int
	FacetCandidates  []string
	ReservedKeys     []string

	// Timing
	FilterDebounce time.Duration
	LayoutTick     time.Duration
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		DefaultGraphName: "Untitled Graph",
		NodeKeyPrefix:    "node:",
		EdgeKeyPrefix:    "edge:",

		SizeFloor:   14,
		DefaultSize: 16,

		MaxHistory: 50,

		FacetSampleLimit: 1000,
		FacetMinCoverage: 0.05,
		FacetMinDistinct: 2,
		FacetCandidates:  []string{"kind", "shape", "status", "team", "domain", "category", "tags"},
		ReservedKeys:     []string{"x", "y", "size", "color", "label", "hidden", "key", "id"},

		FilterDebounce: 100 * time.Millisecond,
		LayoutTick:     16 * time.Millisecond,
	}
}

// DevelopmentDomainConfig samples more nodes and keeps a deeper history
func DevelopmentDomainConfig() *DomainConfig {
	cfg := DefaultDomainConfig()
	cfg.FacetSampleLimit = 5000
	cfg.MaxHistory = 100
	return cfg
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// IsReserved reports whether name can never become a facet
func (c *DomainConfig) IsReserved(name string) bool {
	for _, k := range c.ReservedKeys {
		if k == name {
			return true
		}
	}
	return false
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	switch {
	case c.SizeFloor <= 0:
		return pkgerrors.NewValidationError("size floor must be positive")
	case c.MaxHistory < 1:
		return pkgerrors.NewValidationError("max history must be at least 1")
	case c.FacetSampleLimit < 1:
		return pkgerrors.NewValidationError("facet sample limit must be at least 1")
	case c.FacetMinCoverage < 0 || c.FacetMinCoverage > 1:
		return pkgerrors.NewValidationError("facet coverage must be within [0,1]")
	case c.FacetMinDistinct < 1:
		return pkgerrors.NewValidationError("facet distinct minimum must be at least 1")
	}
	return nil
}
