package filters

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/config"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
)

// NodeSource enumerates nodes in a stable order
type NodeSource interface {
	ForEachNode(fn func(node *entities.Node))
}

// FacetOption is one observed value of a facet with its two counts
type FacetOption struct {
	Value                 string `json:"value"`
	CountAll              int    `json:"countAll"`
	CountWithOtherFilters int    `json:"countWithOtherFilters"`
}

// FacetGroup is a facet key with its observed values in first-seen order
type FacetGroup struct {
	Key    string        `json:"key"`
	Values []FacetOption `json:"values"`
}

// Indexer discovers facet keys and counts facet values
type Indexer struct {
	candidates  []string
	reserved    map[string]struct{}
	minCoverage float64
	minDistinct int
	sampleLimit int
	logger      *zap.Logger
}

// NewIndexer creates an indexer from the domain configuration
func NewIndexer(cfg *config.DomainConfig, logger *zap.Logger) *Indexer {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	reserved := make(map[string]struct{}, len(cfg.ReservedKeys))
	for _, k := range cfg.ReservedKeys {
		reserved[k] = struct{}{}
	}
	return &Indexer{
		candidates:  append([]string(nil), cfg.FacetCandidates...),
		reserved:    reserved,
		minCoverage: cfg.FacetMinCoverage,
		minDistinct: cfg.FacetMinDistinct,
		sampleLimit: cfg.FacetSampleLimit,
		logger:      logger,
	}
}

// SampleLimit returns the configured discovery sample size
func (ix *Indexer) SampleLimit() int { return ix.sampleLimit }

// DiscoverFacetKeys scans up to sampleLimit nodes and returns the allowed
// keys with enough distinct values and coverage, in allow-list order.
// A non-positive sampleLimit uses the configured one.
func (ix *Indexer) DiscoverFacetKeys(src NodeSource, sampleLimit int) []string {
	if sampleLimit <= 0 {
		sampleLimit = ix.sampleLimit
	}

	candidates := make([]string, 0, len(ix.candidates))
	for _, k := range ix.candidates {
		if _, skip := ix.reserved[k]; !skip {
			candidates = append(candidates, k)
		}
	}

	present := make(map[string]int, len(candidates))
	distinct := make(map[string]map[string]struct{}, len(candidates))
	sampled := 0

	src.ForEachNode(func(node *entities.Node) {
		if sampled >= sampleLimit {
			return
		}
		sampled++
		for _, key := range candidates {
			v, ok := node.Lookup(key)
			if !ok {
				continue
			}
			present[key]++
			set := distinct[key]
			if set == nil {
				set = make(map[string]struct{})
				distinct[key] = set
			}
			for _, s := range v.Strings() {
				set[s] = struct{}{}
			}
		}
	})

	threshold := float64(sampled) * ix.minCoverage
	keys := make([]string, 0, len(candidates))
	for _, key := range candidates {
		if present[key] == 0 {
			continue
		}
		if len(distinct[key]) >= ix.minDistinct && float64(present[key]) >= threshold {
			keys = append(keys, key)
		}
	}
	return keys
}

// BuildFacetIndex counts every value of every key. CountWithOtherFilters
// uses the predicate that excludes the facet's own constraint. A facet
// whose computation fails is omitted.
func (ix *Indexer) BuildFacetIndex(src NodeSource, keys []string, factory PredicateFactory) []FacetGroup {
	groups := make([]FacetGroup, 0, len(keys))
	for _, key := range keys {
		group, err := ix.buildGroup(src, key, factory)
		if err != nil {
			ix.logger.Warn("Facet computation failed, omitting facet",
				zap.String("facet", key),
				zap.Error(err),
			)
			continue
		}
		groups = append(groups, group)
	}
	return groups
}

func (ix *Indexer) buildGroup(src NodeSource, key string, factory PredicateFactory) (group FacetGroup, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("facet %q: %v", key, r)
		}
	}()

	predicate := factory(key)
	order := make([]string, 0)
	all := make(map[string]int)
	with := make(map[string]int)

	src.ForEachNode(func(node *entities.Node) {
		v, ok := node.Lookup(key)
		if !ok {
			return
		}
		values := v.Strings()
		if len(values) == 0 {
			return
		}
		seen := make(map[string]struct{}, len(values))
		visible := predicate(node)
		for _, val := range values {
			if _, dup := seen[val]; dup {
				continue
			}
			seen[val] = struct{}{}
			if _, known := all[val]; !known {
				order = append(order, val)
			}
			all[val]++
			if visible {
				with[val]++
			}
		}
	})

	group = FacetGroup{Key: key, Values: make([]FacetOption, 0, len(order))}
	for _, val := range order {
		group.Values = append(group.Values, FacetOption{
			Value:                 val,
			CountAll:              all[val],
			CountWithOtherFilters: with[val],
		})
	}
	return group, nil
}
