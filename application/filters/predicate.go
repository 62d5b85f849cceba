package filters

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/valueobjects"
)

// Subject is the read-only view of a node that predicates inspect
type Subject interface {
	Key() string
	Lookup(name string) (valueobjects.Value, bool)
	Flatten() valueobjects.Attributes
}

// Predicate decides whether a node is visible
type Predicate func(node Subject) bool

// PredicateFactory builds the predicate of every active filter except the
// named facet; an empty name excludes nothing
type PredicateFactory func(exclude string) Predicate

// Selection maps a facet key to its accepted values. A missing key or an
// empty set places no restriction on that facet.
type Selection map[string]map[string]struct{}

// NewSelection builds a selection from value lists
func NewSelection(values map[string][]string) Selection {
	sel := make(Selection, len(values))
	for key, vals := range values {
		sel.Set(key, vals)
	}
	return sel
}

// Set replaces the accepted values of a facet
func (s Selection) Set(key string, values []string) {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	s[key] = set
}

// Clone returns a deep copy
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for key, set := range s {
		cp := make(map[string]struct{}, len(set))
		for v := range set {
			cp[v] = struct{}{}
		}
		out[key] = cp
	}
	return out
}

// Without returns a copy lacking the named facet
func (s Selection) Without(key string) Selection {
	out := s.Clone()
	delete(out, key)
	return out
}

// Values returns the accepted values of every facet, sorted
func (s Selection) Values() map[string][]string {
	out := make(map[string][]string, len(s))
	for key, set := range s {
		vals := make([]string, 0, len(set))
		for v := range set {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		out[key] = vals
	}
	return out
}

// Active reports whether any facet restricts the result
func (s Selection) Active() bool {
	for _, set := range s {
		if len(set) > 0 {
			return true
		}
	}
	return false
}

// MakePredicate builds the facet and search predicate. Facets combine with
// AND, values within a facet with OR. A node lacking a restricted attribute
// does not match. Search is a case-insensitive substring of label or key.
func MakePredicate(selection Selection, search string) Predicate {
	type facet struct {
		key    string
		values map[string]struct{}
	}
	active := make([]facet, 0, len(selection))
	for key, set := range selection {
		if len(set) > 0 {
			active = append(active, facet{key: key, values: set})
		}
	}
	needle := strings.ToLower(strings.TrimSpace(search))

	return func(node Subject) bool {
		for _, f := range active {
			v, ok := node.Lookup(f.key)
			if !ok {
				return false
			}
			matched := false
			for _, s := range v.Strings() {
				if _, hit := f.values[s]; hit {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
		if needle == "" {
			return true
		}
		if strings.Contains(strings.ToLower(node.Key()), needle) {
			return true
		}
		label, ok := node.Lookup(entities.AttrLabel)
		return ok && strings.Contains(strings.ToLower(label.String()), needle)
	}
}

// And combines predicates; nil entries are skipped
func And(preds ...Predicate) Predicate {
	live := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			live = append(live, p)
		}
	}
	return func(node Subject) bool {
		for _, p := range live {
			if !p(node) {
				return false
			}
		}
		return true
	}
}

// Safe guards a predicate so that a panic treats the node as visible
func Safe(p Predicate, logger *zap.Logger) Predicate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(node Subject) (visible bool) {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn("Predicate failed, keeping node visible",
					zap.String("nodeKey", node.Key()),
					zap.Any("panic", r),
				)
				visible = true
			}
		}()
		return p(node)
	}
}
