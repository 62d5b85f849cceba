package filters

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ChangeKind tells subscribers what part of the state moved
type ChangeKind int

const (
	// ChangeCriteria covers selection, search and expression changes
	ChangeCriteria ChangeKind = iota
	// ChangeFacets covers a newly published facet index
	ChangeFacets
)

// View is an immutable snapshot of the filter state
type View struct {
	Selected   map[string][]string `json:"selected"`
	Search     string              `json:"search"`
	Expression string              `json:"expression,omitempty"`
	Facets     []FacetGroup        `json:"facets"`
}

// State holds the facet selection, search text, optional expression and
// the last published facet index. Safe for concurrent use.
type State struct {
	mu         sync.RWMutex
	selected   Selection
	search     string
	expression *Expression
	facets     []FacetGroup

	listenerMu sync.Mutex
	listeners  map[int]func(ChangeKind)
	nextID     int

	logger *zap.Logger
}

// NewState creates an empty filter state
func NewState(logger *zap.Logger) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &State{
		selected:  Selection{},
		facets:    []FacetGroup{},
		listeners: make(map[int]func(ChangeKind)),
		logger:    logger,
	}
}

// Subscribe registers fn for every change and returns its detach function
func (s *State) Subscribe(fn func(ChangeKind)) func() {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.listenerMu.Lock()
		defer s.listenerMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *State) notify(kind ChangeKind) {
	s.listenerMu.Lock()
	fns := make([]func(ChangeKind), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenerMu.Unlock()

	for _, fn := range fns {
		fn(kind)
	}
}

// SetSelected replaces the accepted values of a facet
func (s *State) SetSelected(key string, values []string) {
	s.mu.Lock()
	s.selected.Set(key, values)
	s.mu.Unlock()
	s.notify(ChangeCriteria)
}

// ToggleValue adds or removes one accepted value
func (s *State) ToggleValue(key, value string) {
	s.mu.Lock()
	set := s.selected[key]
	if set == nil {
		set = make(map[string]struct{})
		s.selected[key] = set
	}
	if _, ok := set[value]; ok {
		delete(set, value)
	} else {
		set[value] = struct{}{}
	}
	s.mu.Unlock()
	s.notify(ChangeCriteria)
}

// ClearGroup removes every constraint on a facet
func (s *State) ClearGroup(key string) {
	s.mu.Lock()
	delete(s.selected, key)
	s.mu.Unlock()
	s.notify(ChangeCriteria)
}

// ClearAll removes every facet constraint. Search and expression stay.
func (s *State) ClearAll() {
	s.mu.Lock()
	s.selected = Selection{}
	s.mu.Unlock()
	s.notify(ChangeCriteria)
}

// SetSearch replaces the free-text search
func (s *State) SetSearch(q string) {
	s.mu.Lock()
	s.search = q
	s.mu.Unlock()
	s.notify(ChangeCriteria)
}

// SetExpression compiles and installs a CEL filter; blank clears it.
// On a compile error the previous expression is kept.
func (s *State) SetExpression(source string) error {
	var expr *Expression
	if strings.TrimSpace(source) != "" {
		compiled, err := CompileExpression(source)
		if err != nil {
			return err
		}
		expr = compiled
	}

	s.mu.Lock()
	s.expression = expr
	s.mu.Unlock()
	s.notify(ChangeCriteria)
	return nil
}

// SetAvailableFacets publishes a freshly computed facet index
func (s *State) SetAvailableFacets(groups []FacetGroup) {
	if groups == nil {
		groups = []FacetGroup{}
	}
	s.mu.Lock()
	s.facets = groups
	s.mu.Unlock()
	s.notify(ChangeFacets)
}

// Facets returns the last published facet index
func (s *State) Facets() []FacetGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.facets
}

// View returns a snapshot of the whole state
func (s *State) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := View{
		Selected: s.selected.Values(),
		Search:   s.search,
		Facets:   s.facets,
	}
	if s.expression != nil {
		v.Expression = s.expression.Source()
	}
	return v
}

// Predicate returns the full visibility predicate
func (s *State) Predicate() Predicate {
	return s.PredicateExcluding("")
}

// PredicateExcluding returns the predicate of every active filter except
// the named facet's own constraint
func (s *State) PredicateExcluding(facet string) Predicate {
	s.mu.RLock()
	sel := s.selected.Without(facet)
	search := s.search
	expr := s.expression
	s.mu.RUnlock()

	preds := []Predicate{MakePredicate(sel, search)}
	if expr != nil {
		preds = append(preds, expr.Predicate())
	}
	return Safe(And(preds...), s.logger)
}

// Factory exposes PredicateExcluding as a PredicateFactory
func (s *State) Factory() PredicateFactory {
	return s.PredicateExcluding
}
