package aggregates

// orderedSet keeps values keyed by string in insertion order.
// Removal leaves a stale slot in the order slice that is skipped on
// iteration and compacted once stale slots outnumber live ones.
type orderedSet[T any] struct {
	items map[string]slot[T]
	order []orderEntry
	seq   uint64
}

type slot[T any] struct {
	value T
	seq   uint64
}

type orderEntry struct {
	key string
	seq uint64
}

func newOrderedSet[T any]() *orderedSet[T] {
	return &orderedSet[T]{items: make(map[string]slot[T])}
}

func (s *orderedSet[T]) len() int { return len(s.items) }

func (s *orderedSet[T]) get(key string) (T, bool) {
	it, ok := s.items[key]
	return it.value, ok
}

func (s *orderedSet[T]) has(key string) bool {
	_, ok := s.items[key]
	return ok
}

func (s *orderedSet[T]) put(key string, value T) {
	if it, ok := s.items[key]; ok {
		it.value = value
		s.items[key] = it
		return
	}
	s.seq++
	s.items[key] = slot[T]{value: value, seq: s.seq}
	s.order = append(s.order, orderEntry{key: key, seq: s.seq})
}

func (s *orderedSet[T]) remove(key string) {
	if _, ok := s.items[key]; !ok {
		return
	}
	delete(s.items, key)
	if stale := len(s.order) - len(s.items); stale > 32 && stale > len(s.items) {
		s.compact()
	}
}

func (s *orderedSet[T]) compact() {
	live := s.order[:0]
	for _, e := range s.order {
		if it, ok := s.items[e.key]; ok && it.seq == e.seq {
			live = append(live, e)
		}
	}
	s.order = live
}

// each visits live entries in insertion order until fn returns false
func (s *orderedSet[T]) each(fn func(key string, value T) bool) {
	for _, e := range s.order {
		it, ok := s.items[e.key]
		if !ok || it.seq != e.seq {
			continue
		}
		if !fn(e.key, it.value) {
			return
		}
	}
}

func (s *orderedSet[T]) keys() []string {
	out := make([]string, 0, len(s.items))
	s.each(func(key string, _ T) bool {
		out = append(out, key)
		return true
	})
	return out
}
