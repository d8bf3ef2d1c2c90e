package series

import "sort"

// Set owns one Rolling series per symbol, created on first observation.
type Set struct {
	capacity int
	series   map[string]*Rolling
	lastSeen map[string]uint64
}

// NewSet creates an empty set whose series share the given capacity.
func NewSet(capacity int) *Set {
	return &Set{
		capacity: capacity,
		series:   make(map[string]*Rolling),
		lastSeen: make(map[string]uint64),
	}
}

// Observe folds price into the symbol's series at logical tick now.
func (s *Set) Observe(symbol string, price float64, now uint64) *Rolling {
	r, ok := s.series[symbol]
	if !ok {
		r = New(s.capacity)
		s.series[symbol] = r
	}
	r.Push(price)
	s.lastSeen[symbol] = now
	return r
}

// Get returns the series for symbol, if any.
func (s *Set) Get(symbol string) (*Rolling, bool) {
	r, ok := s.series[symbol]
	return r, ok
}

// LastSeen returns the tick of the symbol's latest observation.
func (s *Set) LastSeen(symbol string) (uint64, bool) {
	t, ok := s.lastSeen[symbol]
	return t, ok
}

// Symbols lists tracked symbols in sorted order.
func (s *Set) Symbols() []string {
	out := make([]string, 0, len(s.series))
	for sym := range s.series {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Prune drops series not observed for more than idle ticks, unless keep reports
// the symbol must be retained. It returns the removed symbols. idle <= 0 disables pruning.
func (s *Set) Prune(now uint64, idle int, keep func(symbol string) bool) []string {
	if idle <= 0 {
		return nil
	}
	var removed []string
	for _, sym := range s.Symbols() {
		if now-s.lastSeen[sym] <= uint64(idle) {
			continue
		}
		if keep != nil && keep(sym) {
			continue
		}
		delete(s.series, sym)
		delete(s.lastSeen, sym)
		removed = append(removed, sym)
	}
	return removed
}

func (s *Set) Len() int { return len(s.series) }
