package diagnostics

import (
	"slices"
	"sync"
)

// Store keeps the latest diagnostic set per URI.
type Store struct {
	mu       sync.RWMutex
	sets     map[string][]Diagnostic
	watchers map[string]map[*Watch]struct{}
}

func NewStore() *Store {
	return &Store{
		sets:     make(map[string][]Diagnostic),
		watchers: make(map[string]map[*Watch]struct{}),
	}
}

// Replace installs diags as the complete set for uri.
func (s *Store) Replace(uri string, diags []Diagnostic) {
	set := Set{URI: uri, Diagnostics: slices.Clone(diags)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(set.Diagnostics) == 0 {
		delete(s.sets, uri)
	} else {
		s.sets[uri] = set.Diagnostics
	}
	for w := range s.watchers[uri] {
		w.offer(set)
	}
}

// Clear drops the set for uri; watchers receive an empty set.
func (s *Store) Clear(uri string) {
	s.Replace(uri, nil)
}

// Get returns a copy of the current set for uri.
func (s *Store) Get(uri string) Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Set{URI: uri, Diagnostics: slices.Clone(s.sets[uri])}
}

// All returns every non-empty set.
func (s *Store) All() []Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sets := make([]Set, 0, len(s.sets))
	for uri, diags := range s.sets {
		sets = append(sets, Set{URI: uri, Diagnostics: slices.Clone(diags)})
	}
	slices.SortFunc(sets, func(a, b Set) int {
		switch {
		case a.URI < b.URI:
			return -1
		case a.URI > b.URI:
			return 1
		}
		return 0
	})
	return sets
}

// Rename moves the set and its watchers' future updates from oldURI to newURI.
// Watchers of oldURI receive an empty set.
func (s *Store) Rename(oldURI, newURI string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	diags, ok := s.sets[oldURI]
	delete(s.sets, oldURI)
	if ok {
		s.sets[newURI] = diags
	}
	for w := range s.watchers[oldURI] {
		w.offer(Set{URI: oldURI})
	}
	for w := range s.watchers[newURI] {
		w.offer(Set{URI: newURI, Diagnostics: slices.Clone(diags)})
	}
}

// Watch subscribes to the sets of uri. The current set is delivered first.
// Only the most recent undelivered set is kept, so a slow reader skips
// intermediate sets but always ends up with the latest one.
func (s *Store) Watch(uri string) *Watch {
	w := &Watch{
		uri:   uri,
		ch:    make(chan Set, 1),
		store: s,
	}
	w.C = w.ch

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchers[uri] == nil {
		s.watchers[uri] = make(map[*Watch]struct{})
	}
	s.watchers[uri][w] = struct{}{}
	w.offer(Set{URI: uri, Diagnostics: slices.Clone(s.sets[uri])})
	return w
}

func (s *Store) unwatch(w *Watch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers[w.uri], w)
	if len(s.watchers[w.uri]) == 0 {
		delete(s.watchers, w.uri)
	}
}

// Watch is a disposable subscription to one URI's diagnostic sets.
type Watch struct {
	C <-chan Set

	uri      string
	ch       chan Set
	store    *Store
	mu       sync.Mutex
	disposed bool
}

func (w *Watch) offer(set Set) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.disposed {
		return
	}
	select {
	case <-w.ch:
	default:
	}
	w.ch <- set
}

// Dispose stops delivery and closes C. It is safe to call more than once.
func (w *Watch) Dispose() {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return
	}
	w.disposed = true
	close(w.ch)
	w.mu.Unlock()

	w.store.unwatch(w)
}
