package mcp

import (
	"iter"
	"slices"
	"sync"
)

// featureSet is an ordered collection of features of type T, keyed by a
// unique id extracted with uniqueID. The MCP spec never mentions an
// ordering for list calls (spec §3: "what it calls a list is actually a
// set"), but pagination needs a stable order to hand out cursors against,
// so entries are kept sorted by id.
//
// A featureSet is shared between the RPC runtime's worker goroutines (a
// concurrent tools/call, tools/list, ...) and whatever goroutine calls
// Server.AddTools/RemoveTools at runtime, so every access goes through mu.
type featureSet[T any] struct {
	uniqueID func(T) string

	mu         sync.Mutex
	features   map[string]T
	sortedKeys []string
}

func newFeatureSet[T any](uniqueID func(T) string) *featureSet[T] {
	return &featureSet[T]{uniqueID: uniqueID, features: make(map[string]T)}
}

func (s *featureSet[T]) add(fs ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fs {
		s.features[s.uniqueID(f)] = f
	}
	s.sortedKeys = nil
}

func (s *featureSet[T]) remove(ids ...string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for _, id := range ids {
		if _, ok := s.features[id]; ok {
			delete(s.features, id)
			changed = true
		}
	}
	if changed {
		s.sortedKeys = nil
	}
	return changed
}

func (s *featureSet[T]) get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.features[id]
	return t, ok
}

func (s *featureSet[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.features)
}

// ensureSortedLocked rebuilds sortedKeys if stale. Callers must hold s.mu.
func (s *featureSet[T]) ensureSortedLocked() {
	if s.sortedKeys == nil {
		s.sortedKeys = make([]string, 0, len(s.features))
		for k := range s.features {
			s.sortedKeys = append(s.sortedKeys, k)
		}
		slices.Sort(s.sortedKeys)
	}
}

// all iterates every feature in id order.
func (s *featureSet[T]) all() iter.Seq[T] {
	s.mu.Lock()
	s.ensureSortedLocked()
	keys := slices.Clone(s.sortedKeys)
	s.mu.Unlock()

	return func(yield func(T) bool) {
		for _, k := range keys {
			s.mu.Lock()
			f, ok := s.features[k]
			s.mu.Unlock()
			if ok && !yield(f) {
				return
			}
		}
	}
}

// page returns up to pageSize features with id strictly greater than
// afterID (empty = start), plus the id to resume from, or "" if exhausted.
// This backs the cursor-based pagination of spec §4.4 "resources/list (with
// optional cursor)".
func (s *featureSet[T]) page(afterID string, pageSize int) (items []T, nextCursor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureSortedLocked()

	start := 0
	if afterID != "" {
		start, _ = slices.BinarySearch(s.sortedKeys, afterID)
		if start < len(s.sortedKeys) && s.sortedKeys[start] == afterID {
			start++
		}
	}
	end := start + pageSize
	if end > len(s.sortedKeys) || pageSize <= 0 {
		end = len(s.sortedKeys)
	}
	for _, k := range s.sortedKeys[start:end] {
		items = append(items, s.features[k])
	}
	if end < len(s.sortedKeys) {
		nextCursor = s.sortedKeys[end-1]
	}
	return items, nextCursor
}
