// Package ahocorasick provides multi-pattern string matching using an Aho-Corasick automaton.
// It wraps the petar-dambovaliev/aho-corasick library for O(n + m + z) matching.
package ahocorasick

import (
	"fmt"
	"sync"

	aho "github.com/petar-dambovaliev/aho-corasick"
)

// Matcher implements ports.KeywordMatcher for the scoring lexicon.
// Rebuild() compiles an automaton; Match() returns matching keywords.
// Match may run concurrently with Rebuild.
type Matcher struct {
	mu        sync.RWMutex
	automaton aho.AhoCorasick
	keywords  []string
	built     bool
}

// New builds a matcher for keywords.
func New(keywords []string) (*Matcher, error) {
	m := &Matcher{}
	if err := m.Rebuild(keywords); err != nil {
		return nil, err
	}
	return m, nil
}

// Rebuild replaces the automaton with a new set of keywords.
// Duplicate keywords are collapsed; an empty keyword is rejected.
func (m *Matcher) Rebuild(keywords []string) error {
	seen := make(map[string]bool, len(keywords))
	kws := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw == "" {
			return fmt.Errorf("empty keyword")
		}
		if seen[kw] {
			continue
		}
		seen[kw] = true
		kws = append(kws, kw)
	}

	var automaton aho.AhoCorasick
	if len(kws) > 0 {
		// Overlapping iteration requires standard match semantics (the zero value).
		builder := aho.NewAhoCorasickBuilder(aho.Opts{
			DFA: true,
		})
		automaton = builder.Build(kws)
	}

	m.mu.Lock()
	m.automaton = automaton
	m.keywords = kws
	m.built = len(kws) > 0
	m.mu.Unlock()
	return nil
}

// Match returns all distinct keywords found in content, in order of first
// occurrence. Overlapping keywords are all reported.
func (m *Matcher) Match(content string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.built || content == "" {
		return nil
	}

	iter := m.automaton.IterOverlappingByte([]byte(content))
	seen := make(map[int]bool)
	var result []string
	for next := iter.Next(); next != nil; next = iter.Next() {
		mt := *next
		p := mt.Pattern()
		if seen[p] {
			continue
		}
		seen[p] = true
		result = append(result, m.keywords[p])
	}
	return result
}

// KeywordCount returns the number of distinct keywords in the automaton.
func (m *Matcher) KeywordCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keywords)
}
