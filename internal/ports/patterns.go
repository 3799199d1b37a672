package ports

// KeywordMatcher finds lexicon keywords in free text using multi-pattern
// matching (Aho-Corasick). A single pass over the content finds all matching
// keywords simultaneously, regardless of how many keywords are in the set.
//
// The matcher must be rebuilt when the lexicon changes (e.g., after the
// lexicon file is edited). Rebuild is expected to be infrequent.
type KeywordMatcher interface {
	// Match returns every distinct keyword found in content, in the order
	// of first occurrence. Overlapping keywords ("lừa" inside "lừa đảo")
	// are all reported. Returns nil if no keywords match. Content is matched
	// as-is (caller normalizes case).
	Match(content string) []string

	// Rebuild replaces the entire keyword set and reconstructs the automaton.
	// Returns an error if the keyword set is invalid (e.g., empty keyword).
	Rebuild(keywords []string) error
}
