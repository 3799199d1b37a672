// Package scoring derives a trust score and risk level from free-text notes.
//
// The score starts at BaseScore, each lexicon keyword present in the note
// applies its group weight once, a length adjustment rewards detailed notes
// and penalizes terse ones, and the result is clamped to [0,100].
package scoring

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/corey/trustcheck/internal/ports"
)

const (
	BaseScore = 50
	MinScore  = 0
	MaxScore  = 100

	LongNoteRunes    = 100 // note longer than this earns LongNoteBonus
	LongNoteBonus    = 5
	ShortNoteRunes   = 20 // note shorter than this pays ShortNotePenalty
	ShortNotePenalty = -5
)

// Hit is one lexicon keyword found in a note.
type Hit struct {
	Keyword string `json:"keyword"`
	Group   string `json:"group"`
	Weight  int    `json:"weight"`
}

// Assessment explains how a note's score was reached.
type Assessment struct {
	Score            int         `json:"score"`
	Level            ports.Level `json:"level"`
	Hits             []Hit       `json:"hits"`
	LengthAdjustment int         `json:"length_adjustment"`
	Raw              int         `json:"raw"` // before clamping
}

type keywordRef struct {
	group  string
	weight int
}

// Engine scores notes against a lexicon. Safe for concurrent use; Reload
// swaps the lexicon without blocking readers for longer than the swap.
type Engine struct {
	mu      sync.RWMutex
	matcher ports.KeywordMatcher
	lexicon *Lexicon
	index   map[string]keywordRef
}

// NewEngine builds an engine over lex, compiling its keywords into matcher.
func NewEngine(lex *Lexicon, matcher ports.KeywordMatcher) (*Engine, error) {
	if matcher == nil {
		return nil, fmt.Errorf("nil keyword matcher")
	}
	e := &Engine{matcher: matcher}
	if err := e.Reload(lex); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload replaces the lexicon and rebuilds the keyword automaton.
// On error the previous lexicon stays active.
func (e *Engine) Reload(lex *Lexicon) error {
	if lex == nil {
		return fmt.Errorf("nil lexicon")
	}

	index := make(map[string]keywordRef)
	for _, g := range lex.Groups {
		for _, kw := range g.Keywords {
			index[kw] = keywordRef{group: g.ID, weight: g.Weight}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.matcher.Rebuild(lex.Keywords()); err != nil {
		return fmt.Errorf("rebuild matcher: %w", err)
	}
	e.lexicon = lex
	e.index = index
	return nil
}

// Lexicon returns the active lexicon.
func (e *Engine) Lexicon() *Lexicon {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lexicon
}

// Fold composes s to NFC and lowercases it. Notes, queries and record
// fields all pass through Fold so decomposed Vietnamese input matches.
func Fold(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// Analyze returns the clamped score for note.
func (e *Engine) Analyze(note string) int {
	return e.Evaluate(note).Score
}

// Evaluate scores note and reports every contributing keyword.
func (e *Engine) Evaluate(note string) Assessment {
	composed := norm.NFC.String(note)
	lowered := strings.ToLower(composed)

	e.mu.RLock()
	found := e.matcher.Match(lowered)
	hits := make([]Hit, 0, len(found))
	for _, kw := range found {
		ref, ok := e.index[kw]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Keyword: kw, Group: ref.group, Weight: ref.weight})
	}
	e.mu.RUnlock()

	raw := BaseScore
	for _, h := range hits {
		raw += h.Weight
	}

	adj := lengthAdjustment(utf8.RuneCountInString(composed))
	raw += adj

	score := Clamp(raw)
	return Assessment{
		Score:            score,
		Level:            LevelFor(score),
		Hits:             hits,
		LengthAdjustment: adj,
		Raw:              raw,
	}
}

// lengthAdjustment rewards long notes and penalizes short ones. The two
// thresholds cannot both fire.
func lengthAdjustment(runes int) int {
	switch {
	case runes > LongNoteRunes:
		return LongNoteBonus
	case runes < ShortNoteRunes:
		return ShortNotePenalty
	default:
		return 0
	}
}

// Clamp bounds score to [MinScore, MaxScore].
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
