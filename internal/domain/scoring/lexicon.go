package scoring

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Group is a set of keywords sharing one weight.
type Group struct {
	ID       string
	Label    string
	Weight   int
	Keywords []string // normalized: NFC, lowercased, trimmed
}

// Lexicon is the full keyword configuration of the scoring engine.
type Lexicon struct {
	Groups []Group
}

// Keywords returns every keyword across all groups, in group order.
func (l *Lexicon) Keywords() []string {
	var out []string
	for _, g := range l.Groups {
		out = append(out, g.Keywords...)
	}
	return out
}

// yamlGroup is the YAML-serialized form of a Group.
type yamlGroup struct {
	ID       string   `yaml:"id"`
	Label    string   `yaml:"label"`
	Weight   int      `yaml:"weight"`
	Keywords []string `yaml:"keywords"`
}

// LoadLexiconFromFS loads all YAML lexicon files from an embedded filesystem.
// Files are read in name order and their groups concatenated.
func LoadLexiconFromFS(fsys fs.FS, dir string) (*Lexicon, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read lexicon dir %q: %w", dir, err)
	}

	// Sort for deterministic load order
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	b := newLexiconBuilder()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := dir + "/" + entry.Name()
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := b.add(entry.Name(), data); err != nil {
			return nil, err
		}
	}

	if len(b.lex.Groups) == 0 {
		return nil, fmt.Errorf("lexicon dir %q has no groups", dir)
	}
	return b.lex, nil
}

// LoadLexiconFile loads a single YAML lexicon file from disk. Used for
// operator-supplied overrides of the embedded lexicon.
func LoadLexiconFile(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return ParseLexicon(path, data)
}

// ParseLexicon parses one YAML document of keyword groups.
func ParseLexicon(source string, data []byte) (*Lexicon, error) {
	b := newLexiconBuilder()
	if err := b.add(source, data); err != nil {
		return nil, err
	}
	if len(b.lex.Groups) == 0 {
		return nil, fmt.Errorf("%s: no keyword groups", source)
	}
	return b.lex, nil
}

// lexiconBuilder accumulates groups across files and enforces cross-file
// uniqueness of group IDs and keywords.
type lexiconBuilder struct {
	lex       *Lexicon
	seenIDs   map[string]string // group id → source
	seenWords map[string]string // keyword → group id
}

func newLexiconBuilder() *lexiconBuilder {
	return &lexiconBuilder{
		lex:       &Lexicon{},
		seenIDs:   make(map[string]string),
		seenWords: make(map[string]string),
	}
}

func (b *lexiconBuilder) add(source string, data []byte) error {
	var groups []yamlGroup
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return fmt.Errorf("parse %s: %w", source, err)
	}

	for _, yg := range groups {
		g, err := convertGroup(yg)
		if err != nil {
			return fmt.Errorf("%s: group %q: %w", source, yg.ID, err)
		}

		if prev, ok := b.seenIDs[g.ID]; ok {
			return fmt.Errorf("duplicate group ID %q (first in %s, again in %s)", g.ID, prev, source)
		}
		b.seenIDs[g.ID] = source

		for _, kw := range g.Keywords {
			if owner, ok := b.seenWords[kw]; ok {
				return fmt.Errorf("%s: keyword %q in both %q and %q", source, kw, owner, g.ID)
			}
			b.seenWords[kw] = g.ID
		}

		b.lex.Groups = append(b.lex.Groups, g)
	}
	return nil
}

// convertGroup validates and normalizes a yamlGroup.
func convertGroup(yg yamlGroup) (Group, error) {
	if yg.ID == "" {
		return Group{}, fmt.Errorf("missing id")
	}
	if yg.Weight == 0 {
		return Group{}, fmt.Errorf("weight must be non-zero")
	}
	if len(yg.Keywords) == 0 {
		return Group{}, fmt.Errorf("no keywords")
	}

	kws := make([]string, 0, len(yg.Keywords))
	within := make(map[string]bool, len(yg.Keywords))
	for _, raw := range yg.Keywords {
		kw := Normalize(raw)
		if kw == "" {
			return Group{}, fmt.Errorf("empty keyword")
		}
		if within[kw] {
			continue
		}
		within[kw] = true
		kws = append(kws, kw)
	}

	return Group{
		ID:       yg.ID,
		Label:    yg.Label,
		Weight:   yg.Weight,
		Keywords: kws,
	}, nil
}

// Normalize prepares text for keyword matching: NFC composition (so
// precomposed and decomposed Vietnamese diacritics compare equal),
// lowercase, surrounding whitespace trimmed.
func Normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFC.String(s)))
}
