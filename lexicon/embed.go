// Package lexicon embeds the keyword lexicon used by the scoring engine.
// Each YAML file holds weighted keyword groups; files load in name order.
// This is a standalone package with no imports to avoid circular dependencies.
//
// Usage:
//
//	scoring.LoadLexiconFromFS(lexicon.FS, "v1")
package lexicon

import "embed"

//go:embed v1/*.yaml
var FS embed.FS
