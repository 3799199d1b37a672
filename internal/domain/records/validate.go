package records

import (
	"fmt"
	"slices"

	"github.com/corey/trustcheck/internal/domain/scoring"
	"github.com/corey/trustcheck/internal/ports"
)

// Warning describes one data-quality problem in a record. Warnings are
// surfaced to operators; records are never corrected automatically.
type Warning struct {
	RecordID string `json:"record_id"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.RecordID, w.Field, w.Message)
}

// Validate checks records against the data model invariants:
//   - IDs present and unique
//   - score within [0,100]
//   - level known, and equal to scoring.LevelFor(score) unless neutral
//   - primary phone/account/bank listed in its sequence (should-hold)
func Validate(recs []ports.TrustRecord) []Warning {
	var warnings []Warning
	seen := make(map[string]bool, len(recs))

	for i := range recs {
		r := &recs[i]
		id := r.ID
		if id == "" {
			id = fmt.Sprintf("#%d", i)
			warnings = append(warnings, Warning{id, "id", "missing id"})
		} else if seen[id] {
			warnings = append(warnings, Warning{id, "id", "duplicate id"})
		}
		seen[r.ID] = true

		if r.Score < scoring.MinScore || r.Score > scoring.MaxScore {
			warnings = append(warnings, Warning{id, "score",
				fmt.Sprintf("score %d outside [%d,%d]", r.Score, scoring.MinScore, scoring.MaxScore)})
		}

		switch {
		case !r.Level.Valid():
			warnings = append(warnings, Warning{id, "level", fmt.Sprintf("unknown level %q", r.Level)})
		case r.Level != ports.LevelNeutral && r.Level != scoring.LevelFor(r.Score):
			warnings = append(warnings, Warning{id, "level",
				fmt.Sprintf("level %q disagrees with score %d (expected %q)", r.Level, r.Score, scoring.LevelFor(r.Score))})
		}

		if w, ok := primaryListed(id, "phones", r.Phone, r.Phones); !ok {
			warnings = append(warnings, w)
		}
		if w, ok := primaryListed(id, "accounts", r.Account, r.Accounts); !ok {
			warnings = append(warnings, w)
		}
		if w, ok := primaryListed(id, "banks", r.Bank, r.Banks); !ok {
			warnings = append(warnings, w)
		}
	}
	return warnings
}

// primaryListed reports whether primary appears in list. An empty primary
// or an absent list is not a violation.
func primaryListed(id, field, primary string, list []string) (Warning, bool) {
	if primary == "" || len(list) == 0 || slices.Contains(list, primary) {
		return Warning{}, true
	}
	return Warning{id, field, fmt.Sprintf("primary value %q not listed", primary)}, false
}
