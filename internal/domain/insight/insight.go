// Package insight derives short badges from a trust record's attributes.
package insight

import (
	"strconv"

	"github.com/corey/trustcheck/internal/ports"
)

// Type tags an insight for styling.
type Type string

const (
	TypePositive Type = "positive"
	TypeDanger   Type = "danger"
	TypeInfo     Type = "info"
)

const (
	// DefaultAgeThresholdYears is the account age at which "years active" fires.
	DefaultAgeThresholdYears = 2

	ExcellentScore     = 90
	CriticalScore      = 30
	HighVolumeTxnCount = 50
)

// Insight is one derived badge.
type Insight struct {
	Type Type   `json:"type"`
	Icon string `json:"icon"`
	Text string `json:"text"`
}

// Generator evaluates the insight rules. The zero value uses a zero age
// threshold; use New for the default.
type Generator struct {
	AgeThresholdYears float64
}

// New returns a generator with the given age threshold. A non-positive
// threshold selects DefaultAgeThresholdYears.
func New(ageThresholdYears float64) *Generator {
	if ageThresholdYears <= 0 {
		ageThresholdYears = DefaultAgeThresholdYears
	}
	return &Generator{AgeThresholdYears: ageThresholdYears}
}

// Insights returns the badges that apply to rec, in fixed rule order:
// excellent, critical, scam reports, age, volume, verified. Rules are
// independent; a record can fire any combination. Returns an empty
// (non-nil) slice when nothing applies.
func (g *Generator) Insights(rec *ports.TrustRecord) []Insight {
	out := []Insight{}

	if rec.Score >= ExcellentScore {
		out = append(out, Insight{TypePositive, "🌟", "excellent profile"})
	}
	if rec.Score <= CriticalScore {
		out = append(out, Insight{TypeDanger, "🚨", "critical risk"})
	}
	if n := rec.ScamReports(); n > 0 {
		out = append(out, Insight{TypeDanger, "⚠️", strconv.Itoa(n) + " scam reports"})
	}
	if rec.AgeYears >= g.AgeThresholdYears {
		out = append(out, Insight{TypeInfo, "📅", formatYears(rec.AgeYears) + " years active"})
	}
	if rec.TransactionCount > HighVolumeTxnCount {
		out = append(out, Insight{TypeInfo, "💼", strconv.Itoa(rec.TransactionCount) + "+ transactions"})
	}
	if rec.Verified {
		out = append(out, Insight{TypePositive, "✅", "verified"})
	}
	return out
}

// formatYears prints the shortest exact representation: 3, 2.5.
func formatYears(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
