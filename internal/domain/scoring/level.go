package scoring

import "github.com/corey/trustcheck/internal/ports"

// Level thresholds. LevelFor is the single source of truth for deriving a
// level from a score; seed data that disagrees is reported, not trusted.
const (
	SafeThreshold = 80
	WarnThreshold = 50
)

// LevelFor maps a score to its level: >=80 safe, 50–79 warn, <50 danger.
// Out-of-range scores follow the same comparisons (−99 is danger).
func LevelFor(score int) ports.Level {
	switch {
	case score >= SafeThreshold:
		return ports.LevelSafe
	case score >= WarnThreshold:
		return ports.LevelWarn
	default:
		return ports.LevelDanger
	}
}
