package ports

import "time"

// Level is the coarse risk category of a trust record.
type Level string

const (
	LevelSafe    Level = "safe"
	LevelWarn    Level = "warn"
	LevelDanger  Level = "danger"
	LevelNeutral Level = "neutral" // unscored / no-match default
)

// Valid reports whether l is one of the four known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelSafe, LevelWarn, LevelDanger, LevelNeutral:
		return true
	default:
		return false
	}
}

// ParseLevel maps a string to its Level. Returns "" and false for unknown names.
func ParseLevel(s string) (Level, bool) {
	l := Level(s)
	if !l.Valid() {
		return "", false
	}
	return l, true
}

// Report types seen in the dataset. The set is open; unknown types render
// as a generic warning.
const (
	ReportScam     = "scam"
	ReportPositive = "positive"
	ReportWarning  = "warning"
	ReportDelay    = "delay"
)

// DateLayout is the calendar-day format used by LastUpdated and report dates.
const DateLayout = "2006-01-02"

// TrustRecord describes one known phone/account/identity and its
// accumulated trust signals. JSON names match the export format.
type TrustRecord struct {
	ID       string   `json:"id"`
	Phone    string   `json:"phone"`
	Phones   []string `json:"phones"`
	Account  string   `json:"account"`
	Accounts []string `json:"accounts"`
	Bank     string   `json:"bank"`
	Banks    []string `json:"banks"`
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases"`

	Score    int    `json:"score"`
	Level    Level  `json:"level"`
	Note     string `json:"note"`
	Category string `json:"category"`

	Reports          []Report `json:"reports"`
	TransactionCount int      `json:"transactionCount"`
	AgeYears         float64  `json:"ageYears"`
	Verified         bool     `json:"verified"`
	LastUpdated      string   `json:"lastUpdated"`
	Tags             []string `json:"tags"`
	Location         string   `json:"location"`
	SocialLinks      []string `json:"socialLinks"`

	Warning        bool   `json:"warning"`
	WarningMessage string `json:"warningMessage,omitempty"`
}

// Report is one community report attached to a record.
type Report struct {
	Date string `json:"date"`
	Type string `json:"type"`
	Note string `json:"note"`
}

// ScamReports counts reports of type scam.
func (r *TrustRecord) ScamReports() int {
	n := 0
	for _, rep := range r.Reports {
		if rep.Type == ReportScam {
			n++
		}
	}
	return n
}

// Clone returns a deep copy. Slices are never shared between the copy and r.
func (r TrustRecord) Clone() TrustRecord {
	c := r
	c.Phones = cloneStrings(r.Phones)
	c.Accounts = cloneStrings(r.Accounts)
	c.Banks = cloneStrings(r.Banks)
	c.Aliases = cloneStrings(r.Aliases)
	c.Tags = cloneStrings(r.Tags)
	c.SocialLinks = cloneStrings(r.SocialLinks)
	if r.Reports != nil {
		c.Reports = make([]Report, len(r.Reports))
		copy(c.Reports, r.Reports)
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Stats are aggregate figures recomputed on every store mutation.
type Stats struct {
	TotalRecords int       `json:"totalRecords"`
	LastUpdated  time.Time `json:"lastUpdated"`
	Version      string    `json:"version"`
}

// Snapshot is the import/export shape: {stats, records, exportedAt}.
type Snapshot struct {
	Stats      Stats         `json:"stats"`
	Records    []TrustRecord `json:"records"`
	ExportedAt time.Time     `json:"exportedAt"`
}
