package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/corey/trustcheck/internal/adapters/socket"
	"github.com/corey/trustcheck/internal/domain/card"
	"github.com/corey/trustcheck/internal/domain/scoring"
	"github.com/corey/trustcheck/internal/ports"
)

// ANSI color codes for terminal output.
const (
	colorReset     = "\033[0m"
	colorBold      = "\033[1m"
	colorUnderline = "\033[4m"
	colorRed       = "\033[31m"
	colorGreen     = "\033[32m"
	colorYellow    = "\033[33m"
	colorCyan      = "\033[36m"
	colorGray      = "\033[90m"
)

// painter wraps text in ANSI codes when enabled.
type painter bool

func (p painter) paint(code, s string) string {
	if !p || s == "" {
		return s
	}
	return code + s + colorReset
}

func levelColor(level ports.Level) string {
	switch level {
	case ports.LevelSafe:
		return colorGreen
	case ports.LevelWarn:
		return colorYellow
	case ports.LevelDanger:
		return colorRed
	default:
		return colorGray
	}
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatCard renders a result card for the terminal.
//
//	🚨 Nguy Hiểm │ -99 điểm
//	  NamGay
//	  📞 Số điện thoại   2000
//	  ...
func formatCard(c card.Card, color bool) string {
	p := painter(color)
	lc := levelColor(c.Level)

	var sb strings.Builder
	header := c.Title
	if c.Kind != card.KindRecord {
		header = c.Icon + " " + c.Title
	}
	sb.WriteString(p.paint(colorBold+lc, header))
	if c.Score != "" {
		sb.WriteString(" │ " + p.paint(lc, c.Score))
	}
	sb.WriteString("\n")
	sb.WriteString("  " + p.paint(colorBold, c.Subtitle) + "\n")
	if c.Message != "" {
		sb.WriteString("  " + p.paint(colorGray, c.Message) + "\n")
	}

	width := 0
	for _, r := range c.Rows {
		if n := len([]rune(r.Label)); n > width {
			width = n
		}
	}
	for _, r := range c.Rows {
		pad := strings.Repeat(" ", width-len([]rune(r.Label))+2)
		sb.WriteString("  " + r.Label + pad + formatRowValue(r, p) + "\n")
	}

	if c.Warning != "" {
		sb.WriteString("  " + p.paint(colorYellow, c.Warning) + "\n")
	}

	if len(c.Insights) > 0 {
		parts := make([]string, 0, len(c.Insights))
		for _, in := range c.Insights {
			parts = append(parts, in.Icon+" "+in.Text)
		}
		sb.WriteString("  " + strings.Join(parts, " · ") + "\n")
	}

	if c.ReportCount > 0 {
		sb.WriteString(fmt.Sprintf("  %s\n", p.paint(colorBold, fmt.Sprintf("Báo cáo (%d)", c.ReportCount))))
		for _, r := range c.Reports {
			sb.WriteString(fmt.Sprintf("    %s  %s  %s\n", p.paint(colorGray, r.Date), r.Label, r.Note))
		}
	}

	if len(c.Samples) > 0 {
		qs := make([]string, 0, len(c.Samples))
		for _, s := range c.Samples {
			qs = append(qs, p.paint(colorCyan, s.Query))
		}
		sb.WriteString("  Thử: " + strings.Join(qs, ", ") + "\n")
	}
	return sb.String()
}

func formatRowValue(r card.Row, p painter) string {
	if len(r.Segments) == 0 {
		return r.Value
	}
	var sb strings.Builder
	for _, seg := range r.Segments {
		if seg.Mark {
			sb.WriteString(p.paint(colorBold+colorUnderline, seg.Text))
		} else {
			sb.WriteString(seg.Text)
		}
	}
	return sb.String()
}

// formatRecords renders one line per record.
func formatRecords(res *socket.RecordsResult, color bool) string {
	p := painter(color)
	var sb strings.Builder
	sb.WriteString(p.paint(colorBold, fmt.Sprintf("%d records", res.Count)) + "\n")
	for _, r := range res.Records {
		sb.WriteString(fmt.Sprintf("  %s %-12s %4d  %s  %s  %s\n",
			card.StyleFor(r.Level).Icon,
			p.paint(colorCyan, r.ID),
			r.Score,
			r.Name,
			p.paint(colorGray, card.FormatPhone(r.Phone)),
			r.Bank,
		))
	}
	return sb.String()
}

// formatRecord renders every field of one record.
func formatRecord(r *ports.TrustRecord, color bool) string {
	p := painter(color)
	var sb strings.Builder
	sb.WriteString(p.paint(colorBold+levelColor(r.Level), fmt.Sprintf("%s %s", r.ID, r.Name)) + "\n")
	field := func(label, value string) {
		if value != "" {
			sb.WriteString(fmt.Sprintf("  %-14s %s\n", label+":", value))
		}
	}
	field("Level", string(r.Level))
	field("Score", fmt.Sprintf("%d", r.Score))
	field("Phone", r.Phone)
	field("Phones", strings.Join(r.Phones, ", "))
	field("Account", r.Account)
	field("Accounts", strings.Join(r.Accounts, ", "))
	field("Bank", r.Bank)
	field("Banks", strings.Join(r.Banks, ", "))
	field("Aliases", strings.Join(r.Aliases, ", "))
	field("Category", r.Category)
	field("Location", r.Location)
	field("Note", r.Note)
	field("Tags", strings.Join(r.Tags, ", "))
	field("Transactions", fmt.Sprintf("%d", r.TransactionCount))
	field("Age (years)", fmt.Sprintf("%g", r.AgeYears))
	field("Verified", fmt.Sprintf("%t", r.Verified))
	field("Last updated", r.LastUpdated)
	if r.Warning {
		field("Warning", r.WarningMessage)
	}
	for _, rep := range r.Reports {
		sb.WriteString(fmt.Sprintf("  %-14s %s [%s] %s\n", "Report:", rep.Date, rep.Type, rep.Note))
	}
	return sb.String()
}

// formatAssessment renders a note analysis.
func formatAssessment(a *scoring.Assessment, color bool) string {
	p := painter(color)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s │ %s\n",
		p.paint(colorBold+levelColor(a.Level), fmt.Sprintf("%d điểm", a.Score)),
		card.StyleFor(a.Level).Status))
	for _, h := range a.Hits {
		sign := "+"
		if h.Weight < 0 {
			sign = ""
		}
		sb.WriteString(fmt.Sprintf("  %s%d  %s  %s\n", sign, h.Weight, h.Keyword, p.paint(colorGray, h.Group)))
	}
	if a.LengthAdjustment != 0 {
		sb.WriteString(fmt.Sprintf("  %+d  %s\n", a.LengthAdjustment, p.paint(colorGray, "note length")))
	}
	if a.Raw != a.Score {
		sb.WriteString(p.paint(colorGray, fmt.Sprintf("  raw %d, clamped to [%d, %d]", a.Raw, scoring.MinScore, scoring.MaxScore)) + "\n")
	}
	return sb.String()
}

// formatStats renders store and lexicon statistics.
func formatStats(s *socket.StatsResult, color bool) string {
	p := painter(color)
	var sb strings.Builder
	sb.WriteString(p.paint(colorBold, "trustcheck stats") + "\n")
	sb.WriteString(fmt.Sprintf("  Records:   %d\n", s.Stats.TotalRecords))
	levels := make([]string, 0, len(s.ByLevel))
	for l := range s.ByLevel {
		levels = append(levels, l)
	}
	sort.Strings(levels)
	for _, l := range levels {
		sb.WriteString(fmt.Sprintf("    %-8s %d\n", l, s.ByLevel[l]))
	}
	sb.WriteString(fmt.Sprintf("  Version:   %s\n", s.Stats.Version))
	if !s.Stats.LastUpdated.IsZero() {
		sb.WriteString(fmt.Sprintf("  Updated:   %s\n", s.Stats.LastUpdated.Format(time.RFC3339)))
	}
	sb.WriteString(fmt.Sprintf("  Lexicon:   %d keywords in %d groups\n", s.Keywords, s.Groups))
	warn := fmt.Sprintf("%d", s.Warnings)
	if s.Warnings > 0 {
		warn = p.paint(colorYellow, warn)
	}
	sb.WriteString(fmt.Sprintf("  Warnings:  %s\n", warn))
	return sb.String()
}

// formatHealth formats a HealthResult for terminal display.
func formatHealth(h *socket.HealthResult, color bool) string {
	p := painter(color)
	var sb strings.Builder
	sb.WriteString(p.paint(colorBold, "trustcheck daemon") + "\n")
	sb.WriteString(fmt.Sprintf("  Status:   %s\n", p.paint(colorGreen, h.Status)))
	sb.WriteString(fmt.Sprintf("  Records:  %d\n", h.Records))
	sb.WriteString(fmt.Sprintf("  Keywords: %d\n", h.Keywords))
	sb.WriteString(fmt.Sprintf("  Lexicon:  %s\n", h.Lexicon))
	sb.WriteString(fmt.Sprintf("  Skin:     %s\n", h.Skin))
	sb.WriteString(fmt.Sprintf("  Uptime:   %s\n", h.Uptime))
	return sb.String()
}

// formatBackups lists archived snapshots.
func formatBackups(b *socket.BackupsResult, color bool) string {
	p := painter(color)
	var sb strings.Builder
	sb.WriteString(p.paint(colorBold, fmt.Sprintf("%d backups", b.Count)) + "\n")
	for _, info := range b.Backups {
		saved := time.Unix(info.SavedAt, 0).Format("2006-01-02 15:04")
		sb.WriteString(fmt.Sprintf("  %-24s %5d records  %s\n", p.paint(colorCyan, info.Name), info.TotalRecords, p.paint(colorGray, saved)))
	}
	return sb.String()
}
