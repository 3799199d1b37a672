// Package card turns lookup results into a presentation-neutral view model.
// Every surface (CLI, web page, socket clients) renders the same Card; the
// skin only decides how much detail it carries.
package card

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/corey/trustcheck/internal/domain/insight"
	"github.com/corey/trustcheck/internal/ports"
)

// Skin selects a card layout.
type Skin string

const (
	// SkinClassic shows phone, account, bank, score and note only.
	SkinClassic Skin = "classic"
	// SkinDetailed shows every detail row, reports and warnings.
	SkinDetailed Skin = "detailed"
)

// ParseSkin maps a config value to a Skin. Unknown values select detailed.
func ParseSkin(s string) (Skin, bool) {
	switch Skin(strings.ToLower(strings.TrimSpace(s))) {
	case SkinClassic:
		return SkinClassic, true
	case SkinDetailed, "":
		return SkinDetailed, true
	default:
		return SkinDetailed, false
	}
}

// Kind says what produced the card.
type Kind string

const (
	KindRecord   Kind = "record"
	KindNotFound Kind = "not_found"
	KindFailure  Kind = "failure"
)

// maxReports caps report lines on a detailed card.
const maxReports = 3

const placeholder = "—"

// DefaultFailureMessage is shown on failure cards built for users.
const DefaultFailureMessage = "Đã xảy ra lỗi, vui lòng thử lại"

// Style is the per-level presentation config.
type Style struct {
	Title  string `json:"title"`
	Icon   string `json:"icon"`
	Color  string `json:"color"`
	Status string `json:"status"`
}

var styles = map[ports.Level]Style{
	ports.LevelSafe:    {Title: "✅ Uy Tín Cao", Icon: "✅", Color: "#34C759", Status: "✅ Uy tín"},
	ports.LevelWarn:    {Title: "⚠️ Cần Thận Trọng", Icon: "⚠️", Color: "#FF9500", Status: "⚠️ Cần thận trọng"},
	ports.LevelDanger:  {Title: "🚨 Nguy Hiểm", Icon: "🚨", Color: "#FF3B30", Status: "🚨 Nguy hiểm"},
	ports.LevelNeutral: {Title: "ℹ️ Không Tìm Thấy", Icon: "ℹ️", Color: "#8E8E93", Status: "ℹ️ Trung lập"},
}

// StyleFor returns the style for level; unknown levels render as neutral.
func StyleFor(level ports.Level) Style {
	if s, ok := styles[level]; ok {
		return s
	}
	return styles[ports.LevelNeutral]
}

// Segment is a run of text, marked when it matched the query.
type Segment struct {
	Text string `json:"text"`
	Mark bool   `json:"mark,omitempty"`
}

// Row is one labelled detail line.
type Row struct {
	Label    string    `json:"label"`
	Value    string    `json:"value"`
	Segments []Segment `json:"segments,omitempty"`
}

// ReportLine is a report as shown on a card.
type ReportLine struct {
	Date  string `json:"date"`
	Type  string `json:"type"`
	Label string `json:"label"`
	Color string `json:"color"`
	Note  string `json:"note"`
}

// Sample is a suggested query shown on the not-found card.
type Sample struct {
	Query string      `json:"query"`
	Label string      `json:"label"`
	Level ports.Level `json:"level"`
}

// Card is the rendered result of one lookup.
type Card struct {
	Kind     Kind        `json:"kind"`
	Skin     Skin        `json:"skin"`
	Level    ports.Level `json:"level"`
	Icon     string      `json:"icon"`
	Title    string      `json:"title"`
	Subtitle string      `json:"subtitle"`
	Color    string      `json:"color"`
	Score    string      `json:"score,omitempty"`
	Message  string      `json:"message"`

	Rows        []Row             `json:"rows,omitempty"`
	Warning     string            `json:"warning,omitempty"`
	Insights    []insight.Insight `json:"insights,omitempty"`
	ReportCount int               `json:"reportCount,omitempty"`
	Reports     []ReportLine      `json:"reports,omitempty"`
	Samples     []Sample          `json:"samples,omitempty"`
}

// Build renders a found record. query is the raw user input and is used
// only for highlighting.
func Build(rec *ports.TrustRecord, query string, insights []insight.Insight, skin Skin) Card {
	st := StyleFor(rec.Level)
	c := Card{
		Kind:     KindRecord,
		Skin:     skin,
		Level:    rec.Level,
		Icon:     st.Icon,
		Title:    st.Title,
		Subtitle: orDefault(rec.Name, "Không có tên"),
		Color:    st.Color,
		Score:    strconv.Itoa(rec.Score) + " điểm",
		Message:  orDefault(rec.Note, "Không có ghi chú"),
	}

	if skin == SkinClassic {
		c.Rows = []Row{
			{Label: "📞 SĐT", Value: FormatPhone(rec.Phone)},
			{Label: "🏦 STK", Value: orDefault(rec.Account, placeholder)},
			{Label: "💳 Ngân hàng", Value: orDefault(rec.Bank, placeholder)},
		}
		return c
	}

	q := strings.TrimSpace(query)
	c.Rows = append(c.Rows,
		highlightRow("📞 Số điện thoại", rec.Phone, q),
		highlightRow("🏦 Số tài khoản", rec.Account, q),
	)
	if rec.Bank != "" {
		c.Rows = append(c.Rows, Row{Label: "💳 Ngân hàng", Value: rec.Bank})
	}
	if rec.Location != "" {
		c.Rows = append(c.Rows, Row{Label: "📍 Khu vực", Value: rec.Location})
	}
	c.Rows = append(c.Rows,
		Row{Label: "📊 Trạng thái", Value: st.Status},
		Row{Label: "🆔 ID hồ sơ", Value: rec.ID},
	)
	if rec.LastUpdated != "" {
		c.Rows = append(c.Rows, Row{Label: "🕐 Cập nhật", Value: rec.LastUpdated})
	}
	verified := "❌ Chưa xác minh"
	if rec.Verified {
		verified = "✅ Đã xác minh"
	}
	c.Rows = append(c.Rows, Row{Label: "🔐 Xác minh", Value: verified})

	if rec.Warning {
		c.Warning = orDefault(rec.WarningMessage, "⚠️ CẢNH BÁO: Tài khoản có vấn đề cần lưu ý")
	}

	c.Insights = insights
	if len(c.Insights) == 0 {
		c.Insights = []insight.Insight{{Type: insight.TypeInfo, Icon: "ℹ️", Text: "no notable signals"}}
	}

	c.ReportCount = len(rec.Reports)
	for i, r := range rec.Reports {
		if i == maxReports {
			break
		}
		c.Reports = append(c.Reports, reportLine(r))
	}
	return c
}

func reportLine(r ports.Report) ReportLine {
	line := ReportLine{
		Date: orDefault(r.Date, "Không có ngày"),
		Type: r.Type,
		Note: r.Note,
	}
	switch r.Type {
	case ports.ReportScam:
		line.Label, line.Color = "Lừa đảo", "#FF3B30"
	case ports.ReportPositive:
		line.Label, line.Color = "Tích cực", "#34C759"
	case ports.ReportDelay:
		line.Label, line.Color = "Trễ", "#FF9500"
	default:
		line.Label, line.Color = "Cảnh báo", "#FF9500"
	}
	return line
}

// Samples are the suggestions listed when nothing matches.
var Samples = []Sample{
	{Query: "0868748858", Label: "✅ Uy tín cao", Level: ports.LevelSafe},
	{Query: "0325822569", Label: "✅ Bán iPhone", Level: ports.LevelSafe},
	{Query: "2000", Label: "🚨 Cảnh báo", Level: ports.LevelDanger},
	{Query: "1234567890", Label: "⚠️ Cần thận trọng", Level: ports.LevelWarn},
}

// NotFound renders the no-match card.
func NotFound(query string, skin Skin) Card {
	st := StyleFor(ports.LevelNeutral)
	c := Card{
		Kind:     KindNotFound,
		Skin:     skin,
		Level:    ports.LevelNeutral,
		Icon:     "🔍",
		Title:    "Không tìm thấy",
		Subtitle: "Thông tin chưa có trong hệ thống",
		Color:    st.Color,
		Message: fmt.Sprintf("Không tìm thấy thông tin cho %q. "+
			"Đây có thể là tài khoản mới hoặc thông tin chưa được cập nhật.", strings.TrimSpace(query)),
	}
	if skin != SkinClassic {
		c.Samples = append([]Sample(nil), Samples...)
	}
	return c
}

// Failure renders the generic error card. message is shown verbatim.
func Failure(message string) Card {
	return Card{
		Kind:     KindFailure,
		Level:    ports.LevelDanger,
		Icon:     "❌",
		Title:    "Lỗi hệ thống",
		Subtitle: "Không thể xử lý yêu cầu",
		Color:    StyleFor(ports.LevelDanger).Color,
		Message:  message,
	}
}

var nonDigits = regexp.MustCompile(`\D`)

// FormatPhone groups Vietnamese numbers for display: 10 digits as 4-3-3,
// 11 digits as 4-3-4. Anything else is returned unchanged.
func FormatPhone(phone string) string {
	if phone == "" {
		return placeholder
	}
	d := nonDigits.ReplaceAllString(phone, "")
	if len(d) != 10 && len(d) != 11 {
		return phone
	}
	return d[:4] + " " + d[4:7] + " " + d[7:]
}

// Highlight splits value into segments, marking every case-insensitive
// occurrence of query. A blank query or no occurrence yields one unmarked
// segment.
func Highlight(value, query string) []Segment {
	if query == "" || value == "" {
		return []Segment{{Text: value}}
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(query))
	if err != nil {
		return []Segment{{Text: value}}
	}
	locs := re.FindAllStringIndex(value, -1)
	if len(locs) == 0 {
		return []Segment{{Text: value}}
	}
	var segs []Segment
	pos := 0
	for _, loc := range locs {
		if loc[0] > pos {
			segs = append(segs, Segment{Text: value[pos:loc[0]]})
		}
		segs = append(segs, Segment{Text: value[loc[0]:loc[1]], Mark: true})
		pos = loc[1]
	}
	if pos < len(value) {
		segs = append(segs, Segment{Text: value[pos:]})
	}
	return segs
}

func highlightRow(label, value, query string) Row {
	if value == "" {
		return Row{Label: label, Value: placeholder}
	}
	row := Row{Label: label, Value: value}
	if segs := Highlight(value, query); len(segs) > 1 || (len(segs) == 1 && segs[0].Mark) {
		row.Segments = segs
	}
	return row
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
