package records

import "github.com/corey/trustcheck/internal/ports"

// DatasetVersion is the version of the compiled-in seed dataset.
const DatasetVersion = "2.1"

// Seed returns the compiled-in dataset. Each call returns fresh copies so
// stores never share backing arrays.
//
// RISK_001 carries a score of -99. It is kept as shipped and reported by
// Validate rather than clamped.
func Seed() []ports.TrustRecord {
	return []ports.TrustRecord{
		{
			ID:               "UYTIN_001",
			Phone:            "0868748858",
			Phones:           []string{"0868748858", "0987654321"},
			Account:          "0868748858",
			Accounts:         []string{"0868748858", "1122334455"},
			Bank:             "MB Bank",
			Banks:            []string{"MB Bank", "Vietcombank"},
			Name:             "Nguyễn Công Vinh",
			Aliases:          []string{"Vinh NC", "Nguyen Cong Vinh"},
			Score:            100,
			Level:            ports.LevelSafe,
			Note:             "Admin Web nhận giao dịch trung gian",
			Category:         "admin",
			Reports:          []ports.Report{},
			TransactionCount: 0,
			AgeYears:         0,
			Verified:         true,
			LastUpdated:      "2024-03-15",
			Tags:             []string{"admin", "verified", "premium"},
			Location:         "Hải Phòng",
			SocialLinks:      []string{},
		},
		{
			ID:       "UYTIN_002",
			Phone:    "0325822569",
			Phones:   []string{"0325822569"},
			Account:  "0325822569",
			Accounts: []string{"0325822569"},
			Bank:     "MB Bank",
			Banks:    []string{"MB Bank"},
			Name:     "Nguyễn Vinh Quang",
			Aliases:  []string{"Nguyen Vinh Quang"},
			Score:    100,
			Level:    ports.LevelSafe,
			Note:     "Bán iphone Uy Tín • Chuyên Apple chính hãng",
			Category: "seller",
			Reports: []ports.Report{
				{Date: "2024-02-01", Type: ports.ReportPositive, Note: "Giao dịch tốt, đúng hẹn"},
			},
			Verified:    true,
			LastUpdated: "2024-03-10",
			Tags:        []string{"electronics", "apple", "reliable"},
			Location:    "Hải Phòng",
			SocialLinks: []string{},
		},
		{
			ID:       "RISK_001",
			Phone:    "2000",
			Phones:   []string{"2000", "0900111222"},
			Account:  "66668888",
			Accounts: []string{"66668888", "99990000"},
			Bank:     "Techcombank",
			Banks:    []string{"Techcombank", "VPBank"},
			Name:     "NamGay",
			Aliases:  []string{"NamGay"},
			Score:    -99,
			Level:    ports.LevelDanger,
			Note:     "Nhiều báo cáo rủi ro • Lừa đảo qua điện thoại",
			Category: "scammer",
			Reports: []ports.Report{
				{Date: "2024-01-15", Type: ports.ReportScam, Note: "Lừa tiền đặt cọc"},
				{Date: "2024-02-20", Type: ports.ReportScam, Note: "Hàng giả, không giao"},
				{Date: "2024-03-01", Type: ports.ReportWarning, Note: "SĐT đã bị tố cáo"},
			},
			TransactionCount: 12,
			AgeYears:         0.5,
			Verified:         false,
			LastUpdated:      "2024-03-05",
			Tags:             []string{"scam", "warning", "blocked"},
			Location:         "Không xác định",
			SocialLinks:      []string{},
			Warning:          true,
			WarningMessage:   "⚠️ CẢNH BÁO: Tài khoản này đang bị điều tra",
		},
		{
			ID:       "CAUTION_001",
			Phone:    "1234567890",
			Phones:   []string{"1234567890"},
			Account:  "1234567890",
			Accounts: []string{"1234567890"},
			Bank:     "VietinBank",
			Banks:    []string{"VietinBank"},
			Name:     "Nguyễn Phú Trọng",
			Aliases:  []string{"Nguyễn Phú Trọng"},
			Score:    65,
			Level:    ports.LevelWarn,
			Note:     "Giao dịch chậm trễ đôi lúc • Cần theo dõi thêm",
			Category: "normal",
			Reports: []ports.Report{
				{Date: "2024-02-28", Type: ports.ReportDelay, Note: "Giao hàng trễ 3 ngày"},
			},
			TransactionCount: 24,
			AgeYears:         1,
			Verified:         true,
			LastUpdated:      "2024-03-12",
			Tags:             []string{"new", "monitoring"},
			Location:         "Đà Nẵng",
			SocialLinks:      []string{},
		},
	}
}
