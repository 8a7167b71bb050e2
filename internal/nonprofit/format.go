package nonprofit

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/dds-finder/internal/model"
)

var usd = message.NewPrinter(language.English)

// FormatUSD renders whole dollars with thousands separators: $1,234 or
// -$5. Nil is "N/A".
func FormatUSD(v *int64) string {
	if v == nil {
		return "N/A"
	}
	n := *v
	if n < 0 {
		// Negate as uint64 so math.MinInt64 survives.
		return usd.Sprintf("-$%d", uint64(-n))
	}
	return usd.Sprintf("$%d", n)
}

// RawYear carries the unformatted amounts of a YearView.
type RawYear struct {
	Revenue     *int64 `json:"revenue"`
	Expenses    *int64 `json:"expenses"`
	NetIncome   *int64 `json:"netIncome"`
	TotalAssets *int64 `json:"totalAssets"`
	NetAssets   *int64 `json:"netAssets"`
}

// YearView is a FinancialYear formatted for display, with raw values kept
// for calculations.
type YearView struct {
	Year      string  `json:"year"`
	Revenue   string  `json:"revenue"`
	Expenses  string  `json:"expenses"`
	NetIncome string  `json:"netIncome"`
	Assets    string  `json:"assets"`
	NetAssets string  `json:"netAssets"`
	Raw       RawYear `json:"raw"`
}

// NewYearView formats fy.
func NewYearView(fy model.FinancialYear) YearView {
	return YearView{
		Year:      fy.Year,
		Revenue:   FormatUSD(fy.Revenue),
		Expenses:  FormatUSD(fy.Expenses),
		NetIncome: FormatUSD(fy.NetIncome),
		Assets:    FormatUSD(fy.TotalAssets),
		NetAssets: FormatUSD(fy.NetAssets),
		Raw: RawYear{
			Revenue:     fy.Revenue,
			Expenses:    fy.Expenses,
			NetIncome:   fy.NetIncome,
			TotalAssets: fy.TotalAssets,
			NetAssets:   fy.NetAssets,
		},
	}
}
