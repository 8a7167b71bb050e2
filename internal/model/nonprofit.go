package model

// Nonprofit is an organization returned by a ProPublica search.
type Nonprofit struct {
	EIN            string `json:"ein"`
	Name           string `json:"name"`
	City           string `json:"city"`
	State          string `json:"state"`
	NTEECode       string `json:"ntee_code,omitempty"`
	SubsectionCode string `json:"subsection_code,omitempty"`
}

// Filing is one Form 990 filing. Amounts are nil when ProPublica has no
// value for them.
type Filing struct {
	TaxPeriod     string `json:"tax_period"`
	PDFURL        string `json:"pdf_url,omitempty"`
	TotalRevenue  *int64 `json:"total_revenue"`
	TotalExpenses *int64 `json:"total_expenses"`
	TotalAssets   *int64 `json:"total_assets"`
	NetAssets     *int64 `json:"net_assets"`
}

// NonprofitDetails is an organization with its filings, newest first.
type NonprofitDetails struct {
	EIN      string   `json:"ein"`
	Name     string   `json:"name"`
	City     string   `json:"city"`
	State    string   `json:"state"`
	NTEECode string   `json:"ntee_code,omitempty"`
	Filings  []Filing `json:"filings"`
}

// LatestFiling returns the newest filing, or nil when there are none.
func (d *NonprofitDetails) LatestFiling() *Filing {
	if len(d.Filings) == 0 {
		return nil
	}
	return &d.Filings[0]
}

// FinancialYear is one year of financial history derived from a filing.
type FinancialYear struct {
	Year        string `json:"year"`
	Revenue     *int64 `json:"revenue"`
	Expenses    *int64 `json:"expenses"`
	NetIncome   *int64 `json:"net_income"`
	TotalAssets *int64 `json:"total_assets"`
	NetAssets   *int64 `json:"net_assets"`
}

// FinancialYearFromFiling computes net income when both revenue and
// expenses are known.
func FinancialYearFromFiling(f Filing) FinancialYear {
	fy := FinancialYear{
		Year:        f.TaxPeriod,
		Revenue:     f.TotalRevenue,
		Expenses:    f.TotalExpenses,
		TotalAssets: f.TotalAssets,
		NetAssets:   f.NetAssets,
	}
	if f.TotalRevenue != nil && f.TotalExpenses != nil {
		n := *f.TotalRevenue - *f.TotalExpenses
		fy.NetIncome = &n
	}
	return fy
}
