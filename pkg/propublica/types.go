package propublica

import (
	"bytes"
	"encoding/json"
	"strings"
)

// flexString decodes a JSON string, number or null into a string. The API
// returns EINs as numbers and codes as either type.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type searchResponse struct {
	Organizations []searchOrg `json:"organizations"`
}

type searchOrg struct {
	EIN            flexString `json:"ein"`
	Name           string     `json:"name"`
	City           string     `json:"city"`
	State          string     `json:"state"`
	NTEECode       flexString `json:"ntee_code"`
	SubsectionCode flexString `json:"subsection_code"`
}

type orgResponse struct {
	Organization orgSummary  `json:"organization"`
	Filings      []filingRow `json:"filings_with_data"`
}

type orgSummary struct {
	EIN       flexString `json:"ein"`
	Name      string     `json:"name"`
	City      string     `json:"city"`
	State     string     `json:"state"`
	NTEECode  flexString `json:"ntee_code"`
	TaxPeriod flexString `json:"tax_period"`
	Revenue   *int64     `json:"revenue_amount"`
	Assets    *int64     `json:"asset_amount"`
	Income    *int64     `json:"income_amount"`
}

type filingRow struct {
	TaxYear       flexString `json:"tax_prd_yr"`
	PDFURL        flexString `json:"pdf_url"`
	TotalRevenue  *int64     `json:"totrevenue"`
	TotalExpenses *int64     `json:"totfuncexpns"`
	TotalAssets   *int64     `json:"totassetsend"`
	NetAssets     *int64     `json:"totnetassetsend"`
}
