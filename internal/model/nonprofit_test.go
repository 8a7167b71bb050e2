package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func TestLatestFiling(t *testing.T) {
	d := &NonprofitDetails{}
	assert.Nil(t, d.LatestFiling())

	d.Filings = []Filing{{TaxPeriod: "2023"}, {TaxPeriod: "2022"}}
	require.NotNil(t, d.LatestFiling())
	assert.Equal(t, "2023", d.LatestFiling().TaxPeriod)
}

func TestFinancialYearFromFiling(t *testing.T) {
	fy := FinancialYearFromFiling(Filing{
		TaxPeriod:     "2022",
		TotalRevenue:  ptr(1000),
		TotalExpenses: ptr(1500),
		TotalAssets:   ptr(200),
	})
	require.NotNil(t, fy.NetIncome)
	assert.Equal(t, int64(-500), *fy.NetIncome)
	assert.Equal(t, "2022", fy.Year)
	assert.Nil(t, fy.NetAssets)

	fy = FinancialYearFromFiling(Filing{TaxPeriod: "2024", TotalRevenue: ptr(10)})
	assert.Nil(t, fy.NetIncome)
}
