package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_JSONUsesURLKey(t *testing.T) {
	data, err := json.Marshal(Provider{Name: "Acme", Link: "https://portal.ct.gov/a.pdf"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Acme","url":"https://portal.ct.gov/a.pdf"}`, string(data))
}

func TestNewProviderMatch_PrefersProviderTown(t *testing.T) {
	m := NewProviderMatch(Provider{Name: "Acme", Link: "l", Town: "Hartford"}, "HARTFORD")
	assert.Equal(t, ProviderMatch{Name: "Acme", URL: "l", Town: "Hartford"}, m)

	m = NewProviderMatch(Provider{Name: "Acme", Link: "l"}, "Bristol")
	assert.Equal(t, "Bristol", m.Town)
}
