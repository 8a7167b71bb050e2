package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCandidateName(t *testing.T) {
	tests := []struct {
		name string
		line string
		town string
		want bool
	}{
		{"organization", "Acme Services Inc", "Hartford", true},
		{"empty", "", "Hartford", false},
		{"http link", "Acme http://x.gov", "", false},
		{"https link", "https://x.gov/a.pdf", "", false},
		{"heading", "PROVIDER NAME", "", false},
		{"heading mixed case", "Link to Provider Profile", "", false},
		{"heading variant", "QUALIFIED PROVIDERS BY TOWN", "", false},
		{"date", "Updated 3/14/2024", "", false},
		{"short date", "1/2/24", "", false},
		{"digits", "2024", "", false},
		{"town", "hartford", "Hartford", false},
		{"town substring is fine", "Hartford Hospital", "Hartford", true},
		{"too short", "AB", "", false},
		{"three chars", "ABC", "", true},
		{"no town given", "Hartford", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCandidateName(tt.line, tt.town))
		})
	}
}

func TestIsHeading(t *testing.T) {
	assert.True(t, IsHeading("DDS QUALIFIED PROVIDERS BY TOWN"))
	assert.True(t, IsHeading("dds qualified providers"))
	assert.False(t, IsHeading("DDS QUALIFIED PROVIDERS BY TOWN 2024"))
}
