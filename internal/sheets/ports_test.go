package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"emianalyzer/internal/core"
	"emianalyzer/internal/report"
)

func TestA1Range(t *testing.T) {
	tests := []struct {
		sheet, cells, want string
	}{
		{"Users", "A:L", "Users!A:L"},
		{"Risk Summary", "A1:A1", "'Risk Summary'!A1:A1"},
		{"Bob's", "A1", "'Bob''s'!A1"},
	}
	for _, tt := range tests {
		t.Run(tt.sheet, func(t *testing.T) {
			assert.Equal(t, tt.want, A1Range(tt.sheet, tt.cells))
		})
	}
}

func TestSummaryValues(t *testing.T) {
	at := time.Date(2024, 3, 9, 18, 5, 0, 0, time.FixedZone("IST", 19800))
	rows := []report.UserRow{{
		User:               core.User{ID: 7, Username: "ravi"},
		EMIRatio:           33.333,
		OverallBurdenRatio: 12.345,
		HealthZone:         "Risky",
		MaskedEmail:        "ra**@example.com",
		RiskLevel:          core.RiskLow,
	}}

	got := SummaryValues(rows, at)
	assert.Len(t, got, 1)
	assert.Len(t, got[0], len(SummaryHeader))
	assert.Equal(t, "2024-03-09 12:35", got[0][0])
	assert.Equal(t, "No", got[0][4])
	assert.Equal(t, 33.33, got[0][5])
	assert.Equal(t, "", got[0][11])
}
