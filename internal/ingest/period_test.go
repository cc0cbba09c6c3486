package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
		wantErr  bool
	}{
		{"AMZN_Q3_2025.pdf", "Q3-2025", false},
		{"amzn-q3-2025-earnings.html", "Q3-2025", false},
		{"Q1 2024 results.pdf", "Q1-2024", false},
		{"msft_FY2024_annual.pdf", "FY-2024", false},
		{"Annual-2023-report.pdf", "FY-2023", false},
		{"/data/filings/AMZN/Q2_2025.pdf", "Q2-2025", false},
		{"random-report.pdf", "", true},
		{"Q5_2025.pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := PeriodFromFilename(tt.filename)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocIDFor(t *testing.T) {
	assert.Equal(t, "amzn_Q3-2025_amzn-q3-2025-earnings",
		DocIDFor("AMZN", "Q3-2025", "AMZN Q3 2025 Earnings.pdf"))
	assert.Equal(t, "msft_FY-2024_annual-report",
		DocIDFor("msft", "FY-2024", "/tmp/Annual_Report.pdf"))
}
