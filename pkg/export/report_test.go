package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	return Report{
		Title: "Mission Report: Bunk Alef",
		Rows: []Row{
			{
				Date:       "2026-07-01",
				Bunk:       "Bunk Alef",
				Camper:     "Yoni Cotlar",
				Status:     "approved",
				Missions:   []string{"shacharit", "chesed"},
				ApprovedBy: "auto",
			},
		},
	}
}

func TestReportCSV(t *testing.T) {
	raw, err := sampleReport().CSV()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Date,Bunk,Camper,Status,Missions,Count,Approved By", lines[0])
	assert.Contains(t, lines[1], "shacharit chesed,2")
}

func TestReportPDFProducesDocument(t *testing.T) {
	raw, err := sampleReport().PDF()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
}
