// Package export renders flattened submission reports for download.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// Row is one submission line in a report.
type Row struct {
	Date       string
	Bunk       string
	Camper     string
	Status     string
	Missions   []string
	ApprovedBy string
}

// Report is a filtered submission set ready for rendering.
type Report struct {
	Title string
	Rows  []Row
}

var reportColumns = []string{"Date", "Bunk", "Camper", "Status", "Missions", "Count", "Approved By"}

func (r Row) record() []string {
	return []string{
		r.Date,
		r.Bunk,
		r.Camper,
		r.Status,
		strings.Join(r.Missions, " "),
		strconv.Itoa(len(r.Missions)),
		r.ApprovedBy,
	}
}

// CSV renders the report with a header line, one line per submission.
func (r Report) CSV() ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(reportColumns); err != nil {
		return nil, fmt.Errorf("write report header: %w", err)
	}
	for _, row := range r.Rows {
		if err := w.Write(row.record()); err != nil {
			return nil, fmt.Errorf("write report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush report: %w", err)
	}
	return buf.Bytes(), nil
}
