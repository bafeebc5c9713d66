package bulk

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Report is everything needed to export a finished bulk operation.
type Report struct {
	Operation Operation
	Total     int
	Duration  time.Duration
	Result    *Result
}

// WriteReport renders r as CSV: a summary block, a blank line, then an
// "Errors:" section with one row per item error.
func WriteReport(w io.Writer, r Report) error {
	if r.Result == nil {
		return fmt.Errorf("report has no result")
	}
	cw := csv.NewWriter(w)

	total := r.Total
	if total == 0 {
		total = r.Result.Total()
	}

	records := [][]string{
		{"Operation", "Total", "Success", "Failed", "Skipped", "Duration"},
		{
			r.Operation.Title(),
			strconv.Itoa(total),
			strconv.Itoa(r.Result.Success),
			strconv.Itoa(r.Result.Failed),
			strconv.Itoa(r.Result.Skipped),
			r.Duration.Round(time.Millisecond).String(),
		},
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	// csv.Writer cannot emit an empty record, so the separator goes straight to w.
	if _, err := io.WriteString(w, "\nErrors:\n"); err != nil {
		return fmt.Errorf("write separator: %w", err)
	}

	if err := cw.Write([]string{"User", "Error", "Code", "Timestamp"}); err != nil {
		return fmt.Errorf("write error header: %w", err)
	}
	for _, e := range r.Result.Errors {
		user := e.UserEmail
		if user == "" {
			user = e.UserID
		}
		if err := cw.Write([]string{user, e.Error, e.Code, e.Timestamp.UTC().Format(time.RFC3339)}); err != nil {
			return fmt.Errorf("write error row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
