// Package export writes session rows as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ayusman/mudra/internal/session"
)

// TimestampLayout formats the timestamp column.
const TimestampLayout = "2006-01-02 15:04:05.000"

// column maps one CSV column to a row field.
type column struct {
	name  string
	value func(r *session.Row) string
}

// columns is the static field-to-column mapping, in declaration order.
var columns = []column{
	{"timestamp", func(r *session.Row) string { return r.Timestamp.Format(TimestampLayout) }},
	{"task_label", func(r *session.Row) string { return r.TaskLabel }},
	{"rep_index", func(r *session.Row) string { return strconv.Itoa(r.RepIndex) }},
	{"channel", func(r *session.Row) string { return r.Channel.String() }},
	{"event_kind", func(r *session.Row) string { return r.Kind.String() }},
	{"duration_seconds", func(r *session.Row) string { return formatFloat(r.Duration.Seconds()) }},
	{"observed_strength", func(r *session.Row) string { return formatFloat(r.Strength) }},
}

// Header returns the column names.
func Header() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.name
	}
	return out
}

// Record returns the fields of one row.
func Record(r *session.Row) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.value(r)
	}
	return out
}

// WriteRows writes a header and one line per row. Fields containing a
// comma, quote or newline are quoted.
func WriteRows(w io.Writer, rows []session.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := range rows {
		if err := cw.Write(Record(&rows[i])); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileName returns the export file name for a session started at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("session_%s.csv", t.Format("20060102_150405"))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
