package tagging

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Column names a tag file must carry.
const (
	LabelColumn     = "tag"
	ReferenceColumn = "article"
)

// ErrMissingColumn is returned when a tag file lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// ReadRecords reads tag records from CSV. The first row names the columns;
// "tag" and "article" are required and any others are carried along in
// Fields.
func ReadRecords(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := make([]string, len(rows[0]))
	labelIdx, refIdx := -1, -1
	for i, name := range rows[0] {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		columns[i] = name
		switch name {
		case LabelColumn:
			labelIdx = i
		case ReferenceColumn:
			refIdx = i
		}
	}
	if labelIdx < 0 {
		return nil, fmt.Errorf("read tags: %w %q", ErrMissingColumn, LabelColumn)
	}
	if refIdx < 0 {
		return nil, fmt.Errorf("read tags: %w %q", ErrMissingColumn, ReferenceColumn)
	}

	records := make([]Record, 0, len(rows)-1)
	for line, row := range rows[1:] {
		if len(row) <= max(labelIdx, refIdx) {
			return nil, fmt.Errorf("read tags: row %d has %d fields", line+2, len(row))
		}
		fields := make(map[string]string, len(columns))
		for i, name := range columns {
			if i < len(row) {
				fields[name] = row[i]
			}
		}
		records = append(records, Record{
			Label:     strings.TrimSpace(row[labelIdx]),
			Reference: strings.TrimSpace(row[refIdx]),
			Fields:    fields,
		})
	}
	return records, nil
}

// WriteReport writes report as CSV. The columns are the sorted union of the
// records' field names, so a report reproduces the rows it was read from.
func WriteReport(w io.Writer, report Report) error {
	seen := map[string]bool{}
	for _, rec := range report {
		for name := range rec.fields() {
			seen[name] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for name := range seen {
		columns = append(columns, name)
	}
	sort.Strings(columns)
	if len(columns) == 0 {
		columns = []string{ReferenceColumn, LabelColumn}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write tag report: %w", err)
	}
	for _, rec := range report {
		fields := rec.fields()
		row := make([]string, len(columns))
		for i, name := range columns {
			row[i] = fields[name]
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write tag report: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// fields returns the record's source row, or one built from Label and
// Reference for records that were not read from CSV.
func (r Record) fields() map[string]string {
	if len(r.Fields) > 0 {
		return r.Fields
	}
	return map[string]string{LabelColumn: r.Label, ReferenceColumn: r.Reference}
}
