package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseCSV reads a header row followed by data rows. The last data row wins,
// so an export of a time series yields its most recent sample.
func ParseCSV(r io.Reader) (Draft, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Draft{}, ErrNoMetrics
	}
	if err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}

	var last []string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Draft{}, fmt.Errorf("%w: %v", ErrInvalidField, err)
		}
		if len(strings.Join(row, "")) == 0 {
			continue
		}
		last = row
	}
	if last == nil {
		return Draft{}, ErrNoMetrics
	}

	d := DefaultDraft()
	d.Name = ""
	found := 0
	for i, field := range header {
		if i >= len(last) || strings.TrimSpace(last[i]) == "" {
			continue
		}
		ok, err := d.Set(field, last[i])
		if err != nil {
			return Draft{}, err
		}
		if ok && IsMetricField(field) {
			found++
		}
	}
	if found == 0 {
		return Draft{}, ErrNoMetrics
	}
	return d, nil
}
