// Package ingest turns external inputs (HTML forms, uploaded files,
// Prometheus expositions) into a typed metrics draft.
//
// Every input format funnels through the same field table: a field name maps
// to a setter that parses the raw value into the typed Draft.
package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/soe/internal/domain/scoring"
)

// Default names.
const (
	DefaultName  = "New-System-Snapshot"
	ImportedName = "Imported-Data"
)

// Sentinel errors.
var (
	ErrInvalidField = errors.New("invalid field value")
	ErrNoMetrics    = errors.New("no metrics found")
	ErrUnsupported  = errors.New("unsupported input format")
)

// Format names an input format.
type Format string

// Formats.
const (
	FormatForm       Format = "form"
	FormatJSON       Format = "json"
	FormatYAML       Format = "yaml"
	FormatCSV        Format = "csv"
	FormatPrometheus Format = "prometheus"
)

// Draft is a named metrics record awaiting scoring.
type Draft struct {
	Name    string          `json:"name"`
	Metrics scoring.Metrics `json:"metrics"`
}

// DefaultDraft returns the values a blank entry form starts with.
func DefaultDraft() Draft {
	return Draft{
		Name: DefaultName,
		Metrics: scoring.Metrics{
			Uptime:            99.9,
			ErrorRate:         0.05,
			CPUUtilization:    45,
			MemoryUtilization: 50,
			Throughput:        800,
			ResponseTime:      150,
		},
	}
}

type setter func(d *Draft, raw string) error

func number(dst func(*Draft) *float64) setter {
	return func(d *Draft, raw string) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("not a finite number")
		}
		*dst(d) = v
		return nil
	}
}

// fieldParsers is keyed by the canonical field key (see canonical).
var fieldParsers = map[string]setter{
	"name": func(d *Draft, raw string) error {
		d.Name = strings.TrimSpace(raw)
		return nil
	},
	"uptime":            number(func(d *Draft) *float64 { return &d.Metrics.Uptime }),
	"errorrate":         number(func(d *Draft) *float64 { return &d.Metrics.ErrorRate }),
	"cpuutilization":    number(func(d *Draft) *float64 { return &d.Metrics.CPUUtilization }),
	"memoryutilization": number(func(d *Draft) *float64 { return &d.Metrics.MemoryUtilization }),
	"throughput":        number(func(d *Draft) *float64 { return &d.Metrics.Throughput }),
	"responsetime":      number(func(d *Draft) *float64 { return &d.Metrics.ResponseTime }),
}

// canonical folds errorRate, error_rate and error-rate to one key.
func canonical(field string) string {
	r := strings.NewReplacer("_", "", "-", "", " ", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(field)))
}

// Set parses raw into field. Unknown fields report ok=false.
func (d *Draft) Set(field, raw string) (ok bool, err error) {
	p, found := fieldParsers[canonical(field)]
	if !found {
		return false, nil
	}
	if err := p(d, raw); err != nil {
		return true, fmt.Errorf("%w: %s=%q", ErrInvalidField, field, raw)
	}
	return true, nil
}

// IsMetricField reports whether field names one of the six metrics.
func IsMetricField(field string) bool {
	k := canonical(field)
	_, ok := fieldParsers[k]
	return ok && k != "name"
}
