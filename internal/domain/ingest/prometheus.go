package ingest

import (
	"fmt"
	"io"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Gauge names read from a Prometheus text exposition, in naming priority.
var promFields = []struct{ family, field string }{
	{"soe_uptime_percent", "uptime"},
	{"soe_error_rate_percent", "errorRate"},
	{"soe_cpu_utilization_percent", "cpuUtilization"},
	{"soe_memory_utilization_percent", "memoryUtilization"},
	{"soe_throughput_rps", "throughput"},
	{"soe_response_time_ms", "responseTime"},
}

// nameLabels are tried in order to name the draft.
var nameLabels = []string{"system", "service", "job"}

// ParsePrometheus reads a text exposition. Each soe_* family is averaged
// across its series; the first series label in nameLabels names the draft.
func ParsePrometheus(r io.Reader) (Draft, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return Draft{}, fmt.Errorf("%w: parse prometheus text: %v", ErrInvalidField, err)
	}

	d := DefaultDraft()
	d.Name = ""
	found := 0
	for _, pf := range promFields {
		mf := mfs[pf.family]
		avg, ok := averageFamily(mf)
		if !ok {
			continue
		}
		if _, err := d.Set(pf.field, fmt.Sprint(avg)); err != nil {
			return Draft{}, err
		}
		found++
		if d.Name == "" {
			d.Name = seriesName(mf)
		}
	}
	if found == 0 {
		return Draft{}, ErrNoMetrics
	}
	return d, nil
}

func averageFamily(mf *dto.MetricFamily) (float64, bool) {
	if mf == nil {
		return 0, false
	}
	var total float64
	n := 0
	for _, m := range mf.GetMetric() {
		switch {
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		case m.Counter != nil:
			total += m.Counter.GetValue()
		default:
			continue
		}
		n++
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

func seriesName(mf *dto.MetricFamily) string {
	for _, want := range nameLabels {
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == want && lp.GetValue() != "" {
					return lp.GetValue()
				}
			}
		}
	}
	return ""
}
