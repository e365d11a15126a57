// Package metrics defines the minimal backend interface the extraction
// pipeline emits into. Concrete backends (Datadog, noop) live in
// subpackages or below; the core depends only on this interface.
package metrics

// Labels are free-form metric dimensions (page, status, kind).
type Labels map[string]string

// Backend receives counters and histogram samples.
//
// Implementations buffer internally; Flush submits and Close flushes one
// final time before releasing resources.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
	Close() error
}

// Metric names emitted by the pipeline. Backends route on these.
const (
	MetricRuns            = "rosterwatch_runs_total"
	MetricRows            = "rosterwatch_rows_total"
	MetricMismatches      = "rosterwatch_mismatches_total"
	MetricExtractDuration = "rosterwatch_extract_duration_seconds"
	MetricHTTPRequests    = "rosterwatch_http_requests_total"
	MetricHTTPErrors      = "rosterwatch_http_errors_total"
)

// Noop discards everything. Used when metrics are not configured.
type Noop struct{}

func (Noop) IncCounter(string, float64, Labels) {}

func (Noop) ObserveHistogram(string, float64, Labels) {}

func (Noop) Flush() error { return nil }

func (Noop) Close() error { return nil }

var _ Backend = Noop{}
