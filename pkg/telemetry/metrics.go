package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WriteMetrics writes every metric registered with the default registry to
// path in the Prometheus text format, for collection by a node exporter
// textfile collector.
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
