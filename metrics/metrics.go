// Package metrics exposes the core's internal observability surface as
// prometheus collectors: query latency, posting store growth, and typo
// dictionary arena size. This is plumbing consumed by an external HTTP
// exporter (out of scope here, per spec §1's "HTTP surface" non-goal) —
// the core only registers and updates the collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry groups the collectors a Collection manager updates during its
// write and query paths. Callers may pass prometheus.NewRegistry() or
// prometheus.DefaultRegisterer; a nil Registry is a valid, inert no-op.
type Registry struct {
	QueryDuration  *prometheus.HistogramVec
	IndexedDocs    *prometheus.GaugeVec
	PostingBytes   *prometheus.GaugeVec
	TypoArenaNodes *prometheus.GaugeVec
}

// New builds and registers a Registry against reg. Pass nil to get an
// unregistered, purely in-process Registry (useful for unit tests that
// don't want to touch the default global registerer).
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "antfly",
			Subsystem: "search",
			Name:      "query_duration_seconds",
			Help:      "End-to-end search() latency by collection.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collection"}),
		IndexedDocs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "antfly",
			Subsystem: "collection",
			Name:      "indexed_documents",
			Help:      "Live document count per collection.",
		}, []string{"collection"}),
		PostingBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "antfly",
			Subsystem: "posting",
			Name:      "buffer_bytes",
			Help:      "Total allocated posting buffer bytes per collection/field.",
		}, []string{"collection", "field"}),
		TypoArenaNodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "antfly",
			Subsystem: "typodict",
			Name:      "arena_nodes",
			Help:      "Live trie arena node count per collection/field.",
		}, []string{"collection", "field"}),
	}
	if reg != nil {
		reg.MustRegister(m.QueryDuration, m.IndexedDocs, m.PostingBytes, m.TypoArenaNodes)
	}
	return m
}
