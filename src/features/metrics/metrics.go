package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Record outcome labels.
const (
	OutcomePlay           = "play"
	OutcomePodcastPlay    = "podcast_play"
	OutcomeAudiobookPlay  = "audiobook_play"
	OutcomeBelowThreshold = "skipped_below_threshold"
	OutcomeMissingFields  = "skipped_missing_fields"
	OutcomeUnknown        = "skipped_unknown"
	OutcomeError          = "error"
)

// Recorder holds the prometheus collectors for the import/aggregation
// pipeline. One instance per process, registered on an injected registry.
type Recorder struct {
	ImportsStarted      prometheus.Counter
	RecordsProcessed    *prometheus.CounterVec
	EntitiesCreated     *prometheus.CounterVec
	ImportDuration      prometheus.Histogram
	AggregationDuration prometheus.Histogram
}

// NewRecorder registers the pipeline collectors on the given registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	return &Recorder{
		ImportsStarted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "playtrace_imports_started_total",
			Help: "Import runs started.",
		}),
		RecordsProcessed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "playtrace_records_processed_total",
			Help: "Export records processed, by outcome.",
		}, []string{"outcome"}),
		EntitiesCreated: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "playtrace_entities_created_total",
			Help: "Dimension rows created, by kind.",
		}, []string{"kind"}),
		ImportDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "playtrace_import_duration_seconds",
			Help:    "Wall-clock duration of import runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		AggregationDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "playtrace_aggregation_duration_seconds",
			Help:    "Wall-clock duration of rollup rebuilds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}
