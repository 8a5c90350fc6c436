// Package metrics exposes the Prometheus counters/gauges spec §5 requires
// for the engine's atomic resource counters: dropped audio batches, dedup
// ratio, per-frame processing latency, and STT reconnect attempts.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "ambient_meetings"

var (
	FramesProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_processed_total",
		Help:      "Total screen frames fed into the dedup gate.",
	}, []string{"meeting_id"})

	FramesDeduplicatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_deduplicated_total",
		Help:      "Total screen frames classified as duplicates by the dedup gate.",
	}, []string{"meeting_id", "reason"})

	FrameProcessingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "frame_processing_duration_seconds",
		Help:      "Time to run one frame through the dedup/state/episode pipeline.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"meeting_id"})

	// AudioBatchesDropped is a gauge rather than a counter: the pipeline
	// tracks its own cumulative atomic drop count and the engine snapshots
	// it here on every ingest, so Set (not Add) is the right operation.
	AudioBatchesDropped = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audio_batches_dropped",
		Help:      "Cumulative audio frames dropped due to a full transcript batch channel.",
	}, []string{"meeting_id"})

	STTReconnectAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stt_reconnect_attempts_total",
		Help:      "Total STT connect calls by outcome; the retries inside one call count once.",
	}, []string{"meeting_id", "outcome"})

	ActiveMeetings = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_meetings",
		Help:      "Number of meetings the engine currently owns a pipeline for.",
	})

	TimelineEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "timeline_events_total",
		Help:      "Total timeline events emitted, by type.",
	}, []string{"meeting_id", "event_type"})

	LiveIntelEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "live_intel_events_total",
		Help:      "Total Live Intel Agent insight events, by kind.",
	}, []string{"meeting_id", "kind"})
)

func init() {
	prometheus.MustRegister(
		FramesProcessedTotal,
		FramesDeduplicatedTotal,
		FrameProcessingDuration,
		AudioBatchesDropped,
		STTReconnectAttemptsTotal,
		ActiveMeetings,
		TimelineEventsTotal,
		LiveIntelEventsTotal,
	)
}
