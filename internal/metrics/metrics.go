package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsProcessed counts finished analysis jobs by outcome
	// (completed, failed, persist_failed).
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_jobs_processed_total",
		Help: "Analysis jobs processed, labelled by outcome.",
	}, []string{"status"})

	// JobDuration observes end-to-end processing time per job.
	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_job_duration_seconds",
		Help:    "End-to-end analysis job duration.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	// Transcriptions counts per-item transcription outcomes
	// (ok, no_speech, failed).
	Transcriptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_transcriptions_total",
		Help: "Audio transcriptions, labelled by result.",
	}, []string{"result"})

	// JobsEnqueued counts accepted submissions.
	JobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analysis_jobs_enqueued_total",
		Help: "Analysis jobs accepted by the submission endpoint.",
	})
)
