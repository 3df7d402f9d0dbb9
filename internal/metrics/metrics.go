// Package metrics exposes Prometheus collectors for the agent and relay.
// Collectors register on the default registry; binaries serve them via
// promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SegmentsCut counts segments emitted by the segmentation engine,
	// labeled by cut reason ("silence" or "max").
	SegmentsCut = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earshot_segments_cut_total",
		Help: "Audio segments emitted by the segmentation engine.",
	}, []string{"reason"})

	// SegmentDuration observes emitted segment lengths in seconds.
	SegmentDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "earshot_segment_duration_seconds",
		Help:    "Duration of emitted audio segments.",
		Buckets: prometheus.LinearBuckets(0.5, 0.5, 16),
	})

	// TranscribeLatency observes STT round-trip time.
	TranscribeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "earshot_transcribe_latency_seconds",
		Help:    "Latency of transcription service calls.",
		Buckets: prometheus.DefBuckets,
	})

	// FramesDropped counts capture frames discarded because the frame
	// channel was full.
	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "earshot_capture_frames_dropped_total",
		Help: "Capture frames dropped on channel overflow.",
	})

	// QuestionsAdmitted counts questions accepted for answering, labeled by
	// trigger ("auto" or "manual").
	QuestionsAdmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earshot_questions_admitted_total",
		Help: "Questions admitted to the answer dispatcher.",
	}, []string{"trigger"})

	// QuestionsRejected counts admission rejections, labeled by reason
	// ("inactive", "duplicate", "cooldown", "busy").
	QuestionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earshot_questions_rejected_total",
		Help: "Questions rejected by the admission gate.",
	}, []string{"reason"})

	// Answers counts dispatched answers by outcome ("sent", "empty",
	// "reason_error", "relay_error").
	Answers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earshot_answers_total",
		Help: "Answer dispatch outcomes.",
	}, []string{"status"})

	// AnswerLatency observes time from question pickup to relay post.
	AnswerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "earshot_answer_latency_seconds",
		Help:    "End-to-end answer dispatch latency.",
		Buckets: prometheus.DefBuckets,
	})

	// StreamActive is 1 while a streaming session is live.
	StreamActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "earshot_stream_active",
		Help: "Whether a loopback streaming session is running.",
	})

	// QueueEnqueued counts tasks accepted by the global request queue.
	QueueEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earshot_queue_enqueued_total",
		Help: "Tasks accepted by the request queue.",
	}, []string{"label"})

	// QueueDropped counts tasks rejected by the global request queue,
	// labeled by reason ("cooldown" or "full").
	QueueDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earshot_queue_dropped_total",
		Help: "Tasks dropped by the request queue.",
	}, []string{"label", "reason"})

	// QueueProcessed counts tasks the queue worker finished.
	QueueProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earshot_queue_processed_total",
		Help: "Tasks executed by the request queue worker.",
	}, []string{"label"})

	// PipelineLatency observes heavy pipeline execution time by kind
	// ("image" or "audio").
	PipelineLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "earshot_pipeline_latency_seconds",
		Help:    "Heavy pipeline execution latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// RelayFeedback counts payloads accepted by the relay, labeled by mode.
	RelayFeedback = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earshot_relay_feedback_total",
		Help: "Feedback payloads accepted by the relay.",
	}, []string{"mode"})

	// RelayViewers tracks connected websocket viewers.
	RelayViewers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "earshot_relay_viewers",
		Help: "Connected relay websocket viewers.",
	})
)
