package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the wake word capture daemon
type Metrics struct {
	// Pipeline metrics
	FramesProcessed  prometheus.Counter
	TriggersDetected prometheus.Counter
	SourceReadErrors prometheus.Counter

	// Capture metrics
	CaptureState      prometheus.Gauge
	SessionsCompleted prometheus.Counter
	SessionsDiscarded prometheus.Counter
	SessionDuration   prometheus.Histogram

	// Artifact metrics
	ArtifactsWritten  prometheus.Counter
	ArtifactsDeleted  prometheus.Counter
	ArtifactsRetained prometheus.Counter
	ArtifactSize      prometheus.Histogram

	// Delivery metrics
	DeliveryAttempts *prometheus.CounterVec
	DeliveryDuration prometheus.Histogram

	// UDP source metrics
	PacketsReceived prometheus.Counter
	PacketsDropped  prometheus.Counter
	ParseErrors     prometheus.Counter
	QueueSize       prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Pipeline metrics
		FramesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listen_frames_processed_total",
			Help: "Total number of audio frames pulled from the source",
		}),
		TriggersDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listen_triggers_detected_total",
			Help: "Total number of wake word detections",
		}),
		SourceReadErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listen_source_read_errors_total",
			Help: "Total number of frame source read errors",
		}),

		// Capture metrics
		CaptureState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "listen_capture_recording",
			Help: "Capture state, 1 while a recording window is open",
		}),
		SessionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listen_sessions_completed_total",
			Help: "Total number of completed capture sessions",
		}),
		SessionsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listen_sessions_discarded_total",
			Help: "Total number of capture sessions discarded before completion",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "listen_session_duration_seconds",
			Help:    "Wall clock length of completed capture sessions",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s to ~2 minutes
		}),

		// Artifact metrics
		ArtifactsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listen_artifacts_written_total",
			Help: "Total number of WAV artifacts written",
		}),
		ArtifactsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listen_artifacts_deleted_total",
			Help: "Total number of WAV artifacts deleted after delivery",
		}),
		ArtifactsRetained: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listen_artifacts_retained_total",
			Help: "Total number of WAV artifacts retained after failed delivery",
		}),
		ArtifactSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "listen_artifact_size_bytes",
			Help:    "Size of written WAV artifacts in bytes",
			Buckets: prometheus.ExponentialBuckets(16384, 2, 10), // 16KB to ~8MB
		}),

		// Delivery metrics
		DeliveryAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "listen_delivery_attempts_total",
			Help: "Total number of delivery attempts by outcome",
		}, []string{"outcome"}),
		DeliveryDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "listen_delivery_duration_seconds",
			Help:    "Duration of SMTP delivery attempts",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// UDP source metrics
		PacketsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listen_udp_packets_received_total",
			Help: "Total number of UDP packets received",
		}),
		PacketsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listen_udp_packets_dropped_total",
			Help: "Total number of UDP packets dropped due to a full queue",
		}),
		ParseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listen_udp_parse_errors_total",
			Help: "Total number of packet parsing errors",
		}),
		QueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "listen_udp_packet_queue_size",
			Help: "Current number of packets in the receive queue",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "listen_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "listen_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "listen_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordFrameProcessed increments the frames processed counter
func (m *Metrics) RecordFrameProcessed() {
	m.FramesProcessed.Inc()
}

// RecordTriggerDetected increments the trigger detections counter
func (m *Metrics) RecordTriggerDetected() {
	m.TriggersDetected.Inc()
}

// RecordSourceReadError increments the source read error counter
func (m *Metrics) RecordSourceReadError() {
	m.SourceReadErrors.Inc()
}

// SetRecording sets the capture state gauge
func (m *Metrics) SetRecording(recording bool) {
	if recording {
		m.CaptureState.Set(1)
	} else {
		m.CaptureState.Set(0)
	}
}

// RecordSessionCompleted records a completed capture session
func (m *Metrics) RecordSessionCompleted(durationSeconds float64) {
	m.SessionsCompleted.Inc()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordSessionDiscarded increments the discarded sessions counter
func (m *Metrics) RecordSessionDiscarded() {
	m.SessionsDiscarded.Inc()
}

// RecordArtifactWritten records a written artifact and its size
func (m *Metrics) RecordArtifactWritten(sizeBytes int) {
	m.ArtifactsWritten.Inc()
	m.ArtifactSize.Observe(float64(sizeBytes))
}

// RecordArtifactDeleted increments the deleted artifacts counter
func (m *Metrics) RecordArtifactDeleted() {
	m.ArtifactsDeleted.Inc()
}

// RecordArtifactRetained increments the retained artifacts counter
func (m *Metrics) RecordArtifactRetained() {
	m.ArtifactsRetained.Inc()
}

// RecordDeliveryAttempt records a delivery attempt by outcome
func (m *Metrics) RecordDeliveryAttempt(outcome string, durationSeconds float64) {
	m.DeliveryAttempts.WithLabelValues(outcome).Inc()
	m.DeliveryDuration.Observe(durationSeconds)
}

// RecordPacketReceived increments the packets received counter
func (m *Metrics) RecordPacketReceived() {
	m.PacketsReceived.Inc()
}

// RecordPacketDropped increments the packets dropped counter
func (m *Metrics) RecordPacketDropped() {
	m.PacketsDropped.Inc()
}

// RecordParseError increments the parse errors counter
func (m *Metrics) RecordParseError() {
	m.ParseErrors.Inc()
}

// SetQueueSize sets the current receive queue size
func (m *Metrics) SetQueueSize(size int) {
	m.QueueSize.Set(float64(size))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
