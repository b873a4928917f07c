package listener

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aniwag2/Listen/internal/artifact"
	"github.com/aniwag2/Listen/internal/capture"
	"github.com/aniwag2/Listen/internal/delivery"
	"github.com/aniwag2/Listen/internal/metrics"
	"github.com/aniwag2/Listen/internal/source"
	"github.com/aniwag2/Listen/internal/wakeword"
)

// readErrorBackoff spaces out retries when the audio source fails so a
// dead input does not spin the loop.
const readErrorBackoff = 10 * time.Millisecond

// Dispatcher sends a persisted recording and reports how the attempt
// ended. Satisfied by delivery.Dispatcher.
type Dispatcher interface {
	Send(ctx context.Context, artifactPath string) delivery.Attempt
}

// Listener runs the monitoring pipeline. It pulls frames from the audio
// source, feeds them through wake word detection into the capture
// machine, and handles each completed recording serially: persist,
// dispatch, then apply retention. Monitoring resumes once the recording
// is handled.
type Listener struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	source     source.Source
	detector   wakeword.Detector
	machine    *capture.Machine
	writer     *artifact.Writer
	dispatcher Dispatcher
	retention  *artifact.Retention

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Statistics
	framesProcessed  uint64
	triggersDetected uint64
	readErrors       uint64
	persistFailures  uint64
	delivered        uint64
	deliveryFailures uint64

	mu sync.RWMutex
}

// Stats represents listener statistics for monitoring
type Stats struct {
	FramesProcessed  uint64        `json:"frames_processed"`
	TriggersDetected uint64        `json:"triggers_detected"`
	ReadErrors       uint64        `json:"read_errors"`
	PersistFailures  uint64        `json:"persist_failures"`
	Delivered        uint64        `json:"delivered"`
	DeliveryFailures uint64        `json:"delivery_failures"`
	Capture          capture.Stats `json:"capture"`
}

// New wires the pipeline together. The source and detector must agree
// on frame geometry, otherwise detection results would be meaningless.
func New(logger *slog.Logger, m *metrics.Metrics, src source.Source, detector wakeword.Detector,
	machine *capture.Machine, writer *artifact.Writer, dispatcher Dispatcher,
	retention *artifact.Retention) (*Listener, error) {

	if src.FrameLength() != detector.FrameLength() {
		return nil, fmt.Errorf("source frame length %d does not match detector frame length %d",
			src.FrameLength(), detector.FrameLength())
	}
	if src.SampleRate() != detector.SampleRate() {
		return nil, fmt.Errorf("source sample rate %d does not match detector sample rate %d",
			src.SampleRate(), detector.SampleRate())
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Listener{
		logger:     logger,
		metrics:    m,
		source:     src,
		detector:   detector,
		machine:    machine,
		writer:     writer,
		dispatcher: dispatcher,
		retention:  retention,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start opens the audio source and begins monitoring
func (l *Listener) Start() error {
	if err := l.source.Start(); err != nil {
		return fmt.Errorf("failed to start audio source: %w", err)
	}

	l.wg.Add(1)
	go l.run()

	l.logger.Info("Listening for wake word",
		slog.Int("frame_length", l.detector.FrameLength()),
		slog.Int("sample_rate", l.detector.SampleRate()),
	)

	return nil
}

// Stop gracefully stops the pipeline. An in-progress recording window
// is discarded, never emitted.
func (l *Listener) Stop() {
	l.logger.Info("Stopping listener...")

	l.cancel()
	if err := l.source.Stop(); err != nil {
		l.logger.Warn("Error stopping audio source", slog.String("error", err.Error()))
	}
	l.wg.Wait()

	if dropped := l.machine.Abort(); dropped > 0 {
		l.metrics.RecordSessionDiscarded()
	}
	l.metrics.SetRecording(false)

	if err := l.detector.Release(); err != nil {
		l.logger.Warn("Error releasing wake word engine", slog.String("error", err.Error()))
	}
	if err := l.source.Release(); err != nil {
		l.logger.Warn("Error releasing audio source", slog.String("error", err.Error()))
	}

	stats := l.GetStats()
	l.logger.Info("Listener stopped",
		slog.Uint64("frames_processed", stats.FramesProcessed),
		slog.Uint64("triggers_detected", stats.TriggersDetected),
		slog.Uint64("sessions_completed", stats.Capture.SessionsCompleted),
		slog.Uint64("recordings_delivered", stats.Delivered),
		slog.Uint64("delivery_failures", stats.DeliveryFailures),
	)
}

// run is the monitoring loop
func (l *Listener) run() {
	defer l.wg.Done()

	for {
		select {
		case <-l.ctx.Done():
			return
		default:
		}

		frame, err := l.source.ReadFrame()
		if err != nil {
			if l.ctx.Err() != nil {
				return
			}

			l.metrics.RecordSourceReadError()
			l.mu.Lock()
			l.readErrors++
			l.mu.Unlock()

			l.logger.Error("Failed to read audio frame", slog.String("error", err.Error()))
			time.Sleep(readErrorBackoff)
			continue
		}

		l.processFrame(frame)
	}
}

// processFrame runs one frame through detection and capture.
func (l *Listener) processFrame(frame []int16) {
	result, err := l.detector.Process(frame)
	if err != nil {
		l.logger.Error("Wake word processing failed", slog.String("error", err.Error()))
		return
	}

	l.metrics.RecordFrameProcessed()
	l.mu.Lock()
	l.framesProcessed++
	if result.Matched() {
		l.triggersDetected++
	}
	l.mu.Unlock()

	if result.Matched() {
		l.metrics.RecordTriggerDetected()
	}

	session := l.machine.OnFrame(frame, result)
	l.metrics.SetRecording(!l.machine.IsIdle())

	if session != nil {
		l.metrics.RecordSessionCompleted(session.Duration.Seconds())
		l.handleSession(session)
	}
}

// handleSession persists, dispatches, and disposes one completed
// recording. Runs on the monitoring loop, so frames arriving during
// delivery queue up in the source.
func (l *Listener) handleSession(session *capture.Session) {
	l.logger.Info("Recording complete",
		slog.Int("frames", session.FrameCount()),
		slog.Duration("duration", session.Duration),
	)

	path, err := l.writer.Write(session.Samples(), session.SampleRate, session.EndTime)
	if err != nil {
		l.logger.Error("Failed to persist recording", slog.String("error", err.Error()))
		l.mu.Lock()
		l.persistFailures++
		l.mu.Unlock()
		return
	}
	if path == "" {
		return
	}

	// Delivery is bounded by the SMTP client timeout rather than the
	// listener context, so shutdown never abandons a send midway
	attempt := l.dispatcher.Send(context.Background(), path)

	l.mu.Lock()
	if attempt.Outcome.Delivered() {
		l.delivered++
	} else {
		l.deliveryFailures++
	}
	l.mu.Unlock()

	if err := l.retention.Dispose(path, attempt.Outcome.Delivered()); err != nil {
		l.logger.Warn("Delivered artifact left on disk", slog.String("path", path))
	}
}

// GetStats returns current pipeline statistics
func (l *Listener) GetStats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Stats{
		FramesProcessed:  l.framesProcessed,
		TriggersDetected: l.triggersDetected,
		ReadErrors:       l.readErrors,
		PersistFailures:  l.persistFailures,
		Delivered:        l.delivered,
		DeliveryFailures: l.deliveryFailures,
		Capture:          l.machine.GetStats(),
	}
}
