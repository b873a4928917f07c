package capture

import (
	"log/slog"
	"sync"
	"time"

	"github.com/aniwag2/Listen/internal/wakeword"
)

// State represents the current state of the capture machine
type State int

const (
	StateIdle State = iota
	StateRecording
)

// String returns the state name
func (s State) String() string {
	if s == StateRecording {
		return "recording"
	}
	return "idle"
}

// Session represents one triggered recording window, from the frame that
// carried the trigger through the frame that closed the window
type Session struct {
	TriggerIndex int           `json:"trigger_index"` // keyword index that opened the window
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Duration     time.Duration `json:"duration"`
	SampleRate   int           `json:"sample_rate"`
	Frames       [][]int16     `json:"-"` // captured frames in arrival order
}

// FrameCount returns the number of frames captured in the window
func (s *Session) FrameCount() int {
	return len(s.Frames)
}

// Samples flattens the captured frames into one PCM sequence in arrival
// order
func (s *Session) Samples() []int16 {
	total := 0
	for _, frame := range s.Frames {
		total += len(frame)
	}

	samples := make([]int16, 0, total)
	for _, frame := range s.Frames {
		samples = append(samples, frame...)
	}

	return samples
}

// Config contains capture machine configuration
type Config struct {
	RecordingDuration time.Duration
	SampleRate        int
}

// Machine is the trigger-driven capture state machine. A wake word match
// while idle opens a fixed-duration recording window; every frame from
// the triggering one on is buffered until the window elapses, then the
// buffered frames are emitted as a Session and the machine returns to
// idle. Matches during an open window only contribute audio, they never
// extend or restart the window.
//
// The clock is injectable so window timing is testable.
type Machine struct {
	config Config
	logger *slog.Logger

	state        State
	frames       [][]int16
	triggerIndex int
	startTime    time.Time

	now func() time.Time

	// Statistics
	sessionsCompleted uint64
	sessionsDiscarded uint64
	lastTriggerTime   time.Time

	mu sync.RWMutex
}

// Stats represents capture machine statistics
type Stats struct {
	State             string    `json:"state"`
	BufferedFrames    int       `json:"buffered_frames"`
	SessionsCompleted uint64    `json:"sessions_completed"`
	SessionsDiscarded uint64    `json:"sessions_discarded"`
	LastTriggerTime   time.Time `json:"last_trigger_time"`
}

// NewMachine creates a capture machine in the idle state
func NewMachine(cfg Config, logger *slog.Logger) *Machine {
	return &Machine{
		config: cfg,
		logger: logger,
		state:  StateIdle,
		now:    time.Now,
	}
}

// OnFrame feeds one classified frame through the machine. It returns the
// completed Session when this frame closes the recording window, nil
// otherwise.
func (m *Machine) OnFrame(frame []int16, result wakeword.Result) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateIdle:
		if !result.Matched() {
			return nil
		}
		// The triggering frame belongs to the window
		m.startSession(result.Index)
		m.frames = append(m.frames, frame)

	case StateRecording:
		// A match during an open window only contributes audio
		m.frames = append(m.frames, frame)
	}

	if m.now().Sub(m.startTime) >= m.config.RecordingDuration {
		return m.finalizeSession()
	}

	return nil
}

// Abort discards any in-progress window and returns the number of frames
// dropped. An aborted window is never emitted.
func (m *Machine) Abort() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateRecording {
		return 0
	}

	dropped := len(m.frames)
	m.sessionsDiscarded++
	m.resetToIdle()

	m.logger.Info("Aborted in-progress capture window",
		slog.Int("frames_dropped", dropped),
	)

	return dropped
}

// startSession opens a fresh recording window.
func (m *Machine) startSession(triggerIndex int) {
	now := m.now()

	m.state = StateRecording
	m.frames = nil
	m.triggerIndex = triggerIndex
	m.startTime = now
	m.lastTriggerTime = now

	m.logger.Info("Trigger detected, recording window opened",
		slog.Int("keyword_index", triggerIndex),
		slog.Duration("window", m.config.RecordingDuration),
	)
}

// finalizeSession emits the buffered window and returns to idle.
func (m *Machine) finalizeSession() *Session {
	end := m.now()

	// Guard only; the triggering frame is appended before any window
	// check, so an open window is never empty
	if len(m.frames) == 0 {
		m.logger.Warn("Discarding empty capture window")
		m.sessionsDiscarded++
		m.resetToIdle()
		return nil
	}

	session := &Session{
		TriggerIndex: m.triggerIndex,
		StartTime:    m.startTime,
		EndTime:      end,
		Duration:     end.Sub(m.startTime),
		SampleRate:   m.config.SampleRate,
		Frames:       m.frames,
	}

	m.sessionsCompleted++
	m.resetToIdle()

	m.logger.Info("Recording window closed",
		slog.Int("frames", session.FrameCount()),
		slog.Duration("duration", session.Duration),
	)

	return session
}

// resetToIdle clears the window state. Emitted sessions keep their frame
// slice; the buffer always starts empty.
func (m *Machine) resetToIdle() {
	m.state = StateIdle
	m.frames = nil
	m.triggerIndex = 0
	m.startTime = time.Time{}
}

// State returns the current machine state
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsIdle returns whether no recording window is open
func (m *Machine) IsIdle() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateIdle
}

// GetStats returns current machine statistics
func (m *Machine) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Stats{
		State:             m.state.String(),
		BufferedFrames:    len(m.frames),
		SessionsCompleted: m.sessionsCompleted,
		SessionsDiscarded: m.sessionsDiscarded,
		LastTriggerTime:   m.lastTriggerTime,
	}
}
