package capture

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aniwag2/Listen/internal/wakeword"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock advances a fixed step per frame so window timing is
// deterministic.
type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

// numberedFrame creates a frame whose samples identify its position in
// the stream.
func numberedFrame(n int) []int16 {
	return []int16{int16(n), int16(n + 1)}
}

func noMatch() wakeword.Result {
	return wakeword.Result{Index: wakeword.NoMatch}
}

func match(index int) wakeword.Result {
	return wakeword.Result{Index: index}
}

func TestNewMachine(t *testing.T) {
	machine := NewMachine(Config{
		RecordingDuration: 15 * time.Second,
		SampleRate:        16000,
	}, testLogger())

	if machine == nil {
		t.Fatal("NewMachine returned nil")
	}

	if !machine.IsIdle() {
		t.Error("New machine should be idle")
	}

	stats := machine.GetStats()
	if stats.State != "idle" {
		t.Errorf("Expected state 'idle', got '%s'", stats.State)
	}
	if stats.BufferedFrames != 0 {
		t.Errorf("Expected 0 buffered frames, got %d", stats.BufferedFrames)
	}
}

func TestMachineStaysIdleWithoutTrigger(t *testing.T) {
	machine := NewMachine(Config{
		RecordingDuration: 2 * time.Second,
		SampleRate:        16000,
	}, testLogger())

	clock := newFakeClock()
	machine.now = clock.Now

	for i := 0; i < 100; i++ {
		session := machine.OnFrame(numberedFrame(i), noMatch())
		if session != nil {
			t.Fatalf("Unexpected session emitted at frame %d", i)
		}
		clock.Advance(10 * time.Millisecond)
	}

	if !machine.IsIdle() {
		t.Error("Machine should stay idle without a trigger")
	}

	stats := machine.GetStats()
	if stats.SessionsCompleted != 0 {
		t.Errorf("Expected 0 completed sessions, got %d", stats.SessionsCompleted)
	}
	if stats.BufferedFrames != 0 {
		t.Errorf("Expected 0 buffered frames, got %d", stats.BufferedFrames)
	}
}

func TestMachineCapturesFixedWindow(t *testing.T) {
	machine := NewMachine(Config{
		RecordingDuration: 2 * time.Second,
		SampleRate:        16000,
	}, testLogger())

	// 100 frames per second
	clock := newFakeClock()
	machine.now = clock.Now

	triggerFrame := 10
	var session *Session

	for i := 0; i < 300; i++ {
		result := noMatch()
		if i == triggerFrame {
			result = match(0)
		}

		got := machine.OnFrame(numberedFrame(i), result)
		if got != nil {
			session = got
			if i < triggerFrame+200 {
				t.Fatalf("Window closed too early at frame %d", i)
			}
			break
		}

		clock.Advance(10 * time.Millisecond)
	}

	if session == nil {
		t.Fatal("Expected a session but none was emitted")
	}

	// At 100 frames per second a 2 second window must hold at least 200
	// frames, starting with the triggering frame
	if session.FrameCount() < 200 {
		t.Errorf("Expected at least 200 frames, got %d", session.FrameCount())
	}

	first := session.Frames[0]
	if first[0] != int16(triggerFrame) {
		t.Errorf("Expected first frame to be the triggering frame %d, got %d", triggerFrame, first[0])
	}

	// Every frame from the trigger on is present, in arrival order
	for i, frame := range session.Frames {
		want := int16(triggerFrame + i)
		if frame[0] != want {
			t.Fatalf("Frame %d out of order: expected %d, got %d", i, want, frame[0])
		}
	}

	last := session.Frames[session.FrameCount()-1]
	if last[0] < int16(triggerFrame+199) {
		t.Errorf("Expected window to reach frame %d, got %d", triggerFrame+199, last[0])
	}

	if session.TriggerIndex != 0 {
		t.Errorf("Expected trigger index 0, got %d", session.TriggerIndex)
	}
	if session.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", session.SampleRate)
	}
	if session.Duration < 2*time.Second {
		t.Errorf("Expected duration of at least 2s, got %v", session.Duration)
	}
	if !session.EndTime.After(session.StartTime) {
		t.Error("Session end time should be after start time")
	}

	if !machine.IsIdle() {
		t.Error("Machine should return to idle after the window closes")
	}

	stats := machine.GetStats()
	if stats.SessionsCompleted != 1 {
		t.Errorf("Expected 1 completed session, got %d", stats.SessionsCompleted)
	}
	if stats.BufferedFrames != 0 {
		t.Errorf("Expected 0 buffered frames after emission, got %d", stats.BufferedFrames)
	}
}

func TestMachineIgnoresRetriggerDuringWindow(t *testing.T) {
	machine := NewMachine(Config{
		RecordingDuration: 1 * time.Second,
		SampleRate:        16000,
	}, testLogger())

	clock := newFakeClock()
	machine.now = clock.Now

	var session *Session

	for i := 0; i < 200; i++ {
		result := noMatch()
		switch i {
		case 0:
			result = match(0)
		case 30, 60, 90:
			// Matches while the window is open must not restart or
			// extend it
			result = match(1)
		}

		got := machine.OnFrame(numberedFrame(i), result)
		if got != nil {
			session = got
			break
		}

		clock.Advance(10 * time.Millisecond)
	}

	if session == nil {
		t.Fatal("Expected a session but none was emitted")
	}

	if session.TriggerIndex != 0 {
		t.Errorf("Expected trigger index of the opening match 0, got %d", session.TriggerIndex)
	}

	// A 1 second window at 100 frames per second closes around frame
	// 100. Re-triggers extending it would push this past 130.
	if session.FrameCount() > 110 {
		t.Errorf("Window was extended by re-trigger: %d frames", session.FrameCount())
	}

	stats := machine.GetStats()
	if stats.SessionsCompleted != 1 {
		t.Errorf("Expected exactly 1 session, got %d", stats.SessionsCompleted)
	}
}

func TestMachineAbortDiscardsWindow(t *testing.T) {
	machine := NewMachine(Config{
		RecordingDuration: 10 * time.Second,
		SampleRate:        16000,
	}, testLogger())

	clock := newFakeClock()
	machine.now = clock.Now

	machine.OnFrame(numberedFrame(0), match(0))
	for i := 1; i < 5; i++ {
		clock.Advance(10 * time.Millisecond)
		machine.OnFrame(numberedFrame(i), noMatch())
	}

	if machine.IsIdle() {
		t.Fatal("Machine should be recording before abort")
	}

	dropped := machine.Abort()
	if dropped != 5 {
		t.Errorf("Expected 5 dropped frames, got %d", dropped)
	}

	if !machine.IsIdle() {
		t.Error("Machine should be idle after abort")
	}

	stats := machine.GetStats()
	if stats.SessionsCompleted != 0 {
		t.Errorf("Expected 0 completed sessions, got %d", stats.SessionsCompleted)
	}
	if stats.SessionsDiscarded != 1 {
		t.Errorf("Expected 1 discarded session, got %d", stats.SessionsDiscarded)
	}
	if stats.BufferedFrames != 0 {
		t.Errorf("Expected 0 buffered frames after abort, got %d", stats.BufferedFrames)
	}
}

func TestMachineAbortWhileIdle(t *testing.T) {
	machine := NewMachine(Config{
		RecordingDuration: 10 * time.Second,
		SampleRate:        16000,
	}, testLogger())

	if dropped := machine.Abort(); dropped != 0 {
		t.Errorf("Expected 0 dropped frames while idle, got %d", dropped)
	}

	stats := machine.GetStats()
	if stats.SessionsDiscarded != 0 {
		t.Errorf("Expected 0 discarded sessions, got %d", stats.SessionsDiscarded)
	}
}

func TestMachineSingleFrameWindow(t *testing.T) {
	// A zero duration window closes on the triggering frame itself
	machine := NewMachine(Config{
		RecordingDuration: 0,
		SampleRate:        16000,
	}, testLogger())

	session := machine.OnFrame(numberedFrame(7), match(2))
	if session == nil {
		t.Fatal("Expected an immediate session")
	}

	if session.FrameCount() != 1 {
		t.Errorf("Expected 1 frame, got %d", session.FrameCount())
	}
	if session.Frames[0][0] != 7 {
		t.Errorf("Expected the triggering frame, got %d", session.Frames[0][0])
	}
	if session.TriggerIndex != 2 {
		t.Errorf("Expected trigger index 2, got %d", session.TriggerIndex)
	}
}

func TestMachineEmptyWindowGuard(t *testing.T) {
	machine := NewMachine(Config{
		RecordingDuration: 1 * time.Second,
		SampleRate:        16000,
	}, testLogger())

	// Force the state no OnFrame sequence can produce
	machine.state = StateRecording
	machine.frames = nil

	if session := machine.finalizeSession(); session != nil {
		t.Error("Empty window should not emit a session")
	}

	if !machine.IsIdle() {
		t.Error("Machine should be idle after discarding an empty window")
	}

	stats := machine.GetStats()
	if stats.SessionsDiscarded != 1 {
		t.Errorf("Expected 1 discarded session, got %d", stats.SessionsDiscarded)
	}
}

func TestSessionSamples(t *testing.T) {
	session := &Session{
		SampleRate: 16000,
		Frames: [][]int16{
			{1, 2},
			{3, 4},
			{5, 6},
		},
	}

	if session.FrameCount() != 3 {
		t.Errorf("Expected 3 frames, got %d", session.FrameCount())
	}

	samples := session.Samples()
	expected := []int16{1, 2, 3, 4, 5, 6}
	if len(samples) != len(expected) {
		t.Fatalf("Expected %d samples, got %d", len(expected), len(samples))
	}
	for i, s := range samples {
		if s != expected[i] {
			t.Errorf("Sample %d: expected %d, got %d", i, expected[i], s)
		}
	}
}

func TestMachineStats(t *testing.T) {
	machine := NewMachine(Config{
		RecordingDuration: 1 * time.Second,
		SampleRate:        16000,
	}, testLogger())

	clock := newFakeClock()
	machine.now = clock.Now

	triggerTime := clock.Now()
	machine.OnFrame(numberedFrame(0), match(0))

	stats := machine.GetStats()
	if stats.State != "recording" {
		t.Errorf("Expected state 'recording', got '%s'", stats.State)
	}
	if stats.BufferedFrames != 1 {
		t.Errorf("Expected 1 buffered frame, got %d", stats.BufferedFrames)
	}
	if !stats.LastTriggerTime.Equal(triggerTime) {
		t.Errorf("Expected last trigger time %v, got %v", triggerTime, stats.LastTriggerTime)
	}

	for i := 1; i < 150; i++ {
		clock.Advance(10 * time.Millisecond)
		if session := machine.OnFrame(numberedFrame(i), noMatch()); session != nil {
			break
		}
	}

	stats = machine.GetStats()
	if stats.State != "idle" {
		t.Errorf("Expected state 'idle', got '%s'", stats.State)
	}
	if stats.SessionsCompleted != 1 {
		t.Errorf("Expected 1 completed session, got %d", stats.SessionsCompleted)
	}
}
