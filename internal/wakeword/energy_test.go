package wakeword

import (
	"testing"
)

func testEnergyConfig() EnergyConfig {
	return EnergyConfig{
		FrameLength:       512,
		SampleRate:        16000,
		Threshold:         0.25,
		ConsecutiveFrames: 3,
		RefractoryFrames:  5,
	}
}

// constantFrame builds a frame whose RMS equals the given amplitude.
func constantFrame(amplitude int16, length int) []int16 {
	frame := make([]int16, length)
	for i := range frame {
		frame[i] = amplitude
	}
	return frame
}

func TestNewEnergyDetectorValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*EnergyConfig)
		expectError bool
	}{
		{
			name:        "valid config",
			mutate:      func(c *EnergyConfig) {},
			expectError: false,
		},
		{
			name:        "zero frame length",
			mutate:      func(c *EnergyConfig) { c.FrameLength = 0 },
			expectError: true,
		},
		{
			name:        "zero sample rate",
			mutate:      func(c *EnergyConfig) { c.SampleRate = 0 },
			expectError: true,
		},
		{
			name:        "threshold too high",
			mutate:      func(c *EnergyConfig) { c.Threshold = 1.5 },
			expectError: true,
		},
		{
			name:        "zero threshold",
			mutate:      func(c *EnergyConfig) { c.Threshold = 0 },
			expectError: true,
		},
		{
			name:        "zero consecutive frames",
			mutate:      func(c *EnergyConfig) { c.ConsecutiveFrames = 0 },
			expectError: true,
		},
		{
			name:        "negative refractory",
			mutate:      func(c *EnergyConfig) { c.RefractoryFrames = -1 },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testEnergyConfig()
			tt.mutate(&cfg)

			_, err := NewEnergyDetector(cfg)
			if tt.expectError && err == nil {
				t.Errorf("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestEnergyDetectorSilenceNeverMatches(t *testing.T) {
	detector, err := NewEnergyDetector(testEnergyConfig())
	if err != nil {
		t.Fatalf("NewEnergyDetector failed: %v", err)
	}

	quiet := constantFrame(100, detector.FrameLength())
	for i := 0; i < 100; i++ {
		result, err := detector.Process(quiet)
		if err != nil {
			t.Fatalf("Process failed at frame %d: %v", i, err)
		}
		if result.Matched() {
			t.Fatalf("Unexpected match on silent frame %d", i)
		}
	}
}

func TestEnergyDetectorTriggersAfterConsecutiveLoudFrames(t *testing.T) {
	cfg := testEnergyConfig()
	detector, err := NewEnergyDetector(cfg)
	if err != nil {
		t.Fatalf("NewEnergyDetector failed: %v", err)
	}

	// Amplitude 16000 normalizes to roughly 0.49, well above threshold
	loud := constantFrame(16000, detector.FrameLength())

	for i := 0; i < cfg.ConsecutiveFrames-1; i++ {
		result, err := detector.Process(loud)
		if err != nil {
			t.Fatalf("Process failed at frame %d: %v", i, err)
		}
		if result.Matched() {
			t.Fatalf("Matched too early at frame %d", i)
		}
	}

	result, err := detector.Process(loud)
	if err != nil {
		t.Fatalf("Process failed on triggering frame: %v", err)
	}
	if !result.Matched() {
		t.Fatal("Expected match on the final consecutive loud frame")
	}
	if result.Index != 0 {
		t.Errorf("Expected keyword index 0, got %d", result.Index)
	}
}

func TestEnergyDetectorQuietFrameResetsArming(t *testing.T) {
	cfg := testEnergyConfig()
	detector, err := NewEnergyDetector(cfg)
	if err != nil {
		t.Fatalf("NewEnergyDetector failed: %v", err)
	}

	loud := constantFrame(16000, detector.FrameLength())
	quiet := constantFrame(100, detector.FrameLength())

	// Alternating loud and quiet never accumulates enough loud frames
	for i := 0; i < 20; i++ {
		frame := loud
		if i%2 == 1 {
			frame = quiet
		}
		result, err := detector.Process(frame)
		if err != nil {
			t.Fatalf("Process failed at frame %d: %v", i, err)
		}
		if result.Matched() {
			t.Fatalf("Unexpected match at frame %d", i)
		}
	}
}

func TestEnergyDetectorRefractorySuppressesRetrigger(t *testing.T) {
	cfg := testEnergyConfig()
	detector, err := NewEnergyDetector(cfg)
	if err != nil {
		t.Fatalf("NewEnergyDetector failed: %v", err)
	}

	loud := constantFrame(16000, detector.FrameLength())

	matchFrame := func() int {
		for i := 0; i < 100; i++ {
			result, err := detector.Process(loud)
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}
			if result.Matched() {
				return i
			}
		}
		t.Fatal("Detector never matched on sustained loud input")
		return -1
	}

	first := matchFrame()
	if first != cfg.ConsecutiveFrames-1 {
		t.Errorf("Expected first match at frame %d, got %d", cfg.ConsecutiveFrames-1, first)
	}

	// After the match the refractory window must pass, then arming
	// starts over from zero
	second := matchFrame()
	expected := cfg.RefractoryFrames + cfg.ConsecutiveFrames - 1
	if second != expected {
		t.Errorf("Expected second match %d frames after the first, got %d", expected, second)
	}
}

func TestEnergyDetectorFrameLengthMismatch(t *testing.T) {
	detector, err := NewEnergyDetector(testEnergyConfig())
	if err != nil {
		t.Fatalf("NewEnergyDetector failed: %v", err)
	}

	_, err = detector.Process(make([]int16, 100))
	if err == nil {
		t.Error("Expected error for wrong frame length")
	}
}

func TestResultMatched(t *testing.T) {
	if (Result{Index: NoMatch}).Matched() {
		t.Error("NoMatch result must not report a match")
	}
	if !(Result{Index: 0}).Matched() {
		t.Error("Index 0 must report a match")
	}
	if !(Result{Index: 3}).Matched() {
		t.Error("Positive index must report a match")
	}
}

func TestNewFactorySelectsBackend(t *testing.T) {
	detector, err := New(Config{
		Backend: "energy",
		Energy:  testEnergyConfig(),
	})
	if err != nil {
		t.Fatalf("New failed for energy backend: %v", err)
	}
	if _, ok := detector.(*EnergyDetector); !ok {
		t.Errorf("Expected *EnergyDetector, got %T", detector)
	}

	_, err = New(Config{Backend: "unknown"})
	if err == nil {
		t.Error("Expected error for unknown backend")
	}
}
