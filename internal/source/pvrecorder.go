package source

import (
	"fmt"

	pvrecorder "github.com/Picovoice/pvrecorder/binding/go"
)

// PvRecorderSource captures microphone frames through the Picovoice
// recorder library, the default backend. The library records mono 16kHz
// PCM and queues frames device-side, so a slow consumer loses nothing
// until its buffer overflows.
type PvRecorderSource struct {
	recorder    pvrecorder.PvRecorder
	sampleRate  int
	frameLength int
}

// NewPvRecorderSource initializes the capture device
func NewPvRecorderSource(cfg Config) (*PvRecorderSource, error) {
	s := &PvRecorderSource{
		recorder: pvrecorder.PvRecorder{
			DeviceIndex:         cfg.DeviceIndex,
			FrameLength:         cfg.FrameLength,
			BufferedFramesCount: cfg.BufferedFrames,
		},
		sampleRate:  cfg.SampleRate,
		frameLength: cfg.FrameLength,
	}

	if err := s.recorder.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize recorder: %w", err)
	}

	return s, nil
}

// FrameLength returns the configured frame size
func (s *PvRecorderSource) FrameLength() int {
	return s.frameLength
}

// SampleRate returns the capture sample rate
func (s *PvRecorderSource) SampleRate() int {
	return s.sampleRate
}

// Start begins capturing from the device
func (s *PvRecorderSource) Start() error {
	if err := s.recorder.Start(); err != nil {
		return fmt.Errorf("failed to start recorder: %w", err)
	}

	return nil
}

// ReadFrame blocks until the device delivers the next frame
func (s *PvRecorderSource) ReadFrame() ([]int16, error) {
	frame, err := s.recorder.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}

	return frame, nil
}

// Stop ends capturing; a pending ReadFrame returns with an error
func (s *PvRecorderSource) Stop() error {
	return s.recorder.Stop()
}

// Release frees the native recorder resources
func (s *PvRecorderSource) Release() error {
	s.recorder.Delete()
	return nil
}
