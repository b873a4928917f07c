package source

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSource captures microphone frames through PortAudio's default
// input stream, for hosts where the Picovoice recorder is unavailable.
type PortAudioSource struct {
	stream      *portaudio.Stream
	buffer      []int16
	sampleRate  int
	frameLength int
}

// NewPortAudioSource initializes PortAudio and opens the default input
// stream in blocking mode
func NewPortAudioSource(cfg Config) (*PortAudioSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	s := &PortAudioSource{
		buffer:      make([]int16, cfg.FrameLength),
		sampleRate:  cfg.SampleRate,
		frameLength: cfg.FrameLength,
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(cfg.SampleRate), len(s.buffer), s.buffer)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	s.stream = stream

	return s, nil
}

// FrameLength returns the configured frame size
func (s *PortAudioSource) FrameLength() int {
	return s.frameLength
}

// SampleRate returns the capture sample rate
func (s *PortAudioSource) SampleRate() int {
	return s.sampleRate
}

// Start begins capturing from the stream
func (s *PortAudioSource) Start() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	return nil
}

// ReadFrame blocks until the stream fills the next frame. The stream
// buffer is reused across reads, so the frame is copied out.
func (s *PortAudioSource) ReadFrame() ([]int16, error) {
	if err := s.stream.Read(); err != nil {
		return nil, fmt.Errorf("failed to read from input stream: %w", err)
	}

	frame := make([]int16, len(s.buffer))
	copy(frame, s.buffer)

	return frame, nil
}

// Stop ends capturing; a pending ReadFrame returns with an error
func (s *PortAudioSource) Stop() error {
	return s.stream.Stop()
}

// Release closes the stream and shuts PortAudio down
func (s *PortAudioSource) Release() error {
	if err := s.stream.Close(); err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to close input stream: %w", err)
	}

	return portaudio.Terminate()
}
