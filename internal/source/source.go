package source

import (
	"fmt"
	"log/slog"

	"github.com/aniwag2/Listen/internal/metrics"
)

// Source delivers fixed-length PCM frames from a live audio input.
// ReadFrame blocks until the next frame is available; Stop unblocks a
// pending ReadFrame. Implementations are driven by the single listening
// loop and are not safe for concurrent reads.
type Source interface {
	// FrameLength returns the number of samples per delivered frame
	FrameLength() int

	// SampleRate returns the capture sample rate in Hz
	SampleRate() int

	// Start opens the input and begins capturing
	Start() error

	// ReadFrame blocks until the next frame arrives
	ReadFrame() ([]int16, error)

	// Stop ends capturing and unblocks a pending ReadFrame
	Stop() error

	// Release frees input resources; the source is unusable afterwards
	Release() error
}

// Config contains frame source configuration
type Config struct {
	Backend        string // pvrecorder, portaudio or udp
	SampleRate     int
	FrameLength    int
	DeviceIndex    int // -1 selects the default capture device
	BufferedFrames int
	UDP            UDPConfig
}

// UDPConfig contains the network frame source configuration
type UDPConfig struct {
	BindAddress string
	Port        int
	QueueSize   int
}

// New creates the configured frame source backend
func New(cfg Config, logger *slog.Logger, m *metrics.Metrics) (Source, error) {
	switch cfg.Backend {
	case "pvrecorder":
		return NewPvRecorderSource(cfg)
	case "portaudio":
		return NewPortAudioSource(cfg)
	case "udp":
		return NewUDPSource(cfg, logger, m), nil
	default:
		return nil, fmt.Errorf("unknown audio backend '%s'", cfg.Backend)
	}
}
