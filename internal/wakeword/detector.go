package wakeword

import (
	"fmt"
)

// NoMatch is the Result index for a frame that contains no trigger.
const NoMatch = -1

// Result represents the classification of a single audio frame
type Result struct {
	Index int `json:"index"` // matched keyword index, NoMatch otherwise
}

// Matched reports whether the frame contained the trigger phrase
func (r Result) Matched() bool {
	return r.Index >= 0
}

// Detector classifies fixed-length PCM frames against a trigger phrase.
// Implementations are not safe for concurrent use; the listening loop is
// the only caller.
type Detector interface {
	// FrameLength returns the exact number of samples Process expects
	FrameLength() int

	// SampleRate returns the sample rate Process expects, in Hz
	SampleRate() int

	// Process classifies one frame
	Process(frame []int16) (Result, error)

	// Release frees backend resources; the detector is unusable afterwards
	Release() error
}

// Config contains detector configuration
type Config struct {
	Backend     string // porcupine or energy
	AccessKey   string
	ModelPath   string
	Sensitivity float32
	Energy      EnergyConfig
}

// New creates the configured detector backend
func New(cfg Config) (Detector, error) {
	switch cfg.Backend {
	case "porcupine":
		return NewPorcupineDetector(cfg)
	case "energy":
		return NewEnergyDetector(cfg.Energy)
	default:
		return nil, fmt.Errorf("unknown trigger backend '%s'", cfg.Backend)
	}
}
