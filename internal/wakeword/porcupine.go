package wakeword

import (
	"fmt"

	porcupine "github.com/Picovoice/porcupine/binding/go/v2"
)

// PorcupineDetector recognizes the trigger phrase with a Picovoice
// Porcupine keyword model. Frame length and sample rate are dictated by
// the engine, not by configuration.
type PorcupineDetector struct {
	engine porcupine.Porcupine
}

// NewPorcupineDetector loads the keyword model and initializes the engine
func NewPorcupineDetector(cfg Config) (*PorcupineDetector, error) {
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("access key cannot be empty")
	}

	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("keyword model path cannot be empty")
	}

	d := &PorcupineDetector{
		engine: porcupine.Porcupine{
			AccessKey:     cfg.AccessKey,
			KeywordPaths:  []string{cfg.ModelPath},
			Sensitivities: []float32{cfg.Sensitivity},
		},
	}

	if err := d.engine.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize porcupine engine: %w", err)
	}

	return d, nil
}

// FrameLength returns the frame size the keyword engine expects
func (d *PorcupineDetector) FrameLength() int {
	return porcupine.FrameLength
}

// SampleRate returns the sample rate the keyword engine expects
func (d *PorcupineDetector) SampleRate() int {
	return porcupine.SampleRate
}

// Process runs one frame through the keyword engine
func (d *PorcupineDetector) Process(frame []int16) (Result, error) {
	index, err := d.engine.Process(frame)
	if err != nil {
		return Result{Index: NoMatch}, fmt.Errorf("porcupine process failed: %w", err)
	}

	return Result{Index: index}, nil
}

// Release frees the native engine resources
func (d *PorcupineDetector) Release() error {
	return d.engine.Delete()
}
