package wakeword

import (
	"fmt"
	"math"
)

// EnergyConfig contains energy detector configuration
type EnergyConfig struct {
	FrameLength       int     // samples per frame
	SampleRate        int     // Hz
	Threshold         float64 // normalized RMS threshold, 0..1
	ConsecutiveFrames int     // frames above threshold required to trigger
	RefractoryFrames  int     // frames suppressed after a trigger
}

// EnergyDetector triggers on sustained loudness instead of a keyword
// model. A frame counts as loud when its RMS energy, normalized against
// full scale, reaches the threshold; the detector fires after the
// configured number of consecutive loud frames and then stays silent for
// the refractory window. It needs no model file or access key, which
// makes it the test and fallback backend.
type EnergyDetector struct {
	frameLength int
	sampleRate  int
	threshold   float64
	consecutive int
	refractory  int

	// detection state
	armed      int // consecutive loud frames seen so far
	suppressed int // frames left in the refractory window
}

// NewEnergyDetector validates the configuration and builds the detector
func NewEnergyDetector(cfg EnergyConfig) (*EnergyDetector, error) {
	if cfg.FrameLength <= 0 {
		return nil, fmt.Errorf("frame length must be positive, got %d", cfg.FrameLength)
	}

	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}

	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("threshold must be between 0 (exclusive) and 1, got %f", cfg.Threshold)
	}

	if cfg.ConsecutiveFrames < 1 {
		return nil, fmt.Errorf("consecutive frames must be at least 1, got %d", cfg.ConsecutiveFrames)
	}

	if cfg.RefractoryFrames < 0 {
		return nil, fmt.Errorf("refractory frames cannot be negative, got %d", cfg.RefractoryFrames)
	}

	return &EnergyDetector{
		frameLength: cfg.FrameLength,
		sampleRate:  cfg.SampleRate,
		threshold:   cfg.Threshold,
		consecutive: cfg.ConsecutiveFrames,
		refractory:  cfg.RefractoryFrames,
	}, nil
}

// FrameLength returns the configured frame size
func (d *EnergyDetector) FrameLength() int {
	return d.frameLength
}

// SampleRate returns the configured sample rate
func (d *EnergyDetector) SampleRate() int {
	return d.sampleRate
}

// Process classifies one frame by its normalized RMS energy
func (d *EnergyDetector) Process(frame []int16) (Result, error) {
	if len(frame) != d.frameLength {
		return Result{Index: NoMatch}, fmt.Errorf("expected %d samples, got %d", d.frameLength, len(frame))
	}

	// Matches are suppressed while the refractory window runs down, so
	// one loud stretch cannot fire twice
	if d.suppressed > 0 {
		d.suppressed--
		d.armed = 0
		return Result{Index: NoMatch}, nil
	}

	if d.normalizedRMS(frame) >= d.threshold {
		d.armed++
		if d.armed >= d.consecutive {
			d.armed = 0
			d.suppressed = d.refractory
			return Result{Index: 0}, nil
		}
	} else {
		d.armed = 0
	}

	return Result{Index: NoMatch}, nil
}

// Release resets the detection state; there are no native resources
func (d *EnergyDetector) Release() error {
	d.armed = 0
	d.suppressed = 0
	return nil
}

// normalizedRMS computes the frame RMS energy scaled into 0..1 against
// the int16 full scale.
func (d *EnergyDetector) normalizedRMS(frame []int16) float64 {
	var energy float64
	for _, sample := range frame {
		energy += float64(sample) * float64(sample)
	}
	rms := math.Sqrt(energy / float64(len(frame)))

	normalized := rms / 32768.0
	if normalized > 1.0 {
		normalized = 1.0
	}

	return normalized
}
