package source

import (
	"sync"
)

// maxSequenceGap is how many missing packets the assembler waits for
// before giving up and jumping the stream forward.
const maxSequenceGap = 20

// Assembler restores packet order by sequence number and re-frames the
// resulting sample stream into fixed-length frames. Datagrams may carry
// any payload size; frame boundaries are independent of packet
// boundaries. Out-of-order packets are held back until the gap closes or
// grows past maxSequenceGap, old and duplicate packets are discarded.
type Assembler struct {
	frameLength int

	// In-order samples waiting to be framed
	samples []int16

	// Sequence tracking
	started     bool
	expectedSeq uint32
	pending     map[uint32][]int16

	// Statistics
	totalPackets     uint64
	lostPackets      uint64
	duplicatePackets uint64

	mu sync.Mutex
}

// AssemblerStats represents assembler statistics for monitoring
type AssemblerStats struct {
	TotalPackets     uint64 `json:"total_packets"`
	LostPackets      uint64 `json:"lost_packets"`
	DuplicatePackets uint64 `json:"duplicate_packets"`
	PendingPackets   int    `json:"pending_packets"`
	BufferedSamples  int    `json:"buffered_samples"`
	NextSequence     uint32 `json:"next_sequence"`
}

// NewAssembler creates an assembler emitting frames of the given length
func NewAssembler(frameLength int) *Assembler {
	return &Assembler{
		frameLength: frameLength,
		samples:     make([]int16, 0, frameLength*4),
		pending:     make(map[uint32][]int16),
	}
}

// Add ingests one packet payload and returns every frame that became
// complete, in stream order
func (a *Assembler) Add(sequence uint32, samples []int16) [][]int16 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalPackets++

	// The first packet anchors the expected sequence
	if !a.started {
		a.started = true
		a.expectedSeq = sequence
	}

	switch {
	case sequence == a.expectedSeq:
		a.samples = append(a.samples, samples...)
		a.expectedSeq = sequence + 1
		a.drainPending()

	case sequence > a.expectedSeq:
		held := make([]int16, len(samples))
		copy(held, samples)
		a.pending[sequence] = held

		// Too many packets missing, jump forward and count them lost
		if sequence-a.expectedSeq > maxSequenceGap {
			a.lostPackets += uint64(sequence - a.expectedSeq)
			a.expectedSeq = sequence
			a.drainPending()
		}

	default:
		a.duplicatePackets++
	}

	return a.takeFrames()
}

// drainPending consumes consecutively held packets starting at the
// expected sequence.
func (a *Assembler) drainPending() {
	for {
		held, exists := a.pending[a.expectedSeq]
		if !exists {
			return
		}

		a.samples = append(a.samples, held...)
		delete(a.pending, a.expectedSeq)
		a.expectedSeq++
	}
}

// takeFrames slices complete frames off the front of the sample buffer.
func (a *Assembler) takeFrames() [][]int16 {
	n := len(a.samples) / a.frameLength
	if n == 0 {
		return nil
	}

	frames := make([][]int16, 0, n)
	for i := 0; i < n; i++ {
		frame := make([]int16, a.frameLength)
		copy(frame, a.samples[i*a.frameLength:(i+1)*a.frameLength])
		frames = append(frames, frame)
	}

	// Shift the remainder to the front so the buffer does not grow
	remainder := len(a.samples) - n*a.frameLength
	copy(a.samples, a.samples[n*a.frameLength:])
	a.samples = a.samples[:remainder]

	return frames
}

// GetStats returns current assembler statistics
func (a *Assembler) GetStats() AssemblerStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	return AssemblerStats{
		TotalPackets:     a.totalPackets,
		LostPackets:      a.lostPackets,
		DuplicatePackets: a.duplicatePackets,
		PendingPackets:   len(a.pending),
		BufferedSamples:  len(a.samples),
		NextSequence:     a.expectedSeq,
	}
}
