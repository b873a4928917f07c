package source

import (
	"testing"
)

func TestAssemblerInOrderFraming(t *testing.T) {
	a := NewAssembler(4)

	frames := a.Add(1, []int16{1, 2})
	if len(frames) != 0 {
		t.Fatalf("Expected no frames after half a frame, got %d", len(frames))
	}

	frames = a.Add(2, []int16{3, 4})
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	assertFrame(t, frames[0], []int16{1, 2, 3, 4})

	frames = a.Add(3, []int16{5, 6, 7, 8})
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	assertFrame(t, frames[0], []int16{5, 6, 7, 8})
}

func TestAssemblerPacketLargerThanFrame(t *testing.T) {
	a := NewAssembler(4)

	frames := a.Add(1, []int16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(frames))
	}
	assertFrame(t, frames[0], []int16{1, 2, 3, 4})
	assertFrame(t, frames[1], []int16{5, 6, 7, 8})

	stats := a.GetStats()
	if stats.BufferedSamples != 2 {
		t.Errorf("Expected 2 buffered samples, got %d", stats.BufferedSamples)
	}

	// The remainder leads the next frame
	frames = a.Add(2, []int16{11, 12})
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	assertFrame(t, frames[0], []int16{9, 10, 11, 12})
}

func TestAssemblerReordersPackets(t *testing.T) {
	a := NewAssembler(4)

	if frames := a.Add(1, []int16{1, 2}); len(frames) != 0 {
		t.Fatalf("Unexpected frames: %d", len(frames))
	}

	// Sequence 3 arrives before 2 and is held back
	if frames := a.Add(3, []int16{5, 6}); len(frames) != 0 {
		t.Fatalf("Held packet must not emit frames, got %d", len(frames))
	}

	stats := a.GetStats()
	if stats.PendingPackets != 1 {
		t.Errorf("Expected 1 pending packet, got %d", stats.PendingPackets)
	}

	// The missing packet closes the gap and releases everything in order
	frames := a.Add(2, []int16{3, 4})
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	assertFrame(t, frames[0], []int16{1, 2, 3, 4})

	stats = a.GetStats()
	if stats.PendingPackets != 0 {
		t.Errorf("Expected no pending packets, got %d", stats.PendingPackets)
	}
	if stats.BufferedSamples != 2 {
		t.Errorf("Expected 2 buffered samples, got %d", stats.BufferedSamples)
	}
}

func TestAssemblerIgnoresDuplicates(t *testing.T) {
	a := NewAssembler(2)

	a.Add(1, []int16{1, 2})
	frames := a.Add(1, []int16{1, 2})
	if len(frames) != 0 {
		t.Fatalf("Duplicate packet must not emit frames, got %d", len(frames))
	}

	stats := a.GetStats()
	if stats.DuplicatePackets != 1 {
		t.Errorf("Expected 1 duplicate packet, got %d", stats.DuplicatePackets)
	}
	if stats.BufferedSamples != 0 {
		t.Errorf("Duplicate samples leaked into the buffer: %d", stats.BufferedSamples)
	}
}

func TestAssemblerSkipsAheadAfterLargeGap(t *testing.T) {
	a := NewAssembler(2)

	frames := a.Add(1, []int16{1, 2})
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}

	// A jump beyond the reorder window abandons the missing packets
	frames = a.Add(30, []int16{9, 9})
	if len(frames) != 1 {
		t.Fatalf("Expected the stream to resume after the gap, got %d frames", len(frames))
	}
	assertFrame(t, frames[0], []int16{9, 9})

	stats := a.GetStats()
	if stats.LostPackets != 28 {
		t.Errorf("Expected 28 lost packets, got %d", stats.LostPackets)
	}
	if stats.NextSequence != 31 {
		t.Errorf("Expected next sequence 31, got %d", stats.NextSequence)
	}

	// In-order delivery continues from the new anchor
	frames = a.Add(31, []int16{7, 7})
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame after resuming, got %d", len(frames))
	}
	assertFrame(t, frames[0], []int16{7, 7})
}

func TestAssemblerHoldsWithinReorderWindow(t *testing.T) {
	a := NewAssembler(2)

	a.Add(1, []int16{1, 1})
	if frames := a.Add(5, []int16{5, 5}); len(frames) != 0 {
		t.Fatalf("Packet within the window must be held, got %d frames", len(frames))
	}

	a.Add(2, []int16{2, 2})
	a.Add(3, []int16{3, 3})

	// Sequence 4 closes the gap; 5 drains right behind it
	frames := a.Add(4, []int16{4, 4})
	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames after the gap closed, got %d", len(frames))
	}
	assertFrame(t, frames[0], []int16{4, 4})
	assertFrame(t, frames[1], []int16{5, 5})
}

func TestAssemblerAnchorsOnFirstSequence(t *testing.T) {
	a := NewAssembler(2)

	// Streams do not have to start at sequence zero
	frames := a.Add(1000, []int16{1, 2})
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}

	stats := a.GetStats()
	if stats.NextSequence != 1001 {
		t.Errorf("Expected next sequence 1001, got %d", stats.NextSequence)
	}
}

func assertFrame(t *testing.T, got, expected []int16) {
	t.Helper()

	if len(got) != len(expected) {
		t.Fatalf("Expected frame length %d, got %d", len(expected), len(got))
	}

	for i, sample := range expected {
		if got[i] != sample {
			t.Errorf("Frame sample %d: expected %d, got %d", i, sample, got[i])
		}
	}
}
