package source

import (
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/aniwag2/Listen/internal/metrics"
)

// Shared across tests; Prometheus collectors register once per process.
var testMetrics = metrics.NewMetrics()

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testUDPConfig() Config {
	return Config{
		Backend:     "udp",
		SampleRate:  16000,
		FrameLength: 4,
		UDP: UDPConfig{
			BindAddress: "127.0.0.1",
			Port:        0, // pick a free port
			QueueSize:   16,
		},
	}
}

func TestUDPSourceDeliversFrames(t *testing.T) {
	src := NewUDPSource(testUDPConfig(), testLogger(), testMetrics)

	if err := src.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer src.Stop()

	client, err := net.Dial("udp", src.Addr().String())
	if err != nil {
		t.Fatalf("Failed to dial source: %v", err)
	}
	defer client.Close()

	// Two packets of half a frame each, then one full frame
	packets := [][]byte{
		EncodePacket(1, []int16{1, 2}),
		EncodePacket(2, []int16{3, 4}),
		EncodePacket(3, []int16{5, 6, 7, 8}),
	}
	for _, p := range packets {
		if _, err := client.Write(p); err != nil {
			t.Fatalf("Failed to send packet: %v", err)
		}
	}

	type readResult struct {
		frame []int16
		err   error
	}
	results := make(chan readResult, 2)
	go func() {
		for i := 0; i < 2; i++ {
			frame, err := src.ReadFrame()
			results <- readResult{frame, err}
		}
	}()

	expected := [][]int16{{1, 2, 3, 4}, {5, 6, 7, 8}}
	for _, want := range expected {
		select {
		case r := <-results:
			if r.err != nil {
				t.Fatalf("ReadFrame failed: %v", r.err)
			}
			assertFrame(t, r.frame, want)
		case <-time.After(5 * time.Second):
			t.Fatal("Timed out waiting for a frame")
		}
	}
}

func TestUDPSourceStopUnblocksReadFrame(t *testing.T) {
	src := NewUDPSource(testUDPConfig(), testLogger(), testMetrics)

	if err := src.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := src.ReadFrame()
		errCh <- err
	}()

	// Give the reader a moment to block
	time.Sleep(50 * time.Millisecond)

	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("Expected ReadFrame to fail after Stop")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ReadFrame did not unblock after Stop")
	}
}

func TestUDPSourceIgnoresGarbagePackets(t *testing.T) {
	src := NewUDPSource(testUDPConfig(), testLogger(), testMetrics)

	if err := src.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer src.Stop()

	client, err := net.Dial("udp", src.Addr().String())
	if err != nil {
		t.Fatalf("Failed to dial source: %v", err)
	}
	defer client.Close()

	// Garbage first, then a valid frame; only the frame comes through
	if _, err := client.Write([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x00, 0x00}); err != nil {
		t.Fatalf("Failed to send garbage: %v", err)
	}
	if _, err := client.Write(EncodePacket(1, []int16{1, 2, 3, 4})); err != nil {
		t.Fatalf("Failed to send packet: %v", err)
	}

	type readResult struct {
		frame []int16
		err   error
	}
	results := make(chan readResult, 1)
	go func() {
		frame, err := src.ReadFrame()
		results <- readResult{frame, err}
	}()

	select {
	case r := <-results:
		if r.err != nil {
			t.Fatalf("ReadFrame failed: %v", r.err)
		}
		assertFrame(t, r.frame, []int16{1, 2, 3, 4})
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the valid frame")
	}
}
