package source

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/aniwag2/Listen/internal/metrics"
)

// maxDatagramSize bounds a single read; larger datagrams are truncated
// by the socket and fail parsing.
const maxDatagramSize = 65536

// UDPSource receives PCM frames over the network instead of a local
// microphone, for deployments where capture happens on another host. A
// background goroutine reads datagrams, restores packet order through
// the assembler and feeds a bounded frame queue; when the queue is full
// the newest frames are dropped with a warning.
type UDPSource struct {
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	conn      *net.UDPConn
	assembler *Assembler
	frames    chan []int16

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewUDPSource creates a UDP frame source; the socket opens on Start
func NewUDPSource(cfg Config, logger *slog.Logger, m *metrics.Metrics) *UDPSource {
	ctx, cancel := context.WithCancel(context.Background())

	return &UDPSource{
		config:    cfg,
		logger:    logger,
		metrics:   m,
		assembler: NewAssembler(cfg.FrameLength),
		frames:    make(chan []int16, cfg.UDP.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// FrameLength returns the configured frame size
func (s *UDPSource) FrameLength() int {
	return s.config.FrameLength
}

// SampleRate returns the configured sample rate
func (s *UDPSource) SampleRate() int {
	return s.config.SampleRate
}

// Addr returns the bound socket address, nil before Start
func (s *UDPSource) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Start binds the socket and launches the receive loop
func (s *UDPSource) Start() error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", s.config.UDP.BindAddress, s.config.UDP.Port))
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}

	s.conn = conn

	if err := s.conn.SetReadBuffer(1 << 20); err != nil {
		s.logger.Warn("Failed to set UDP read buffer size",
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("UDP frame source started",
		slog.String("address", conn.LocalAddr().String()),
		slog.Int("frame_length", s.config.FrameLength),
		slog.Int("queue_size", cap(s.frames)),
	)

	s.wg.Add(1)
	go s.receiveLoop()

	return nil
}

// ReadFrame blocks until the next assembled frame arrives
func (s *UDPSource) ReadFrame() ([]int16, error) {
	select {
	case frame, ok := <-s.frames:
		if !ok {
			return nil, fmt.Errorf("udp source stopped")
		}
		return frame, nil
	case <-s.ctx.Done():
		return nil, fmt.Errorf("udp source stopped")
	}
}

// Stop closes the socket, stops the receive loop and unblocks a pending
// ReadFrame
func (s *UDPSource) Stop() error {
	s.cancel()

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Warn("Error closing UDP connection", slog.String("error", err.Error()))
		}
	}

	s.wg.Wait()

	s.closeOnce.Do(func() { close(s.frames) })

	stats := s.assembler.GetStats()
	s.logger.Info("UDP frame source stopped",
		slog.Uint64("packets_received", stats.TotalPackets),
		slog.Uint64("packets_lost", stats.LostPackets),
		slog.Uint64("packets_duplicate", stats.DuplicatePackets),
	)

	return nil
}

// Release frees source resources; the socket is already closed by Stop
func (s *UDPSource) Release() error {
	return nil
}

// receiveLoop is the main datagram receiving loop
func (s *UDPSource) receiveLoop() {
	defer s.wg.Done()

	buffer := make([]byte, maxDatagramSize)

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		// Wake up periodically to notice cancellation
		if err := s.conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
			s.logger.Error("Failed to set read deadline", slog.String("error", err.Error()))
			continue
		}

		n, remoteAddr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}

			select {
			case <-s.ctx.Done():
				return
			default:
				s.logger.Error("Failed to read UDP packet", slog.String("error", err.Error()))
				continue
			}
		}

		s.metrics.RecordPacketReceived()

		packet, err := ParsePacket(buffer[:n])
		if err != nil {
			s.metrics.RecordParseError()
			s.logger.Warn("Dropping unparseable packet",
				slog.String("remote_addr", remoteAddr.String()),
				slog.Int("packet_size", n),
				slog.String("error", err.Error()),
			)
			continue
		}

		for _, frame := range s.assembler.Add(packet.Sequence, packet.Samples) {
			select {
			case s.frames <- frame:
			default:
				s.metrics.RecordPacketDropped()
				s.logger.Warn("Frame queue full, dropping frame",
					slog.Uint64("sequence", uint64(packet.Sequence)),
				)
			}
		}

		s.metrics.SetQueueSize(len(s.frames))
	}
}
