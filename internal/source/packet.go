package source

import (
	"encoding/binary"
	"fmt"
)

// Wire format constants for the UDP frame source
const (
	// PacketMagic opens every datagram
	PacketMagic uint16 = 0x4C41

	// Packet types
	PacketTypeAudio = 0x01

	// HeaderSize is the fixed prefix: [Magic:2][Type:1][Sequence:4]
	HeaderSize = 7
)

// Packet represents one audio datagram: a 7-byte header followed by
// little-endian PCM-16 samples
// Layout: [Magic:2][PacketType:1][Sequence:4][Samples:N*2]
type Packet struct {
	Sequence uint32  // monotonically increasing per sender
	Samples  []int16 // PCM payload, any length including zero
}

// ParsePacket parses and validates one datagram. The samples are decoded
// into a fresh slice, so the caller may reuse the read buffer.
func ParsePacket(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("packet too short: expected at least %d bytes, got %d", HeaderSize, len(data))
	}

	magic := binary.BigEndian.Uint16(data[0:2])
	if magic != PacketMagic {
		return nil, fmt.Errorf("invalid magic: 0x%04x", magic)
	}

	packetType := data[2]
	if packetType != PacketTypeAudio {
		return nil, fmt.Errorf("unknown packet type: 0x%02x", packetType)
	}

	payload := data[HeaderSize:]
	if len(payload)%2 != 0 {
		return nil, fmt.Errorf("audio payload length must be even, got %d bytes", len(payload))
	}

	packet := &Packet{
		Sequence: binary.BigEndian.Uint32(data[3:7]),
		Samples:  make([]int16, len(payload)/2),
	}

	for i := range packet.Samples {
		packet.Samples[i] = int16(binary.LittleEndian.Uint16(payload[i*2:]))
	}

	return packet, nil
}

// EncodePacket builds the datagram for a sequence number and PCM payload
func EncodePacket(sequence uint32, samples []int16) []byte {
	data := make([]byte, HeaderSize+len(samples)*2)

	binary.BigEndian.PutUint16(data[0:2], PacketMagic)
	data[2] = PacketTypeAudio
	binary.BigEndian.PutUint32(data[3:7], sequence)

	for i, sample := range samples {
		binary.LittleEndian.PutUint16(data[HeaderSize+i*2:], uint16(sample))
	}

	return data
}

// String returns a human-readable representation of the packet
func (p *Packet) String() string {
	return fmt.Sprintf("Packet{Sequence:%d, Samples:%d}", p.Sequence, len(p.Samples))
}
