// Package source provides the frame sources the daemon can listen on.
// The Source contract delivers fixed-length PCM frames; backends cover
// the Picovoice recorder, PortAudio and a UDP network stream with its
// own packet codec and sequence-reordering frame assembler.
package source
