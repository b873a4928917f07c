// Package audio implements the WAV codec used for captured recordings.
// All recordings are encoded as mono 16-bit little-endian PCM with the
// canonical 44-byte RIFF/WAVE header, and decoding rejects any file that
// does not match that layout.
package audio
