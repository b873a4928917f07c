// Package capture implements the trigger-driven recording state machine.
//
// The machine sits between wake word detection and artifact persistence.
// It is idle until a detector match arrives, then buffers every frame
// from the triggering one on until a fixed-duration window elapses. The
// buffered frames are emitted as a Session for encoding and dispatch,
// and the machine returns to idle to wait for the next trigger. Matches
// that arrive while a window is open contribute their audio but never
// restart or extend the window.
package capture
