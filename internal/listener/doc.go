// Package listener runs the end-to-end monitoring pipeline.
//
// A single loop reads frames from the configured audio source and feeds
// them through wake word detection into the capture state machine. Each
// completed recording is handled in order: encoded to disk, emailed as
// an attachment, and then deleted or retained depending on the delivery
// outcome. The loop resumes monitoring as soon as the recording is
// handled.
package listener
