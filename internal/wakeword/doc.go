// Package wakeword detects the trigger phrase in a stream of PCM frames.
// It defines the Detector contract plus two backends: a Porcupine keyword
// engine for production use and a model-free energy detector for tests
// and constrained deployments.
package wakeword
