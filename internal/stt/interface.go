package stt

import "context"

// Transcriber defines the interface for speech-to-text providers.
//
// Transcribe returns the recognized text for the audio at the given URL.
// An empty string with a nil error means the provider processed the audio
// but found no speech; callers must treat that differently from an error.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)

	// Name returns the name of the provider (e.g., "deepgram")
	Name() string
}
