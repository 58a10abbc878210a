// Package stt provides live speech-to-text capture sessions.
package stt

import "context"

// Delta is one transcript update from a live session.
type Delta struct {
	Text  string
	Final bool
}

// Session is one restartable live transcription session. Deltas closes when
// the session is stopped or the engine ends it on its own (for example a
// silence timeout). A natural end is not an error: Err returns nil for it and
// reports only fatal conditions.
type Session interface {
	// SendAudio feeds raw PCM to the engine.
	SendAudio(data []byte) error

	// Finalize asks the engine to flush the current utterance as final.
	Finalize() error

	// Deltas emits interim and final transcript updates until the session ends.
	Deltas() <-chan Delta

	// Err reports the fatal condition that ended the session, if any.
	Err() error

	// Close stops the session and releases its resources.
	Close() error
}

// Options configures a transcription session.
type Options struct {
	Language   string // target language code, default "en"
	SampleRate int    // PCM sample rate in Hz, default 16000
}

// Engine creates live transcription sessions.
type Engine interface {
	Start(ctx context.Context, opts Options) (Session, error)
}
