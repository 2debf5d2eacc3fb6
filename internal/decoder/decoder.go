// Package decoder turns PCM audio windows into timestamped speech tokens.
package decoder

import "context"

// TimestepMS is the duration of one token timestep.
const TimestepMS = 20

// SampleRate is the capture rate every stream expects, in Hz.
const SampleRate = 16000

// SamplesPerMS converts milliseconds to sample counts at SampleRate.
const SamplesPerMS = SampleRate / 1000

// Token is one decoded unit of text and the timestep it was heard at.
type Token struct {
	Text     string
	Timestep uint32
}

// Model opens decoding streams.
type Model interface {
	NewStream(ctx context.Context) (Stream, error)
}

// Stream accumulates audio for one decoding window.
type Stream interface {
	Feed(samples []int16)
	// Finish decodes every sample fed so far. The stream is spent afterwards.
	Finish(ctx context.Context) ([]Token, error)
}
