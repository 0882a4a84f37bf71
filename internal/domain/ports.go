package domain

import "context"

// Speaker is the speech engine boundary. Utterances passed to a single
// Submit call are appended to the playback channel as one contiguous batch
// and played strictly in submission order. Implementations must not block
// on playback.
type Speaker interface {
	Submit(utts ...Utterance)
	StopAll(b Boundary)
}

// Synthesizer turns an utterance into 16-bit little-endian mono PCM at
// SampleRate(). Implementations can be cloud APIs, local engines, or silent.
type Synthesizer interface {
	Name() string
	SampleRate() int
	Synthesize(ctx context.Context, voice Voice, u Utterance) ([]byte, error)
}

// Announcer is what UI handlers hold. Both methods return immediately and
// never fail from the caller's point of view.
type Announcer interface {
	Speak(e Entry)
	StopAll()
}
