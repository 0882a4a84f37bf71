package speech

import "time"

// Audio format shared by every backend: signed 16-bit little-endian mono.
const (
	ChannelCount   = 1
	BitDepth       = 16
	bytesPerSample = BitDepth / 8
)

// Sample rates produced by the backends.
const (
	AzureSampleRate   = 24000
	EdgeSampleRate    = 24000
	TencentSampleRate = 16000
)

// Audio format requested from Azure. Must match AzureSampleRate.
const DefaultAudioFormat = "riff-24khz-16bit-mono-pcm"

// DefaultWordGrace is how long BoundaryWord lets the current audio run
// before cutting it, roughly one spoken word.
const DefaultWordGrace = 250 * time.Millisecond

// DefaultChunkSize is the rune count above which text is split at sentence
// boundaries and synthesized in parallel.
const DefaultChunkSize = 120

// Env var names for backend credentials.
const (
	EnvAzureSpeechKey    = "AZURE_SPEECH_KEY"
	EnvAzureSpeechRegion = "AZURE_SPEECH_REGION"
	EnvTencentSecretID   = "TENCENTCLOUD_SECRET_ID"
	EnvTencentSecretKey  = "TENCENTCLOUD_SECRET_KEY"
)
