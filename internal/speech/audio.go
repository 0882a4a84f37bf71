package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/hammamikhairi/metrovox/internal/domain"
)

// Silence returns d worth of silent PCM at the given sample rate.
func Silence(d time.Duration, sampleRate int) []byte {
	if d <= 0 || sampleRate <= 0 {
		return nil
	}
	samples := int(d.Seconds() * float64(sampleRate))
	return make([]byte, samples*ChannelCount*bytesPerSample)
}

// pcmDuration returns how long pcm plays at sampleRate.
func pcmDuration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(pcm) / (ChannelCount * bytesPerSample)
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// extractPCM strips the WAV/RIFF header and returns raw PCM data.
func extractPCM(wav []byte) ([]byte, error) {
	if len(wav) < 44 {
		return nil, errors.New("wav data too short")
	}

	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, errors.New("not a valid WAV file")
	}

	// Walk chunks to find the "data" chunk.
	pos := 12
	for pos < len(wav)-8 {
		chunkID := string(wav[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))

		if chunkID == "data" {
			start := pos + 8
			end := start + chunkSize
			if end > len(wav) {
				end = len(wav)
			}
			return wav[start:end], nil
		}

		pos += 8 + chunkSize
		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			pos++
		}
	}

	return nil, errors.New("data chunk not found in WAV")
}

// decodeMP3 decodes MP3 data and mixes it down to mono PCM. go-mp3 always
// yields interleaved stereo 16-bit LE. The decoded rate must equal want.
func decodeMP3(data []byte, want int) ([]byte, error) {
	if len(data) == 0 {
		return nil, domain.ErrNoAudio
	}

	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("mp3 decode: %w", err)
	}
	if got := decoder.SampleRate(); got != want {
		return nil, fmt.Errorf("%w: got %d Hz, want %d Hz", domain.ErrSampleRateMismatch, got, want)
	}

	stereo, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("reading pcm: %w", err)
	}
	return stereoToMono(stereo), nil
}

// stereoToMono averages left and right 16-bit LE samples.
func stereoToMono(stereo []byte) []byte {
	const frame = 4
	frames := len(stereo) / frame
	mono := make([]byte, frames*bytesPerSample)
	for i := 0; i < frames; i++ {
		off := i * frame
		left := int16(binary.LittleEndian.Uint16(stereo[off : off+2]))
		right := int16(binary.LittleEndian.Uint16(stereo[off+2 : off+4]))
		mixed := int16((int32(left) + int32(right)) / 2)
		binary.LittleEndian.PutUint16(mono[i*2:], uint16(mixed))
	}
	return mono
}
