package speech

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"

	"github.com/hammamikhairi/metrovox/internal/domain"
	"github.com/hammamikhairi/metrovox/internal/logger"
)

// Compile-time interface check.
var _ domain.Synthesizer = (*EdgeClient)(nil)

// EdgeClient synthesizes speech with the Microsoft Edge read-aloud service.
// It needs no credentials. Rate and pitch go out as the same relative SSML
// prosody values the Azure backend uses.
type EdgeClient struct {
	log *logger.Logger
}

// NewEdgeClient creates an Edge TTS client.
func NewEdgeClient(log *logger.Logger) *EdgeClient {
	return &EdgeClient{log: log}
}

// Name identifies the backend in logs.
func (c *EdgeClient) Name() string { return "edge" }

// SampleRate returns the PCM sample rate of synthesized audio.
func (c *EdgeClient) SampleRate() int { return EdgeSampleRate }

// Synthesize streams MP3 audio for the utterance and decodes it to PCM.
func (c *EdgeClient) Synthesize(ctx context.Context, voice domain.Voice, u domain.Utterance) ([]byte, error) {
	c.log.Debug("edge tts: synthesizing %d chars with voice %s", len([]rune(u.Text)), voice.Name)

	comm, err := edge.NewCommunicate(u.Text, edgeOptions(voice, u)...)
	if err != nil {
		return nil, fmt.Errorf("edge tts: %w", err)
	}

	ch, err := comm.Stream()
	if err != nil {
		return nil, fmt.Errorf("edge tts stream: %w", err)
	}

	// Entries with type "audio" carry MP3 bytes.
	var buf bytes.Buffer
	for {
		select {
		case <-ctx.Done():
			go drainStream(ch)
			return nil, ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				c.log.Debug("edge tts: got %d bytes of mp3", buf.Len())
				return decodeMP3(buf.Bytes(), EdgeSampleRate)
			}
			if t, ok := msg["type"].(string); ok && t == "audio" {
				if data, ok := msg["data"].([]byte); ok {
					buf.Write(data)
				}
			}
		}
	}
}

// edgeOptions carries the voice and the utterance prosody.
func edgeOptions(voice domain.Voice, u domain.Utterance) []edge.Option {
	return []edge.Option{
		edge.WithVoice(voice.Name),
		edge.WithRate(ssmlRate(u.Rate)),
		edge.WithPitch(ssmlPitch(u.Pitch)),
	}
}

// drainStream discards the rest of an abandoned stream so its producer
// can finish.
func drainStream(ch <-chan map[string]interface{}) {
	for range ch {
	}
}
