// Package speech implements the playback channel and the text-to-speech
// backends behind it.
package speech

import (
	"context"

	"github.com/hammamikhairi/metrovox/internal/domain"
	"github.com/hammamikhairi/metrovox/internal/logger"
)

// Compile-time interface check.
var _ domain.Synthesizer = (*NoOp)(nil)

// NoOp is a synthesizer that produces no audio. Used when speech is disabled
// so the rest of the pipeline still runs and logs what would be said.
type NoOp struct {
	log *logger.Logger
}

// NewNoOp creates a no-op synthesizer.
func NewNoOp(log *logger.Logger) *NoOp {
	return &NoOp{log: log}
}

// Name identifies the backend in logs.
func (n *NoOp) Name() string { return "none" }

// SampleRate matches the Azure format so the silence helpers still work.
func (n *NoOp) SampleRate() int { return AzureSampleRate }

// Synthesize returns empty audio.
func (n *NoOp) Synthesize(ctx context.Context, voice domain.Voice, u domain.Utterance) ([]byte, error) {
	n.log.Info("speech no-op: would say %q (%s)", u.Text, voice.Locale)
	return nil, nil
}
