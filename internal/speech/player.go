package speech

import (
	"bytes"
	"context"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/metrovox/internal/logger"
)

// Sink plays PCM audio. Play blocks until the audio finishes or ctx is
// cancelled, in which case it stops the audio and returns ctx.Err().
type Sink interface {
	Play(ctx context.Context, pcm []byte) error
}

var (
	_ Sink = (*Player)(nil)
	_ Sink = Discard{}
)

// Player handles audio playback of PCM data via oto.
type Player struct {
	ctx *oto.Context
	log *logger.Logger
}

// NewPlayer creates an audio player at the given sample rate. Initializes
// the system audio context; oto allows only one per process. Returns an
// error if the audio device is unavailable.
func NewPlayer(sampleRate int, log *logger.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	log.Debug("audio player initialized (rate=%d, channels=%d)", sampleRate, ChannelCount)
	return &Player{ctx: ctx, log: log}, nil
}

// Play plays PCM data synchronously. Blocks until playback finishes or
// ctx is cancelled.
func (p *Player) Play(ctx context.Context, pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	player.Play()
	p.log.Debug("audio player: playing %d bytes of PCM", len(pcm))

	var err error
	ticker := time.NewTicker(10 * time.Millisecond)
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			p.log.Debug("audio player: interrupted")
			err = ctx.Err()
		case <-ticker.C:
		}
		if err != nil {
			break
		}
	}
	ticker.Stop()

	if cerr := player.Close(); err == nil {
		err = cerr
	}
	return err
}

// Discard is a Sink for machines without audio output. It waits as long as
// the audio would have played so timing and stop behaviour are unchanged.
type Discard struct {
	SampleRate int
}

// Play waits for the duration of pcm or until ctx is cancelled.
func (d Discard) Play(ctx context.Context, pcm []byte) error {
	dur := pcmDuration(pcm, d.SampleRate)
	if dur <= 0 {
		return nil
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
