package speech

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hammamikhairi/metrovox/internal/domain"
	"github.com/hammamikhairi/metrovox/internal/logger"
)

const testSampleRate = 8000

// fakeSynth returns the utterance text as its "audio". It can fail on
// chosen texts, and stall on others without watching ctx.
type fakeSynth struct {
	mu     sync.Mutex
	calls  []domain.Utterance
	voices []domain.Voice
	fail   map[string]bool
	stall  map[string]time.Duration
}

func (f *fakeSynth) Name() string    { return "fake" }
func (f *fakeSynth) SampleRate() int { return testSampleRate }

func (f *fakeSynth) Synthesize(_ context.Context, voice domain.Voice, u domain.Utterance) ([]byte, error) {
	if d := f.stall[u.Text]; d > 0 {
		time.Sleep(d)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, u)
	f.voices = append(f.voices, voice)
	if f.fail[u.Text] {
		return nil, errors.New("synthesis failed")
	}
	return []byte(u.Text), nil
}

func (f *fakeSynth) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recordingSink records what it is asked to play. When block is set, the
// first Play waits for ctx to be cancelled.
type recordingSink struct {
	mu       sync.Mutex
	played   []string
	started  chan string
	block    bool
	blocked  bool
	cutAfter time.Duration
}

func newRecordingSink() *recordingSink {
	return &recordingSink{started: make(chan string, 64)}
}

func (s *recordingSink) Play(ctx context.Context, pcm []byte) error {
	label := describe(pcm)

	s.mu.Lock()
	s.played = append(s.played, label)
	wait := s.block && !s.blocked
	if wait {
		s.blocked = true
	}
	s.mu.Unlock()

	select {
	case s.started <- label:
	default:
	}

	if wait {
		start := time.Now()
		<-ctx.Done()
		s.mu.Lock()
		s.cutAfter = time.Since(start)
		s.mu.Unlock()
		return ctx.Err()
	}
	return nil
}

func (s *recordingSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.played...)
}

// describe renders silence as "<silence Nms>" and anything else as text.
func describe(pcm []byte) string {
	for _, b := range pcm {
		if b != 0 {
			return string(pcm)
		}
	}
	return "<silence " + pcmDuration(pcm, testSampleRate).String() + ">"
}

func testResolver() *VoiceResolver {
	return NewVoiceResolver(VoiceTable{
		"zh-TW": "zh-voice",
		"en-US": "en-voice",
	}, "en-US", logger.New(logger.LevelOff, nil))
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func entryUtts(zh, en string, pause time.Duration) []domain.Utterance {
	return domain.Entry{
		ZhText:       zh,
		EnText:       en,
		ZhVoice:      "zh-TW",
		EnVoice:      "en-US",
		ZhRate:       0.5,
		EnRate:       0.5,
		ZhPitch:      1.1,
		EnPitch:      1.2,
		PauseBetween: pause,
	}.Utterances()
}
