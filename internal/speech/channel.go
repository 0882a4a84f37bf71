package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/hammamikhairi/metrovox/internal/domain"
	"github.com/hammamikhairi/metrovox/internal/logger"
)

// Compile-time interface check.
var _ domain.Speaker = (*Channel)(nil)

// ChannelOption configures the Channel.
type ChannelOption func(*Channel)

// WithChunkSize sets the approximate max rune count per TTS request.
// Longer text is split at sentence boundaries and synthesized in parallel
// so playback doesn't stall between sentences. 0 disables chunking.
func WithChunkSize(n int) ChannelOption {
	return func(c *Channel) {
		c.chunkSize = n
	}
}

// WithCacheDir sets the filesystem directory used for persistent audio
// caching. If empty, the disk layer is disabled (pure in-memory).
func WithCacheDir(dir string) ChannelOption {
	return func(c *Channel) {
		c.cacheDir = dir
	}
}

// WithDiskWrite controls whether new cache entries are written to disk.
// Even when false, existing on-disk entries are still read.
func WithDiskWrite(enabled bool) ChannelOption {
	return func(c *Channel) {
		c.diskWrite = enabled
	}
}

// WithWordGrace sets how long BoundaryWord lets the current audio continue
// before it is cut.
func WithWordGrace(d time.Duration) ChannelOption {
	return func(c *Channel) {
		c.wordGrace = d
	}
}

// Channel is the single playback channel. Utterances are played strictly
// in submission order, one at a time: synthesize (cached), play, then play
// the utterance's trailing silence. StopAll flushes the queue and cuts the
// utterance in flight.
//
// Stops are tracked with a generation counter. Every StopAll starts a new
// generation with a fresh context; work belonging to an older generation
// sees its context cancelled and never plays another sample.
type Channel struct {
	synth  domain.Synthesizer
	voices *VoiceResolver
	sink   Sink
	log    *logger.Logger
	cache  *AudioCache

	mu        sync.Mutex
	queue     []queued
	notify    chan struct{}
	speaking  bool
	current   string // text of the utterance in flight
	gen       uint64
	base      context.Context
	genCtx    context.Context
	cancelGen context.CancelFunc

	chunkSize int
	wordGrace time.Duration
	cacheDir  string
	diskWrite bool
}

type queued struct {
	utt      domain.Utterance
	queuedAt time.Time
}

// NewChannel creates a playback channel over the given synthesizer and sink.
func NewChannel(synth domain.Synthesizer, voices *VoiceResolver, sink Sink, log *logger.Logger, opts ...ChannelOption) *Channel {
	c := &Channel{
		synth:     synth,
		voices:    voices,
		sink:      sink,
		log:       log,
		notify:    make(chan struct{}, 32),
		chunkSize: DefaultChunkSize,
		wordGrace: DefaultWordGrace,
		diskWrite: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.base = context.Background()
	c.genCtx, c.cancelGen = context.WithCancel(c.base)
	// Build the cache after options are applied so cacheDir/diskWrite
	// are settled.
	c.cache = NewAudioCache(synth.Name(), c.cacheDir, c.diskWrite, log)
	return c
}

// Submit appends utterances to the playback queue as one contiguous batch.
// Non-blocking.
func (c *Channel) Submit(utts ...domain.Utterance) {
	if len(utts) == 0 {
		return
	}
	now := time.Now()

	c.mu.Lock()
	for _, u := range utts {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		c.queue = append(c.queue, queued{utt: u, queuedAt: now})
	}
	qLen := len(c.queue)
	c.mu.Unlock()

	c.log.Debug("channel: queued %d utterance(s), queue_len=%d", len(utts), qLen)

	// Signal the processing goroutine.
	select {
	case c.notify <- struct{}{}:
	default: // already signaled
	}
}

// StopAll discards every queued utterance and stops the one playing.
// With BoundaryWord the current audio runs for the word grace window
// before it is cut. Does nothing when the channel is idle.
func (c *Channel) StopAll(b domain.Boundary) {
	c.mu.Lock()
	if len(c.queue) == 0 && !c.speaking {
		c.mu.Unlock()
		c.log.Debug("channel: stop requested while idle")
		return
	}
	dropped := len(c.queue)
	c.queue = nil
	c.gen++
	cancel := c.cancelGen
	c.genCtx, c.cancelGen = context.WithCancel(c.base)
	c.mu.Unlock()

	if b == domain.BoundaryImmediate || c.wordGrace <= 0 {
		cancel()
	} else {
		time.AfterFunc(c.wordGrace, cancel)
	}

	c.log.Debug("channel: stopped (boundary=%s, dropped=%d)", b, dropped)
}

// IsSpeaking returns true while an utterance is being synthesized or played.
func (c *Channel) IsSpeaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// QueueLen returns the number of utterances waiting to be played.
func (c *Channel) QueueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Current returns the text of the utterance in flight, or "".
func (c *Channel) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Cache returns the audio cache used by this channel.
func (c *Channel) Cache() *AudioCache { return c.cache }

// Start begins the playback goroutine. Non-blocking. Cancelling ctx stops
// playback and ends the goroutine.
func (c *Channel) Start(ctx context.Context) {
	c.mu.Lock()
	c.cancelGen()
	c.base = ctx
	c.genCtx, c.cancelGen = context.WithCancel(ctx)
	c.mu.Unlock()

	go c.processLoop(ctx)
	c.log.Info("playback channel started (backend=%s)", c.synth.Name())
}

// processLoop waits for queued items and processes them one at a time.
func (c *Channel) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.log.Info("playback channel stopped")
			return
		case <-c.notify:
			c.drain(ctx)
		}
	}
}

// drain plays queued utterances in FIFO order until the queue is empty.
func (c *Channel) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, gen, gctx, ok := c.dequeue()
		if !ok {
			return
		}

		c.process(gctx, gen, item)

		c.mu.Lock()
		c.speaking = false
		c.current = ""
		c.mu.Unlock()
	}
}

// dequeue pops the oldest utterance and marks the channel as speaking.
// It also returns the generation and context the utterance belongs to.
func (c *Channel) dequeue() (queued, uint64, context.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 {
		return queued{}, 0, nil, false
	}
	item := c.queue[0]
	c.queue = c.queue[1:]
	c.speaking = true
	c.current = item.utt.Text
	return item, c.gen, c.genCtx, true
}

// live reports whether gen is still the current generation.
func (c *Channel) live(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

// process synthesizes and plays one utterance followed by its trailing
// silence. Long text is synthesized in parallel chunks.
func (c *Channel) process(ctx context.Context, gen uint64, item queued) {
	u := item.utt
	voice := c.voices.Resolve(u.Locale)
	waitTime := time.Since(item.queuedAt).Round(time.Millisecond)
	c.log.Debug("channel: speaking %s (voice=%s, waited=%s): %s", u.ID, voice.Name, waitTime, truncate(u.Text, 60))

	audio, ok := c.synthesize(ctx, voice, u)
	if !ok {
		c.log.Debug("channel: abandoning synthesis of %s (stopped)", u.ID)
		return
	}

	for i, pcm := range audio {
		if pcm == nil {
			c.log.Debug("channel: skipping chunk %d of %s (no audio)", i, u.ID)
			continue
		}
		if !c.live(gen) {
			c.log.Debug("channel: aborting %s (stopped)", u.ID)
			return
		}
		if err := c.sink.Play(ctx, pcm); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.log.Error("channel: playback of %s failed: %v", u.ID, err)
		}
	}

	if u.PostDelay > 0 && c.live(gen) {
		if err := c.sink.Play(ctx, Silence(u.PostDelay, c.synth.SampleRate())); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Error("channel: pause after %s failed: %v", u.ID, err)
		}
	}
}

// synthesize runs synthesizeChunks but gives up as soon as ctx is
// cancelled, so a stop never waits on a slow backend. An abandoned call
// still finishes in the background and fills the cache.
func (c *Channel) synthesize(ctx context.Context, voice domain.Voice, u domain.Utterance) ([][]byte, bool) {
	done := make(chan [][]byte, 1)
	go func() {
		done <- c.synthesizeChunks(ctx, voice, u)
	}()
	select {
	case audio := <-done:
		return audio, ctx.Err() == nil
	case <-ctx.Done():
		return nil, false
	}
}

// synthesizeChunks returns PCM per chunk in order. Failed chunks are nil.
func (c *Channel) synthesizeChunks(ctx context.Context, voice domain.Voice, u domain.Utterance) [][]byte {
	chunks := splitChunks(u.Text, c.chunkSize)
	if len(chunks) <= 1 {
		pcm, err := c.synthesizeWithCache(ctx, voice, u)
		if err != nil {
			c.log.Error("channel: synthesis of %s failed: %v", u.ID, err)
			return nil
		}
		return [][]byte{pcm}
	}

	c.log.Debug("channel: split %s into %d chunks for parallel synthesis", u.ID, len(chunks))

	type result struct {
		idx   int
		audio []byte
		err   error
	}
	results := make(chan result, len(chunks))

	for i, chunk := range chunks {
		go func(idx int, text string) {
			part := u
			part.Text = text
			audio, err := c.synthesizeWithCache(ctx, voice, part)
			results <- result{idx: idx, audio: audio, err: err}
		}(i, chunk)
	}

	slots := make([][]byte, len(chunks))
	for range chunks {
		r := <-results
		if r.err != nil {
			c.log.Error("channel: chunk %d of %s failed: %v", r.idx, u.ID, r.err)
			continue
		}
		slots[r.idx] = r.audio
	}
	return slots
}

// synthesizeWithCache checks the cache first, otherwise calls the backend
// and stores the result. Thread-safe.
func (c *Channel) synthesizeWithCache(ctx context.Context, voice domain.Voice, u domain.Utterance) ([]byte, error) {
	if audio, ok := c.cache.Get(voice, u); ok {
		return audio, nil
	}
	audio, err := c.synth.Synthesize(ctx, voice, u)
	if err != nil {
		return nil, err
	}
	if len(audio) > 0 {
		c.cache.Put(voice, u, audio)
	}
	return audio, nil
}

// Prefetch pre-synthesizes utterances in background goroutines and stores
// the results in the audio cache, skipping ones already cached.
// Non-blocking.
func (c *Channel) Prefetch(ctx context.Context, utts ...domain.Utterance) {
	for _, u := range utts {
		if u.Text == "" {
			continue
		}
		voice := c.voices.Resolve(u.Locale)

		for _, chunk := range splitChunks(u.Text, c.chunkSize) {
			part := u
			part.Text = chunk
			if c.cache.Has(voice, part) {
				continue
			}
			go func(p domain.Utterance) {
				audio, err := c.synth.Synthesize(ctx, voice, p)
				if err != nil {
					c.log.Warn("prefetch: synthesis failed: %v", err)
					return
				}
				if len(audio) > 0 {
					c.cache.Put(voice, p, audio)
				}
			}(part)
		}
	}
}

// splitChunks breaks text into sentence-boundary chunks of approximately
// size runes. If size is 0 or the text is short, it returns the text as-is.
func splitChunks(text string, size int) []string {
	if size <= 0 || len([]rune(text)) <= size {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	n := 0

	for _, s := range splitSentences(text) {
		sl := len([]rune(s))
		if n > 0 && n+sl > size {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			n = 0
		}
		current.WriteString(s)
		n += sl
	}
	if n > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	var out []string
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// splitSentences splits text after sentence-ending punctuation, Latin or
// CJK, keeping the punctuation and trailing space with the sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if isSentenceEnd(runes[i]) {
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
				current.WriteRune(runes[i])
			}
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '；':
		return true
	}
	return false
}
