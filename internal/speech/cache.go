package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hammamikhairi/metrovox/internal/domain"
	"github.com/hammamikhairi/metrovox/internal/logger"
)

// AudioCache keeps synthesized PCM in memory and, optionally, on disk as
// <key>.pcm files. Keys cover the backend, voice, rate, pitch and text.
//
// The disk directory is always read when set, so a previous run warms the
// cache even when persist is false; persist only controls writes.
type AudioCache struct {
	backend string
	dir     string
	persist bool
	log     *logger.Logger

	mu     sync.RWMutex
	pcm    map[string][]byte
	hits   int64
	misses int64
}

// NewAudioCache creates a cache for backend. An empty dir disables the
// disk layer.
func NewAudioCache(backend, dir string, persist bool, log *logger.Logger) *AudioCache {
	if dir != "" && persist {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("cache: cannot create %s: %v", dir, err)
		}
	}
	return &AudioCache{
		backend: backend,
		dir:     dir,
		persist: persist,
		log:     log,
		pcm:     make(map[string][]byte),
	}
}

// Get returns the PCM for u spoken by voice.
func (c *AudioCache) Get(voice domain.Voice, u domain.Utterance) ([]byte, bool) {
	key := c.key(voice, u)
	pcm, where := c.lookup(key)

	c.mu.Lock()
	if pcm == nil {
		c.misses++
	} else {
		c.hits++
		if where == "disk" {
			c.pcm[key] = pcm
		}
	}
	c.mu.Unlock()

	if pcm != nil {
		c.log.Debug("cache hit (%s): %s", where, truncate(u.Text, 40))
		return pcm, true
	}
	return nil, false
}

// Put stores pcm for u spoken by voice.
func (c *AudioCache) Put(voice domain.Voice, u domain.Utterance, pcm []byte) {
	key := c.key(voice, u)

	c.mu.Lock()
	c.pcm[key] = pcm
	n := len(c.pcm)
	c.mu.Unlock()
	c.log.Debug("cache store: %s (%d bytes, %d entries)", truncate(u.Text, 40), len(pcm), n)

	if c.dir == "" || !c.persist {
		return
	}
	if err := os.WriteFile(c.path(key), pcm, 0o644); err != nil {
		c.log.Error("cache: write %s: %v", c.path(key), err)
	}
}

// Has reports whether audio for u is cached without counting a hit.
func (c *AudioCache) Has(voice domain.Voice, u domain.Utterance) bool {
	key := c.key(voice, u)

	c.mu.RLock()
	_, ok := c.pcm[key]
	c.mu.RUnlock()
	if ok || c.dir == "" {
		return ok
	}
	_, err := os.Stat(c.path(key))
	return err == nil
}

// Len returns the number of entries held in memory.
func (c *AudioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pcm)
}

// Stats returns hit and miss counts.
func (c *AudioCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// lookup checks memory, then disk. where is "mem" or "disk".
func (c *AudioCache) lookup(key string) (pcm []byte, where string) {
	c.mu.RLock()
	pcm, ok := c.pcm[key]
	c.mu.RUnlock()
	if ok {
		return pcm, "mem"
	}
	if c.dir == "" {
		return nil, ""
	}
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, ""
	}
	return data, "disk"
}

func (c *AudioCache) key(voice domain.Voice, u domain.Utterance) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%.3f|%.3f|%s", c.backend, voice.Name, u.Rate, u.Pitch, u.Text)))
	return hex.EncodeToString(sum[:])
}

func (c *AudioCache) path(key string) string {
	return filepath.Join(c.dir, key+".pcm")
}

// truncate shortens s to maxLen runes for logging.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
