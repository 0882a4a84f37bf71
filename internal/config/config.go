// Package config loads metrovox configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	TTS      TTSConfig      `yaml:"tts"`
	Cache    CacheConfig    `yaml:"cache"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Playback PlaybackConfig `yaml:"playback"`
}

// LogConfig controls logging. File "stderr" logs to the console.
type LogConfig struct {
	Level      string `yaml:"level" env:"METROVOX_LOG_LEVEL"` // off, normal, verbose
	File       string `yaml:"file" env:"METROVOX_LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// TTSConfig selects and configures the speech backend.
type TTSConfig struct {
	Engine  string            `yaml:"engine" env:"METROVOX_TTS_ENGINE"` // azure, edge, tencent, none
	Azure   AzureConfig       `yaml:"azure"`
	Tencent TencentConfig     `yaml:"tencent"`
	Voices  map[string]string `yaml:"voices"` // locale -> voice name overrides
}

// AzureConfig holds Azure Cognitive Services settings.
type AzureConfig struct {
	Key     string        `yaml:"key" env:"AZURE_SPEECH_KEY"`
	Region  string        `yaml:"region" env:"AZURE_SPEECH_REGION"`
	Format  string        `yaml:"format"`
	Timeout time.Duration `yaml:"timeout"`
}

// TencentConfig holds Tencent Cloud TTS settings.
type TencentConfig struct {
	SecretID  string `yaml:"secret_id" env:"TENCENTCLOUD_SECRET_ID"`
	SecretKey string `yaml:"secret_key" env:"TENCENTCLOUD_SECRET_KEY"`
	Region    string `yaml:"region" env:"TENCENTCLOUD_REGION"`
}

// CacheConfig controls the synthesized audio cache.
type CacheConfig struct {
	Dir       string `yaml:"dir" env:"METROVOX_CACHE_DIR"`
	DiskWrite *bool  `yaml:"disk_write"`
}

// CatalogConfig points at an alternative announcement table.
type CatalogConfig struct {
	Path string `yaml:"path" env:"METROVOX_CATALOG"`
}

// PlaybackConfig controls the playback channel.
type PlaybackConfig struct {
	StopBoundary string        `yaml:"stop_boundary" env:"METROVOX_STOP_BOUNDARY"` // word, immediate
	WordGrace    time.Duration `yaml:"word_grace"`
	ChunkSize    int           `yaml:"chunk_size" env:"METROVOX_CHUNK_SIZE"` // runes per TTS request, negative disables splitting
	Prefetch     bool          `yaml:"prefetch" env:"METROVOX_PREFETCH"`
}

// WritesToDisk reports whether new cache entries go to disk. Defaults to
// true when unset.
func (c CacheConfig) WritesToDisk() bool {
	return c.DiskWrite == nil || *c.DiskWrite
}

// Load reads the YAML file at path, expands ${VAR} references, applies
// environment overrides and fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			expanded := os.Expand(string(data), func(key string) string {
				return os.Getenv(key)
			})
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// setDefaults fills every unset field.
func setDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "normal"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(dataDir(), "metrovox.log")
	}
	if cfg.TTS.Engine == "" {
		cfg.TTS.Engine = "edge"
	}
	cfg.TTS.Engine = strings.ToLower(cfg.TTS.Engine)
	if cfg.TTS.Azure.Region == "" {
		cfg.TTS.Azure.Region = "eastasia"
	}
	if cfg.TTS.Azure.Format == "" {
		cfg.TTS.Azure.Format = "riff-24khz-16bit-mono-pcm"
	}
	if cfg.TTS.Azure.Timeout == 0 {
		cfg.TTS.Azure.Timeout = 30 * time.Second
	}
	if cfg.TTS.Tencent.Region == "" {
		cfg.TTS.Tencent.Region = "ap-guangzhou"
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = filepath.Join(dataDir(), "cache")
	} else {
		cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	}
	cfg.Log.File = expandHome(cfg.Log.File)
	cfg.Catalog.Path = expandHome(cfg.Catalog.Path)
	if cfg.Playback.StopBoundary == "" {
		cfg.Playback.StopBoundary = "word"
	}
	if cfg.Playback.WordGrace == 0 {
		cfg.Playback.WordGrace = 250 * time.Millisecond
	}
	if cfg.Playback.ChunkSize == 0 {
		cfg.Playback.ChunkSize = 120
	} else if cfg.Playback.ChunkSize < 0 {
		cfg.Playback.ChunkSize = 0
	}
}

// dataDir returns ~/.metrovox, or ./.metrovox-data without a home directory.
func dataDir() string {
	if home, _ := os.UserHomeDir(); home != "" {
		return filepath.Join(home, ".metrovox")
	}
	return "./.metrovox-data"
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return p
	}
	return filepath.Join(home, p[2:])
}
