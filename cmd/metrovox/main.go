// metrovox is a bilingual metro announcement board.
//
// Usage:
//
//	metrovox [-config metrovox.yaml] [-engine edge|azure|tencent|none] [-verbose] [-quiet] [-list]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hammamikhairi/metrovox/internal/announce"
	"github.com/hammamikhairi/metrovox/internal/catalog"
	"github.com/hammamikhairi/metrovox/internal/config"
	"github.com/hammamikhairi/metrovox/internal/display"
	"github.com/hammamikhairi/metrovox/internal/domain"
	"github.com/hammamikhairi/metrovox/internal/logger"
	"github.com/hammamikhairi/metrovox/internal/speech"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "metrovox.yaml", "path to the YAML config file")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", "", "file to write logs to (use \"stderr\" to log to console)")
	engineName := flag.String("engine", "", "speech backend: edge, azure, tencent or none")
	noSpeech := flag.Bool("no-speech", false, "disable text-to-speech; announcements are only logged")
	catalogPath := flag.String("catalog", "", "announcement table to use instead of the built-in one")
	cacheDir := flag.String("cache-dir", "", "directory for persistent TTS audio cache")
	diskCache := flag.Bool("disk-cache", true, "persist TTS audio cache to disk (reads from disk even when false)")
	prefetch := flag.Bool("prefetch", false, "synthesize every announcement in the background at startup")
	list := flag.Bool("list", false, "print the announcement catalog and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(map[string]func(){
		"log-file":   func() { cfg.Log.File = *logFile },
		"engine":     func() { cfg.TTS.Engine = *engineName },
		"catalog":    func() { cfg.Catalog.Path = *catalogPath },
		"cache-dir":  func() { cfg.Cache.Dir = *cacheDir },
		"disk-cache": func() { cfg.Cache.DiskWrite = diskCache },
		"prefetch":   func() { cfg.Playback.Prefetch = *prefetch },
	})
	if *noSpeech {
		cfg.TTS.Engine = "none"
	}

	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *list {
		printCatalog(os.Stdout, cat)
		return
	}

	// Configure logger.
	logLevel := logger.ParseLevel(cfg.Log.Level)
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	// Direct logs to a file by default so the board stays clean.
	var logOut io.Writer = os.Stderr
	if cfg.Log.File != "" && cfg.Log.File != "stderr" {
		w, err := logger.RotatingFile(cfg.Log.File, logger.Rotation{
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", cfg.Log.File, err)
		} else {
			logOut = w
			defer w.Close()
		}
	}

	// Third-party libraries that use the standard logger go to the same place.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)
	defer log.Sync()

	// Cancelled when the UI quits.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire dependencies.
	synth, voices := newBackend(cfg, log)
	resolver := speech.NewVoiceResolver(voices.With(cfg.TTS.Voices), domain.DefaultEnLocale, log)

	var sink speech.Sink = speech.Discard{SampleRate: synth.SampleRate()}
	if synth.Name() != "none" {
		player, err := speech.NewPlayer(synth.SampleRate(), log)
		if err != nil {
			log.Error("audio player init failed, playing to nowhere: %v", err)
		} else {
			sink = player
		}
	}

	channel := speech.NewChannel(synth, resolver, sink, log,
		speech.WithCacheDir(cfg.Cache.Dir),
		speech.WithDiskWrite(cfg.Cache.WritesToDisk()),
		speech.WithWordGrace(cfg.Playback.WordGrace),
		speech.WithChunkSize(cfg.Playback.ChunkSize),
	)
	channel.Start(ctx)

	if cfg.Playback.Prefetch && synth.Name() != "none" {
		var utts []domain.Utterance
		for _, e := range cat.Entries() {
			utts = append(utts, e.Utterances()...)
		}
		channel.Prefetch(ctx, utts...)
	}

	dispatcher := announce.New(channel, log,
		announce.WithBoundary(domain.BoundaryFromString(cfg.Playback.StopBoundary)),
	)

	log.Info("metrovox ready: %d announcements, engine=%s, stop=%s",
		cat.Len(), synth.Name(), dispatcher.Boundary())

	ui := display.NewUI(cat, dispatcher, channel)

	// SIGINT/SIGTERM close the board the same way "q" does.
	sigCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	go func() {
		ui.WaitReady()
		select {
		case <-sigCtx.Done():
			log.Info("signal received, quitting")
			ui.Quit()
		case <-ui.QuitChan():
		}
	}()

	// Bubble Tea owns the terminal; blocks until quit.
	if err := ui.Run(); err != nil {
		log.Error("display: %v", err)
	}
	dispatcher.StopAll()
	cancel()

	if hits, misses := channel.Cache().Stats(); hits+misses > 0 {
		log.Info("audio cache: %d hits, %d misses", hits, misses)
	}
}

// applyFlags runs the setter of every flag given on the command line, so
// flags override the config file only when set explicitly.
func applyFlags(setters map[string]func()) {
	flag.Visit(func(f *flag.Flag) {
		if set, ok := setters[f.Name]; ok {
			set()
		}
	})
}

func loadCatalog(path string) (*domain.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

// newBackend builds the configured synthesizer and its voice table. Missing
// credentials fall back to the silent backend.
func newBackend(cfg *config.Config, log *logger.Logger) (domain.Synthesizer, speech.VoiceTable) {
	switch cfg.TTS.Engine {
	case "azure":
		az := cfg.TTS.Azure
		if az.Key == "" || az.Region == "" {
			log.Warn("TTS disabled: set %s and %s to use azure", speech.EnvAzureSpeechKey, speech.EnvAzureSpeechRegion)
			break
		}
		client := speech.NewAzureClient(az.Key, az.Region, log,
			speech.WithAudioFormat(az.Format),
			speech.WithHTTPTimeout(az.Timeout),
		)
		log.Info("TTS enabled (engine=azure, region=%s)", az.Region)
		return client, speech.AzureVoices

	case "tencent":
		tc := cfg.TTS.Tencent
		client, err := speech.NewTencentClient(tc.SecretID, tc.SecretKey, tc.Region, log)
		if err != nil {
			log.Warn("TTS disabled: %v (set %s and %s)", err, speech.EnvTencentSecretID, speech.EnvTencentSecretKey)
			break
		}
		log.Info("TTS enabled (engine=tencent, region=%s)", tc.Region)
		return client, speech.TencentVoices

	case "edge":
		log.Info("TTS enabled (engine=edge)")
		return speech.NewEdgeClient(log), speech.EdgeVoices

	case "none":
		log.Info("TTS disabled by configuration")

	default:
		log.Warn("unknown TTS engine %q, speech disabled", cfg.TTS.Engine)
	}
	return speech.NewNoOp(log), speech.AzureVoices
}

func printCatalog(w io.Writer, cat *domain.Catalog) {
	for _, g := range cat.Groups() {
		fmt.Fprintf(w, "%s (%s)\n", g.Title, g.Category)
		for _, e := range g.Entries {
			fmt.Fprintf(w, "  %-12s %s / %s\n", e.Label, e.ZhText, e.EnText)
		}
		fmt.Fprintln(w)
	}
}
