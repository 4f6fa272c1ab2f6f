// Command docbuddy is the main entry point for the DocBuddy symptom
// assistant server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/docbuddy/internal/config"
	"github.com/MrWong99/docbuddy/internal/gateway"
	"github.com/MrWong99/docbuddy/internal/observe"
	"github.com/MrWong99/docbuddy/internal/session"
	"github.com/MrWong99/docbuddy/internal/speech"
	"github.com/MrWong99/docbuddy/internal/transcript"
	"github.com/MrWong99/docbuddy/internal/web"
	"github.com/MrWong99/docbuddy/pkg/provider/completion"
	"github.com/MrWong99/docbuddy/pkg/provider/completion/anyllm"
	"github.com/MrWong99/docbuddy/pkg/provider/completion/gemini"
	"github.com/MrWong99/docbuddy/pkg/provider/completion/openai"
	"github.com/MrWong99/docbuddy/pkg/provider/stt"
	"github.com/MrWong99/docbuddy/pkg/provider/stt/whisper"
	"github.com/MrWong99/docbuddy/pkg/provider/tts/coqui"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// playbackSampleRate is the PCM rate exchanged with the browser, matching
// the recognizer's expected input.
const playbackSampleRate = 16000

// errCredentialMissing marks a provider whose API key is absent. The provider
// is left out of the chain; the conversation runs on whatever remains.
var errCredentialMissing = errors.New("credential missing")

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "docbuddy: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "docbuddy: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("docbuddy starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	chain := gateway.NewChain(buildCompletionChain(cfg))
	store := transcript.NewStore()
	srv := web.New(store, web.WithLogger(logger))

	listener := buildListener(cfg)

	sessOpts := []session.Option{session.WithOnBusy(srv.NotifyBusy)}
	if cfg.Assistant.Name != "" {
		sessOpts = append(sessOpts, session.WithAssistantName(cfg.Assistant.Name))
	}
	if speaker := buildSpeaker(ctx, cfg, srv.SendAudio); speaker != nil {
		sessOpts = append(sessOpts, session.WithVoicer(speaker))
	}
	sess := session.New(store, chain, sessOpts...)

	if listener != nil {
		srv.Bind(sess, listener)
	} else {
		srv.Bind(sess, nil)
	}

	printStartupSummary(cfg, chain.Len())

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if httpServer.Addr == "" {
		httpServer.Addr = ":8080"
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", httpServer.Addr)
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			err = httpServer.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildCompletionChain instantiates the configured completion providers in
// chain order: primary, fallback, extras. A provider with a missing
// credential or a broken configuration is skipped with a log line rather than
// aborting startup — running on the fallback alone is a normal mode.
func buildCompletionChain(cfg *config.Config) []completion.Provider {
	var providers []completion.Provider

	add := func(role string, entry config.ProviderEntry) {
		if !entry.Configured() {
			return
		}
		p, err := buildCompletionProvider(entry)
		if errors.Is(err, errCredentialMissing) {
			slog.Debug("completion provider has no api key — skipping", "role", role, "name", entry.Name)
			return
		}
		if err != nil {
			slog.Warn("completion provider could not be created — skipping", "role", role, "name", entry.Name, "err", err)
			return
		}
		providers = append(providers, p)
		slog.Info("provider created", "kind", "completion", "role", role, "name", entry.Name, "model", entry.Model)
	}

	add("primary", cfg.Providers.Completion.Primary)
	add("fallback", cfg.Providers.Completion.Fallback)
	for _, e := range cfg.Providers.Completion.Extra {
		add("extra", e)
	}
	return providers
}

func buildCompletionProvider(entry config.ProviderEntry) (completion.Provider, error) {
	switch entry.Name {
	case "openai":
		if entry.APIKey == "" {
			return nil, errCredentialMissing
		}
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)

	case "gemini":
		if entry.APIKey == "" {
			return nil, errCredentialMissing
		}
		var opts []gemini.Option
		if entry.Model != "" {
			opts = append(opts, gemini.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(entry.BaseURL))
		}
		return gemini.New(entry.APIKey, opts...)

	case "ollama", "llamacpp", "llamafile":
		// Local servers: BaseURL is the address, no API key involved.
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New(entry.Name, entry.Model, opts...)

	default:
		if entry.APIKey == "" {
			return nil, errCredentialMissing
		}
		opts := []anyllmlib.Option{anyllmlib.WithAPIKey(entry.APIKey)}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New(entry.Name, entry.Model, opts...)
	}
}

// buildListener wires the speech recognizer and the vocabulary corrector.
// Returns nil when voice input is not configured.
func buildListener(cfg *config.Config) *speech.Listener {
	entry := cfg.Providers.STT
	if !entry.Configured() {
		return nil
	}
	if entry.Name != "whisper" {
		slog.Warn("unsupported stt provider — voice input disabled", "name", entry.Name)
		return nil
	}

	var opts []whisper.Option
	if entry.Model != "" {
		opts = append(opts, whisper.WithModel(entry.Model))
	}
	if entry.Language != "" {
		opts = append(opts, whisper.WithLanguage(entry.Language))
	}
	rec, err := whisper.New(entry.BaseURL, opts...)
	if err != nil {
		slog.Warn("stt provider could not be created — voice input disabled", "err", err)
		return nil
	}
	slog.Info("provider created", "kind", "stt", "name", entry.Name)

	corrector := speech.NewCorrector(speech.WithExtraVocabulary(cfg.Assistant.Vocabulary))
	return speech.NewListener(rec, stt.Config{
		SampleRate: playbackSampleRate,
		Channels:   1,
		Language:   entry.Language,
	}, speech.WithCorrector(corrector))
}

// buildSpeaker wires the synthesizer and picks a voice. Returns nil when
// speech output is not configured or the voice catalog cannot be fetched;
// the conversation then stays text-only.
func buildSpeaker(ctx context.Context, cfg *config.Config, sink speech.SinkFunc) *speech.Speaker {
	entry := cfg.Providers.TTS
	if !entry.Configured() {
		return nil
	}
	if entry.Name != "coqui" {
		slog.Warn("unsupported tts provider — speech output disabled", "name", entry.Name)
		return nil
	}

	opts := []coqui.Option{coqui.WithOutputSampleRate(playbackSampleRate)}
	if entry.Language != "" {
		opts = append(opts, coqui.WithLanguage(entry.Language))
	}
	synth, err := coqui.New(entry.BaseURL, opts...)
	if err != nil {
		slog.Warn("tts provider could not be created — speech output disabled", "err", err)
		return nil
	}

	voicesCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	voices, err := synth.Voices(voicesCtx)
	if err != nil {
		slog.Warn("could not list synthesis voices — speech output disabled", "err", err)
		return nil
	}
	preferred := cfg.Assistant.PreferredVoices
	if v := optString(entry.Options, "voice"); v != "" {
		preferred = append([]string{v}, preferred...)
	}
	voice, ok := speech.SelectVoice(voices, preferred, cfg.Assistant.Locale)
	if !ok {
		slog.Warn("tts provider offers no voices — speech output disabled")
		return nil
	}
	slog.Info("provider created", "kind", "tts", "name", entry.Name, "voice", voice.Name, "locale", voice.Locale)

	return speech.NewSpeaker(synth, voice, sink)
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, chainLen int) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         DocBuddy — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Primary", cfg.Providers.Completion.Primary.Name, cfg.Providers.Completion.Primary.Model)
	printProvider("Fallback", cfg.Providers.Completion.Fallback.Name, cfg.Providers.Completion.Fallback.Model)
	fmt.Printf("║  Chain length    : %-19d ║\n", chainLen)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
