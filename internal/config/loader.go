package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"completion": {"openai", "gemini", "anthropic", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt":        {"whisper"},
	"tts":        {"coqui"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Assistant
	if strings.ContainsAny(cfg.Assistant.Name, "\r\n") {
		errs = append(errs, errors.New("assistant.name must not contain line breaks"))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("completion", cfg.Providers.Completion.Primary.Name)
	validateProviderName("completion", cfg.Providers.Completion.Fallback.Name)
	for _, e := range cfg.Providers.Completion.Extra {
		validateProviderName("completion", e.Name)
	}
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)

	// Provider availability warnings. A missing primary is not an error:
	// the chain simply starts at the fallback.
	completion := cfg.Providers.Completion
	if !completion.Primary.Configured() && !completion.Fallback.Configured() && len(completion.Extra) == 0 {
		slog.Warn("no completion provider configured; every turn will fail")
	}
	for i, e := range cfg.Providers.Completion.Extra {
		if !e.Configured() {
			errs = append(errs, fmt.Errorf("providers.completion.extra[%d].name is required", i))
		}
	}

	if !cfg.Providers.STT.Configured() {
		slog.Warn("no stt provider configured; voice input disabled")
	}
	if !cfg.Providers.TTS.Configured() {
		slog.Warn("no tts provider configured; replies stay text-only")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
