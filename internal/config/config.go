// Package config provides the configuration schema and loader for the
// DocBuddy server.
package config

// LogLevel controls log verbosity for the DocBuddy server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for DocBuddy.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Assistant AssistantConfig `yaml:"assistant"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig holds network and logging settings for the DocBuddy server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// AssistantConfig describes the assistant persona and its voice preferences.
type AssistantConfig struct {
	// Name is the assistant's display name, used in the transcript, the
	// persona prompt and the formatter. Defaults to "DocBuddy" when empty.
	Name string `yaml:"name"`

	// Locale is a BCP 47 tag (e.g., "en-US") used when no preferred voice
	// is available: the first synthesis voice matching the language wins.
	Locale string `yaml:"locale"`

	// PreferredVoices lists synthesis voice names or IDs in preference
	// order. The first one offered by the TTS provider is used.
	PreferredVoices []string `yaml:"preferred_voices"`

	// Vocabulary lists extra terms for the recognition corrector, on top
	// of the built-in clinical list.
	Vocabulary []string `yaml:"vocabulary"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage.
type ProvidersConfig struct {
	Completion CompletionConfig `yaml:"completion"`
	STT        ProviderEntry    `yaml:"stt"`
	TTS        ProviderEntry    `yaml:"tts"`
}

// CompletionConfig declares the ordered completion chain: the primary
// provider, the fallback tried when the primary fails, and any extra
// providers appended after the fallback.
type CompletionConfig struct {
	Primary  ProviderEntry   `yaml:"primary"`
	Fallback ProviderEntry   `yaml:"fallback"`
	Extra    []ProviderEntry `yaml:"extra"`
}

// ProviderEntry is the common configuration block shared by all provider types.
type ProviderEntry struct {
	// Name selects the provider implementation (e.g., "openai", "gemini").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	// An empty key for a provider that needs one means the provider is
	// skipped at startup, not a configuration error.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider
	// (e.g., "gpt-4o-mini", "gemini-1.5-flash").
	Model string `yaml:"model"`

	// Language is a provider-specific language hint (STT/TTS only).
	Language string `yaml:"language"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// Configured reports whether the entry names a provider at all.
func (p ProviderEntry) Configured() bool {
	return p.Name != ""
}
