package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullConfig = `
server:
  listen_addr: ":8080"
  log_level: debug
assistant:
  name: DocBuddy
  locale: en-US
  preferred_voices: [Karen, Daniel]
  vocabulary: [amoxicillin]
providers:
  completion:
    primary:
      name: openai
      api_key: sk-test
      model: gpt-4o-mini
    fallback:
      name: gemini
      api_key: g-test
      model: gemini-1.5-flash
    extra:
      - name: ollama
        base_url: http://localhost:11434
        model: llama3
  stt:
    name: whisper
    base_url: http://localhost:9000
    language: en
  tts:
    name: coqui
    base_url: http://localhost:5002
    language: en
`

func TestLoadFromReaderFullConfig(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(fullConfig))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Assistant.Name != "DocBuddy" || cfg.Assistant.Locale != "en-US" {
		t.Errorf("assistant = %+v", cfg.Assistant)
	}
	if len(cfg.Assistant.PreferredVoices) != 2 || cfg.Assistant.PreferredVoices[0] != "Karen" {
		t.Errorf("preferred_voices = %v", cfg.Assistant.PreferredVoices)
	}
	if cfg.Providers.Completion.Primary.Name != "openai" || cfg.Providers.Completion.Primary.APIKey != "sk-test" {
		t.Errorf("primary = %+v", cfg.Providers.Completion.Primary)
	}
	if cfg.Providers.Completion.Fallback.Model != "gemini-1.5-flash" {
		t.Errorf("fallback = %+v", cfg.Providers.Completion.Fallback)
	}
	if len(cfg.Providers.Completion.Extra) != 1 || cfg.Providers.Completion.Extra[0].Name != "ollama" {
		t.Errorf("extra = %+v", cfg.Providers.Completion.Extra)
	}
	if cfg.Providers.STT.Name != "whisper" || cfg.Providers.TTS.Name != "coqui" {
		t.Errorf("stt/tts = %+v / %+v", cfg.Providers.STT, cfg.Providers.TTS)
	}
}

func TestLoadFromReaderUnknownField(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("server:\n  listen_adress: ':8080'\n"))
	if err == nil {
		t.Fatal("want error for unknown field")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("want error for missing file")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(fullConfig), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.Completion.Primary.Name != "openai" {
		t.Errorf("primary = %+v", cfg.Providers.Completion.Primary)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "empty config is valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Server.LogLevel = "verbose" },
			wantErr: "server.log_level",
		},
		{
			name:    "tls missing key",
			mutate:  func(c *Config) { c.Server.TLS = &TLSConfig{CertFile: "cert.pem"} },
			wantErr: "server.tls",
		},
		{
			name:    "assistant name with newline",
			mutate:  func(c *Config) { c.Assistant.Name = "Doc\nBuddy" },
			wantErr: "assistant.name",
		},
		{
			name: "extra entry without name",
			mutate: func(c *Config) {
				c.Providers.Completion.Extra = []ProviderEntry{{Model: "llama3"}}
			},
			wantErr: "extra[0].name",
		},
		{
			name: "fallback-only chain is valid",
			mutate: func(c *Config) {
				c.Providers.Completion.Fallback = ProviderEntry{Name: "gemini", APIKey: "k"}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
