package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LISTEN_ADDR", "DB_PATH", "RECENT_TRANSLATIONS", "MIN_AUDIO_BYTES",
		"SERVICE_TIMEOUT", "TRANSCRIBE_MODEL", "TRANSLATE_MODEL",
		"SPEECH_MODEL", "SPEECH_VOICE", "GDRIVE_FOLDER_ID",
		"GOOGLE_CREDENTIALS_FILE", "DEEPGRAM_API_KEY", "OPENAI_API_KEY", "CONFIG",
	} {
		t.Setenv(EnvPrefix+key, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, _, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Fatalf("expected default listen_addr, got %q", cfg.ListenAddr)
	}
	if cfg.DBPath != "data/lingocast.db" {
		t.Fatalf("expected default db_path, got %q", cfg.DBPath)
	}
	if cfg.RecentTranslations != 10 {
		t.Fatalf("expected default recent_translations 10, got %d", cfg.RecentTranslations)
	}
	if cfg.MinAudioBytes != 1024 {
		t.Fatalf("expected default min_audio_bytes 1024, got %d", cfg.MinAudioBytes)
	}
	if cfg.ServiceTimeout != "30s" {
		t.Fatalf("expected default service_timeout, got %q", cfg.ServiceTimeout)
	}
	if cfg.TranslateModel != "gpt-4o-mini" {
		t.Fatalf("expected default translate_model, got %q", cfg.TranslateModel)
	}
}

func TestYAMLLoading(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	yamlContent := `
listen_addr: ":9090"
db_path: /custom/db.sqlite
recent_translations: 25
min_audio_bytes: 256
service_timeout: 45s
transcribe_model: nova-3
translate_model: gpt-4o
speech_model: tts-1-hd
speech_voice: nova
gdrive_folder_id: my-folder
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ListenAddr != ":9090" {
		t.Fatalf("expected yaml listen_addr, got %q", cfg.ListenAddr)
	}
	if cfg.DBPath != "/custom/db.sqlite" {
		t.Fatalf("expected yaml db_path, got %q", cfg.DBPath)
	}
	if cfg.RecentTranslations != 25 {
		t.Fatalf("expected yaml recent_translations 25, got %d", cfg.RecentTranslations)
	}
	if cfg.ServiceTimeout != "45s" {
		t.Fatalf("expected yaml service_timeout, got %q", cfg.ServiceTimeout)
	}
	if cfg.SpeechVoice != "nova" {
		t.Fatalf("expected yaml speech_voice, got %q", cfg.SpeechVoice)
	}
	if cfg.GDriveFolderID != "my-folder" {
		t.Fatalf("expected yaml gdrive_folder_id, got %q", cfg.GDriveFolderID)
	}
}

func TestEnvOverridesBeatYAML(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("db_path: /from/yaml.db\nservice_timeout: 45s\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(EnvPrefix+"DB_PATH", "/from/env.db")
	t.Setenv(EnvPrefix+"SERVICE_TIMEOUT", "10s")
	t.Setenv(EnvPrefix+"RECENT_TRANSLATIONS", "5")

	cfg, _, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DBPath != "/from/env.db" {
		t.Fatalf("expected env db_path to win, got %q", cfg.DBPath)
	}
	if cfg.ServiceTimeout != "10s" {
		t.Fatalf("expected env service_timeout to win, got %q", cfg.ServiceTimeout)
	}
	if cfg.RecentTranslations != 5 {
		t.Fatalf("expected env recent_translations 5, got %d", cfg.RecentTranslations)
	}
}

func TestSecretsFromEnvOnly(t *testing.T) {
	clearEnv(t)

	t.Setenv(EnvPrefix+"DEEPGRAM_API_KEY", "dg-secret")
	t.Setenv(EnvPrefix+"OPENAI_API_KEY", "oa-secret")

	cfg, warnings, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DeepgramAPIKey != "dg-secret" {
		t.Fatalf("expected deepgram key from env, got %q", cfg.DeepgramAPIKey)
	}
	if cfg.OpenAIAPIKey != "oa-secret" {
		t.Fatalf("expected openai key from env, got %q", cfg.OpenAIAPIKey)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings with both keys set, got %v", warnings)
	}
}

func TestMissingKeysProduceWarnings(t *testing.T) {
	clearEnv(t)

	_, warnings, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(warnings) == 0 {
		t.Fatal("expected warnings when no API keys configured")
	}

	joined := strings.Join(warnings, "\n")
	if !strings.Contains(joined, "OPENAI_API_KEY") {
		t.Fatalf("expected OpenAI warning, got %v", warnings)
	}
	if !strings.Contains(joined, "transcription is disabled") {
		t.Fatalf("expected transcription warning, got %v", warnings)
	}
}

func TestWhisperFallbackWarning(t *testing.T) {
	clearEnv(t)

	t.Setenv(EnvPrefix+"OPENAI_API_KEY", "oa-secret")

	_, warnings, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	joined := strings.Join(warnings, "\n")
	if !strings.Contains(joined, "falling back to OpenAI Whisper") {
		t.Fatalf("expected whisper fallback warning, got %v", warnings)
	}
}

func TestParsedServiceTimeoutFallback(t *testing.T) {
	cfg := Config{ServiceTimeout: "not-a-duration"}
	if got := cfg.ParsedServiceTimeout(); got != 30*time.Second {
		t.Fatalf("expected 30s fallback, got %s", got)
	}

	cfg.ServiceTimeout = "90s"
	if got := cfg.ParsedServiceTimeout(); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
}

func TestInvalidTimeoutWarns(t *testing.T) {
	clearEnv(t)

	t.Setenv(EnvPrefix+"SERVICE_TIMEOUT", "bogus")
	t.Setenv(EnvPrefix+"DEEPGRAM_API_KEY", "dg")
	t.Setenv(EnvPrefix+"OPENAI_API_KEY", "oa")

	_, warnings, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(warnings) != 1 || !strings.Contains(warnings[0], "service_timeout") {
		t.Fatalf("expected single service_timeout warning, got %v", warnings)
	}
}
