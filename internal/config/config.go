package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all LingoCast environment variables.
const EnvPrefix = "LINGOCAST_"

// Config holds all application configuration. Secrets (API keys) are loaded
// exclusively from environment variables and never appear in the config file.
type Config struct {
	ListenAddr            string `yaml:"listen_addr"`
	DBPath                string `yaml:"db_path"`
	RecentTranslations    int    `yaml:"recent_translations"`
	MinAudioBytes         int    `yaml:"min_audio_bytes"`
	ServiceTimeout        string `yaml:"service_timeout"`
	TranscribeModel       string `yaml:"transcribe_model"`
	TranslateModel        string `yaml:"translate_model"`
	SpeechModel           string `yaml:"speech_model"`
	SpeechVoice           string `yaml:"speech_voice"`
	GDriveFolderID        string `yaml:"gdrive_folder_id"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`

	// Secrets come from env vars only, never the YAML file.
	DeepgramAPIKey string `yaml:"-"`
	OpenAIAPIKey   string `yaml:"-"`
}

func defaults() Config {
	return Config{
		ListenAddr:            ":8080",
		DBPath:                "data/lingocast.db",
		RecentTranslations:    10,
		MinAudioBytes:         1024,
		ServiceTimeout:        "30s",
		TranscribeModel:       "nova-2",
		TranslateModel:        "gpt-4o-mini",
		SpeechModel:           "tts-1",
		SpeechVoice:           "alloy",
		GoogleCredentialsFile: "./service-account.json",
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the result.
// It returns the config, any validation warnings, and an error if the file
// exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// ParsedServiceTimeout returns ServiceTimeout as a time.Duration,
// falling back to 30s if the value is invalid.
func (c *Config) ParsedServiceTimeout() time.Duration {
	d, err := time.ParseDuration(c.ServiceTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvPrefix + "DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvPrefix + "RECENT_TRANSLATIONS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.RecentTranslations = n
		}
	}
	if v := os.Getenv(EnvPrefix + "MIN_AUDIO_BYTES"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			cfg.MinAudioBytes = n
		}
	}
	if v := os.Getenv(EnvPrefix + "SERVICE_TIMEOUT"); v != "" {
		cfg.ServiceTimeout = v
	}
	if v := os.Getenv(EnvPrefix + "TRANSCRIBE_MODEL"); v != "" {
		cfg.TranscribeModel = v
	}
	if v := os.Getenv(EnvPrefix + "TRANSLATE_MODEL"); v != "" {
		cfg.TranslateModel = v
	}
	if v := os.Getenv(EnvPrefix + "SPEECH_MODEL"); v != "" {
		cfg.SpeechModel = v
	}
	if v := os.Getenv(EnvPrefix + "SPEECH_VOICE"); v != "" {
		cfg.SpeechVoice = v
	}
	if v := os.Getenv(EnvPrefix + "GDRIVE_FOLDER_ID"); v != "" {
		cfg.GDriveFolderID = v
	}
	if v := os.Getenv(EnvPrefix + "GOOGLE_CREDENTIALS_FILE"); v != "" {
		cfg.GoogleCredentialsFile = v
	}
}

func loadSecrets(cfg *Config) {
	cfg.DeepgramAPIKey = os.Getenv(EnvPrefix + "DEEPGRAM_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv(EnvPrefix + "OPENAI_API_KEY")
}

func validate(cfg *Config) []string {
	var warnings []string

	if cfg.OpenAIAPIKey == "" {
		warnings = append(warnings, "OpenAI API key not configured, translation and speech synthesis are disabled. Set "+EnvPrefix+"OPENAI_API_KEY.")
	}
	if cfg.DeepgramAPIKey == "" {
		if cfg.OpenAIAPIKey == "" {
			warnings = append(warnings, "Deepgram API key not configured and no OpenAI fallback, transcription is disabled. Set "+EnvPrefix+"DEEPGRAM_API_KEY.")
		} else {
			warnings = append(warnings, "Deepgram API key not configured, falling back to OpenAI Whisper transcription.")
		}
	}
	if _, err := time.ParseDuration(cfg.ServiceTimeout); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid service_timeout %q, using default 30s.", cfg.ServiceTimeout))
	}

	return warnings
}
