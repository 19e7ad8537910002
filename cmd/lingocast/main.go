package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lingocast/lingocast/internal/config"
	"github.com/lingocast/lingocast/internal/gdrive"
	"github.com/lingocast/lingocast/internal/pipeline"
	"github.com/lingocast/lingocast/internal/registry"
	"github.com/lingocast/lingocast/internal/server"
	"github.com/lingocast/lingocast/internal/session"
	"github.com/lingocast/lingocast/internal/speech"
	"github.com/lingocast/lingocast/internal/storage"
	"github.com/lingocast/lingocast/internal/transcribe"
	"github.com/lingocast/lingocast/internal/translate"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	configPath := flag.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, warnings, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	for _, warning := range warnings {
		log.Warn().Str("module", "config").Msg(warning)
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("storage init")
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var transcriber transcribe.Transcriber
	switch {
	case cfg.DeepgramAPIKey != "":
		transcriber = transcribe.NewDeepgram(cfg.DeepgramAPIKey, cfg.TranscribeModel)
	case cfg.OpenAIAPIKey != "":
		transcriber = transcribe.NewWhisper(cfg.OpenAIAPIKey, "")
	}

	var translator translate.Translator
	var synthesizer speech.Synthesizer
	if cfg.OpenAIAPIKey != "" {
		translator = translate.NewOpenAI(cfg.OpenAIAPIKey, cfg.TranslateModel)
		synthesizer = speech.NewOpenAI(cfg.OpenAIAPIKey, cfg.SpeechModel, cfg.SpeechVoice)
	}

	reg := registry.New()
	segments := pipeline.New(
		transcriber,
		translator,
		synthesizer,
		store,
		reg,
		storage.SourceLanguage,
		cfg.MinAudioBytes,
		cfg.ParsedServiceTimeout(),
	)
	manager := session.NewManager(store, reg, segments, cfg.RecentTranslations)

	handler := server.Handler(store, manager, func() []string { return warnings })

	if cfg.GDriveFolderID != "" {
		syncer, syncErr := gdrive.NewSyncer(ctx, cfg.GoogleCredentialsFile, cfg.GDriveFolderID)
		if syncErr != nil {
			log.Warn().Err(syncErr).Str("module", "gdrive").Msg("backup sync disabled")
		} else {
			go func() {
				ticker := time.NewTicker(5 * time.Minute)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						date := time.Now().UTC().Format("2006-01-02")
						if err := syncer.Sync(cfg.DBPath, date); err != nil {
							log.Warn().Err(err).Str("module", "gdrive").Msg("backup sync failed")
						}
					}
				}
			}()
		}
	}

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	go func() {
		log.Info().Str("module", "server").Str("addr", cfg.ListenAddr).Msg("lingocast started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("lingocast shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
}
