// Package pipeline turns one transcribed audio segment into per-language
// delivery jobs: transcribe once, persist and echo the original, then
// translate and optionally synthesize for every other language present in
// the event, concurrently and with per-language failure isolation.
package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lingocast/lingocast/internal/protocol"
	"github.com/lingocast/lingocast/internal/registry"
	"github.com/lingocast/lingocast/internal/speech"
	"github.com/lingocast/lingocast/internal/storage"
	"github.com/lingocast/lingocast/internal/transcribe"
	"github.com/lingocast/lingocast/internal/translate"
)

type Store interface {
	CreateTranslation(eventID int64, originalText string, translatedText *string, language string) (storage.Translation, error)
}

// Directory is the registry surface the pipeline fans out through.
type Directory interface {
	Languages(eventID int64) []string
	ConnectionsForLanguage(eventID int64, language string) []registry.Target
}

type Orchestrator struct {
	transcriber transcribe.Transcriber
	translator  translate.Translator
	synthesizer speech.Synthesizer
	store       Store
	directory   Directory

	sourceLanguage string
	minAudioBytes  int
	callTimeout    time.Duration
}

// Result is the aggregate outcome of one segment's per-language jobs.
type Result struct {
	Attempted int
	Succeeded int
	Failed    int
}

func New(
	transcriber transcribe.Transcriber,
	translator translate.Translator,
	synthesizer speech.Synthesizer,
	store Store,
	directory Directory,
	sourceLanguage string,
	minAudioBytes int,
	callTimeout time.Duration,
) *Orchestrator {
	if sourceLanguage == "" {
		sourceLanguage = storage.SourceLanguage
	}
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}

	return &Orchestrator{
		transcriber:    transcriber,
		translator:     translator,
		synthesizer:    synthesizer,
		store:          store,
		directory:      directory,
		sourceLanguage: sourceLanguage,
		minAudioBytes:  minAudioBytes,
		callTimeout:    callTimeout,
	}
}

// Process runs one segment end to end. Status and error messages go to the
// submitting connection only; translated content goes to every connection
// registered for its language. The returned error covers the fatal
// whole-segment path (transcription or source-record failure); per-language
// failures are reported through the aggregate status instead.
func (o *Orchestrator) Process(ctx context.Context, eventID int64, audio []byte, submitter registry.Sender) (Result, error) {
	if len(audio) < o.minAudioBytes {
		_ = submitter.Send(protocol.NewProcessingStatus(protocol.StatusSkipped, "segment too short, skipped"))
		return Result{}, nil
	}

	if o.transcriber == nil {
		_ = submitter.Send(protocol.NewError("transcription is not configured", ""))
		return Result{}, errors.New("no transcriber configured")
	}

	_ = submitter.Send(protocol.NewProcessingStatus(protocol.StatusProcessing, "transcribing segment"))

	text, err := o.transcribeSegment(ctx, audio)
	if err != nil {
		log.Error().Err(err).Str("module", "pipeline").Int64("event", eventID).Msg("transcription failed")
		_ = submitter.Send(protocol.NewError("transcription failed", err.Error()))
		return Result{}, err
	}

	if strings.TrimSpace(text) == "" {
		_ = submitter.Send(protocol.NewProcessingStatus(protocol.StatusSkipped, "no speech detected"))
		return Result{}, nil
	}

	transcribed := protocol.NewProcessingStatus(protocol.StatusTranscribed, "")
	transcribed.Text = text
	_ = submitter.Send(transcribed)

	// The source-language record must exist before any translated record so
	// history readers never see a translation without its original.
	sourceRecord, err := o.store.CreateTranslation(eventID, text, nil, o.sourceLanguage)
	if err != nil {
		log.Error().Err(err).Str("module", "pipeline").Int64("event", eventID).Msg("source record failed")
		_ = submitter.Send(protocol.NewError("failed to store transcription", err.Error()))
		return Result{}, fmt.Errorf("create source record: %w", err)
	}

	echo := protocol.NewTranslation(sourceRecord, text, o.sourceLanguage)
	for _, target := range o.directory.ConnectionsForLanguage(eventID, o.sourceLanguage) {
		_ = target.Conn.Send(echo)
	}

	languages := make([]string, 0, 4)
	for _, language := range o.directory.Languages(eventID) {
		if language == o.sourceLanguage {
			continue
		}
		languages = append(languages, language)
	}

	errs := make([]error, len(languages))
	var wg sync.WaitGroup
	for i, language := range languages {
		wg.Add(1)
		go func(i int, language string) {
			defer wg.Done()
			errs[i] = o.translateLanguage(ctx, eventID, text, language)
		}(i, language)
	}
	wg.Wait()

	result := Result{Attempted: len(languages)}
	for i, jobErr := range errs {
		if jobErr == nil {
			result.Succeeded++
			continue
		}
		result.Failed++
		log.Warn().Err(jobErr).Str("module", "pipeline").Int64("event", eventID).Str("language", languages[i]).Msg("language job failed")
	}

	message := fmt.Sprintf("delivered to %d of %d languages", result.Succeeded, result.Attempted)
	_ = submitter.Send(protocol.NewCompletionStatus(result.Attempted, result.Succeeded, result.Failed, message))

	return result, nil
}

func (o *Orchestrator) transcribeSegment(ctx context.Context, audio []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	return o.transcriber.Transcribe(ctx, audio)
}

// translateLanguage runs one language's job: translate, persist, deliver
// text, then synthesize shared audio for listeners that asked for it. Only
// the translate/persist steps can fail the job; synthesis degrades audio
// delivery without failing text delivery.
func (o *Orchestrator) translateLanguage(ctx context.Context, eventID int64, text, language string) error {
	if o.translator == nil {
		return fmt.Errorf("translation to %s: no translator configured", language)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	translated, err := o.translator.Translate(callCtx, text, language)
	cancel()
	if err != nil {
		return fmt.Errorf("translate %s: %w", language, err)
	}

	record, err := o.store.CreateTranslation(eventID, text, &translated, language)
	if err != nil {
		return fmt.Errorf("store translation for %s: %w", language, err)
	}

	// Re-snapshot at delivery time; listeners may have joined or left while
	// the translation call was in flight.
	targets := o.directory.ConnectionsForLanguage(eventID, language)
	msg := protocol.NewTranslation(record, text, o.sourceLanguage)
	audioTargets := make([]registry.Target, 0, len(targets))
	for _, target := range targets {
		_ = target.Conn.Send(msg)
		if target.AudioEnabled {
			audioTargets = append(audioTargets, target)
		}
	}

	if len(audioTargets) == 0 || o.synthesizer == nil {
		return nil
	}

	callCtx, cancel = context.WithTimeout(ctx, o.callTimeout)
	audio, synthErr := o.synthesizer.Synthesize(callCtx, translated, language)
	cancel()
	if synthErr != nil {
		log.Warn().Err(synthErr).Str("module", "pipeline").Int64("event", eventID).Str("language", language).Msg("synthesis failed, text delivered without audio")
		return nil
	}
	if len(audio) == 0 {
		return nil
	}

	audioMsg := protocol.NewAudioTranslation(base64.StdEncoding.EncodeToString(audio), translated)
	for _, target := range audioTargets {
		_ = target.Conn.Send(audioMsg)
	}

	return nil
}
