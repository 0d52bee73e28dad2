// Package ocr implements the local extraction backend: an offline tesseract
// worker produces raw text, which the structuring classifier turns into
// records.
package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog/log"

	"github.com/scansheet/ocr-service/internal/extract"
	"github.com/scansheet/ocr-service/internal/models"
	"github.com/scansheet/ocr-service/internal/structure"
)

const defaultLanguage = "eng"

// recognizer is the subset of the gosseract client the engine uses; a seam
// for tests, which cannot assume a tesseract installation.
type recognizer interface {
	SetLanguage(languages ...string) error
	SetImageFromBytes(data []byte) error
	Text() (string, error)
	Close() error
}

// initAttempt holds the outcome of one initialization attempt. Concurrent
// callers hold a reference to the attempt they joined, so a later retry
// cannot clobber the outcome they observe.
type initAttempt struct {
	done chan struct{}
	err  error
}

// Engine implements extract.Backend over a local tesseract worker. The
// worker is expensive and non-reentrant to construct, so initialization is
// single-flight: concurrent callers join the in-flight attempt and observe
// its outcome. Recognition calls on the worker are serialized.
type Engine struct {
	mu       sync.Mutex
	state    extract.State
	attempt  *initAttempt
	worker   recognizer
	language string

	newWorker func() recognizer
}

// NewEngine creates an unconfigured local engine. The worker is constructed
// lazily on first use.
func NewEngine() *Engine {
	return &Engine{
		state:     extract.StateUnconfigured,
		language:  defaultLanguage,
		newWorker: func() recognizer { return gosseract.NewClient() },
	}
}

// Configure updates the recognition language. Idempotent; applies to the
// running worker when one exists, otherwise takes effect on the next
// initialization.
func (e *Engine) Configure(opts extract.Options) {
	if opts.Language == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.language = opts.Language
	if e.worker != nil {
		if err := e.worker.SetLanguage(opts.Language); err != nil {
			log.Warn().Err(err).Str("language", opts.Language).Msg("Failed to update OCR language")
		}
	}
}

// Ready reports whether the worker is initialized.
func (e *Engine) Ready() bool {
	return e.State() == extract.StateReady
}

// State returns the engine's lifecycle state.
func (e *Engine) State() extract.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Initialize brings the worker up. Already-ready engines return immediately;
// a caller arriving during an in-flight initialization joins it rather than
// starting a second one. On failure the engine reverts to unconfigured so a
// later call can retry.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case extract.StateReady:
		e.mu.Unlock()
		return nil

	case extract.StateInitializing:
		attempt := e.attempt
		e.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.err
		case <-ctx.Done():
			return extract.Wrap(extract.InitializationError, ctx.Err())
		}
	}

	attempt := &initAttempt{done: make(chan struct{})}
	e.attempt = attempt
	e.state = extract.StateInitializing
	language := e.language
	e.mu.Unlock()

	worker, err := e.setupWorker(language)

	e.mu.Lock()
	if err != nil {
		e.state = extract.StateUnconfigured
		e.attempt = nil
		attempt.err = extract.Wrap(extract.InitializationError, err)
		log.Error().Err(err).Msg("Recognition worker initialization failed")
	} else {
		e.worker = worker
		e.state = extract.StateReady
		e.attempt = nil
		log.Info().Str("language", language).Msg("Recognition worker initialized")
	}
	e.mu.Unlock()

	close(attempt.done)
	return attempt.err
}

func (e *Engine) setupWorker(language string) (recognizer, error) {
	worker := e.newWorker()
	if worker == nil {
		return nil, fmt.Errorf("recognition worker unavailable")
	}
	if err := worker.SetLanguage(language); err != nil {
		worker.Close()
		return nil, fmt.Errorf("setting language %q: %w", language, err)
	}
	return worker, nil
}

// Extract recognizes text from the image (preferring the preprocessed
// variant) and classifies it into records. A local result either fully
// succeeds with at least one record or fails with a reason: empty recognized
// text and unclassifiable text are both failures, unlike the cloud path.
func (e *Engine) Extract(ctx context.Context, img models.ImageData) models.OCRResult {
	if err := e.Initialize(ctx); err != nil {
		return extract.Fail(err)
	}

	raw, err := img.RecognitionBytes()
	if err != nil {
		return extract.Fail(extract.Wrap(extract.RecognitionError, err))
	}

	text, err := e.recognize(raw)
	if err != nil {
		log.Warn().Err(err).Msg("Local recognition failed")
		return extract.Fail(extract.Wrap(extract.RecognitionError, err))
	}

	text = cleanText(text)
	if text == "" {
		return extract.Fail(extract.Wrap(extract.RecognitionError, fmt.Errorf("no text found in image")))
	}

	records := structure.Classify(text)
	if len(records) == 0 {
		result := extract.Fail(extract.Wrap(extract.ResponseParseError, fmt.Errorf("recognized text could not be structured")))
		result.RawText = text
		return result
	}

	log.Debug().Int("records", len(records)).Int("text_length", len(text)).Msg("Local extraction complete")
	return models.OCRResult{Success: true, Data: records, RawText: text}
}

// recognize runs one serialized recognition call on the worker.
func (e *Engine) recognize(image []byte) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != extract.StateReady || e.worker == nil {
		return "", fmt.Errorf("recognition worker is not running")
	}
	if err := e.worker.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("setting image: %w", err)
	}
	text, err := e.worker.Text()
	if err != nil {
		return "", fmt.Errorf("recognizing text: %w", err)
	}
	return text, nil
}

func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

// Terminate releases the worker and resets the engine to unconfigured. Safe
// to call when already unconfigured; an in-flight initialization is left to
// finish.
func (e *Engine) Terminate() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.worker != nil {
		if err := e.worker.Close(); err != nil {
			log.Warn().Err(err).Msg("Closing recognition worker")
		}
		e.worker = nil
	}
	if e.state == extract.StateReady {
		e.state = extract.StateUnconfigured
	}
}
