package ai

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/scansheet/ocr-service/internal/extract"
	"github.com/scansheet/ocr-service/internal/models"
)

// extractionInstruction is the fixed prompt sent with every image. It pins
// the response contract: always a JSON array, empty when nothing is found,
// null for unreadable fields.
const extractionInstruction = `You are an expert at reading photographed and scanned documents: receipts, tables, lists and notes.

## STEP 1 - IDENTIFY THE DOCUMENT TYPE
- TABLE: rows and columns of data (spreadsheets, price lists, schedules)
- RECEIPT: a store receipt with line items and totals
- LIST: an enumerated or bulleted list of items
- NOTE: free-form text with labeled fields
- OTHER: anything else with readable text

## STEP 2 - EXTRACT STRUCTURED ROWS
- TABLE: one JSON object per data row, keyed by the column headers
- RECEIPT: one JSON object per line item, plus keys like "store", "date", "total" on a summary object if present
- LIST: one JSON object per item
- NOTE: one JSON object with a key per labeled field

## RESPONSE RULES
1. Respond with ONLY valid JSON (no markdown, no commentary)
2. ALWAYS return a JSON array of flat objects
3. Return an empty array [] if the image contains no extractable data
4. Use null for a field you cannot read - NEVER invent data
5. Keep every value a string, number or null; no nested structures
6. READ CHARACTER BY CHARACTER if the text is hard to make out

NOW ANALYZE THE IMAGE AND EXTRACT THE DATA.`

// CloudEngine implements extract.Backend against a remote generative model.
// The remote model performs document structuring itself; the engine's job is
// credential resolution, the fixed instruction, and tolerant response
// parsing.
type CloudEngine struct {
	mu          sync.Mutex
	explicit    string
	sources     []extract.CredentialSource
	newProvider ProviderFactory
}

// NewCloudEngine creates a cloud backend. Fallback credential sources are
// consulted in order when no explicit credential has been configured; pass
// the persisted-settings source before the build-time default.
func NewCloudEngine(factory ProviderFactory, sources ...extract.CredentialSource) *CloudEngine {
	if factory == nil {
		factory = GeminiFactory("")
	}
	return &CloudEngine{newProvider: factory, sources: sources}
}

// Configure sets the explicit call-time credential, the highest-precedence
// source. Idempotent; an empty credential clears the explicit value and
// falls back to the other sources.
func (e *CloudEngine) Configure(opts extract.Options) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.explicit = opts.Credential
}

// Ready reports whether a credential can be resolved.
func (e *CloudEngine) Ready() bool {
	_, ok := e.credential()
	return ok
}

// State is StateReady iff a credential is resolvable; the cloud backend has
// no initialization phase.
func (e *CloudEngine) State() extract.State {
	if e.Ready() {
		return extract.StateReady
	}
	return extract.StateUnconfigured
}

// MaskedCredential returns the display form of the resolved credential, or
// false when unconfigured. Display only; never compare against it.
func (e *CloudEngine) MaskedCredential() (string, bool) {
	cred, ok := e.credential()
	if !ok {
		return "", false
	}
	return extract.MaskCredential(cred)
}

func (e *CloudEngine) credential() (string, bool) {
	e.mu.Lock()
	explicit := e.explicit
	sources := e.sources
	e.mu.Unlock()

	all := make([]extract.CredentialSource, 0, len(sources)+1)
	all = append(all, extract.StaticCredential(explicit))
	all = append(all, sources...)
	return extract.ResolveCredential(all...)
}

// Extract sends the image to the remote model and parses its response into
// records. An empty array from the model is a valid success with empty data.
// All failures come back as classified OCRResults; nothing is thrown.
func (e *CloudEngine) Extract(ctx context.Context, img models.ImageData) models.OCRResult {
	cred, ok := e.credential()
	if !ok {
		return extract.Fail(extract.ErrNotConfigured)
	}

	provider := e.newProvider(cred)
	response, err := provider.ExtractData(ctx, extractionInstruction, img)
	if err != nil {
		log.Warn().Err(err).Str("provider", provider.Name()).Msg("Cloud extraction failed")
		return extract.Fail(err)
	}

	records, err := parseRecords(response)
	if err != nil {
		log.Warn().Err(err).Int("response_length", len(response)).Msg("Failed to parse model response")
		return extract.Fail(extract.Wrap(extract.ResponseParseError, err))
	}

	log.Debug().Str("provider", provider.Name()).Int("records", len(records)).Msg("Cloud extraction complete")
	return models.Extracted(records)
}
