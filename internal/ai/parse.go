package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/scansheet/ocr-service/internal/models"
)

// parseRecords converts the model's raw text response into records. The
// model is told to return a bare JSON array, but real responses sometimes
// arrive fenced in markdown, prefixed with prose, or as a single object for
// one-record documents; all three are tolerated. Any other shape is a parse
// failure. Records with no fields are dropped; an empty remainder is a valid
// result.
func parseRecords(response string) ([]*models.Record, error) {
	cleaned := stripCodeFence(response)
	if idx := strings.IndexAny(cleaned, "[{"); idx > 0 {
		cleaned = cleaned[idx:]
	}
	if cleaned == "" {
		return nil, fmt.Errorf("empty response")
	}

	dec := json.NewDecoder(strings.NewReader(cleaned))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}

	var records []*models.Record
	delim, ok := tok.(json.Delim)
	switch {
	case ok && delim == '[':
		for dec.More() {
			rec, err := decodeRecord(dec)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("malformed response: %w", err)
		}
	case ok && delim == '{':
		// Single-record documents may come back as a bare object.
		rec, err := decodeObjectBody(dec)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	default:
		return nil, fmt.Errorf("response is not a JSON array or object")
	}

	kept := records[:0]
	for _, rec := range records {
		if rec.Len() > 0 {
			kept = append(kept, rec)
		}
	}
	return kept, nil
}

// stripCodeFence removes surrounding markdown code-fence markup.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// decodeRecord consumes one object from an array position.
func decodeRecord(dec *json.Decoder) (*models.Record, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("array element is not an object")
	}
	return decodeObjectBody(dec)
}

// decodeObjectBody reads key/value pairs up to and including the closing
// brace, preserving key order. Empty field names are skipped.
func decodeObjectBody(dec *json.Decoder) (*models.Record, error) {
	rec := models.NewRecord()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("malformed response: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is not a string")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("malformed response: %w", err)
		}
		if key == "" {
			continue
		}
		if value := cellFromRaw(raw); value == nil {
			rec.SetNull(key)
		} else {
			rec.Set(key, *value)
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	return rec, nil
}

// cellFromRaw normalizes one JSON value to a string cell or null. Numbers go
// through decimal so "25.50" and 25.5 render consistently and large values
// avoid float artifacts. Nested structures, which the instruction forbids
// but models occasionally emit, are kept as their compact JSON text.
func cellFromRaw(raw json.RawMessage) *string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil
		}
		return &s
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			s := string(trimmed)
			return &s
		}
		s := buf.String()
		return &s
	case 't', 'f':
		s := string(trimmed)
		return &s
	default:
		if d, err := decimal.NewFromString(string(trimmed)); err == nil {
			s := d.String()
			return &s
		}
		s := string(trimmed)
		return &s
	}
}
