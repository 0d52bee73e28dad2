package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one structured output row: an ordered mapping from field name to
// a string value or null. Field order is preserved through JSON so downstream
// table renderers keep column order stable.
type Record struct {
	keys   []string
	values map[string]*string
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]*string)}
}

// Set stores a string value under name. Setting an existing field updates it
// in place without changing its position.
func (r *Record) Set(name, value string) {
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	v := value
	r.values[name] = &v
}

// SetNull stores an explicit null under name.
func (r *Record) SetNull(name string) {
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.values[name] = nil
}

// Get returns the value for name. The returned pointer is nil for a null
// value; ok reports whether the field exists at all.
func (r *Record) Get(name string) (value *string, ok bool) {
	value, ok = r.values[name]
	return value, ok
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.keys)
}

// MarshalJSON renders the record as a JSON object with fields in insertion
// order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		v := r.values[k]
		if v == nil {
			buf.WriteString("null")
		} else {
			vb, err := json.Marshal(*v)
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON rebuilds a record from a JSON object, preserving key order.
// Non-string scalar values are stringified; this tolerates rows that were
// stored before value normalization.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	r.keys = nil
	r.values = make(map[string]*string)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("record key is not a string")
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		switch v := valTok.(type) {
		case nil:
			r.SetNull(key)
		case string:
			r.Set(key, v)
		case json.Number:
			r.Set(key, v.String())
		case bool:
			r.Set(key, fmt.Sprintf("%t", v))
		default:
			return fmt.Errorf("record field %q has unsupported value", key)
		}
	}

	// closing brace
	_, err = dec.Token()
	return err
}
