package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PropertyMap is an ordered CSS property map. Keys are unique; iteration
// follows first-insertion order so rendered CSS is deterministic. Setting an
// existing key keeps its position.
//
// The zero value is an empty map ready to use.
type PropertyMap struct {
	keys   []string
	values map[string]string
}

// NewPropertyMap builds a map from alternating key/value pairs.
func NewPropertyMap(kv ...string) PropertyMap {
	var m PropertyMap
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(kv[i], kv[i+1])
	}
	return m
}

// Set stores value under key.
func (m *PropertyMap) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key.
func (m PropertyMap) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of properties.
func (m PropertyMap) Len() int { return len(m.keys) }

// Keys returns the keys in order. The returned slice is a copy.
func (m PropertyMap) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Each calls fn for every property in order.
func (m PropertyMap) Each(fn func(key, value string)) {
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}

// Merge overwrites m with every property of other. Keys absent from other
// are preserved (union with override).
func (m *PropertyMap) Merge(other PropertyMap) {
	other.Each(m.Set)
}

// Clone returns an independent copy.
func (m PropertyMap) Clone() PropertyMap {
	var out PropertyMap
	m.Each(out.Set)
	return out
}

// Equal reports whether both maps hold the same keys in the same order with
// the same values.
func (m PropertyMap) Equal(other PropertyMap) bool {
	if len(m.keys) != len(other.keys) {
		return false
	}
	for i, k := range m.keys {
		if other.keys[i] != k || other.values[k] != m.values[k] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the map as a JSON object with keys in order.
func (m PropertyMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the document's key order.
func (m *PropertyMap) UnmarshalJSON(data []byte) error {
	*m = PropertyMap{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("property map: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("property map: expected string key, got %v", tok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("property map: value for %q: %w", key, err)
		}
		m.Set(key, value)
	}
	_, err = dec.Token()
	return err
}
