// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package stream

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// State is a JSON object held as top-level key -> raw value. Values are kept
// raw so merging never re-encodes fields it does not touch.
type State map[string]json.RawMessage

// ParseState decodes a JSON object payload.
func ParseState(payload []byte) (State, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrPayloadNotObject
	}
	var s State
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if s == nil {
		s = State{}
	}
	return s, nil
}

// StateOf marshals v (a struct or map) into a State.
func StateOf(v interface{}) (State, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return ParseState(raw)
}

// Clone returns a copy that shares no map with s.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Keys returns the top-level keys in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON encodes the state with sorted keys.
func (s State) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]json.RawMessage(s))
}

// MergeShallow applies partial onto s. A key present in partial replaces the
// prior value for that key entirely; keys absent from partial are untouched.
func (s State) MergeShallow(partial State) State {
	out := s.Clone()
	for k, v := range partial {
		out[k] = v
	}
	return out
}

// MergeDeep behaves like MergeShallow except for the keys listed in deep:
// when both the existing and incoming values of such a key are objects, they
// are merged recursively instead of replaced.
func (s State) MergeDeep(partial State, deep map[string]bool) State {
	out := s.Clone()
	for k, v := range partial {
		if deep[k] {
			if merged, ok := mergeObjects(out[k], v); ok {
				out[k] = merged
				continue
			}
		}
		out[k] = v
	}
	return out
}

// mergeObjects recursively merges two JSON objects. ok is false when either
// side is not an object.
func mergeObjects(base, patch json.RawMessage) (json.RawMessage, bool) {
	baseState, err := ParseState(base)
	if err != nil {
		return nil, false
	}
	patchState, err := ParseState(patch)
	if err != nil {
		return nil, false
	}
	for k, v := range patchState {
		if nested, ok := mergeObjects(baseState[k], v); ok {
			baseState[k] = nested
			continue
		}
		baseState[k] = v
	}
	raw, err := baseState.MarshalJSON()
	if err != nil {
		return nil, false
	}
	return raw, true
}

// Diff returns the keys of next whose encoded value differs from prev, or
// that prev does not have. Keys removed in next are not represented; the
// next full init corrects them.
func Diff(prev, next State) State {
	out := State{}
	for k, v := range next {
		old, ok := prev[k]
		if !ok || !bytes.Equal(compact(old), compact(v)) {
			out[k] = v
		}
	}
	return out
}

func compact(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
