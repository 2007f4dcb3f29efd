package apiclient

import (
	"bytes"
	"encoding/json"
)

// maxEnvelopeDepth bounds how many {success, data} layers are peeled off.
const maxEnvelopeDepth = 2

// UnwrapList normalizes a response expected to hold a list.
//
//	{success:true, data:[...]}          -> data
//	{success:true, data:{data:[...]}}   -> data.data
//	[...]                               -> as is
//	anything else                       -> empty list
//
// It never fails; undecodable payloads are treated as absent and rows that do
// not decode as T are dropped.
func UnwrapList[T any](raw []byte) []T {
	out, _ := DecodeList[T](raw)
	return out
}

// DecodeList is UnwrapList that also reports how many rows it dropped.
func DecodeList[T any](raw []byte) (out []T, skipped int) {
	payload, ok := peel(raw)
	if !ok {
		return []T{}, 0
	}

	if isObject(payload) {
		var inner struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &inner); err != nil || !isArray(inner.Data) {
			return []T{}, 0
		}
		payload = inner.Data
	}
	if !isArray(payload) {
		return []T{}, 0
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(payload, &rows); err != nil {
		return []T{}, 0
	}
	// One bad row must not hide the rest.
	out = make([]T, 0, len(rows))
	for _, row := range rows {
		var v T
		if err := json.Unmarshal(row, &v); err != nil {
			skipped++
			continue
		}
		out = append(out, v)
	}
	return out, skipped
}

// UnwrapEntity normalizes a response expected to hold one object. A bare
// object without a success key is taken as the entity itself; anything that is
// not an object after unwrapping yields nil.
func UnwrapEntity[T any](raw []byte) *T {
	payload, ok := peel(raw)
	if !ok || !isObject(payload) {
		return nil
	}

	out := new(T)
	if err := json.Unmarshal(payload, out); err != nil {
		return nil
	}
	return out
}

// peel strips {success, data} envelopes. It reports false when the payload is
// absent: empty body, null, or an envelope whose success is not true.
func peel(raw []byte) (json.RawMessage, bool) {
	payload := json.RawMessage(bytes.TrimSpace(raw))
	for range maxEnvelopeDepth {
		if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
			return nil, false
		}
		if !isObject(payload) {
			return payload, true
		}

		var env struct {
			Success *bool           `json:"success"`
			Data    json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &env); err != nil {
			return nil, false
		}
		if env.Success == nil {
			return payload, true
		}
		if !*env.Success {
			return nil, false
		}
		payload = json.RawMessage(bytes.TrimSpace(env.Data))
	}
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil, false
	}
	return payload, true
}

func isObject(b []byte) bool { return len(b) > 0 && b[0] == '{' }
func isArray(b []byte) bool  { return len(b) > 0 && b[0] == '[' }
