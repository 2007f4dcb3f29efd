package querycache

import (
	"encoding/json"
	"strings"
)

// Tag labels cached results for bulk invalidation. A tag with an empty ID is
// the domain-wide tag of its type.
type Tag struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

func DomainTag(typ string) Tag { return Tag{Type: typ} }

func EntityTag(typ, id string) Tag { return Tag{Type: typ, ID: id} }

// String renders "Type" or "Type:id".
func (t Tag) String() string {
	if t.ID == "" {
		return t.Type
	}
	return t.Type + ":" + t.ID
}

// ParseTag is the inverse of String.
func ParseTag(s string) Tag {
	typ, id, _ := strings.Cut(s, ":")
	return Tag{Type: typ, ID: id}
}

// Invalidates reports whether invalidating t marks a result that provides p as
// stale: same type, and either t is domain-wide or the ids are equal.
func (t Tag) Invalidates(p Tag) bool {
	return t.Type == p.Type && (t.ID == "" || t.ID == p.ID)
}

// TagStrings renders tags for logs, storage and the wire.
func TagStrings(tags []Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

// ParseTags is the inverse of TagStrings; blanks are dropped.
func ParseTags(ss []string) []Tag {
	out := make([]Tag, 0, len(ss))
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, ParseTag(s))
		}
	}
	return out
}

// Key identifies one cache entry: endpoint name plus serialized argument.
type Key struct {
	Endpoint string `json:"endpoint"`
	Arg      string `json:"arg,omitempty"`
}

func (k Key) String() string {
	if k.Arg == "" {
		return k.Endpoint
	}
	return k.Endpoint + "(" + k.Arg + ")"
}

// KeyOf serializes arg canonically. Struct fields keep declaration order and
// map keys are sorted by encoding/json, so equal arguments give equal keys.
func KeyOf(endpoint string, arg any) (Key, error) {
	if arg == nil {
		return Key{Endpoint: endpoint}, nil
	}
	if raw, ok := arg.(json.RawMessage); ok {
		return keyOfRaw(endpoint, raw)
	}
	data, err := json.Marshal(arg)
	if err != nil {
		return Key{}, err
	}
	if string(data) == "null" {
		return Key{Endpoint: endpoint}, nil
	}
	return Key{Endpoint: endpoint, Arg: string(data)}, nil
}

// keyOfRaw re-encodes raw JSON through a generic value so whitespace and
// object key order do not split one logical argument into two entries.
func keyOfRaw(endpoint string, raw json.RawMessage) (Key, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Key{Endpoint: endpoint}, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Key{}, err
	}
	return KeyOf(endpoint, v)
}
