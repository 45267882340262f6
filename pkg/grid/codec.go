package grid

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
)

// blobSet is the wire form of a LayoutSet. Breakpoints without a
// materialised layout are omitted rather than written as empty layouts.
type blobSet struct {
	Mobile  *Layout `json:"mobile,omitempty"`
	Tablet  *Layout `json:"tablet,omitempty"`
	Desktop *Layout `json:"desktop,omitempty"`
}

// MarshalLayoutSet serializes s to the persisted blob format.
//
// The encoding is deterministic: field order follows the struct definitions
// and widget order is preserved, so a blob produced here survives an
// unmarshal/marshal cycle byte for byte. Missing breakpoints are left out.
func MarshalLayoutSet(s LayoutSet) ([]byte, error) {
	return json.Marshal(toBlob(s))
}

// UnmarshalLayoutSet parses a blob produced by [MarshalLayoutSet].
//
// A breakpoint that is absent, null, or carries no column count is left as
// the zero Layout, which [LayoutSet.Has] reports as missing.
func UnmarshalLayoutSet(data []byte) (LayoutSet, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return LayoutSet{}, fmt.Errorf("unmarshal layout set: %w", err)
	}
	var s LayoutSet
	for _, b := range breakpoint.All {
		msg, ok := raw[string(b)]
		if !ok || string(msg) == "null" {
			continue
		}
		var l Layout
		if err := json.Unmarshal(msg, &l); err != nil {
			return LayoutSet{}, fmt.Errorf("unmarshal %s layout: %w", b, err)
		}
		if l.Columns <= 0 {
			continue
		}
		s.Set(b, l)
	}
	return s, nil
}

// MarshalRegistry serializes a page id to layout set mapping.
// encoding/json sorts map keys, so the output is deterministic.
func MarshalRegistry(pages map[string]LayoutSet) ([]byte, error) {
	out := make(map[string]blobSet, len(pages))
	for id, s := range pages {
		out[id] = toBlob(s)
	}
	return json.Marshal(out)
}

// UnmarshalRegistry parses a blob produced by [MarshalRegistry].
func UnmarshalRegistry(data []byte) (map[string]LayoutSet, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal registry: %w", err)
	}
	out := make(map[string]LayoutSet, len(raw))
	for id, msg := range raw {
		s, err := UnmarshalLayoutSet(msg)
		if err != nil {
			return nil, fmt.Errorf("page %q: %w", id, err)
		}
		out[id] = s
	}
	return out, nil
}

// toBlob copies the materialised layouts of s. Clone replaces nil widget
// slices, so empty layouts encode as [].
func toBlob(s LayoutSet) blobSet {
	var out blobSet
	pick := func(b breakpoint.Breakpoint) *Layout {
		if !s.Has(b) {
			return nil
		}
		l, _ := s.Get(b)
		return &l
	}
	out.Mobile = pick(breakpoint.Mobile)
	out.Tablet = pick(breakpoint.Tablet)
	out.Desktop = pick(breakpoint.Desktop)
	return out
}
