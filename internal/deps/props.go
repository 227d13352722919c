package deps

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/Reality2byte/nanoc/internal/ir"
)

// Active property bits.
const (
	BitRawContent      uint8 = 1 << 0
	BitAttributes      uint8 = 1 << 1
	BitCompiledContent uint8 = 1 << 2

	BitsAll = BitRawContent | BitAttributes | BitCompiledContent
)

// AttributePair is a collection query on key == value.
type AttributePair struct {
	Key   string
	Value ir.IRValue
}

type attributePairJSON struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON keeps IRFloat and IRInt distinct on the wire.
func (p AttributePair) MarshalJSON() ([]byte, error) {
	v, err := ir.MarshalIRValue(p.Value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(attributePairJSON{Key: p.Key, Value: v})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *AttributePair) UnmarshalJSON(data []byte) error {
	var raw attributePairJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ir.UnmarshalIRValue(raw.Value)
	if err != nil {
		return fmt.Errorf("attribute pair %q: %w", raw.Key, err)
	}
	p.Key, p.Value = raw.Key, v
	return nil
}

// Props describes which data of `from` an edge's `to` read.
//
// RawContent and Attributes mean "all of it". RawContentPatterns narrows a
// collection raw-content read to identifiers matching the patterns.
// AttributeKeys narrows an attributes read to specific keys, and
// AttributePairs records collection queries by attribute value.
type Props struct {
	RawContent         bool            `json:"raw_content,omitempty"`
	RawContentPatterns []string        `json:"raw_content_patterns,omitempty"`
	Attributes         bool            `json:"attributes,omitempty"`
	AttributeKeys      []string        `json:"attribute_keys,omitempty"`
	AttributePairs     []AttributePair `json:"attribute_pairs,omitempty"`
	CompiledContent    bool            `json:"compiled_content,omitempty"`
}

// Active returns the bit set of data kinds read.
func (p Props) Active() uint8 {
	var bits uint8
	if p.RawContent || len(p.RawContentPatterns) > 0 {
		bits |= BitRawContent
	}
	if p.Attributes || len(p.AttributeKeys) > 0 || len(p.AttributePairs) > 0 {
		bits |= BitAttributes
	}
	if p.CompiledContent {
		bits |= BitCompiledContent
	}
	return bits
}

// IsZero reports whether nothing was read.
func (p Props) IsZero() bool { return p.Active() == 0 }

// PropsFromBits builds unnarrowed props from a bit set.
func PropsFromBits(bits uint8) Props {
	return Props{
		RawContent:      bits&BitRawContent != 0,
		Attributes:      bits&BitAttributes != 0,
		CompiledContent: bits&BitCompiledContent != 0,
	}
}

// Merge returns the union of p and other. Reading everything absorbs any
// narrowing, so the result never under-reports.
func (p Props) Merge(other Props) Props {
	out := Props{
		RawContent:      p.RawContent || other.RawContent,
		Attributes:      p.Attributes || other.Attributes,
		CompiledContent: p.CompiledContent || other.CompiledContent,
	}
	if !out.RawContent {
		out.RawContentPatterns = unionStrings(p.RawContentPatterns, other.RawContentPatterns)
	}
	if !out.Attributes {
		out.AttributeKeys = unionStrings(p.AttributeKeys, other.AttributeKeys)
		out.AttributePairs = unionPairs(p.AttributePairs, other.AttributePairs)
	}
	return out
}

func unionStrings(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := append(slices.Clone(a), b...)
	slices.Sort(out)
	return slices.Compact(out)
}

func unionPairs(a, b []AttributePair) []AttributePair {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := slices.Clone(a)
	for _, pair := range b {
		if !slices.ContainsFunc(out, func(x AttributePair) bool { return pairEqual(x, pair) }) {
			out = append(out, pair)
		}
	}
	return out
}

func pairEqual(a, b AttributePair) bool {
	if a.Key != b.Key {
		return false
	}
	ac, aerr := ir.MarshalCanonical(a.Value)
	bc, berr := ir.MarshalCanonical(b.Value)
	return aerr == nil && berr == nil && string(ac) == string(bc)
}
