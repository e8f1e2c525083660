package tfstate

import (
	"encoding/json"
	"sort"
)

// CanonicalJSON produces a deterministic JSON encoding of a parsed document:
// object keys are sorted, and primitive encoding matches encoding/json. This
// is the authoritative on-disk form stored as StateSnapshot.CanonicalJSON —
// its sha256 is the snapshot checksum (spec §3.1).
func CanonicalJSON(v any) []byte {
	b := canonicalize(v)
	if b == nil {
		return []byte("null")
	}
	return b
}

func canonicalize(v any) []byte {
	switch val := v.(type) {
	case nil:
		return []byte("null")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := []byte("{")
		for i, k := range keys {
			if i > 0 {
				out = append(out, ',')
			}
			keyJSON, _ := json.Marshal(k)
			out = append(out, keyJSON...)
			out = append(out, ':')
			out = append(out, canonicalize(val[k])...)
		}
		out = append(out, '}')
		return out
	case []any:
		out := []byte("[")
		for i, elem := range val {
			if i > 0 {
				out = append(out, ',')
			}
			out = append(out, canonicalize(elem)...)
		}
		out = append(out, ']')
		return out
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return []byte("null")
		}
		return b
	}
}
