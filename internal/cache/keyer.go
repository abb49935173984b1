package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Fingerprint derives the deterministic identity of a request from the
// operation name, its normalized arguments, and the caller credential.
// Two logically identical requests from the same caller produce the
// same fingerprint regardless of argument key ordering; different
// callers never collide because the credential hash is part of the key.
//
// Format: <operation>:<args-hash>:<caller-hash>
func Fingerprint(operation string, args map[string]any, cred string) (string, error) {
	canonical, err := CanonicalArgs(args)
	if err != nil {
		return "", fmt.Errorf("cache: canonicalizing arguments: %w", err)
	}

	argsHash := sha256.Sum256(canonical)
	callerHash := sha256.Sum256([]byte(cred))

	return fmt.Sprintf("%s:%s:%s",
		operation,
		hex.EncodeToString(argsHash[:8]),
		hex.EncodeToString(callerHash[:8]),
	), nil
}

// CanonicalArgs serializes arguments to deterministic JSON: object keys
// sorted, nested maps and slices handled recursively. Also used by the
// manager to enforce the serialized-argument size bound.
func CanonicalArgs(args map[string]any) ([]byte, error) {
	return canonicalize(args)
}

func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, ':')

		vb, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	out := []byte{'['}
	for i, v := range s {
		if i > 0 {
			out = append(out, ',')
		}
		vb, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, ']'), nil
}
