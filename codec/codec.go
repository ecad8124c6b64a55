// Package codec implements the {json, meta} value split described by the
// wire protocol: arbitrary values crossing the RPC boundary are split into
// a JSON-safe canonical form plus a "meta" sidecar that lets richer types
// (time.Time, *big.Int, undefined) round-trip exactly.
//
// Canonical decoding of the JSON half into typed Go structs (for schema
// validation) is layered on top via mitchellh/mapstructure rather than
// hand-rolled reflection walking.
package codec

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/mitchellh/mapstructure"
)

// kind tags a meta leaf so Decode knows how to reconstitute the value that
// Encode flattened into plain JSON.
type kind string

const (
	kindDate      kind = "date"
	kindBigInt    kind = "bigint"
	kindUndefined kind = "undefined"
	kindBytes     kind = "bytes"
)

// Undefined is a distinguished sentinel distinct from nil/null: JavaScript's
// "undefined" has no natural stdlib counterpart, so it gets its own type.
type Undefined struct{}

// Meta is the sidecar produced by Encode. Its shape mirrors the value's
// shape: a map key or slice index present in Meta means the corresponding
// JSON leaf at that path needs type reconstruction.
type Meta map[string]interface{}

// Encode splits v into its canonical JSON form and a meta sidecar. Encode
// never fails for supported types; it returns an error only if v contains a
// value json.Marshal itself cannot represent once special types have been
// flattened to their JSON-safe projections.
func Encode(v interface{}) (json.RawMessage, Meta, error) {
	meta := Meta{}
	flattened := flatten(v, "", meta)
	raw, err := json.Marshal(flattened)
	if err != nil {
		return nil, nil, fmt.Errorf("codec: encode: %w", err)
	}
	if len(meta) == 0 {
		return raw, nil, nil
	}
	return raw, meta, nil
}

// Decode reverses Encode: it parses raw into a canonical map[string]any/
// []any/scalar tree, then walks meta to restore richer types at their
// recorded paths.
func Decode(raw json.RawMessage, meta Meta) (interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("codec: decode: %w", err)
	}
	if len(meta) == 0 {
		return v, nil
	}
	return restore(v, "", meta), nil
}

// DecodeInto decodes raw/meta into v's canonical form and then mapstructure-
// decodes that into dst, the typed struct a schema validator expects.
func DecodeInto(raw json.RawMessage, meta Meta, dst interface{}) error {
	canon, err := Decode(raw, meta)
	if err != nil {
		return err
	}
	return DecodeValue(canon, dst)
}

// DecodeValue mapstructure-decodes an already-canonical value (the output
// of Decode, or a slice element pulled from one) into dst.
func DecodeValue(canon interface{}, dst interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return fmt.Errorf("codec: build decoder: %w", err)
	}
	return dec.Decode(canon)
}

func flatten(v interface{}, path string, meta Meta) interface{} {
	switch t := v.(type) {
	case Undefined:
		meta[path] = map[string]string{"$type": string(kindUndefined)}
		return nil
	case time.Time:
		meta[path] = map[string]string{"$type": string(kindDate)}
		return t.UTC().Format(time.RFC3339Nano)
	case *big.Int:
		if t == nil {
			return nil
		}
		meta[path] = map[string]string{"$type": string(kindBigInt)}
		return t.String()
	case []byte:
		meta[path] = map[string]string{"$type": string(kindBytes)}
		return base64Encode(t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, vv := range t {
			out[k] = flatten(vv, joinPath(path, k), meta)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, vv := range t {
			out[i] = flatten(vv, joinIndex(path, i), meta)
		}
		return out
	default:
		return v
	}
}

func restore(v interface{}, path string, meta Meta) interface{} {
	if raw, ok := meta[path]; ok {
		if tagged, ok := raw.(map[string]string); ok {
			return restoreLeaf(v, kind(tagged["$type"]))
		}
		if tagged, ok := raw.(map[string]interface{}); ok {
			if t, ok := tagged["$type"].(string); ok {
				return restoreLeaf(v, kind(t))
			}
		}
	}
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, vv := range t {
			out[k] = restore(vv, joinPath(path, k), meta)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, vv := range t {
			out[i] = restore(vv, joinIndex(path, i), meta)
		}
		return out
	default:
		return v
	}
}

func restoreLeaf(v interface{}, k kind) interface{} {
	switch k {
	case kindUndefined:
		return Undefined{}
	case kindDate:
		s, _ := v.(string)
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return v
		}
		return t
	case kindBigInt:
		s, _ := v.(string)
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return v
		}
		return n
	case kindBytes:
		s, _ := v.(string)
		b, err := base64Decode(s)
		if err != nil {
			return v
		}
		return b
	default:
		return v
	}
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

func joinIndex(base string, i int) string {
	return joinPath(base, fmt.Sprintf("[%d]", i))
}
