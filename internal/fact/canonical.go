package fact

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// canonicalize renders a context map into the stable form that feeds the
// digest. Map keys are sorted recursively at every nesting level, so two
// semantically equal contexts hash identically regardless of insertion
// order. The output is JSON-shaped but produced by hand: this byte sequence
// is a frozen hash-input format, and it must never drift with a marshaling
// library's encoding choices.
func canonicalize(ctx map[string]any) string {
	if len(ctx) == 0 {
		return ""
	}
	buf := make([]byte, 0, 128)
	buf = appendCanonical(buf, ctx)
	return string(buf)
}

func appendCanonical(buf []byte, v any) []byte {
	switch val := v.(type) {
	case nil:
		return append(buf, "null"...)
	case bool:
		return strconv.AppendBool(buf, val)
	case string:
		return appendJSONString(buf, val)
	case int:
		return strconv.AppendInt(buf, int64(val), 10)
	case int64:
		return strconv.AppendInt(buf, val, 10)
	case float64:
		return appendCanonicalFloat(buf, val)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf = append(buf, '{')
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = appendJSONString(buf, k)
			buf = append(buf, ':')
			buf = appendCanonical(buf, val[k])
		}
		return append(buf, '}')
	case []any:
		buf = append(buf, '[')
		for i, e := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = appendCanonical(buf, e)
		}
		return append(buf, ']')
	case []string:
		buf = append(buf, '[')
		for i, e := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = appendJSONString(buf, e)
		}
		return append(buf, ']')
	default:
		// Uncommon scalar types fall back to encoding/json, which is stable
		// for scalars.
		b, err := json.Marshal(val)
		if err != nil {
			return appendJSONString(buf, fmt.Sprintf("%v", val))
		}
		return append(buf, b...)
	}
}

// appendCanonicalFloat prints integral floats without an exponent or trailing
// fraction, so 2.0 and int 2 canonicalize identically.
func appendCanonicalFloat(buf []byte, f float64) []byte {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e15 {
		return strconv.AppendInt(buf, int64(f), 10)
	}
	return strconv.AppendFloat(buf, f, 'g', -1, 64)
}

func appendJSONString(buf []byte, s string) []byte {
	b, _ := json.Marshal(s)
	return append(buf, b...)
}
