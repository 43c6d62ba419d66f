package reader

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one raw relation record of an export document.
type Record map[string]any

// AsRecord converts a decoded JSON object to a Record sharing the same
// underlying map.
func AsRecord(v any) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, true
	case map[string]any:
		return Record(m), true
	}
	return nil, false
}

// Has reports whether key is present with a non-null value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// String returns the value at key as a string. Numbers are formatted;
// missing and non-scalar values yield "".
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// Int64 returns the value at key as an integer.
func (r Record) Int64(key string) (int64, bool) {
	return ToInt64(r[key])
}

// Bool returns the value at key as a boolean. Strings "true" and "1" count
// as true.
func (r Record) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	default:
		n, ok := ToInt64(v)
		return ok && n != 0
	}
}

// Object returns the nested object at key.
func (r Record) Object(key string) (Record, bool) {
	return AsRecord(r[key])
}

// Records returns the nested records at key. An object-shaped value yields a
// single record; non-object array elements are dropped.
func (r Record) Records(key string) []Record {
	switch v := r[key].(type) {
	case []any:
		out := make([]Record, 0, len(v))
		for _, item := range v {
			if rec, ok := AsRecord(item); ok {
				out = append(out, rec)
			}
		}
		return out
	default:
		if rec, ok := AsRecord(v); ok {
			return []Record{rec}
		}
	}
	return nil
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ToInt64 converts decoded JSON numbers and numeric strings to int64.
func ToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

func describe(v any) string {
	return fmt.Sprintf("%T", v)
}
