// Package diffengine computes field-level and connection-level differences
// between a live asset and its draft counterpart, and between stored records
// and proposed bulk-import data. It decides whether a prospective change is a
// no-op to skip or a true change needing operator approval.
package diffengine

import (
	"reflect"
	"strconv"
)

// LooseEqual compares two serialized values tolerantly. Two rules apply to
// every record-identity comparison in the system, not just assets:
//
//   - a stringified integer equals its integer counterpart, so values that
//     round-trip through spreadsheet cells still match;
//   - an empty string, slice or map equals a nil/absent value, so
//     serialization formats that omit empties still match.
func LooseEqual(a, b any) bool {
	if isEmpty(a) && isEmpty(b) {
		return true
	}
	if na, aOK := asInt64(a); aOK {
		if nb, bOK := asInt64(b); bOK {
			return na == nb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil() || isEmpty(rv.Elem().Interface())
	}
	return false
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		// JSON numbers decode as float64; only integral values compare
		if n == float64(int64(n)) {
			return int64(n), true
		}
		return 0, false
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}
