// Package document cleans loosely typed document trees before they are
// written to the profile store.
//
// A document is built from map[string]any, []any and scalar leaves. Fields
// that were never determined are marked with Undefined; Sanitize removes them
// so the stored document only ever contains concrete values or explicit nulls.
package document

import "reflect"

type undefined struct{}

// Undefined marks a value that could not be determined. It never survives
// Sanitize.
var Undefined any = undefined{}

// IsUndefined reports whether v is the Undefined marker.
func IsUndefined(v any) bool {
	_, ok := v.(undefined)
	return ok
}

// Sanitize returns a cleaned copy of v:
//   - map entries holding Undefined are dropped, nil entries are kept;
//   - slice elements are sanitized, then Undefined and nil elements are removed;
//   - nil pointers become nil.
//
// Sanitize is idempotent and never mutates its input.
func Sanitize(v any) any {
	if v == nil || IsUndefined(v) {
		return nil
	}

	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if IsUndefined(val) {
				continue
			}
			out[k] = Sanitize(val)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, elem := range t {
			cleaned := Sanitize(elem)
			if cleaned == nil {
				continue
			}
			out = append(out, cleaned)
		}
		return out
	}

	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	return v
}

// SanitizeMap is Sanitize for a map root. A nil map yields an empty map.
func SanitizeMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return Sanitize(m).(map[string]any)
}

// Contains reports whether Undefined appears anywhere in v.
func Contains(v any) bool {
	if IsUndefined(v) {
		return true
	}
	switch t := v.(type) {
	case map[string]any:
		for _, val := range t {
			if Contains(val) {
				return true
			}
		}
	case []any:
		for _, elem := range t {
			if Contains(elem) {
				return true
			}
		}
	}
	return false
}
