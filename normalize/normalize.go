// Package normalize removes absent values from nested records.
//
// A value is absent when it is nil, an empty string, an empty sequence or an
// empty mapping. Zero numbers and false booleans are data and are kept.
// Containers are tested after their children are filtered, so a mapping that
// only held absent values is itself absent.
package normalize

import (
	"fmt"
	"reflect"
	"sort"
)

// IsAbsent reports whether v is absent without looking inside containers
// beyond their length.
func IsAbsent(v any) bool {
	if v == nil {
		return true
	}

	switch t := v.(type) {
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return IsAbsent(rv.Elem().Interface())
	case reflect.String:
		return rv.Len() == 0
	case reflect.Map, reflect.Slice:
		return rv.IsNil() || rv.Len() == 0
	case reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// Prune returns a copy of v with every absent mapping entry and sequence
// element removed, recursively. It returns nil when v itself ends up absent.
// The input is never modified.
func Prune(v any) any {
	out, ok := prune(v)
	if !ok {
		return nil
	}
	return out
}

// PruneMap is Prune for the common case of a top-level mapping. The result
// is never nil.
func PruneMap(m map[string]any) map[string]any {
	if out, ok := Prune(m).(map[string]any); ok {
		return out
	}
	return map[string]any{}
}

func prune(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return pruneMap(t)
	case []any:
		return pruneSlice(t)
	case string:
		return t, t != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, false
		}
		return prune(rv.Elem().Interface())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v, rv.Len() > 0
		}
		generic := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			generic[iter.Key().String()] = iter.Value().Interface()
		}
		return pruneMap(generic)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, false
		}
		generic := make([]any, rv.Len())
		for i := range rv.Len() {
			generic[i] = rv.Index(i).Interface()
		}
		return pruneSlice(generic)
	case reflect.String:
		return rv.String(), rv.Len() > 0
	}

	return v, true
}

func pruneMap(m map[string]any) (any, bool) {
	out := make(map[string]any, len(m))
	for k, child := range m {
		if kept, ok := prune(child); ok {
			out[k] = kept
		}
	}
	return out, len(out) > 0
}

func pruneSlice(s []any) (any, bool) {
	out := make([]any, 0, len(s))
	for _, child := range s {
		if kept, ok := prune(child); ok {
			out = append(out, kept)
		}
	}
	return out, len(out) > 0
}

// AbsentPaths lists the paths inside v whose values are absent, in sorted
// order. Mapping keys are joined with dots and sequence positions use
// brackets, e.g. "dosage_guidelines.overdose_effects" or
// "drug_interactions[2].effects". A container that is absent only because all
// of its children are absent is reported together with those children.
func AbsentPaths(v any) []string {
	var paths []string
	walk(v, "", &paths)
	sort.Strings(paths)
	return paths
}

// walk records absent paths below prefix and reports whether v is absent
// after filtering.
func walk(v any, prefix string, paths *[]string) bool {
	absent := false

	switch t := v.(type) {
	case map[string]any:
		kept := 0
		for k, child := range t {
			if walk(child, join(prefix, k), paths) {
				continue
			}
			kept++
		}
		absent = kept == 0
	case []any:
		kept := 0
		for i, child := range t {
			if walk(child, fmt.Sprintf("%s[%d]", prefix, i), paths) {
				continue
			}
			kept++
		}
		absent = kept == 0
	default:
		if generic, ok := Generic(v); ok {
			return walk(generic, prefix, paths)
		}
		absent = IsAbsent(v)
	}

	if absent && prefix != "" {
		*paths = append(*paths, prefix)
	}
	return absent
}

// Generic converts typed maps, slices and pointers into the map[string]any
// and []any shapes used by encoding/json. It reports false for values that
// are not containers.
func Generic(v any) (any, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, false
		}
		return Generic(rv.Elem().Interface())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, true
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
