package service

import (
	"reflect"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// ReconcileOptions expands dotted keys of an options mapping into nested
// mappings, in place. {"http.port": 8080} also yields {"http": {"port": 8080}}.
// A dotted key whose leaf already holds a different value fails with a
// ConfigurationConflictError. Keys are processed in sorted order so the
// outcome does not depend on map iteration.
func ReconcileOptions(options map[string]any) error {
	keys := make([]string, 0, len(options))
	for k := range options {
		if strings.Contains(k, ".") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := options[key]
		parts := strings.Split(key, ".")
		level := options

		for i, part := range parts {
			if i == len(parts)-1 {
				if existing, ok := level[part]; ok && !sameValue(existing, value) {
					return &ConfigurationConflictError{Key: key, Value: value, Existing: existing}
				}
				level[part] = value
				break
			}

			next, ok := level[part]
			if !ok {
				child := map[string]any{}
				level[part] = child
				level = child
				continue
			}

			nv := reflect.ValueOf(next)
			if !isStringMap(nv) {
				return &ConfigurationConflictError{Key: key, Value: value, Existing: next}
			}
			child := toStringMap(nv)
			level[part] = child
			level = child
		}
	}
	return nil
}

// sameValue compares option values the way a loosely typed config file
// means them: numbers compare by value whatever their Go type, and
// mappings and lists compare element by element.
func sameValue(a, b any) bool {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	switch {
	case isNumber(av) && isNumber(bv):
		af, aerr := cast.ToFloat64E(a)
		bf, berr := cast.ToFloat64E(b)
		return aerr == nil && berr == nil && af == bf
	case isStringMap(av) && isStringMap(bv):
		am, bm := toStringMap(av), toStringMap(bv)
		if len(am) != len(bm) {
			return false
		}
		for k, v := range am {
			w, ok := bm[k]
			if !ok || !sameValue(v, w) {
				return false
			}
		}
		return true
	case isList(av) && isList(bv):
		if av.Len() != bv.Len() {
			return false
		}
		for i := 0; i < av.Len(); i++ {
			if !sameValue(av.Index(i).Interface(), bv.Index(i).Interface()) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

func isNumber(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
