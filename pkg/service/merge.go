package service

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// MergeValue combines an existing value with an incoming one:
//   - an empty existing value is replaced
//   - two lists are concatenated, existing items first
//   - two maps are deep-merged, incoming scalars win
//   - anything else is overridden by the incoming value
func MergeValue(existing, incoming any) any {
	if isEmpty(existing) {
		return incoming
	}

	ev, iv := reflect.ValueOf(existing), reflect.ValueOf(incoming)
	switch {
	case isList(ev) && isList(iv):
		return concatLists(ev, iv)
	case isStringMap(ev) && isStringMap(iv):
		return MergeMaps(toStringMap(ev), toStringMap(iv))
	default:
		return incoming
	}
}

// MergeMaps deep-merges src onto dst and returns a new map; neither input
// is modified.
func MergeMaps(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		existing, ok := out[k]
		if ok {
			ev, sv := reflect.ValueOf(existing), reflect.ValueOf(v)
			if isStringMap(ev) && isStringMap(sv) {
				out[k] = MergeMaps(toStringMap(ev), toStringMap(sv))
				continue
			}
		}
		out[k] = v
	}
	return out
}

// MergeConfig applies every key of cfg onto ctx using MergeValue and
// returns the resulting mapping. A nil ctx is treated as empty.
func MergeConfig(ctx, cfg map[string]any) map[string]any {
	if ctx == nil {
		ctx = make(map[string]any, len(cfg))
	}
	for k, v := range cfg {
		ctx[k] = MergeValue(ctx[k], v)
	}
	return ctx
}

// Apply merges cfg into the instance context, reconciles dotted option
// keys, and decodes the merged keys back onto the service value.
func Apply(inst *Instance, cfg map[string]any) error {
	cfg = CopyMap(cfg)
	inst.Context = MergeConfig(inst.Context, cfg)

	if raw, ok := inst.Context["options"]; ok && !isEmpty(raw) {
		rv := reflect.ValueOf(raw)
		if !isStringMap(rv) {
			return &ConfigurationError{Service: inst.Definition.TypeName, Err: fmt.Errorf("options must be a mapping, got %T", raw)}
		}
		options := toStringMap(rv)
		if err := ReconcileOptions(options); err != nil {
			return err
		}
		inst.Context["options"] = options
	}

	if len(cfg) == 0 {
		return nil
	}

	merged := make(map[string]any, len(cfg))
	for k := range cfg {
		merged[k] = inst.Context[k]
	}
	if err := decodeOnto(inst.Value, merged); err != nil {
		return &ConfigurationError{Service: inst.Definition.TypeName, Err: err}
	}
	return nil
}

// CopyMap returns a deep copy of m. Nested mappings and lists are copied;
// other values are shared.
func CopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// autoContext decodes the exported fields of a struct value into a mapping.
func autoContext(value any) map[string]any {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return map[string]any{}
	}

	out := map[string]any{}
	if err := mapstructure.Decode(rv.Interface(), &out); err != nil {
		return map[string]any{}
	}
	return out
}

// decodeOnto writes input onto value when value is a pointer to a struct.
// Unknown keys are ignored.
func decodeOnto(value any, input map[string]any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           value,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return rv.IsZero()
	}
}

func isList(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

func isStringMap(v reflect.Value) bool {
	return v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String
}

func toStringMap(v reflect.Value) map[string]any {
	if m, ok := v.Interface().(map[string]any); ok {
		return m
	}
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out
}

func concatLists(a, b reflect.Value) any {
	if a.Kind() == reflect.Slice && a.Type() == b.Type() {
		out := reflect.MakeSlice(a.Type(), 0, a.Len()+b.Len())
		out = reflect.AppendSlice(out, a)
		return reflect.AppendSlice(out, b).Interface()
	}
	out := make([]any, 0, a.Len()+b.Len())
	for i := 0; i < a.Len(); i++ {
		out = append(out, a.Index(i).Interface())
	}
	for i := 0; i < b.Len(); i++ {
		out = append(out, b.Index(i).Interface())
	}
	return out
}
