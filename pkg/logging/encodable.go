package logging

import (
	"encoding"
	"fmt"
	"maps"
	"reflect"
)

// MaxDepth bounds how deeply nested a value handed to an encoder may be.
const MaxDepth = 64

var (
	jsonMarshalerType = reflect.TypeFor[interface{ MarshalJSON() ([]byte, error) }]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// Encodable reports whether v can be walked by a reflection-based encoder
// (JSON, fmt) without looping: no map, slice or pointer refers back to one of
// its own ancestors, and nesting stays within MaxDepth. Values that marshal
// themselves are not inspected.
func Encodable(v any) bool {
	if v == nil {
		return true
	}
	return walk(reflect.ValueOf(v), 0, make(map[ref]struct{}))
}

// ref identifies a container on the current path. The type is part of the key
// since a struct and its first field share an address.
type ref struct {
	ptr uintptr
	typ reflect.Type
}

func walk(v reflect.Value, depth int, path map[ref]struct{}) bool {
	if depth > MaxDepth {
		return false
	}
	if !v.IsValid() {
		return true
	}
	if t := v.Type(); t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) {
		return true
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return true
		}
		return walk(v.Elem(), depth, path)

	case reflect.Pointer, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return true
		}
		if v.Kind() == reflect.Slice && (v.Len() == 0 || scalar(v.Type().Elem())) {
			return true
		}
		r := ref{ptr: v.Pointer(), typ: v.Type()}
		if _, seen := path[r]; seen {
			return false
		}
		path[r] = struct{}{}
		defer delete(path, r)

		switch v.Kind() {
		case reflect.Pointer:
			return walk(v.Elem(), depth+1, path)
		case reflect.Map:
			it := v.MapRange()
			for it.Next() {
				if !walk(it.Value(), depth+1, path) {
					return false
				}
			}
			return true
		default:
			return elements(v, depth, path)
		}

	case reflect.Array:
		return elements(v, depth, path)

	case reflect.Struct:
		for i := range v.NumField() {
			if !walk(v.Field(i), depth+1, path) {
				return false
			}
		}
		return true
	}
	return true
}

func elements(v reflect.Value, depth int, path map[ref]struct{}) bool {
	for i := range v.Len() {
		if !walk(v.Index(i), depth+1, path) {
			return false
		}
	}
	return true
}

// scalar reports whether values of t cannot contain references.
func scalar(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128, reflect.String:
		return true
	}
	return false
}

// encodableMap returns m, or an empty map when m cannot be encoded.
func encodableMap(m map[string]any) map[string]any {
	if Encodable(m) {
		return m
	}
	return map[string]any{}
}

// encodableValue returns v, or its type name when v cannot be encoded.
func encodableValue(v any) any {
	if Encodable(v) {
		return v
	}
	return fmt.Sprintf("%T", v)
}

// Sprint formats v like fmt.Sprint, falling back to its type name when v
// cannot be walked.
func Sprint(v any) string {
	if Encodable(v) {
		return fmt.Sprint(v)
	}
	return fmt.Sprintf("%T", v)
}

// cloneMap copies m together with the map[string]any and []any values nested
// in it; other values are shared. A map that cannot be walked is copied at
// the top level only.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	if !Encodable(m) {
		return maps.Clone(m)
	}
	return cloneNested(m).(map[string]any)
}

func cloneNested(v any) any {
	switch x := v.(type) {
	case map[string]any:
		if x == nil {
			return x
		}
		out := make(map[string]any, len(x))
		for k, v := range x {
			out[k] = cloneNested(v)
		}
		return out
	case []any:
		if x == nil {
			return x
		}
		out := make([]any, len(x))
		for i, v := range x {
			out[i] = cloneNested(v)
		}
		return out
	}
	return v
}
