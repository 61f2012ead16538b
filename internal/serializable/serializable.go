// SPDX-License-Identifier: MIT
/*
Package serializable decides whether a log payload is plain data that can
be sent to the debug listener.

A Value is nil, a bool, a finite number, a string, a string-keyed map of
Values, or a slice/array of Values. Structs (time.Time included), pointers,
funcs, channels and complex numbers are rejected, as is anything nested
deeper than MaxDepth. Cyclic maps and slices are detected by reference
identity and rejected, so Check always terminates.
*/
package serializable

import (
	"math"
	"reflect"
)

// MaxDepth bounds recursion. Payloads nested deeper are rejected rather than
// truncated.
const MaxDepth = 64

// ref identifies a map or slice backing store. Two slices over the same
// array with different lengths are distinct refs, which is enough to catch a
// slice that contains itself.
type ref struct {
	ptr uintptr
	len int
	typ reflect.Type
}

// Check reports whether v is a Value. It is pure and has no side effects.
func Check(v any) bool {
	if v == nil {
		return true
	}
	return check(reflect.ValueOf(v), make(map[ref]struct{}), 0)
}

func check(v reflect.Value, ancestors map[ref]struct{}, depth int) bool {
	if depth > MaxDepth {
		return false
	}

	switch v.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	case reflect.Interface:
		if v.IsNil() {
			return true
		}
		return check(v.Elem(), ancestors, depth)
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return false
		}
		if v.IsNil() {
			return true
		}
		r := ref{ptr: v.Pointer(), typ: v.Type()}
		if _, seen := ancestors[r]; seen {
			return false
		}
		ancestors[r] = struct{}{}
		defer delete(ancestors, r)

		iter := v.MapRange()
		for iter.Next() {
			if !check(iter.Value(), ancestors, depth+1) {
				return false
			}
		}
		return true
	case reflect.Slice:
		if v.IsNil() {
			return true
		}
		r := ref{ptr: v.Pointer(), len: v.Len(), typ: v.Type()}
		if _, seen := ancestors[r]; seen {
			return false
		}
		ancestors[r] = struct{}{}
		defer delete(ancestors, r)
		return checkElems(v, ancestors, depth)
	case reflect.Array:
		return checkElems(v, ancestors, depth)
	}

	// struct, pointer, func, chan, complex, unsafe pointer
	return false
}

func checkElems(v reflect.Value, ancestors map[ref]struct{}, depth int) bool {
	for i := 0; i < v.Len(); i++ {
		if !check(v.Index(i), ancestors, depth+1) {
			return false
		}
	}
	return true
}
