package store

import "reflect"

// Shallow reports whether a and b are equal at the first level.
//
// Structs are compared field by field, maps key by key, and slices and
// arrays element by element. Each first-level member is compared by
// identity: pointers, maps, slices and channels must refer to the same
// object, and funcs must share a code pointer (so method values such as
// c.Increment compare equal across calls). Plain values (numbers, strings,
// nested value structs) compare by value.
//
// Pointers to structs are dereferenced once, so *T selections behave like T.
func Shallow[T any](a, b T) bool {
	va := reflect.ValueOf(&a).Elem()
	vb := reflect.ValueOf(&b).Elem()
	return shallow(va, vb)
}

func shallow(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !same(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true

	case reflect.Map:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		if a.UnsafePointer() == b.UnsafePointer() {
			return true
		}
		if a.Len() != b.Len() {
			return false
		}
		iter := a.MapRange()
		for iter.Next() {
			bv := b.MapIndex(iter.Key())
			if !bv.IsValid() || !same(iter.Value(), bv) {
				return false
			}
		}
		return true

	case reflect.Slice, reflect.Array:
		if a.Kind() == reflect.Slice && (a.IsNil() || b.IsNil()) {
			return a.IsNil() == b.IsNil()
		}
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !same(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true

	case reflect.Pointer:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		if a.Pointer() == b.Pointer() {
			return true
		}
		if a.Elem().Kind() == reflect.Struct {
			return shallow(a.Elem(), b.Elem())
		}
		return false

	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		ea, eb := a.Elem(), b.Elem()
		if ea.Type() != eb.Type() {
			return false
		}
		return shallow(ea, eb)

	default:
		return same(a, b)
	}
}

// same compares two values of the same type by identity for reference
// kinds and by value otherwise.
func same(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Func:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return a.Pointer() == b.Pointer()

	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()

	case reflect.Map:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return a.UnsafePointer() == b.UnsafePointer()

	case reflect.Slice:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return a.Len() == b.Len() && a.Pointer() == b.Pointer()

	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		ea, eb := a.Elem(), b.Elem()
		if ea.Type() != eb.Type() {
			return false
		}
		return same(ea, eb)

	case reflect.Struct:
		// Go structs have no identity; compare members the same way.
		for i := 0; i < a.NumField(); i++ {
			if !same(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true

	case reflect.Array:
		for i := 0; i < a.Len(); i++ {
			if !same(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true

	case reflect.Float32, reflect.Float64:
		// NaN is the same as NaN, matching identity semantics.
		fa, fb := a.Float(), b.Float()
		return fa == fb || (fa != fa && fb != fb)

	default:
		if a.CanInterface() && b.CanInterface() {
			return a.Equal(b)
		}
		return sameUnexported(a, b)
	}
}

// sameUnexported compares basic kinds reached through unexported fields,
// where Interface is not allowed.
func sameUnexported(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() == b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() == b.Uint()
	case reflect.Complex64, reflect.Complex128:
		return a.Complex() == b.Complex()
	case reflect.String:
		return a.String() == b.String()
	default:
		return false
	}
}

// Equal reports whether a and b are equal using == for basic comparable
// types and reflect.DeepEqual for everything else.
func Equal[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int64:
		return av == any(b).(int64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	case float64:
		return av == any(b).(float64)
	default:
		return reflect.DeepEqual(a, b)
	}
}
