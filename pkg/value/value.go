// Package value classifies pongo2 values the way Liquid does: scalars
// (strings, numbers, booleans) render to text, everything else is composite
// or nil.
package value

import (
	"reflect"
	"strconv"

	"github.com/flosch/pongo2/v6"
)

// Scalar returns the text form of v when v is a string, number or boolean.
func Scalar(v *pongo2.Value) (string, bool) {
	if v == nil || v.IsNil() {
		return "", false
	}
	switch {
	case v.IsString():
		return v.String(), true
	case v.IsBool():
		return strconv.FormatBool(v.Bool()), true
	case v.IsInteger():
		return strconv.Itoa(v.Integer()), true
	case v.IsFloat():
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), true
	}
	return "", false
}

// Size reports the number of entries in a map, slice or array. ok is false
// for anything else.
func Size(v *pongo2.Value) (n int, ok bool) {
	if v == nil || v.IsNil() {
		return 0, false
	}
	rv := reflect.ValueOf(v.Interface())
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return 0, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len(), true
	}
	return 0, false
}
