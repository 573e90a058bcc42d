package render

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-include/pkg/includetag"
)

// ErrReservedKey is returned when render or global data tries to set a name
// the include tag owns.
var ErrReservedKey = errors.New("render: reserved context key")

// convertToContext turns render data into the top-level pongo2 context.
// Maps with string keys become entries and structs contribute their exported
// fields by Go name. Nested values are passed through untouched for pongo2 to
// resolve.
func convertToContext(data any) (pongo2.Context, error) {
	out := pongo2.Context{}
	switch v := data.(type) {
	case nil:
		return out, nil
	case pongo2.Context:
		return out, putAll(out, v)
	case map[string]any:
		return out, putAll(out, v)
	}

	rv := reflect.ValueOf(data)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return out, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("render: data map keys must be strings, got %s", rv.Type().Key())
		}
		iter := rv.MapRange()
		for iter.Next() {
			if err := put(out, iter.Key().String(), iter.Value().Interface()); err != nil {
				return nil, err
			}
		}
		return out, nil
	case reflect.Struct:
		if err := putFields(out, rv); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("render: unsupported data type %T", data)
}

func putAll(out pongo2.Context, in map[string]any) error {
	for key, value := range in {
		if err := put(out, key, value); err != nil {
			return err
		}
	}
	return nil
}

func putFields(out pongo2.Context, rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		if err := put(out, field.Name, rv.Field(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

func put(out pongo2.Context, key string, value any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	if includetag.Reserved(key) {
		return fmt.Errorf("%w: %q", ErrReservedKey, key)
	}
	out[key] = value
	return nil
}
