package runner

import (
	"errors"
	"fmt"
	"os"
	"reflect"
)

// ExpandTemplates replaces ${VAR} references in place, walking the struct (or
// slice) that in points to.
//
// Plain strings, *string and []string are expanded only when the field
// carries a `template` tag other than `template:"-"`. map[string]string values
// are always expanded. Nested structs, non-nil struct pointers and slices of
// either are walked whether tagged or not. Nil values and unexported fields
// are left alone.
func ExpandTemplates[T any](in *T, variables map[string]string) error {
	if in == nil {
		return nil
	}

	x := expander{variables: variables}
	v := reflect.ValueOf(in).Elem()
	switch v.Kind() {
	case reflect.Struct, reflect.Slice:
		return x.walk(v, true)
	default:
		return fmt.Errorf("ExpandTemplates expects *struct or *[]struct; got *%s", v.Type())
	}
}

type expander struct {
	variables map[string]string
}

// walk expands v. tagged reports whether the field holding v opted into
// string expansion.
func (x expander) walk(v reflect.Value, tagged bool) error {
	switch v.Kind() {
	case reflect.String:
		if !tagged {
			return nil
		}
		expanded, err := Expand(v.String(), x.variables)
		if err != nil {
			return err
		}
		v.SetString(expanded)
		return nil

	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		switch v.Elem().Kind() {
		case reflect.String:
			if !tagged {
				return nil
			}
			expanded, err := Expand(v.Elem().String(), x.variables)
			if err != nil {
				return err
			}
			// Replace the pointer rather than writing through it; the
			// original string may be shared.
			ptr := reflect.New(v.Elem().Type())
			ptr.Elem().SetString(expanded)
			v.Set(ptr)
			return nil
		case reflect.Struct:
			return x.walkStruct(v.Elem())
		default:
			return nil
		}

	case reflect.Map:
		if v.IsNil() || v.Type().Key().Kind() != reflect.String || v.Type().Elem().Kind() != reflect.String {
			return nil
		}
		expanded, err := ExpandMap(v.Interface().(map[string]string), x.variables)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(expanded))
		return nil

	case reflect.Struct:
		return x.walkStruct(v)

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		elem := v.Type().Elem()
		switch {
		case elem.Kind() == reflect.String && !tagged:
			return nil
		case elem.Kind() == reflect.String,
			elem.Kind() == reflect.Struct,
			elem.Kind() == reflect.Pointer && elem.Elem().Kind() == reflect.Struct:
		default:
			return nil
		}
		for i := range v.Len() {
			if err := x.walk(v.Index(i), true); err != nil {
				return err
			}
		}
		return nil

	default:
		return nil
	}
}

func (x expander) walkStruct(v reflect.Value) error {
	typ := v.Type()
	for i := range typ.NumField() {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, ok := sf.Tag.Lookup("template")
		if err := x.walk(v.Field(i), ok && tag != "-"); err != nil {
			return err
		}
	}
	return nil
}

// Expand replaces ${VAR} references in value using variables.
// Returns an error naming every referenced variable that is not in variables.
func Expand(value string, variables map[string]string) (string, error) {
	var errs error

	result := os.Expand(value, func(key string) string {
		if val, ok := variables[key]; ok {
			return val
		}
		errs = errors.Join(errs, fmt.Errorf("environment variable %q is not in the allowed list", key))
		return ""
	})

	if errs != nil {
		return "", errs
	}

	return result, nil
}

// ExpandMap expands all values in a map[string]string into a new map.
func ExpandMap(values map[string]string, variables map[string]string) (map[string]string, error) {
	if values == nil {
		return nil, nil
	}

	result := make(map[string]string, len(values))
	var errs error

	for k, v := range values {
		expanded, err := Expand(v, variables)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		result[k] = expanded
	}

	if errs != nil {
		return nil, errs
	}

	return result, nil
}
