// Package env populates configuration structs from environment variables.
//
// Fields opt in with an `env:"NAME"` tag. Unset variables leave the field
// untouched, so defaults belong to the code that consumes the struct. A
// pointer field stays nil while its variable is unset, which lets callers
// tell "unset" apart from an explicit zero.
package env

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Validator is implemented by config structs that check themselves after loading.
type Validator interface {
	Validate() error
}

// ErrInvalidValue reports a variable whose value does not parse into its field.
type ErrInvalidValue struct {
	Field  string
	EnvVar string
	Value  string
	Err    error
}

func (e ErrInvalidValue) Error() string {
	return fmt.Sprintf("env: %s=%q cannot populate %s: %v", e.EnvVar, e.Value, e.Field, e.Err)
}

func (e ErrInvalidValue) Unwrap() error {
	return e.Err
}

// ErrNotStructPointer is returned when Load is given anything but a struct pointer.
type ErrNotStructPointer struct {
	Type string
}

func (e ErrNotStructPointer) Error() string {
	return "env: Load needs a pointer to a struct, got " + e.Type
}

// ErrUnsupportedType reports a tagged field of a kind the loader cannot fill.
type ErrUnsupportedType struct {
	Kind string
}

func (e ErrUnsupportedType) Error() string {
	return "env: unsupported field type " + e.Kind
}

var (
	durationType = reflect.TypeFor[time.Duration]()
	timeType     = reflect.TypeFor[time.Time]()
)

// Load fills v, a pointer to a struct, from the environment.
//
// Tagged fields may be strings, bools, integers (overflow is an error),
// floats, time.Duration, comma-separated []string (items trimmed, blanks
// dropped), or a pointer to any of these. Untagged struct fields are walked
// recursively. Every struct that implements Validator, nested ones first, is
// validated once loading succeeds.
func Load(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return ErrNotStructPointer{Type: fmt.Sprintf("%T", v)}
	}
	return load(rv.Elem())
}

func load(s reflect.Value) error {
	t := s.Type()
	for i := range s.NumField() {
		field, meta := s.Field(i), t.Field(i)
		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct && field.Type() != timeType {
			if err := load(field); err != nil {
				return err
			}
			continue
		}

		name, ok := meta.Tag.Lookup("env")
		if !ok || name == "" {
			continue
		}
		raw, set := os.LookupEnv(name)
		if !set {
			continue
		}
		if err := assign(field, raw); err != nil {
			return ErrInvalidValue{Field: meta.Name, EnvVar: name, Value: raw, Err: err}
		}
	}

	if s.CanAddr() {
		if validator, ok := s.Addr().Interface().(Validator); ok {
			return validator.Validate()
		}
	}
	return nil
}

// assign parses raw into field, allocating pointer targets as needed.
func assign(field reflect.Value, raw string) error {
	if field.Kind() == reflect.Pointer {
		target := reflect.New(field.Type().Elem())
		if err := assign(target.Elem(), raw); err != nil {
			return err
		}
		field.Set(target)
		return nil
	}

	switch kind := field.Kind(); {
	case kind == reflect.String:
		field.SetString(raw)

	case kind == reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case field.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))

	case field.CanInt():
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)

	case field.CanUint():
		n, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)

	case field.CanFloat():
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case kind == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		field.Set(reflect.ValueOf(splitList(raw)).Convert(field.Type()))

	case kind == reflect.Slice:
		return ErrUnsupportedType{Kind: "[]" + field.Type().Elem().Kind().String()}

	default:
		return ErrUnsupportedType{Kind: kind.String()}
	}
	return nil
}

func splitList(raw string) []string {
	items := []string{}
	for item := range strings.SplitSeq(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
