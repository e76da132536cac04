package configparser

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var ErrNotStructPointer = errors.New("config must be a pointer to a struct")

var durationType = reflect.TypeOf(time.Duration(0))

// ParseEnv fills the fields of a struct tagged with `env:"NAME" default:"value"`.
// Nested structs without an env tag are walked recursively.
// Supported kinds: string, bool, int*, uint*, float*, time.Duration and []string (comma separated).
func ParseEnv(cfg any) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return ErrNotStructPointer
	}
	return parseStruct(v.Elem())
}

func parseStruct(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		if !field.IsExported() {
			continue
		}

		name, tagged := field.Tag.Lookup("env")
		if !tagged {
			if fv.Kind() == reflect.Struct && field.Type != durationType {
				if err := parseStruct(fv); err != nil {
					return err
				}
			}
			continue
		}

		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			raw, ok = field.Tag.Lookup("default")
		}
		if !ok {
			continue
		}

		if err := setValue(fv, raw); err != nil {
			return fmt.Errorf("invalid value %q for %s: %w", raw, name, err)
		}
	}
	return nil
}

func setValue(fv reflect.Value, raw string) error {
	if fv.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		fv.SetInt(int64(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	case reflect.Slice:
		if fv.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", fv.Type())
		}
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		fv.Set(reflect.ValueOf(out))
	default:
		return fmt.Errorf("unsupported field type %s", fv.Type())
	}
	return nil
}
