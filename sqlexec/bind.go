package sqlexec

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`#\{\s*([A-Za-z_][A-Za-z0-9_.]*)\s*\}`)

// bind rewrites #{name} placeholders to positional ? markers and collects the
// matching argument values from params.
//
// params may be a map keyed by name, a struct (matched by bun tag, then by
// field name ignoring case) or a single scalar bound to every placeholder.
func bind(sql string, params any) (string, []any, error) {
	matches := placeholderPattern.FindAllStringSubmatchIndex(sql, -1)
	if len(matches) == 0 {
		return sql, nil, nil
	}

	var (
		b    strings.Builder
		args = make([]any, 0, len(matches))
		last int
	)
	for _, m := range matches {
		name := sql[m[2]:m[3]]
		value, err := lookup(params, name)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(sql[last:m[0]])
		b.WriteByte('?')
		args = append(args, value)
		last = m[1]
	}
	b.WriteString(sql[last:])

	return b.String(), args, nil
}

func lookup(params any, name string) (any, error) {
	if params == nil {
		return nil, fmt.Errorf("no value for parameter %q", name)
	}

	rv := reflect.ValueOf(params)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, fmt.Errorf("no value for parameter %q", name)
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("parameter map must be keyed by string, got %s", rv.Type().Key())
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, fmt.Errorf("no value for parameter %q", name)
		}
		return v.Interface(), nil
	case reflect.Struct:
		if v, ok := structField(rv, name); ok {
			return v, nil
		}
		return nil, fmt.Errorf("no field for parameter %q in %s", name, rv.Type())
	default:
		return rv.Interface(), nil
	}
}

func structField(rv reflect.Value, name string) (any, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		if tag, _, _ := strings.Cut(field.Tag.Get("bun"), ","); tag == name {
			return rv.Field(i).Interface(), true
		}
	}
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if field.IsExported() && strings.EqualFold(field.Name, name) {
			return rv.Field(i).Interface(), true
		}
	}
	return nil, false
}
