package workflow

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

var referencePattern = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// Substitute replaces {{nodeId}} and {{nodeId.path.to.value}} references in
// text with values from vars. A bare node id yields the whole output; a path
// walks nested maps and list indexes. References that do not resolve are
// left in place so they stay visible in the result.
func Substitute(text string, vars map[string]any) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return referencePattern.ReplaceAllStringFunc(text, func(token string) string {
		ref := referencePattern.FindStringSubmatch(token)[1]
		id, path, hasPath := strings.Cut(ref, ".")

		v, ok := vars[id]
		if !ok {
			return token
		}
		if hasPath {
			if v, ok = lookupPath(v, strings.Split(path, ".")); !ok {
				return token
			}
		}
		if s, ok := render(v); ok {
			return s
		}
		return token
	})
}

// Stringify renders v for inclusion in text: strings verbatim, nil as
// "null", everything else as JSON with sorted object keys. A value JSON
// cannot encode, such as NaN, falls back to its Go formatting.
func Stringify(v any) string {
	if s, ok := render(v); ok {
		return s
	}
	return fmt.Sprint(v)
}

func render(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "null", true
	case string:
		return t, true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func lookupPath(v any, path []string) (any, bool) {
	cur := v
	for _, key := range path {
		if key == "" {
			return nil, false
		}
		rv := reflect.ValueOf(cur)
		for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
			if rv.IsNil() {
				return nil, false
			}
			rv = rv.Elem()
		}
		if !rv.IsValid() {
			return nil, false
		}

		switch rv.Kind() {
		case reflect.Map:
			if rv.Type().Key().Kind() != reflect.String {
				return nil, false
			}
			e := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
			if !e.IsValid() {
				return nil, false
			}
			cur = e.Interface()
		case reflect.Slice, reflect.Array:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= rv.Len() {
				return nil, false
			}
			cur = rv.Index(i).Interface()
		case reflect.Struct:
			m, ok := toGeneric(rv.Interface()).(map[string]any)
			if !ok {
				return nil, false
			}
			e, ok := m[key]
			if !ok {
				return nil, false
			}
			cur = e
		default:
			return nil, false
		}
	}
	return cur, true
}

// toGeneric round-trips v through JSON so typed maps, slices and structs
// become map[string]any, []any and primitives. It returns v unchanged when
// v cannot be encoded.
func toGeneric(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
