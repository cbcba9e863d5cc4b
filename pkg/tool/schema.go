package tool

import (
	"context"
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

var (
	contextType       = reflect.TypeFor[context.Context]()
	callType          = reflect.TypeFor[Call]()
	marshalerType     = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// InferSchema derives the parameter schema of an argument struct. Every
// exported field becomes a property typed with one of string, integer,
// number, boolean, array or object. Fields without a default are required.
// See [Register] for the rules.
func InferSchema[T any]() (*jsonschema.Schema, error) {
	return inferSchema(reflect.TypeFor[T](), nil)
}

func inferSchema(t reflect.Type, overrides map[reflect.Type]*jsonschema.Schema) (*jsonschema.Schema, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: got %s", ErrArgType, t)
	}
	s := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema),
	}
	if err := collectFields(t, s, overrides, map[reflect.Type]bool{}); err != nil {
		return nil, err
	}
	return s, nil
}

func collectFields(t reflect.Type, s *jsonschema.Schema, overrides map[reflect.Type]*jsonschema.Schema, seen map[reflect.Type]bool) error {
	if seen[t] {
		return nil
	}
	seen[t] = true

	for i := range t.NumField() {
		f := t.Field(i)
		if isReserved(f.Type) {
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts := parseJSONTag(tag)
		if f.Anonymous && name == "" {
			et := f.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				if err := collectFields(et, s, overrides, seen); err != nil {
					return err
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}

		prop := fieldSchema(f.Type, overrides)
		if desc := f.Tag.Get("jsonschema"); desc != "" {
			prop.Description = desc
		}
		optional := f.Type.Kind() == reflect.Pointer ||
			hasOption(opts, "omitempty") || hasOption(opts, "omitzero")
		if def, ok := f.Tag.Lookup("default"); ok {
			prop.Default = defaultValue(def, prop.Type)
			optional = true
		}
		if _, dup := s.Properties[name]; dup {
			return fmt.Errorf("tool: duplicate parameter %q in %s", name, t)
		}
		s.Properties[name] = prop
		if !optional {
			s.Required = append(s.Required, name)
		}
	}
	return nil
}

func isReserved(t reflect.Type) bool {
	if t == contextType {
		return true
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t == callType
}

func fieldSchema(t reflect.Type, overrides map[reflect.Type]*jsonschema.Schema) *jsonschema.Schema {
	if s, ok := overrides[t]; ok {
		return s.CloneSchemas()
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
		if s, ok := overrides[t]; ok {
			return s.CloneSchemas()
		}
	}
	s := &jsonschema.Schema{Type: typeToken(t)}
	if s.Type == "array" {
		s.Items = fieldSchema(t.Elem(), overrides)
	}
	return s
}

// typeToken maps a Go type to a JSON schema type. Types with custom JSON or
// text encodings, interfaces and anything else unrecognized map to string.
func typeToken(t reflect.Type) string {
	if t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType) ||
		t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType) {
		return "string"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return "string"
		}
		return "array"
	case reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	}
	return "string"
}

func defaultValue(tag, typ string) json.RawMessage {
	if typ != "string" && json.Valid([]byte(tag)) {
		return json.RawMessage(tag)
	}
	b, _ := json.Marshal(tag)
	return b
}

func parseJSONTag(tag string) (name, opts string) {
	name, opts, _ = strings.Cut(tag, ",")
	return name, opts
}

func hasOption(opts, want string) bool {
	return slices.Contains(strings.Split(opts, ","), want)
}
