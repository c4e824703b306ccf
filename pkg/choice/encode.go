package choice

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// EncodeNext structurally serializes an instance's own fields into a
// document. The tag is reattached afterwards by the encode hook.
type EncodeNext func(v any) (map[string]any, error)

// EncodeHook returns the tag-reattachment stage composed over next. The tag
// is computed from the instance's runtime type and inserted under the
// reserved key. If the key is already present (a re-entrant call), it must
// equal the computed tag: a mismatch is an internal consistency fault and
// panics rather than being silently corrected.
func (r *Registry) EncodeHook(next EncodeNext) func(v any) (map[string]any, error) {
	return func(v any) (map[string]any, error) {
		out, err := next(v)
		if err != nil {
			return nil, err
		}
		tag, err := r.NameOf(reflect.TypeOf(v))
		if err != nil {
			return nil, err
		}
		if existing, ok := out[TagKey]; ok {
			if existing != any(tag) {
				panic(fmt.Sprintf("choice: inconsistent %q key while encoding %T: computed %q, found %v",
					TagKey, v, tag, existing))
			}
			return out, nil
		}
		out[TagKey] = tag
		return out, nil
	}
}

// Encode serializes a variant instance to a document and reattaches its
// tag. v must be an instance (or pointer to an instance) of a registered
// variant type.
func (r *Registry) Encode(v any) (map[string]any, error) {
	return r.EncodeHook(encodeFields)(v)
}

// encodeFields is the built-in structural serializer: a JSON round-trip to
// a generic map, with choice-typed fields re-encoded through their own
// registries so nested tags are reattached.
func encodeFields(v any) (map[string]any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("choice: cannot encode nil %T", v)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("choice: cannot encode %T, expected a struct", v)
	}
	t := rv.Type()

	buf, err := json.Marshal(rv.Interface())
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", t, err)
	}
	var out map[string]any
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", t, err)
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := jsonFieldName(f)
		if name == "" {
			continue
		}
		fv := rv.Field(i)

		switch {
		case f.Type.Kind() == reflect.Interface:
			reg, bound := RootRegistry(f.Type)
			if !bound || fv.IsNil() {
				continue
			}
			sub, err := reg.Encode(fv.Interface())
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			out[name] = sub

		case containsChoice(f.Type, nil):
			if f.Type.Kind() == reflect.Ptr && fv.IsNil() {
				continue
			}
			sub, err := encodeFields(fv.Interface())
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			out[name] = sub
		}
	}
	return out, nil
}
