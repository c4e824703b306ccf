package choice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// DecodeNext completes structural decoding of the remaining document fields
// into a value of the resolved variant. The tag has already been consumed.
type DecodeNext func(fields map[string]any, v Variant) (any, error)

// DecodeHook returns the discriminator-resolution stage composed over next.
// The returned function implements the decode side of the choice protocol:
//
//  1. An already-constructed instance of the hierarchy is passed through
//     unchanged; any other non-document value is rejected.
//  2. The tag is read from the reserved key, falling back to the registry's
//     default when absent.
//  3. The tag is resolved to a concrete variant, triggering discovery on
//     first use, and removed from the fields handed to next.
//
// All user-input failures surface as *ParsingError; discovery failures
// propagate unmodified.
func (r *Registry) DecodeHook(next DecodeNext) func(input any) (any, error) {
	return func(input any) (any, error) {
		fields, ok := input.(map[string]any)
		if !ok && input != nil {
			if err := r.discover(); err != nil {
				return nil, err
			}
			if r.instance(input) {
				return input, nil
			}
			return nil, newBadInputError(input)
		}

		tag, err := extractTag(fields)
		if err != nil {
			return nil, err
		}
		if tag == "" {
			tag = r.defaultTag
		}
		if tag == "" {
			if err := r.discover(); err != nil {
				return nil, err
			}
			return nil, newMissingTagError(r.tags())
		}

		v, err := r.Get(tag)
		if err != nil {
			if !errors.Is(err, ErrUnknownTag) {
				return nil, err
			}
			resolved, ok := r.resolve(tag)
			if !ok {
				return nil, newUnknownTagError(tag, r.tags())
			}
			v = resolved
		}

		rest := make(map[string]any, len(fields))
		for k, val := range fields {
			if k == TagKey {
				continue
			}
			rest[k] = val
		}
		return next(rest, v)
	}
}

// Decode resolves the document's tag against the registry and structurally
// decodes the remaining fields into a new instance of the resolved variant,
// returned as a pointer to the concrete struct.
func (r *Registry) Decode(input any) (any, error) {
	return r.DecodeHook(decodeVariant)(input)
}

// DecodeInto decodes a document directly into a concrete variant, bypassing
// tag resolution. out must be a non-nil pointer to struct. A tag present in
// the input is an error: by the time decoding reaches a leaf, the tag has
// already been consumed by the root.
func (r *Registry) DecodeInto(input any, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("choice: DecodeInto requires a non-nil pointer to struct, got %T", out)
	}
	target := rv.Elem().Type()

	if input != nil {
		iv := reflect.ValueOf(input)
		if iv.Type() == target {
			rv.Elem().Set(iv)
			return nil
		}
		if iv.Type() == rv.Type() {
			rv.Elem().Set(iv.Elem())
			return nil
		}
	}

	fields, ok := input.(map[string]any)
	if !ok {
		return newBadInputError(input)
	}
	if tag, err := extractTag(fields); err != nil {
		return err
	} else if tag != "" {
		return newLeafTagError(tag, target)
	}

	decoded, err := decodeStruct(fields, target)
	if err != nil {
		return err
	}
	rv.Elem().Set(reflect.ValueOf(decoded).Elem())
	return nil
}

// resolve consults the external resolver for a tag the registry does not
// know. The result is treated as an unregistered leaf.
func (r *Registry) resolve(tag string) (Variant, bool) {
	if r.resolver == nil {
		return Variant{}, false
	}
	proto, ok := r.resolver(tag)
	if !ok {
		return Variant{}, false
	}
	t, err := structType(proto)
	if err != nil {
		return Variant{}, false
	}
	return Variant{Tag: tag, Type: t, registry: r}, true
}

// decodeVariant is the built-in structural continuation.
func decodeVariant(fields map[string]any, v Variant) (any, error) {
	return decodeStruct(fields, v.Type)
}

// decodeStruct decodes fields into a fresh *t. Choice-typed fields (bound
// root interfaces, directly or inside nested structs) are resolved through
// their own registries; everything else goes through a strict JSON
// round-trip followed by go-playground validation.
func decodeStruct(fields map[string]any, t reflect.Type) (any, error) {
	ptr := reflect.New(t)

	plain := make(map[string]any, len(fields))
	for k, v := range fields {
		plain[k] = v
	}

	type deferredField struct {
		index int
		value reflect.Value
	}
	var deferred []deferredField

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := jsonFieldName(f)
		if name == "" {
			continue
		}
		raw, present := plain[name]
		if !present {
			continue
		}

		switch {
		case f.Type.Kind() == reflect.Interface:
			reg, bound := RootRegistry(f.Type)
			if !bound {
				continue
			}
			if raw == nil {
				delete(plain, name)
				continue
			}
			sub, err := reg.Decode(raw)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			sv := reflect.ValueOf(sub)
			if !sv.Type().Implements(f.Type) {
				return nil, fmt.Errorf("field %q: %s does not implement %s", name, sv.Type(), f.Type)
			}
			deferred = append(deferred, deferredField{i, sv})
			delete(plain, name)

		case containsChoice(f.Type, nil):
			if raw == nil {
				delete(plain, name)
				continue
			}
			subFields, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("field %q: expected a mapping, got %T", name, raw)
			}
			elem := f.Type
			for elem.Kind() == reflect.Ptr {
				elem = elem.Elem()
			}
			sub, err := decodeStruct(subFields, elem)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			sv := reflect.ValueOf(sub)
			if f.Type.Kind() != reflect.Ptr {
				sv = sv.Elem()
			}
			deferred = append(deferred, deferredField{i, sv})
			delete(plain, name)
		}
	}

	buf, err := json.Marshal(plain)
	if err != nil {
		return nil, fmt.Errorf("choice: encoding fields for %s: %w", t, err)
	}
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.DisallowUnknownFields()
	if err := dec.Decode(ptr.Interface()); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", t, err)
	}

	for _, d := range deferred {
		ptr.Elem().Field(d.index).Set(d.value)
	}

	if err := getValidator().Struct(ptr.Interface()); err != nil {
		return nil, fmt.Errorf("validating %s: %w", t, err)
	}
	return ptr.Interface(), nil
}

// instance reports whether input is an already-constructed value of this
// hierarchy: one of the registry's variant types, or an implementation of
// an interface bound to the registry as a root.
func (r *Registry) instance(input any) bool {
	t := reflect.TypeOf(input)
	if r.isLeaf(t) {
		return true
	}
	return implementsRoot(r, t)
}

// extractTag reads the reserved key. A nil value counts as absent; a
// non-string value is a user error.
func extractTag(fields map[string]any) (string, error) {
	raw, ok := fields[TagKey]
	if !ok || raw == nil {
		return "", nil
	}
	tag, ok := raw.(string)
	if !ok {
		return "", &ParsingError{msg: fmt.Sprintf("expected %q to be a string, got %T", TagKey, raw)}
	}
	return tag, nil
}

// containsChoice reports whether t is, or transitively contains, a field of
// a bound root interface type. seen guards recursive struct definitions.
func containsChoice(t reflect.Type, seen map[reflect.Type]bool) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Interface:
		_, bound := RootRegistry(t)
		return bound
	case reflect.Struct:
		if seen[t] {
			return false
		}
		if seen == nil {
			seen = make(map[reflect.Type]bool)
		}
		seen[t] = true
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.IsExported() && containsChoice(f.Type, seen) {
				return true
			}
		}
	}
	return false
}

// jsonFieldName returns the document key for a struct field, or "" when the
// field is excluded from serialization.
func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name != "" {
		return name
	}
	return f.Name
}
