package choice

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// ErrUnknownTag reports a raw registry lookup miss. Decode never returns it
// bare: it is always wrapped in a *ParsingError carrying the candidate set.
var ErrUnknownTag = errors.New("unknown choice tag")

// ConflictError is returned when a tag is registered a second time with a
// different concrete type. Registering the same (tag, type) pair again is
// not a conflict.
type ConflictError struct {
	Tag      string
	Existing reflect.Type
	New      reflect.Type
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("choice: cannot register %s as %q: %s is already registered as %q",
		e.New, e.Tag, e.Existing, e.Tag)
}

// ParsingError reports a user-input problem during decoding: a missing tag
// with no default, an unknown tag, or a tag present on a leaf decode.
type ParsingError struct {
	// Tag is the offending tag value, or "" when the input carried none.
	Tag string
	// Known is the sorted set of tags that were valid at the time.
	Known []string

	msg     string
	wrapped error
}

func (e *ParsingError) Error() string { return e.msg }

// Unwrap exposes the underlying lookup error, so
// errors.Is(err, ErrUnknownTag) works on unknown-tag failures.
func (e *ParsingError) Unwrap() error { return e.wrapped }

func newMissingTagError(known []string) *ParsingError {
	return &ParsingError{
		Known: known,
		msg:   fmt.Sprintf("expected a %q key with a value of one of %s", TagKey, formatTags(known)),
	}
}

func newUnknownTagError(tag string, known []string) *ParsingError {
	return &ParsingError{
		Tag:     tag,
		Known:   known,
		msg:     fmt.Sprintf("got %q key %q but expected one of %s", TagKey, tag, formatTags(known)),
		wrapped: ErrUnknownTag,
	}
}

func newLeafTagError(tag string, leaf reflect.Type) *ParsingError {
	return &ParsingError{
		Tag: tag,
		msg: fmt.Sprintf("got %q key %q when decoding a %s directly (as opposed to its choice root)", TagKey, tag, leaf),
	}
}

func newBadInputError(input any) *ParsingError {
	return &ParsingError{
		msg: fmt.Sprintf("expected a mapping with a %q key, got %T", TagKey, input),
	}
}

// formatTags renders a candidate set as a stable, quoted list, e.g.
// ["circle", "square"].
func formatTags(tags []string) string {
	sorted := make([]string, len(tags))
	copy(sorted, tags)
	sort.Strings(sorted)
	quoted := make([]string, len(sorted))
	for i, t := range sorted {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
