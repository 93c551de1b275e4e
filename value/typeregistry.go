package value

import (
	"fmt"
	"strings"

	"github.com/tcltk/tclcore/bigint"
	"github.com/tcltk/tclcore/list"
)

// StringType is the Descriptor for the plain-string internal rep: its
// "internal rep" is simply the canonical string itself, so Serialize is the
// identity and Duplicate is a no-op share (strings are themselves
// immutable).
var StringType Descriptor = stringDescriptor{}

type stringDescriptor struct{}

func (stringDescriptor) Kind() Type   { return TypeString }
func (stringDescriptor) Name() string { return "string" }
func (stringDescriptor) Free(rep any) {}
func (stringDescriptor) Duplicate(rep any) any { return rep }
func (stringDescriptor) Serialize(rep any) string {
	s, _ := rep.(string)
	return s
}
func (stringDescriptor) SetFromString(s string) (any, error) { return s, nil }

// ByteArrayType is the Descriptor for the byte-array internal rep: a raw
// []byte, serialized byte for byte into the string rep (bytes are not
// re-encoded, so bytes >= 0x80 are not expanded to UTF-8 characters).
var ByteArrayType Descriptor = byteArrayDescriptor{}

type byteArrayDescriptor struct{}

func (byteArrayDescriptor) Kind() Type   { return TypeByteArray }
func (byteArrayDescriptor) Name() string { return "bytearray" }
func (byteArrayDescriptor) Free(rep any) {}
func (byteArrayDescriptor) Duplicate(rep any) any {
	b := rep.([]byte)
	return append([]byte(nil), b...)
}
func (byteArrayDescriptor) Serialize(rep any) string {
	b := rep.([]byte)
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteByte(c)
	}
	return sb.String()
}
func (byteArrayDescriptor) SetFromString(s string) (any, error) {
	return []byte(s), nil
}

// BigIntType is the Descriptor for the arbitrary-precision integer
// internal rep, backed by package bigint.
var BigIntType Descriptor = bigIntDescriptor{}

type bigIntDescriptor struct{}

func (bigIntDescriptor) Kind() Type   { return TypeBigInt }
func (bigIntDescriptor) Name() string { return "bigint" }
func (bigIntDescriptor) Free(rep any) {}
func (bigIntDescriptor) Duplicate(rep any) any {
	return bigint.Copy(rep.(*bigint.BigInt))
}
func (bigIntDescriptor) Serialize(rep any) string {
	return rep.(*bigint.BigInt).String()
}
func (bigIntDescriptor) SetFromString(s string) (any, error) {
	return bigint.ParseBigInt(strings.TrimSpace(s), 0)
}

// ListType is the Descriptor for the span-backed list internal rep, backed
// by package list. List elements are stored as *Value so a list of values
// composes with the rest of this package; Serialize renders the
// brace-quoted list syntax at a level simple enough for round-tripping
// unquoted words and braced groups.
var ListType Descriptor = listDescriptor{}

type listDescriptor struct{}

func (listDescriptor) Kind() Type   { return TypeList }
func (listDescriptor) Name() string { return "list" }
func (listDescriptor) Free(rep any) {
	l := rep.(*list.List)
	for _, e := range list.GetElements(l) {
		Decr(e.(*Value))
	}
}
func (listDescriptor) Duplicate(rep any) any {
	l := rep.(*list.List)
	out := list.New()
	list.Incr(out)
	for _, e := range list.GetElements(l) {
		out = list.AppendElement(out, Incr(Duplicate(e.(*Value))))
	}
	return out
}
func (listDescriptor) Serialize(rep any) string {
	l := rep.(*list.List)
	elems := list.GetElements(l)
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = listWord(e.(*Value).GetString())
	}
	return strings.Join(parts, " ")
}
func (listDescriptor) SetFromString(s string) (any, error) {
	words, err := splitList(s)
	if err != nil {
		return nil, err
	}
	out := list.New()
	list.Incr(out)
	for _, w := range words {
		out = list.AppendElement(out, Incr(NewFromString(w)))
	}
	return out, nil
}

// listWord braces an element if it contains characters that would
// otherwise be parsed as word separators or special syntax.
func listWord(s string) string {
	if s == "" {
		return "{}"
	}
	if strings.ContainsAny(s, " \t\n{}\"\\$[;") {
		return "{" + s + "}"
	}
	return s
}

// splitList parses the brace-delimited, whitespace-separated list syntax.
// It supports unquoted words and single-level brace grouping; nested
// braces are copied through verbatim rather than recursively parsed,
// matching the depth this package actually needs.
func splitList(s string) ([]string, error) {
	var out []string
	i, n := 0, len(s)
	for i < n {
		for i < n && isListSpace(s[i]) {
			i++
		}
		if i >= n {
			break
		}
		if s[i] == '{' {
			depth := 1
			j := i + 1
			start := j
			for j < n && depth > 0 {
				switch s[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				j++
			}
			if depth != 0 {
				return nil, fmt.Errorf("list: unmatched '{' in %q", s)
			}
			out = append(out, s[start:j-1])
			i = j
			continue
		}
		start := i
		for i < n && !isListSpace(s[i]) {
			i++
		}
		out = append(out, s[start:i])
	}
	return out, nil
}

func isListSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' }
