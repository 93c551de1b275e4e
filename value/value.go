// Package value implements the universal scripted value: a reference-counted
// object carrying an optional cached string representation and an optional
// typed internal representation.
//
// The internal representation is stored as a plain Go `any`: an interface
// value is itself a two-word pair (a type descriptor pointer and a data
// pointer), so no separate union or unsafe.Pointer plumbing is needed to
// hold a type tag plus payload.
package value

import (
	"fmt"

	"github.com/alecthomas/atomic"
)

// Type names one of the core internal-representation variants, plus an
// Extension escape hatch for representations this package doesn't know
// about, carrying a user-supplied descriptor.
type Type int

const (
	TypeNone Type = iota
	TypeString
	TypeList
	TypeDict
	TypeBigInt
	TypeByteArray
	TypeAbstractList
	TypeExtension
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeDict:
		return "dict"
	case TypeBigInt:
		return "bigint"
	case TypeByteArray:
		return "bytearray"
	case TypeAbstractList:
		return "abstractlist"
	case TypeExtension:
		return "extension"
	default:
		return "unknown"
	}
}

// Descriptor names an internal type and supplies the hooks needed to
// manage and (re)serialize its internal representation. At most one
// Descriptor is associated with a Value at a time; when SetInternalRep
// installs a different Descriptor, it runs the previous one's Free hook
// first.
type Descriptor interface {
	// Kind reports which Type variant this descriptor implements.
	Kind() Type
	// Name is a human-readable type name, used in diagnostics.
	Name() string
	// Free releases any resources owned by rep. Called when a Value's
	// internal rep is replaced by a string rep or by a rep of a different
	// Descriptor, or when the Value itself is reclaimed.
	Free(rep any)
	// Duplicate deep-copies rep for the copy-on-write discipline.
	Duplicate(rep any) any
	// Serialize produces the canonical string rep for rep.
	Serialize(rep any) string
	// SetFromString parses s into a fresh internal rep of this type.
	SetFromString(s string) (any, error)
}

// Value is the universal scripted value. The zero Value is not usable;
// construct with NewObj.
type Value struct {
	refCount atomic.Int32

	stringRep  []byte
	stringSet  bool
	descriptor Descriptor
	internal   any
}

// NewObj returns a fresh value with refcount 0, an empty string rep, and
// no internal rep.
func NewObj() *Value {
	return &Value{stringRep: []byte{}, stringSet: true}
}

// NewFromString returns a fresh value whose string rep is s, refcount 0.
func NewFromString(s string) *Value {
	v := NewObj()
	v.SetStringRep([]byte(s))
	return v
}

// Incr adds a strong reference.
func Incr(v *Value) *Value {
	v.refCount.Add(1)
	return v
}

// Decr drops a strong reference. At zero, the descriptor's Free hook runs
// and the Value is considered reclaimed; callers must not touch v again.
func Decr(v *Value) {
	if v.refCount.Add(-1) <= 0 {
		if v.descriptor != nil && v.internal != nil {
			v.descriptor.Free(v.internal)
		}
		v.internal = nil
		v.descriptor = nil
		v.stringRep = nil
	}
}

// RefCount reports the current strong reference count.
func RefCount(v *Value) int { return int(v.refCount.Load()) }

// IsShared reports whether v has more than one strong reference.
func IsShared(v *Value) bool { return v.refCount.Load() > 1 }

// SetStringRep installs s as the value's string rep and invalidates any
// internal rep.
func (v *Value) SetStringRep(s []byte) {
	if v.descriptor != nil && v.internal != nil {
		v.descriptor.Free(v.internal)
	}
	v.descriptor = nil
	v.internal = nil
	v.stringRep = append([]byte(nil), s...)
	v.stringSet = true
}

// SetInternalRep installs a typed internal rep and invalidates the cached
// string rep. Switching types is destructive to the previous internal rep:
// its descriptor's Free hook runs first.
func (v *Value) SetInternalRep(d Descriptor, rep any) {
	if v.descriptor != nil && v.internal != nil && v.descriptor != d {
		v.descriptor.Free(v.internal)
	}
	v.descriptor = d
	v.internal = rep
	v.stringSet = false
	v.stringRep = nil
}

// InternalRep returns the current descriptor and payload, or (nil, nil) if
// none is set.
func (v *Value) InternalRep() (Descriptor, any) {
	return v.descriptor, v.internal
}

// TypeName returns the name of the current internal type, or "none".
func (v *Value) TypeName() string {
	if v.descriptor == nil {
		return TypeNone.String()
	}
	return v.descriptor.Name()
}

// GetString returns the string rep, regenerating it from the internal rep
// via the descriptor's Serialize hook if the cache is stale.
func (v *Value) GetString() string {
	if v.stringSet {
		return string(v.stringRep)
	}
	if v.descriptor == nil {
		return ""
	}
	s := v.descriptor.Serialize(v.internal)
	v.stringRep = []byte(s)
	v.stringSet = true
	return s
}

// Duplicate returns a fresh Value with refcount 0 holding a deep copy of
// v's representation(s). The original is untouched.
func Duplicate(v *Value) *Value {
	d := NewObj()
	d.stringSet = v.stringSet
	if v.stringSet {
		d.stringRep = append([]byte(nil), v.stringRep...)
	}
	if v.descriptor != nil {
		d.descriptor = v.descriptor
		d.internal = v.descriptor.Duplicate(v.internal)
	}
	return d
}

// EnsurePrivate returns v unchanged if it is not shared, or a private
// duplicate (refcount 1) if it is. Copy-on-write is the universal mutation
// discipline: every mutator that touches a Value's internal rep must route
// through this first.
func EnsurePrivate(v *Value) *Value {
	if !IsShared(v) {
		return v
	}
	d := Duplicate(v)
	Incr(d)
	return d
}

// errNoDescriptor is returned by operations that require a typed internal
// rep but find none installed.
func errNoDescriptor(op string) error {
	return fmt.Errorf("value: %s: no internal representation set", op)
}
