package value

import (
	"testing"

	"github.com/tcltk/tclcore/internal/testhelp"
)

func TestBigIntRoundTrip(t *testing.T) {
	v := NewFromString("123456789012345678901234567890")
	rep, err := BigIntType.SetFromString(v.GetString())
	testhelp.FatalOnErr(t, err, "SetFromString")
	v.SetInternalRep(BigIntType, rep)
	if got := v.GetString(); got != "123456789012345678901234567890" {
		t.Errorf("GetString() = %q, want original digits", got)
	}
}

func TestByteArrayRoundTrip(t *testing.T) {
	v := NewObj()
	rep, _ := ByteArrayType.SetFromString("hello")
	v.SetInternalRep(ByteArrayType, rep)
	if got := v.GetString(); got != "hello" {
		t.Errorf("GetString() = %q, want %q", got, "hello")
	}
}

func TestListRoundTrip(t *testing.T) {
	v := NewObj()
	rep, err := ListType.SetFromString("alpha {beta gamma} delta")
	testhelp.FatalOnErr(t, err, "SetFromString")
	v.SetInternalRep(ListType, rep)
	got := v.GetString()
	want := "alpha {beta gamma} delta"
	if got != want {
		t.Errorf("GetString() = %q, want %q", got, want)
	}
}

func TestListDuplicateIsIndependent(t *testing.T) {
	v := NewObj()
	rep, _ := ListType.SetFromString("a b c")
	v.SetInternalRep(ListType, rep)

	dup := Duplicate(v)
	_, dupRep := dup.InternalRep()
	if dupRep == nil {
		t.Fatal("duplicate lost its internal rep")
	}
	if dup.GetString() != v.GetString() {
		t.Errorf("duplicate string = %q, want %q", dup.GetString(), v.GetString())
	}
}

func TestEnsurePrivateCOW(t *testing.T) {
	v := NewFromString("shared")
	Incr(v)
	shared := Incr(v)

	priv := EnsurePrivate(shared)
	if priv == shared {
		t.Error("EnsurePrivate returned the same shared value, expected a private duplicate")
	}
	if RefCount(priv) != 1 {
		t.Errorf("RefCount(priv) = %d, want 1", RefCount(priv))
	}
}
