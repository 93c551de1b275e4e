package interp

import (
	"testing"

	"github.com/tcltk/tclcore/value"
)

func TestSaveRestoreRoundTrip(t *testing.T) {
	ip := New()
	ip.ErrorInfo = value.Incr(value.NewFromString("boom"))
	ip.Status = CodeError

	s := Save(ip, CodeOK)

	ip.Status = CodeOK
	ip.ErrorInfo = nil

	Restore(s, ip)

	if ip.Status != CodeOK {
		t.Errorf("Status after restore = %v, want CodeOK (the status Save was given)", ip.Status)
	}
	if ip.ErrorInfo == nil || ip.ErrorInfo.GetString() != "boom" {
		t.Errorf("ErrorInfo after restore = %v, want \"boom\"", ip.ErrorInfo)
	}
}

func TestDiscardDoesNotTouchInterp(t *testing.T) {
	ip := New()
	ip.ErrorInfo = value.Incr(value.NewFromString("original"))

	s := Save(ip, CodeError)
	Discard(s)

	if ip.ErrorInfo.GetString() != "original" {
		t.Errorf("Discard must not mutate ip, got ErrorInfo=%v", ip.ErrorInfo)
	}
}

func TestCompletionCodeString(t *testing.T) {
	cases := map[CompletionCode]string{
		CodeOK:       "ok",
		CodeError:    "error",
		CodeReturn:   "return",
		CodeBreak:    "break",
		CodeContinue: "continue",
	}
	for code, want := range cases {
		if got := code.String(); got != want {
			t.Errorf("CompletionCode(%d).String() = %q, want %q", code, got, want)
		}
	}
}
