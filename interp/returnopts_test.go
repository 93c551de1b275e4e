package interp

import (
	"errors"
	"testing"

	"github.com/tcltk/tclcore/value"
)

func strVal(s string) *value.Value { return value.Incr(value.NewFromString(s)) }

func listVal(t *testing.T, s string) *value.Value {
	t.Helper()
	rep, err := value.ListType.SetFromString(s)
	if err != nil {
		t.Fatalf("listVal(%q): %v", s, err)
	}
	v := value.NewObj()
	v.SetInternalRep(value.ListType, rep)
	return value.Incr(v)
}

// TestMergeReturnOptionsLaterOptionsWin: merging {-code ERROR -errorcode A}
// with {-options {-errorcode B}} leaves -errorcode B (later wins).
func TestMergeReturnOptionsLaterOptionsWin(t *testing.T) {
	pairs := []KV{
		{Key: "-code", Value: strVal("error")},
		{Key: "-errorcode", Value: listVal(t, "A")},
		{Key: "-options", Value: listVal(t, "-errorcode B")},
	}
	code, _, opts, err := MergeReturnOptions(pairs)
	if err != nil {
		t.Fatalf("MergeReturnOptions: %v", err)
	}
	if code != CodeError {
		t.Errorf("code = %v, want CodeError", code)
	}
	got := optionValue(t, opts, "-errorcode")
	if got != "B" {
		t.Errorf("-errorcode = %q, want %q (later -options value should win)", got, "B")
	}
}

func optionValue(t *testing.T, opts *value.Value, key string) string {
	t.Helper()
	words := splitWords(opts.GetString())
	for i := 0; i+1 < len(words); i += 2 {
		if words[i] == key {
			return words[i+1]
		}
	}
	t.Fatalf("key %q not present in options dict %q", key, opts.GetString())
	return ""
}

func splitWords(s string) []string {
	var words []string
	i, n := 0, len(s)
	for i < n {
		for i < n && (s[i] == ' ' || s[i] == '\t') {
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
				if s[j] == '{' {
					depth++
				} else if s[j] == '}' {
					depth--
				}
				j++
			}
			words = append(words, s[start:j-1])
			i = j
			continue
		}
		start := i
		for i < n && s[i] != ' ' && s[i] != '\t' {
			i++
		}
		words = append(words, s[start:i])
	}
	return words
}

// TestMergeReturnOptionsViolations checks each illegal-input tag.
func TestMergeReturnOptionsViolations(t *testing.T) {
	cases := []struct {
		name string
		pairs []KV
		tag  OptionsErrorTag
	}{
		{"bad code", []KV{{Key: "-code", Value: strVal("not-a-code")}}, TagIllegalOptions},
		{"bad level", []KV{{Key: "-level", Value: strVal("-1")}}, TagIllegalLevel},
		{"non-list errorstack", []KV{{Key: "-errorstack", Value: strVal("{unterminated")}}, TagNonListErrorStack},
		{"odd errorstack", []KV{{Key: "-errorstack", Value: listVal(t, "a b c")}}, TagOddSizedListErrorStack},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, _, err := MergeReturnOptions(c.pairs)
			if err == nil {
				t.Fatal("expected an error")
			}
			var oe *OptionsError
			if !errors.As(err, &oe) {
				t.Fatalf("error is not an *OptionsError: %v", err)
			}
			if oe.Tag != c.tag {
				t.Errorf("tag = %v, want %v", oe.Tag, c.tag)
			}
		})
	}
}

// TestReturnOptionsErrorPath: a `return -code error -errorcode {SYS BADFD
// 9} -errorinfo "open failed" "bad file"` observed through ProcessReturn.
func TestReturnOptionsErrorPath(t *testing.T) {
	ip := New()
	pairs := []KV{
		{Key: "-code", Value: strVal("error")},
		{Key: "-errorcode", Value: listVal(t, "SYS BADFD 9")},
		{Key: "-errorinfo", Value: strVal("open failed")},
	}
	code, level, opts, err := MergeReturnOptions(pairs)
	if err != nil {
		t.Fatalf("MergeReturnOptions: %v", err)
	}
	result := ProcessReturn(ip, code, level, opts)
	if result != CodeError {
		t.Fatalf("ProcessReturn = %v, want CodeError", result)
	}
	if ip.ErrorInfo == nil || ip.ErrorInfo.GetString() != "open failed" {
		t.Errorf("ip.ErrorInfo = %v, want \"open failed\"", ip.ErrorInfo)
	}
	if ip.ErrorCode == nil || ip.ErrorCode.GetString() != "SYS BADFD 9" {
		t.Errorf("ip.ErrorCode = %v, want \"SYS BADFD 9\"", ip.ErrorCode)
	}
	if level != 0 {
		t.Errorf("level = %d, want 0", level)
	}
}
