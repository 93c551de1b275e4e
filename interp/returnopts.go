package interp

import (
	"fmt"
	"slices"
	"sort"
	"strconv"

	"github.com/tcltk/tclcore/list"
	"github.com/tcltk/tclcore/value"
)

// OptionsErrorTag is the distinct error-code tag attached to each
// return-options violation.
type OptionsErrorTag string

const (
	TagIllegalOptions          OptionsErrorTag = "ILLEGAL_OPTIONS"
	TagIllegalLevel            OptionsErrorTag = "ILLEGAL_LEVEL"
	TagIllegalErrorCode        OptionsErrorTag = "ILLEGAL_ERRORCODE"
	TagNonListErrorStack       OptionsErrorTag = "NONLIST_ERRORSTACK"
	TagOddSizedListErrorStack  OptionsErrorTag = "ODDSIZEDLIST_ERRORSTACK"
)

// OptionsError is an error carrying a stable, machine-checkable
// OptionsErrorTag alongside its human message.
type OptionsError struct {
	Tag OptionsErrorTag
	Msg string
}

func (e *OptionsError) Error() string { return fmt.Sprintf("%s: %s", e.Tag, e.Msg) }

func optErr(tag OptionsErrorTag, format string, args ...any) error {
	return &OptionsError{Tag: tag, Msg: fmt.Sprintf(format, args...)}
}

// canonical return-options dict keys, as they appear on the wire.
const (
	keyCode       = "-code"
	keyLevel      = "-level"
	keyErrorCode  = "-errorcode"
	keyErrorInfo  = "-errorinfo"
	keyErrorLine  = "-errorline"
	keyErrorStack = "-errorstack"
	keyOptions    = "-options"
)

// KV is one key/value pair of the KV-sequence MergeReturnOptions consumes.
type KV struct {
	Key   string
	Value *value.Value
}

// parseCode maps a return-options "code" value to a CompletionCode,
// accepting both the bareword names and non-negative integers.
func parseCode(s string) (CompletionCode, bool) {
	switch s {
	case "ok":
		return CodeOK, true
	case "error":
		return CodeError, true
	case "return":
		return CodeReturn, true
	case "break":
		return CodeBreak, true
	case "continue":
		return CodeContinue, true
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return CompletionCode(n), true
	}
	return 0, false
}

// MergeReturnOptions produces (code, level, optionsDict) from a flat
// key/value sequence, or a tagged error per violation. The `-options` key
// recursively expands: its value is itself parsed as a dict of the same
// keys, merging later keys over earlier ones.
func MergeReturnOptions(pairs []KV) (code CompletionCode, level int, opts *value.Value, err error) {
	merged := map[string]*value.Value{}

	var apply func(pairs []KV) error
	apply = func(pairs []KV) error {
		for _, p := range pairs {
			k, v := p.Key, p.Value
			if k == keyOptions {
				nested, parseErr := parseOptionsDict(v.GetString())
				if parseErr != nil {
					return optErr(TagIllegalOptions, "%v", parseErr)
				}
				if err := apply(nested); err != nil {
					return err
				}
				continue
			}
			merged[k] = v
		}
		return nil
	}
	if err := apply(pairs); err != nil {
		return 0, 0, nil, err
	}

	code = CodeOK
	if v, ok := merged[keyCode]; ok {
		c, valid := parseCode(v.GetString())
		if !valid {
			return 0, 0, nil, optErr(TagIllegalOptions, "illegal code value %q", v.GetString())
		}
		code = c
	}

	level = 0
	if v, ok := merged[keyLevel]; ok {
		n, convErr := strconv.Atoi(v.GetString())
		if convErr != nil || n < 0 {
			return 0, 0, nil, optErr(TagIllegalLevel, "level must be a non-negative integer, got %q", v.GetString())
		}
		level = n
	}

	if v, ok := merged[keyErrorCode]; ok {
		if err := mustBeList(v); err != nil {
			return 0, 0, nil, optErr(TagIllegalErrorCode, "%v", err)
		}
	}

	if v, ok := merged[keyErrorStack]; ok {
		l, err := asList(v)
		if err != nil {
			return 0, 0, nil, optErr(TagNonListErrorStack, "%v", err)
		}
		if list.Length(l)%2 != 0 {
			return 0, 0, nil, optErr(TagOddSizedListErrorStack, "errorstack list has odd length %d", list.Length(l))
		}
	}

	out := value.NewObj()
	out.SetInternalRep(value.ListType, buildOptionsList(merged))
	return code, level, value.Incr(out), nil
}

func mustBeList(v *value.Value) error {
	_, err := asList(v)
	return err
}

func asList(v *value.Value) (*list.List, error) {
	rep, err := value.ListType.SetFromString(v.GetString())
	if err != nil {
		return nil, err
	}
	return rep.(*list.List), nil
}

func buildOptionsList(merged map[string]*value.Value) *list.List {
	canonical := []string{keyCode, keyLevel, keyErrorCode, keyErrorInfo, keyErrorLine, keyErrorStack}
	l := list.New()
	list.Incr(l)
	for _, k := range canonical {
		if v, ok := merged[k]; ok {
			l = list.AppendElement(l, value.Incr(value.NewFromString(k)))
			l = list.AppendElement(l, value.Incr(v))
		}
	}
	// Application-defined option keys ride along after the canonical ones,
	// in sorted order so the dict's string rep is deterministic.
	var extra []string
	for k := range merged {
		if !slices.Contains(canonical, k) && k != keyOptions {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		l = list.AppendElement(l, value.Incr(value.NewFromString(k)))
		l = list.AppendElement(l, value.Incr(merged[k]))
	}
	return l
}

// parseOptionsDict reads a nested options dict's string rep as alternating
// key/value words (a list of even length), for the `-options` expansion.
func parseOptionsDict(s string) ([]KV, error) {
	rep, err := value.ListType.SetFromString(s)
	if err != nil {
		return nil, err
	}
	l := rep.(*list.List)
	elems := list.GetElements(l)
	if len(elems)%2 != 0 {
		return nil, fmt.Errorf("nested -options dict has odd element count %d", len(elems))
	}
	out := make([]KV, 0, len(elems))
	for i := 0; i < len(elems); i += 2 {
		out = append(out, KV{Key: elems[i].(*value.Value).GetString(), Value: elems[i+1].(*value.Value)})
	}
	return out, nil
}

// ProcessReturn stores opts on ip; when code indicates error, copies any
// present errorInfo/errorStack/errorCode into ip's fields; remaps
// (RETURN, level) to (OK, level+1); when the stored level is positive the
// call returns CodeReturn so an enclosing frame observes it.
func ProcessReturn(ip *Interp, code CompletionCode, level int, opts *value.Value) CompletionCode {
	decrIfSet(ip.ReturnOpts)
	ip.ReturnOpts = incrIfSet(opts)

	if code == CodeError && opts != nil {
		if optsList, err := asList(opts); err == nil {
			elems := list.GetElements(optsList)
			for i := 0; i+1 < len(elems); i += 2 {
				k := elems[i].(*value.Value).GetString()
				v := elems[i+1].(*value.Value)
				switch k {
				case keyErrorInfo:
					decrIfSet(ip.ErrorInfo)
					ip.ErrorInfo = incrIfSet(v)
					ip.Flags |= FlagErrAlreadyLogged
				case keyErrorStack:
					decrIfSet(ip.ErrorStack)
					ip.ErrorStack = incrIfSet(v)
				case keyErrorCode:
					decrIfSet(ip.ErrorCode)
					ip.ErrorCode = incrIfSet(v)
				}
			}
		}
	}

	// `-code return` is shorthand for returning one more level up with code
	// ok: (RETURN, level) becomes (OK, level+1).
	if code == CodeReturn {
		level++
		code = CodeOK
	}

	ip.ReturnLevel = level
	ip.ReturnCode = code
	if level > 0 {
		return CodeReturn
	}
	ip.Status = code
	return code
}
