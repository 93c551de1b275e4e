package interp

import (
	"strconv"

	"github.com/tcltk/tclcore/value"
)

// SetResult installs v as ip's result value, dropping the previous
// result's reference.
func SetResult(ip *Interp, v *value.Value) {
	old := ip.ObjResult
	ip.ObjResult = incrIfSet(v)
	decrIfSet(old)
}

// SetResultString installs a fresh string value as ip's result.
func SetResultString(ip *Interp, s string) {
	SetResult(ip, value.NewFromString(s))
}

// GetResult returns ip's current result value without adding a reference;
// callers that keep it past the next interp operation must Incr it.
func GetResult(ip *Interp) *value.Value {
	return ip.ObjResult
}

// ResetResult clears the result and every piece of pending completion
// state: status, return level/code, return options, and the error fields.
// The error stack survives unless ResetErrorStack was set, so an
// innermost-error trace accumulated across a rethrow is not lost.
func ResetResult(ip *Interp) {
	SetResult(ip, value.NewObj())
	ip.Status = CodeOK
	ip.Flags &^= FlagErrAlreadyLogged
	ip.ReturnLevel = 0
	ip.ReturnCode = CodeOK
	ip.ErrorLine = 0
	decrIfSet(ip.ReturnOpts)
	ip.ReturnOpts = nil
	decrIfSet(ip.ErrorInfo)
	ip.ErrorInfo = nil
	decrIfSet(ip.ErrorCode)
	ip.ErrorCode = nil
	if ip.ResetErrorStack {
		decrIfSet(ip.ErrorStack)
		ip.ErrorStack = nil
		ip.ResetErrorStack = false
	}
}

// SetErrorCode installs v (a list value) as ip's structured error code.
func SetErrorCode(ip *Interp, v *value.Value) {
	decrIfSet(ip.ErrorCode)
	ip.ErrorCode = incrIfSet(v)
}

// AppendErrorInfo appends msg to ip's error trace. The first logging
// operation after an error seeds the trace from the current result string
// and defaults the error code to NONE, so an error that was never
// explicitly logged still surfaces with both fields populated.
func AppendErrorInfo(ip *Interp, msg string) {
	if ip.Flags&FlagErrAlreadyLogged == 0 {
		if ip.ErrorCode == nil {
			ip.ErrorCode = value.Incr(value.NewFromString("NONE"))
		}
		if ip.ResetErrorStack {
			decrIfSet(ip.ErrorStack)
			ip.ErrorStack = nil
			ip.ResetErrorStack = false
		}
		if ip.ErrorInfo == nil {
			seed := ""
			if ip.ObjResult != nil {
				seed = ip.ObjResult.GetString()
			}
			ip.ErrorInfo = value.Incr(value.NewFromString(seed))
		}
		ip.Flags |= FlagErrAlreadyLogged
	}
	if msg == "" {
		return
	}
	cur := ""
	if ip.ErrorInfo != nil {
		cur = ip.ErrorInfo.GetString()
	}
	next := value.Incr(value.NewFromString(cur + msg))
	decrIfSet(ip.ErrorInfo)
	ip.ErrorInfo = next
}

// GetReturnOptions assembles the return-options dictionary describing
// ip's current completion state for code; an error produces at minimum
// -code, -errorcode, -errorinfo, and -level entries. The returned value
// carries one reference owned by the caller.
func GetReturnOptions(ip *Interp, code CompletionCode) *value.Value {
	merged := map[string]*value.Value{}
	if ip.ReturnOpts != nil {
		if pairs, err := parseOptionsDict(ip.ReturnOpts.GetString()); err == nil {
			for _, p := range pairs {
				merged[p.Key] = p.Value
			}
		}
	}

	if code == CodeReturn {
		merged[keyCode] = value.NewFromString(strconv.Itoa(int(ip.ReturnCode)))
		merged[keyLevel] = value.NewFromString(strconv.Itoa(ip.ReturnLevel))
	} else {
		merged[keyCode] = value.NewFromString(strconv.Itoa(int(code)))
		merged[keyLevel] = value.NewFromString("0")
	}

	if code == CodeError {
		if merged[keyErrorCode] == nil {
			if ip.ErrorCode != nil {
				merged[keyErrorCode] = ip.ErrorCode
			} else {
				merged[keyErrorCode] = value.NewFromString("NONE")
			}
		}
		if merged[keyErrorInfo] == nil {
			if ip.ErrorInfo != nil {
				merged[keyErrorInfo] = ip.ErrorInfo
			} else {
				merged[keyErrorInfo] = value.NewFromString("")
			}
		}
		if merged[keyErrorLine] == nil {
			merged[keyErrorLine] = value.NewFromString(strconv.Itoa(ip.ErrorLine))
		}
		if merged[keyErrorStack] == nil && ip.ErrorStack != nil {
			merged[keyErrorStack] = ip.ErrorStack
		}
	}

	out := value.NewObj()
	out.SetInternalRep(value.ListType, buildOptionsList(merged))
	return value.Incr(out)
}

// SetReturnOptions parses opts as a return-options dictionary and applies
// it to ip through the merge/process state machine. The resulting
// completion code is stored on ip rather than returned; a malformed
// dictionary yields a tagged OptionsError.
func SetReturnOptions(ip *Interp, opts *value.Value) error {
	pairs, err := parseOptionsDict(opts.GetString())
	if err != nil {
		return optErr(TagIllegalOptions, "%v", err)
	}
	code, level, merged, err := MergeReturnOptions(pairs)
	if err != nil {
		return err
	}
	ProcessReturn(ip, code, level, merged)
	value.Decr(merged)
	return nil
}

// TransferResult moves src's completion state onto dst: the common
// success-with-no-return-options case just moves the result; otherwise
// src's return options are installed on dst and the result is copied
// across, with the error trace logged on src first so it travels inside
// the options.
func TransferResult(src *Interp, code CompletionCode, dst *Interp) {
	if src == dst {
		return
	}
	if code == CodeOK && src.ReturnOpts == nil && src.Flags&FlagErrAlreadyLogged == 0 {
		SetResult(dst, GetResult(src))
		ResetResult(src)
		return
	}

	if code == CodeError {
		AppendErrorInfo(src, "")
	}
	opts := GetReturnOptions(src, code)
	if err := SetReturnOptions(dst, opts); err != nil {
		// The options came from GetReturnOptions, so they are well formed;
		// a failure here means src held a corrupt ReturnOpts value. Surface
		// the failure as dst's error rather than dropping it.
		SetResultString(dst, err.Error())
		dst.Status = CodeError
	}
	value.Decr(opts)
	SetResult(dst, GetResult(src))
	if code == CodeError {
		dst.Flags |= FlagErrAlreadyLogged
	}
	ResetResult(src)
}

// Catch runs body against ip the way a catching construct does: ip's
// state is snapshotted before the body, the body's completion code,
// result, and return options are captured after it, and the snapshot is
// restored. When the body completes with CodeError, the legacy
// errorInfo/errorCode fields are the exception: they keep whatever the body
// traced, matching the historical behavior where the error variables stay
// visible after a catch. For any other code they are restored along with
// everything else. The returned result and
// opts each carry one caller-owned reference.
func Catch(ip *Interp, body func(*Interp) CompletionCode) (code CompletionCode, result *value.Value, opts *value.Value) {
	saved := Save(ip, ip.Status)
	code = body(ip)
	result = value.Incr(GetResult(ip))
	opts = GetReturnOptions(ip, code)

	legacyInfo := incrIfSet(ip.ErrorInfo)
	legacyCode := incrIfSet(ip.ErrorCode)

	Restore(saved, ip)

	if code == CodeError {
		if legacyInfo != nil {
			decrIfSet(ip.ErrorInfo)
			ip.ErrorInfo = legacyInfo
		}
		if legacyCode != nil {
			decrIfSet(ip.ErrorCode)
			ip.ErrorCode = legacyCode
		}
	} else {
		decrIfSet(legacyInfo)
		decrIfSet(legacyCode)
	}
	return code, result, opts
}
