// Package interp implements the interpreter's evaluation state: its
// save/restore/discard snapshotting, the return-options merge / classify /
// surface state machine, result transfer between interps, and a catch
// construct built on top of save/restore.
package interp

import (
	"fmt"

	"github.com/tcltk/tclcore/value"
)

// CompletionCode is the numeric completion code every evaluation returns:
// OK (0), ERROR (1), RETURN (2), BREAK (3), CONTINUE (4), and
// application-defined higher codes.
type CompletionCode int

const (
	CodeOK CompletionCode = iota
	CodeError
	CodeReturn
	CodeBreak
	CodeContinue
)

func (c CompletionCode) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeError:
		return "error"
	case CodeReturn:
		return "return"
	case CodeBreak:
		return "break"
	case CodeContinue:
		return "continue"
	default:
		return fmt.Sprintf("code%d", int(c))
	}
}

// Flags is the interp's status flag bitset.
type Flags int

const (
	FlagErrAlreadyLogged Flags = 1 << iota
	FlagLegacyCopy
)

// Interp is one interpreter's evaluation state.
type Interp struct {
	Status          CompletionCode
	Flags           Flags
	ReturnLevel     int
	ReturnCode      CompletionCode
	ErrorInfo       *value.Value
	ErrorCode       *value.Value
	ErrorStack      *value.Value
	ReturnOpts      *value.Value
	ObjResult       *value.Value
	ResetErrorStack bool
	ErrorLine       int
}

// New returns a fresh interp in the OK state with an empty result.
func New() *Interp {
	return &Interp{Status: CodeOK, ObjResult: value.Incr(value.NewObj())}
}

// incrIfSet bumps v's refcount if non-nil, returning v.
func incrIfSet(v *value.Value) *value.Value {
	if v == nil {
		return nil
	}
	return value.Incr(v)
}

func decrIfSet(v *value.Value) {
	if v != nil {
		value.Decr(v)
	}
}

// State is the heap snapshot produced by Save.
type State struct {
	status          CompletionCode
	flags           Flags
	returnLevel     int
	returnCode      CompletionCode
	errorInfo       *value.Value
	errorCode       *value.Value
	errorStack      *value.Value
	returnOpts      *value.Value
	objResult       *value.Value
	resetErrorStack bool
	errorLine       int
}

// Save snapshots ip's fields, overriding Status with status, incrementing
// the refcount on every held value.
func Save(ip *Interp, status CompletionCode) *State {
	return &State{
		status:          status,
		flags:           ip.Flags,
		returnLevel:     ip.ReturnLevel,
		returnCode:      ip.ReturnCode,
		errorInfo:       incrIfSet(ip.ErrorInfo),
		errorCode:       incrIfSet(ip.ErrorCode),
		errorStack:      incrIfSet(ip.ErrorStack),
		returnOpts:      incrIfSet(ip.ReturnOpts),
		objResult:       incrIfSet(ip.ObjResult),
		resetErrorStack: ip.ResetErrorStack,
		errorLine:       ip.ErrorLine,
	}
}

// Restore writes s's fields back onto ip atomically (from the caller's
// perspective — no intervening code observes a half-updated Interp),
// adjusting refcounts: ip's previous values are dropped and s's
// incremented references are kept. After Restore, s must not be used
// again.
func Restore(s *State, ip *Interp) {
	decrIfSet(ip.ErrorInfo)
	decrIfSet(ip.ErrorCode)
	decrIfSet(ip.ErrorStack)
	decrIfSet(ip.ReturnOpts)
	decrIfSet(ip.ObjResult)

	ip.Status = s.status
	ip.Flags = s.flags
	ip.ReturnLevel = s.returnLevel
	ip.ReturnCode = s.returnCode
	ip.ErrorInfo = s.errorInfo
	ip.ErrorCode = s.errorCode
	ip.ErrorStack = s.errorStack
	ip.ReturnOpts = s.returnOpts
	ip.ObjResult = s.objResult
	ip.ResetErrorStack = s.resetErrorStack
	ip.ErrorLine = s.errorLine
}

// Discard frees the record without touching ip.
func Discard(s *State) {
	decrIfSet(s.errorInfo)
	decrIfSet(s.errorCode)
	decrIfSet(s.errorStack)
	decrIfSet(s.returnOpts)
	decrIfSet(s.objResult)
}
