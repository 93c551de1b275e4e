// Command tclcoredemo drives a handful of end-to-end scenarios against the
// tclcore packages: HAMT persistence, Brodnik array growth, value
// copy-on-write, the return-options error path, loader refcounting, and an
// allocator stress loop.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"plugin"
	"strings"

	"github.com/tcltk/tclcore/alloc"
	"github.com/tcltk/tclcore/brodnik"
	"github.com/tcltk/tclcore/hamt"
	"github.com/tcltk/tclcore/interp"
	"github.com/tcltk/tclcore/internal/diag"
	"github.com/tcltk/tclcore/list"
	"github.com/tcltk/tclcore/loader"
	"github.com/tcltk/tclcore/value"
)

var scenario = flag.String("scenario", "all", "which scenario to run (1-6 or all)")
var verbose = flag.Bool("verbose", false, "enable verbose diagnostic tracing")

func main() {
	flag.Parse()
	diag.Verbose = *verbose

	scenarios := map[string]func() error{
		"1": scenarioHAMT,
		"2": scenarioBrodnik,
		"3": scenarioValueSharing,
		"4": scenarioReturnOptions,
		"5": scenarioLoader,
		"6": scenarioAllocatorStress,
	}

	run := func(name string) {
		fn, ok := scenarios[name]
		if !ok {
			log.Fatalf("tclcoredemo: unknown scenario %q", name)
		}
		if err := fn(); err != nil {
			log.Fatalf("scenario %s: %v", name, err)
		}
	}

	if *scenario == "all" {
		for _, name := range []string{"1", "2", "3", "4", "5", "6"} {
			run(name)
		}
		return
	}
	run(*scenario)
}

// intOps is the hamt.KeyOps[int] descriptor the demo uses, an avalanche
// mix rather than a streaming hash for a single machine word.
type intOps struct{}

func (intOps) Hash(key int) uint64 {
	h := uint64(key)
	h ^= h >> 30
	h *= 0xbf58476d1ce4e5b9
	h ^= h >> 27
	h *= 0x94d049bb133111eb
	h ^= h >> 31
	return h
}
func (intOps) Equal(a, b int) bool { return a == b }

// scenarioHAMT: insert/remove cycle with persistence across the mutation.
func scenarioHAMT() error {
	h0 := hamt.Empty[int, string](intOps{})
	h1 := h0.Insert(1, "a").Insert(17, "b").Insert(65, "c").Insert(17, "d")

	check := func(label string, got, want string, ok, wantOK bool) error {
		if ok != wantOK || (ok && got != want) {
			return fmt.Errorf("%s = (%q, %v), want (%q, %v)", label, got, ok, want, wantOK)
		}
		return nil
	}
	v1, ok1 := h1.Get(1)
	if err := check("fetch(H1,1)", v1, "a", ok1, true); err != nil {
		return err
	}
	v17, ok17 := h1.Get(17)
	if err := check("fetch(H1,17)", v17, "d", ok17, true); err != nil {
		return err
	}
	v65, ok65 := h1.Get(65)
	if err := check("fetch(H1,65)", v65, "c", ok65, true); err != nil {
		return err
	}

	if h1.Len() != 3 {
		return fmt.Errorf("size(H1) = %d, want 3", h1.Len())
	}

	h2 := h1.Remove(17)
	if _, ok := h2.Get(17); ok {
		return fmt.Errorf("fetch(H2,17) should be absent after Remove")
	}
	if h2.Len() != 2 {
		return fmt.Errorf("size(H2) = %d, want 2", h2.Len())
	}
	// Persistence: H1 is untouched by H2's removal.
	v17Again, ok17Again := h1.Get(17)
	if err := check("fetch(H1,17) after Remove(H2)", v17Again, "d", ok17Again, true); err != nil {
		return err
	}
	diag.Tracef("HAMT scenario OK: H1={1:a 17:d 65:c}, H2 lacks 17, H1 persists\n")
	return nil
}

// scenarioBrodnik: append/detach ordering over a thousand elements.
func scenarioBrodnik() error {
	a := brodnik.New()
	for i := 0; i < 1000; i++ {
		a.Append(i)
	}
	v, ok := a.At(500)
	if !ok || v.(int) != 500 {
		return fmt.Errorf("At(500) = %v, %v; want 500, true", v, ok)
	}
	if a.Len() != 1000 {
		return fmt.Errorf("Len() = %d, want 1000", a.Len())
	}
	for a.Len() > 0 {
		want := a.Len() - 1
		got := a.Pop()
		if got.(int) != want {
			return fmt.Errorf("Pop() = %v, want %d", got, want)
		}
	}
	diag.Tracef("Brodnik scenario OK: appended/detached 1000 elements in order\n")
	return nil
}

// scenarioValueSharing: mutating a shared value must copy, not clobber.
func scenarioValueSharing() error {
	v := value.NewObj()
	l := list.New()
	list.Incr(l)
	l = list.AppendElement(l, value.Incr(value.NewFromString("1")))
	l = list.AppendElement(l, value.Incr(value.NewFromString("2")))
	l = list.AppendElement(l, value.Incr(value.NewFromString("3")))
	v.SetInternalRep(value.ListType, l)
	value.Incr(v) // refcount 1

	value.Incr(v) // refcount 2: shared
	if !value.IsShared(v) {
		return fmt.Errorf("v should be shared after a second Incr")
	}

	// Appending to a shared Value must copy-on-write: the caller gets a
	// private handle back without disturbing the original's observed list.
	priv := value.EnsurePrivate(v)
	_, privRep := priv.InternalRep()
	privList := list.AppendElement(privRep.(*list.List), value.Incr(value.NewFromString("4")))
	priv.SetInternalRep(value.ListType, privList)

	_, origRep := v.InternalRep()
	origLen := list.Length(origRep.(*list.List))
	if origLen != 3 {
		return fmt.Errorf("original list length = %d, want 3 (unaffected by the private mutation)", origLen)
	}
	newLen := list.Length(privList)
	if newLen != 4 {
		return fmt.Errorf("private list length = %d, want 4", newLen)
	}
	diag.Tracef("Value sharing scenario OK: original len=%d, new handle len=%d\n", origLen, newLen)
	return nil
}

// scenarioReturnOptions evaluates the equivalent of `return -code error
// -errorcode {SYS BADFD 9} -errorinfo "open failed" "bad file"` inside a
// catch, then inspects what the catch observed.
func scenarioReturnOptions() error {
	ip := interp.New()

	mkList := func(s string) *value.Value {
		rep, err := value.ListType.SetFromString(s)
		if err != nil {
			return nil
		}
		vv := value.NewObj()
		vv.SetInternalRep(value.ListType, rep)
		return value.Incr(vv)
	}

	code, result, opts := interp.Catch(ip, func(ip *interp.Interp) interp.CompletionCode {
		pairs := []interp.KV{
			{Key: "-code", Value: value.Incr(value.NewFromString("error"))},
			{Key: "-errorcode", Value: mkList("SYS BADFD 9")},
			{Key: "-errorinfo", Value: value.Incr(value.NewFromString("open failed"))},
		}
		c, level, merged, err := interp.MergeReturnOptions(pairs)
		if err != nil {
			interp.SetResultString(ip, err.Error())
			return interp.CodeError
		}
		interp.SetResultString(ip, "bad file")
		out := interp.ProcessReturn(ip, c, level, merged)
		value.Decr(merged)
		return out
	})
	defer value.Decr(result)
	defer value.Decr(opts)

	if code != interp.CodeError {
		return fmt.Errorf("catch observed %v, want CodeError", code)
	}
	if result.GetString() != "bad file" {
		return fmt.Errorf("result = %q, want %q", result.GetString(), "bad file")
	}
	dict := opts.GetString()
	for _, want := range []string{"-code 1", "-errorcode {SYS BADFD 9}", "-errorinfo {open failed}", "-level 0"} {
		if !contains(dict, want) {
			return fmt.Errorf("options dict %q is missing %q", dict, want)
		}
	}
	// The legacy error fields survive the catch.
	if ip.ErrorCode == nil || ip.ErrorCode.GetString() != "SYS BADFD 9" {
		return fmt.Errorf("legacy ErrorCode = %v, want SYS BADFD 9", ip.ErrorCode)
	}
	diag.Tracef("Return-options scenario OK: catch saw code=%v result=%q opts=%q\n", code, result.GetString(), dict)
	return nil
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}

// demoLibrary is a fake Handle standing in for a dlopen'd shared object,
// exercising the loader's external API (Opener/Handle) without requiring
// an actual compiled .so on disk.
type demoLibrary struct{ syms map[string]plugin.Symbol }

func (d *demoLibrary) Lookup(name string) (plugin.Symbol, error) {
	if s, ok := d.syms[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("symbol %q not found", name)
}

type demoOpener struct{ libs map[string]*demoLibrary }

func (o *demoOpener) Open(fileName string) (loader.Handle, error) {
	if h, ok := o.libs[fileName]; ok {
		return h, nil
	}
	return nil, os.ErrNotExist
}

// scenarioLoader exercises load/unload reference counting against a
// demoOpener rather than a real shared object, since there is no compiled
// plugin available to the demo at run time.
func scenarioLoader() error {
	op := &demoOpener{libs: map[string]*demoLibrary{
		"demo.so": {syms: map[string]plugin.Symbol{
			"Demo_Init":       func(ip *interp.Interp) error { return nil },
			"Demo_SafeInit":   func(ip *interp.Interp) error { return nil },
			"Demo_Unload":     func(ip *interp.Interp, lastBinding bool) error { return nil },
			"Demo_SafeUnload": func(ip *interp.Interp, lastBinding bool) error { return nil },
		}},
	}}
	l := loader.NewWithOpener(op)
	a, b := interp.New(), interp.New()

	if err := l.Load(a, "demo.so", loader.LoadOptions{Prefix: "Demo"}); err != nil {
		return fmt.Errorf("load into trusted interp A: %w", err)
	}
	if err := l.Load(b, "demo.so", loader.LoadOptions{Prefix: "Demo", Safe: true}); err != nil {
		return fmt.Errorf("load into safe interp B: %w", err)
	}

	if err := l.Unload(a, "demo.so", loader.UnloadOptions{}); err != nil {
		return fmt.Errorf("unload from A: %w", err)
	}
	if err := l.Unload(b, "demo.so", loader.UnloadOptions{Safe: true}); err != nil {
		return fmt.Errorf("unload from B: %w", err)
	}
	if err := l.Unload(a, "demo.so", loader.UnloadOptions{}); err == nil {
		return fmt.Errorf("re-unload from A should have reported \"never loaded\"")
	}
	diag.Tracef("Loader scenario OK: load/unload reference counting across trusted and safe interps\n")
	return nil
}

// scenarioAllocatorStress interleaves allocations across eight bucket
// sizes and frees them in reverse order.
func scenarioAllocatorStress() error {
	a := alloc.New()
	sizes := []int{8, 24, 48, 100, 200, 400, 1000, 2000}
	const perSize = 10000

	var blocks [][]byte
	for round := 0; round < perSize; round++ {
		for _, sz := range sizes {
			blocks = append(blocks, a.Malloc(sz))
		}
	}
	for i := len(blocks) - 1; i >= 0; i-- {
		a.Free(blocks[i])
	}

	stats := a.GetStats()
	diag.Tracef("Allocator stress scenario OK: freed %d blocks, final %s\n", len(blocks), stats.String())
	return nil
}
