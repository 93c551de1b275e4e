// Package loader implements the dynamic library loader: it mediates
// between the host dynamic linker and the interpreter's package registry,
// resolving init/safe-init/unload/safe-unload entrypoints and
// reference-counting a loaded library per interp. Go's own dynamic-loading
// primitive, plugin.Open, backs the default Opener; internal/ostag
// supplies the stable error-code tags; and singleflight collapses racing
// loads of the same file path into one open+init sequence.
package loader

import (
	"fmt"
	"plugin"
	"runtime"
	"strconv"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/anacrolix/sync"
	"golang.org/x/sync/singleflight"

	"github.com/tcltk/tclcore/internal/ostag"
	"github.com/tcltk/tclcore/interp"
)

// InitFunc is a library's init/safe-init entrypoint: `<Prefix>_Init` or
// `<Prefix>_SafeInit`, invoked against the target interp.
type InitFunc func(ip *interp.Interp) error

// UnloadFunc is a library's unload/safe-unload entrypoint. lastBinding
// reports whether this is the final binding across every interp, so the
// library can distinguish "detach from this interp" from "detach from the
// process".
type UnloadFunc func(ip *interp.Interp, lastBinding bool) error

// Opener abstracts the native dynamic-load mechanism. The default,
// PluginOpener, wraps Go's plugin package; tests substitute a fake that
// never touches the filesystem.
type Opener interface {
	Open(fileName string) (Handle, error)
}

// Handle is an opened native module, narrowed to the one operation the
// loader needs: symbol lookup.
type Handle interface {
	Lookup(symName string) (plugin.Symbol, error)
}

// PluginOpener is the real Opener, backed by Go's plugin package. Plugin
// support requires cgo and is Linux/Darwin-only; on unsupported platforms
// Open returns plugin.Open's error unchanged, and Load tags it CANNOT via
// ostag.FromOpenError like any other open failure.
type PluginOpener struct{}

func (PluginOpener) Open(fileName string) (Handle, error) {
	p, err := plugin.Open(fileName)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Record is a process-wide loaded-library entry. Static libraries
// (registered via StaticLibrary) carry an empty FileName and nil handle.
type Record struct {
	FileName string
	Prefix   string
	handle   Handle

	init       InitFunc
	safeInit   InitFunc
	unload     UnloadFunc
	safeUnload UnloadFunc

	trustedRefs int
	safeRefs    int
}

// binding is a per-interp node: which record, and whether this interp's
// attachment is "safe" (restricted) or trusted.
type binding struct {
	rec  *Record
	safe bool
}

// Loader is the process-wide loader state: the list of loaded-library
// records and, per interp, the list of bindings. Interps are identified by
// pointer.
type Loader struct {
	mu    sync.Mutex
	opener Opener
	recs  []*Record

	bindings map[*interp.Interp][]*binding

	prefixCache *lru.Cache[string, string]
	group       singleflight.Group

	// KeepLibrary disables final-unload record removal when set, the
	// `-keeplibrary` unload flag as a loader-wide default; per-call Unload
	// still accepts its own KeepLibrary option.
	KeepLibrary bool

	// DisableUnload makes every Unload fail with the DISABLED tag, for
	// hosts whose native loader cannot safely detach code from the process.
	DisableUnload bool
}

// New returns a Loader using the real plugin-based Opener and a
// 256-entry prefix-guess cache.
func New() *Loader {
	return NewWithOpener(PluginOpener{})
}

// NewWithOpener returns a Loader using a caller-supplied Opener, for tests.
func NewWithOpener(o Opener) *Loader {
	cache, _ := lru.New[string, string](256)
	return &Loader{
		opener:      o,
		bindings:    make(map[*interp.Interp][]*binding),
		prefixCache: cache,
	}
}

// knownPrefixStrip lists the conventional shared-library basename prefixes
// the guessing heuristic strips.
var knownPrefixStrip = []string{"lib", "cyg", "tcl"}

// GuessPrefix derives a library's init-entrypoint prefix from its file
// basename: strip a conventional prefix and any trailing version digits,
// keep the leading alphabetic run, and capitalize the initial letter.
// Results are cached per basename.
func (l *Loader) GuessPrefix(fileName string) string {
	base := baseNameNoExt(fileName)
	if l.prefixCache != nil {
		if v, ok := l.prefixCache.Get(base); ok {
			return v
		}
	}
	p := guessPrefix(base)
	if l.prefixCache != nil {
		l.prefixCache.Add(base, p)
	}
	return p
}

func baseNameNoExt(fileName string) string {
	s := fileName
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	for _, ext := range []string{".so", ".dylib", ".dll"} {
		s = strings.TrimSuffix(s, ext)
	}
	return s
}

func guessPrefix(base string) string {
	s := base
	for _, p := range knownPrefixStrip {
		if strings.HasPrefix(s, p) {
			s = s[len(p):]
			break
		}
	}
	// Keep the leading alphabetic run only — drop trailing version digits
	// and any suffix after the first non-letter.
	end := 0
	for end < len(s) && unicode.IsLetter(rune(s[end])) {
		end++
	}
	s = s[:end]
	if s == "" {
		return ""
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// findByFile returns the record registered for fileName, if any. Caller
// must hold l.mu.
func (l *Loader) findByFile(fileName string) *Record {
	for _, r := range l.recs {
		if r.FileName == fileName {
			return r
		}
	}
	return nil
}

// findStaticByPrefix returns the static (file-less) record registered under
// prefix, if any. Caller must hold l.mu.
func (l *Loader) findStaticByPrefix(prefix string) *Record {
	for _, r := range l.recs {
		if r.FileName == "" && r.Prefix == prefix {
			return r
		}
	}
	return nil
}

// LoadOptions configures a Load call. Safe selects whether the target
// interp is a restricted (safe) interpreter, which may only run a
// library's SafeInit entrypoint. Global and Lazy mirror the
// script-level `load ?-global? ?-lazy?` flags. Load does not pass them to
// the Opener, whose Open takes only a file name, so they have no effect on
// how a library is opened.
type LoadOptions struct {
	Prefix string
	Safe   bool
	Global bool
	Lazy   bool
}

// Load resolves the file, finds or creates its Record, opens it and
// resolves entrypoints, invokes the appropriate init against ip, and on
// success binds the record to ip. An empty fileName requests a statically
// registered library by prefix instead of a file.
func (l *Loader) Load(ip *interp.Interp, fileName string, opts LoadOptions) error {
	var rec *Record
	var err error
	if fileName == "" {
		if opts.Prefix == "" {
			return fmt.Errorf("%s: must specify either a file name or a prefix", ostag.WhatLibrary)
		}
		l.mu.Lock()
		rec = l.findStaticByPrefix(opts.Prefix)
		l.mu.Unlock()
		if rec == nil {
			return fmt.Errorf("%s: no library with prefix %q is loaded statically", ostag.NotStatic, opts.Prefix)
		}
	} else {
		rec, err = l.resolveRecord(fileName, opts)
	}
	if err != nil {
		return err
	}

	// Already bound to this interp: init ran once, the refcount is counted
	// once, there is nothing more to do.
	l.mu.Lock()
	for _, b := range l.bindings[ip] {
		if b.rec == rec && b.safe == opts.Safe {
			l.mu.Unlock()
			return nil
		}
	}
	l.mu.Unlock()

	if err := l.runInit(ip, rec, opts.Safe); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if opts.Safe {
		rec.safeRefs++
	} else {
		rec.trustedRefs++
	}
	l.bindings[ip] = append(l.bindings[ip], &binding{rec: rec, safe: opts.Safe})
	return nil
}

// resolveRecord finds or opens the record for fileName, checking for a
// mismatched-prefix SPLITPERSONALITY and collapsing concurrent loads of
// the same file via singleflight.
func (l *Loader) resolveRecord(fileName string, opts LoadOptions) (*Record, error) {
	v, err, _ := l.group.Do(fileName, func() (any, error) {
		l.mu.Lock()
		existing := l.findByFile(fileName)
		l.mu.Unlock()

		prefix := opts.Prefix
		if prefix == "" {
			prefix = l.GuessPrefix(fileName)
		}

		if existing != nil {
			if existing.Prefix != prefix {
				return nil, fmt.Errorf("%s: file %q already loaded with prefix %q, requested %q", ostag.SplitPersonality, fileName, existing.Prefix, prefix)
			}
			return existing, nil
		}

		h, openErr := l.opener.Open(fileName)
		if openErr != nil {
			tag := ostag.FromOpenError(openErr)
			return nil, fmt.Errorf("%s: %w", tag, openErr)
		}

		rec := &Record{FileName: fileName, Prefix: prefix, handle: h}
		rec.init = lookupInit(h, prefix+"_Init")
		rec.safeInit = lookupInit(h, prefix+"_SafeInit")
		rec.unload = lookupUnload(h, prefix+"_Unload")
		rec.safeUnload = lookupUnload(h, prefix+"_SafeUnload")

		l.mu.Lock()
		l.recs = append(l.recs, rec)
		l.mu.Unlock()
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Record), nil
}

func lookupInit(h Handle, symName string) InitFunc {
	sym, err := h.Lookup(symName)
	if err != nil {
		return nil
	}
	if fn, ok := sym.(func(*interp.Interp) error); ok {
		return fn
	}
	return nil
}

func lookupUnload(h Handle, symName string) UnloadFunc {
	sym, err := h.Lookup(symName)
	if err != nil {
		return nil
	}
	if fn, ok := sym.(func(*interp.Interp, bool) error); ok {
		return fn
	}
	return nil
}

// runInit dispatches to the safe or trusted init entrypoint.
// Missing-entrypoint conditions map to the ENTRYPOINT/UNSAFE tags.
func (l *Loader) runInit(ip *interp.Interp, rec *Record, safe bool) error {
	var fn InitFunc
	if safe {
		fn = rec.safeInit
		if fn == nil {
			return fmt.Errorf("%s: %s has no %s_SafeInit entrypoint", ostag.Unsafe, rec.FileName, rec.Prefix)
		}
	} else {
		fn = rec.init
		if fn == nil {
			return fmt.Errorf("%s: %s has no %s_Init entrypoint", ostag.Entrypoint, rec.FileName, rec.Prefix)
		}
	}
	return fn(ip)
}

// StaticLibrary registers a library with no backing file, using caller-
// supplied init/safe-init function values directly. If ip is non-nil the
// record is immediately bound to it as in Load; otherwise the record is
// only registered for later lookup by prefix.
func (l *Loader) StaticLibrary(ip *interp.Interp, prefix string, init, safeInit InitFunc) error {
	l.mu.Lock()
	rec := &Record{Prefix: prefix, init: init, safeInit: safeInit}
	l.recs = append(l.recs, rec)
	l.mu.Unlock()

	if ip == nil {
		return nil
	}
	if err := l.runInit(ip, rec, false); err != nil {
		return err
	}
	l.mu.Lock()
	rec.trustedRefs++
	l.bindings[ip] = append(l.bindings[ip], &binding{rec: rec, safe: false})
	l.mu.Unlock()
	return nil
}

// UnloadOptions configures an Unload call.
type UnloadOptions struct {
	Prefix      string
	Safe        bool
	KeepLibrary bool
	NoComplain  bool
}

// Unload locates the record bound to ip, invokes the matching unload
// entrypoint with lastBinding set once both refcounts are about to reach
// zero, unlinks the binding, and — if both refcounts are now zero and
// -keeplibrary was not requested — drops the record so the native handle
// can be released.
func (l *Loader) Unload(ip *interp.Interp, fileName string, opts UnloadOptions) error {
	if l.DisableUnload {
		return fmt.Errorf("%s: unloading is disabled in this process", ostag.Disabled)
	}
	l.mu.Lock()
	var rec *Record
	if fileName == "" {
		if opts.Prefix == "" {
			l.mu.Unlock()
			return fmt.Errorf("%s: must specify either a file name or a prefix", ostag.WhatLibrary)
		}
		rec = l.findStaticByPrefix(opts.Prefix)
	} else {
		rec = l.findByFile(fileName)
	}
	if rec == nil {
		l.mu.Unlock()
		if opts.NoComplain {
			return nil
		}
		return fmt.Errorf("%s: %q was never loaded", ostag.NeverLoaded, fileName)
	}
	if rec.FileName == "" {
		l.mu.Unlock()
		return fmt.Errorf("%s: library with prefix %q was loaded statically and cannot be unloaded", ostag.Static, rec.Prefix)
	}
	if opts.Prefix != "" && rec.Prefix != opts.Prefix {
		l.mu.Unlock()
		return fmt.Errorf("%s: %q has prefix %q, not %q", ostag.SplitPersonality, fileName, rec.Prefix, opts.Prefix)
	}

	binds := l.bindings[ip]
	idx := -1
	for i, b := range binds {
		if b.rec == rec && b.safe == opts.Safe {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.mu.Unlock()
		if opts.NoComplain {
			return nil
		}
		return fmt.Errorf("%s: %q is not loaded into this interp", ostag.NeverLoaded, fileName)
	}

	trustedAfter, safeAfter := rec.trustedRefs, rec.safeRefs
	if opts.Safe {
		safeAfter--
	} else {
		trustedAfter--
	}
	lastBinding := trustedAfter == 0 && safeAfter == 0
	l.mu.Unlock()

	var fn UnloadFunc
	if opts.Safe {
		fn = rec.safeUnload
	} else {
		fn = rec.unload
	}
	if fn == nil {
		return fmt.Errorf("%s: %q has no %s_Unload entrypoint, cannot unload", ostag.Cannot, fileName, rec.Prefix)
	}
	if err := fn(ip, lastBinding); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.bindings[ip] = append(binds[:idx], binds[idx+1:]...)
	if opts.Safe {
		rec.safeRefs--
	} else {
		rec.trustedRefs--
	}

	if rec.trustedRefs == 0 && rec.safeRefs == 0 && !opts.KeepLibrary && !l.KeepLibrary {
		for i, r := range l.recs {
			if r == rec {
				l.recs = append(l.recs[:i], l.recs[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Stats reports a record's current reference counts, for tests and
// diagnostics.
func (r *Record) Stats() (trustedRefs, safeRefs int) {
	return r.trustedRefs, r.safeRefs
}

// Version is the release string BuildInfo reports for the core.
const Version = "1.0.0"

// BuildInfo reports the loader's static configuration alongside the
// current record count, as a read-only string map.
func (l *Loader) BuildInfo() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return map[string]string{
		"version": Version,
		"runtime": runtime.Version(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
		"loaded":  strconv.Itoa(len(l.recs)),
	}
}
