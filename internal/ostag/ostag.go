// Package ostag maps the small set of loader-relevant OS/dynamic-linker
// failure shapes onto stable error-code tags, rather than surfacing raw OS
// error text to script-level callers.
package ostag

import (
	"errors"
	"os"
)

// Tag is one of the loader's stable error-code tags.
type Tag string

const (
	NoLibrary        Tag = "NOLIBRARY"
	SplitPersonality Tag = "SPLITPERSONALITY"
	NotStatic        Tag = "NOTSTATIC"
	WhatLibrary      Tag = "WHATLIBRARY"
	Unsafe           Tag = "UNSAFE"
	Entrypoint       Tag = "ENTRYPOINT"
	NeverLoaded      Tag = "NEVERLOADED"
	Static           Tag = "STATIC"
	Cannot           Tag = "CANNOT"
	Disabled         Tag = "DISABLED"
)

// FromOpenError classifies a dlopen-equivalent failure. Go has no portable
// dlopen; the loader package's Opener abstraction returns plain errors from
// whatever native mechanism backs it (plugin.Open on platforms that support
// it, or a stub on platforms that don't), and this function decides which
// tag a caller should report for one.
func FromOpenError(err error) Tag {
	if errors.Is(err, os.ErrNotExist) {
		return NoLibrary
	}
	return Cannot
}
