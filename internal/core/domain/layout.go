package domain

import (
	"path/filepath"
	"regexp"

	"go.trai.ch/zerr"
)

var versionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+(\.[0-9]+)?$`)

// ValidateVersion checks the X.Y[.Z] form of a shared-library version
// string. The empty string means unversioned and is accepted.
func ValidateVersion(v string) error {
	if v == "" || versionPattern.MatchString(v) {
		return nil
	}
	return zerr.With(zerr.New("version must be X.Y or X.Y.Z"), "version", v)
}

// Layout computes output paths under the output root. Artifacts are
// suffixed with the build type, and libraries additionally encode the link
// type, so debug/optimized/release and static/dynamic outputs coexist in
// one output root.
type Layout struct {
	SrcRoot string
	ObjRoot string
	Build   BuildType
	Link    LinkType

	// Version is the invocation's X.Y[.Z] string, embedded in the file name
	// of version-bearing shared libraries.
	Version string
}

// ObjectPath returns the output path for an object compiled from a source
// base name ("planet" -> <obj>/planet_debug.o).
func (l Layout) ObjectPath(base string) string {
	return filepath.Join(l.ObjRoot, base+"_"+string(l.Build)+".o")
}

// LibraryPath returns the output path for a library name.
func (l Layout) LibraryPath(name string) string {
	file := "lib" + l.LibraryLinkName(name)
	if l.Link == LinkStatic {
		return filepath.Join(l.ObjRoot, file+".a")
	}
	file += ".so"
	if l.Version != "" {
		file += "." + l.Version
	}
	return filepath.Join(l.ObjRoot, file)
}

// LibraryLinkName returns the name used with -l for a declared library.
func (l Layout) LibraryLinkName(name string) string {
	return name + "_" + string(l.Build)
}

// ExecutablePath returns the output path for an executable name.
func (l Layout) ExecutablePath(name string) string {
	return filepath.Join(l.ObjRoot, name+"_"+string(l.Build))
}

// GeneratedPath returns the output path for a generated source file name.
func (l Layout) GeneratedPath(name string) string {
	return filepath.Join(l.ObjRoot, name)
}

// StoreFile returns the cache file name for the invocation's link and build
// types.
func (l Layout) StoreFile() string {
	return filepath.Join(l.ObjRoot, string(l.Link)+"_"+string(l.Build)+".db")
}
