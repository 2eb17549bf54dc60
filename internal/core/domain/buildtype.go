package domain

import "go.trai.ch/zerr"

// BuildType selects the optimization/debug profile for an entire invocation.
type BuildType string

const (
	BuildDebug     BuildType = "debug"
	BuildOptimized BuildType = "optimized"
	BuildRelease   BuildType = "release"
)

// ParseBuildType maps a user string to a BuildType.
func ParseBuildType(s string) (BuildType, error) {
	switch BuildType(s) {
	case BuildDebug, BuildOptimized, BuildRelease:
		return BuildType(s), nil
	}
	return "", zerr.With(ErrUnknownBuildType, "build_type", s)
}

// LinkType selects static or dynamic linkage for an entire invocation.
type LinkType string

const (
	LinkStatic  LinkType = "static"
	LinkDynamic LinkType = "dynamic"
)

// ParseLinkType maps a user string to a LinkType.
func ParseLinkType(s string) (LinkType, error) {
	switch LinkType(s) {
	case LinkStatic, LinkDynamic:
		return LinkType(s), nil
	}
	return "", zerr.With(ErrUnknownLinkType, "link_type", s)
}

// Language identifies the source language of a compilable input, and the
// driver used to link a library or executable.
type Language string

const (
	LangC   Language = "c"
	LangCXX Language = "cxx"
	LangAsm Language = "asm"
)

// LanguageForSource classifies a source file by its suffix. The boolean is
// false for files that are not compilable (headers, scripts).
func LanguageForSource(path string) (Language, bool) {
	switch {
	case hasSuffix(path, ".c"):
		return LangC, true
	case hasSuffix(path, ".C"), hasSuffix(path, ".cc"), hasSuffix(path, ".cpp"), hasSuffix(path, ".cxx"):
		return LangCXX, true
	case hasSuffix(path, ".s"), hasSuffix(path, ".S"):
		return LangAsm, true
	}
	return "", false
}

// RunsPreprocessor reports whether discovery should run the preprocessor for
// the given source. Lowercase .s assembler sources are taken as already
// preprocessed; uppercase .S goes through cpp like C sources.
func RunsPreprocessor(path string) bool {
	if hasSuffix(path, ".s") {
		return false
	}
	lang, ok := LanguageForSource(path)
	return ok && (lang == LangC || lang == LangCXX || hasSuffix(path, ".S"))
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
