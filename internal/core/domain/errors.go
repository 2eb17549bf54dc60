package domain

import "go.trai.ch/zerr"

var (
	// ErrUnknownBuildType is returned for a build type outside {debug, optimized, release}.
	ErrUnknownBuildType = zerr.New("unknown build type")

	// ErrUnknownLinkType is returned for a link type outside {static, dynamic}.
	ErrUnknownLinkType = zerr.New("unknown link type")

	// ErrUnknownOption is returned when a token matches no parse rule for its
	// processor kind.
	ErrUnknownOption = zerr.New("unknown option")

	// ErrOptionParam is returned when an option parameter is missing, present
	// where forbidden, or outside its allow-list.
	ErrOptionParam = zerr.New("invalid option parameter")

	// ErrOptionBuildType is returned when an option is incompatible with the
	// invocation's build type.
	ErrOptionBuildType = zerr.New("option conflicts with build type")

	// ErrOptionConflict is returned when adding an option that conflicts with
	// one already in the set and replacement was not requested.
	ErrOptionConflict = zerr.New("conflicting option")

	// ErrDuplicateOption is returned when adding an exact duplicate of an
	// option already in the set and replacement was not requested.
	ErrDuplicateOption = zerr.New("duplicate option")

	// ErrTargetExists is returned when two targets resolve to the same output path.
	ErrTargetExists = zerr.New("target output path already in use")

	// ErrTargetNotFound is returned when a named target cannot be resolved.
	ErrTargetNotFound = zerr.New("target not found")

	// ErrCycleDetected is returned when the dependency graph has a cycle that
	// the linker's multi-pass semantics cannot absorb.
	ErrCycleDetected = zerr.New("dependency cycle detected")

	// ErrSourceNotFound is returned when a declared file resolves to no path
	// under the include roots.
	ErrSourceNotFound = zerr.New("source file not found")

	// ErrExecutableDependency is returned when something declares a dependency
	// on an executable target.
	ErrExecutableDependency = zerr.New("executables cannot be depended on")

	// ErrCorruptRecord is returned when a cache record fails to decode.
	ErrCorruptRecord = zerr.New("corrupt cache record")

	// ErrNoTargets is returned when a build is requested with an empty target list.
	ErrNoTargets = zerr.New("no targets to build")

	// ErrBuildFailed is the terminal error for a failed subprocess.
	ErrBuildFailed = zerr.New("build command failed")

	// ErrProbeFailed is returned when the host probe cannot find or
	// interrogate a tool.
	ErrProbeFailed = zerr.New("host probe failed")

	// ErrDiscoveryFailed is returned when the preprocessor cannot enumerate
	// a source's headers.
	ErrDiscoveryFailed = zerr.New("dependency discovery failed")
)
