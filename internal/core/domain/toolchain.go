package domain

import "strings"

// Toolchain is the result of probing the host: driver paths, the compiler's
// system include search path, and machine facts the build needs.
type Toolchain struct {
	CCPath  string
	CXXPath string
	ARPath  string

	// CCVersion is the probed driver version. It is recorded at probe time
	// only: nothing logs it, and it is not part of cache-record equality.
	CCVersion string

	// SystemIncludeDirs is the driver's #include <...> search path. Headers
	// under these directories are excluded from dependency edges.
	SystemIncludeDirs []string

	Cores     int
	BigEndian bool
}

// Driver returns the link/compile driver path for a language.
func (tc *Toolchain) Driver(lang Language) string {
	if lang == LangCXX {
		return tc.CXXPath
	}
	return tc.CCPath
}

// IsSystemHeader reports whether path lives under the probed system include
// search path.
func (tc *Toolchain) IsSystemHeader(path string) bool {
	for _, dir := range tc.SystemIncludeDirs {
		if dir == "" {
			continue
		}
		if strings.HasPrefix(path, strings.TrimSuffix(dir, "/")+"/") {
			return true
		}
	}
	return false
}
