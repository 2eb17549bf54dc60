package fs

import (
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

// Resolver finds declared source files under the source root. A file name
// is searched through the bundle's include directories in order; exclude
// directories are pruned. The first hit wins.
type Resolver struct {
	SrcRoot string
}

// NewResolver creates a Resolver rooted at srcRoot.
func NewResolver(srcRoot string) *Resolver {
	return &Resolver{SrcRoot: srcRoot}
}

// ResolveSource locates name under the include list. Names may carry an
// extension; when they do not, the compilable suffixes are tried in a fixed
// order.
func (r *Resolver) ResolveSource(name string, include, exclude []string) (string, error) {
	candidates := []string{name}
	if filepath.Ext(name) == "" {
		candidates = nil
		for _, ext := range []string{".c", ".C", ".cc", ".cpp", ".cxx", ".s", ".S"} {
			candidates = append(candidates, name+ext)
		}
	}

	dirs := include
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	for _, dir := range dirs {
		if excluded(dir, exclude) {
			continue
		}
		for _, candidate := range candidates {
			path := filepath.Join(r.SrcRoot, dir, candidate)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return filepath.Clean(path), nil
			}
		}
	}
	return "", zerr.With(domain.ErrSourceNotFound, "file", name)
}

// excluded reports whether dir equals or lies under an exclude entry.
func excluded(dir string, exclude []string) bool {
	for _, ex := range exclude {
		if dir == ex || strings.HasPrefix(dir, strings.TrimSuffix(ex, "/")+"/") {
			return true
		}
	}
	return false
}
