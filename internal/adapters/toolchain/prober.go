// Package toolchain adapts the host's compiler drivers: probing their
// configuration and running the preprocessor for dependency discovery.
package toolchain

import (
	"context"
	"os/exec"
	"runtime"
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Prober = (*Prober)(nil)

// Prober interrogates the compiler drivers once per invocation.
type Prober struct {
	executor ports.Executor
}

// NewProber creates a new Prober.
func NewProber(executor ports.Executor) *Prober {
	return &Prober{executor: executor}
}

// Probe resolves the driver paths, the C driver's system include search
// path and byte order, and the host core count. Any failure aborts the
// build before a single compile runs.
func (p *Prober) Probe(ctx context.Context, ccPath, cxxPath string) (*domain.Toolchain, error) {
	cc, err := resolveTool(ccPath)
	if err != nil {
		return nil, err
	}
	cxx, err := resolveTool(cxxPath)
	if err != nil {
		return nil, err
	}
	ar, err := resolveTool("ar")
	if err != nil {
		return nil, err
	}

	version, err := p.toolVersion(ctx, cc)
	if err != nil {
		return nil, err
	}

	includes, err := p.systemIncludes(ctx, cc)
	if err != nil {
		return nil, err
	}

	bigEndian, err := p.bigEndian(ctx, cc)
	if err != nil {
		return nil, err
	}

	return &domain.Toolchain{
		CCPath:            cc,
		CXXPath:           cxx,
		ARPath:            ar,
		CCVersion:         version,
		SystemIncludeDirs: includes,
		Cores:             runtime.NumCPU(),
		BigEndian:         bigEndian,
	}, nil
}

func resolveTool(path string) (string, error) {
	if strings.ContainsRune(path, '/') {
		return path, nil
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", zerr.With(domain.ErrProbeFailed, "tool", path)
	}
	return resolved, nil
}

func (p *Prober) toolVersion(ctx context.Context, driver string) (string, error) {
	res, err := p.executor.Run(ctx, []string{driver, "--version"})
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrProbeFailed, "driver rejected --version"), "tool", driver)
	}
	line, _, _ := strings.Cut(res.Output, "\n")
	return strings.TrimSpace(line), nil
}

// systemIncludes runs the driver in verbose preprocess mode and parses the
// search list between the "#include <...> search starts here:" marker and
// "End of search list.".
func (p *Prober) systemIncludes(ctx context.Context, driver string) ([]string, error) {
	res, err := p.executor.Run(ctx, []string{driver, "-E", "-Wp,-v", "-x", "c", "/dev/null"})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrProbeFailed, "driver rejected -Wp,-v"), "tool", driver)
	}

	dirs := ParseSearchList(res.Output)
	if len(dirs) == 0 {
		return nil, zerr.With(zerr.Wrap(domain.ErrProbeFailed,
			"include search path not parseable"), "tool", driver)
	}
	return dirs, nil
}

// ParseSearchList extracts the system include directories from the
// driver's verbose preprocessor output.
func ParseSearchList(output string) []string {
	var dirs []string
	inList := false
	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.HasPrefix(line, "#include <...> search starts here:"):
			inList = true
		case strings.HasPrefix(line, "End of search list."):
			return dirs
		case inList && strings.HasPrefix(line, " "):
			dirs = append(dirs, strings.TrimSpace(line))
		}
	}
	return dirs
}

// bigEndian asks the driver for its predefined macros and reads the byte
// order from __BYTE_ORDER__.
func (p *Prober) bigEndian(ctx context.Context, driver string) (bool, error) {
	res, err := p.executor.Run(ctx, []string{driver, "-dM", "-E", "-x", "c", "/dev/null"})
	if err != nil {
		return false, zerr.With(zerr.Wrap(domain.ErrProbeFailed, "driver rejected -dM"), "tool", driver)
	}
	for _, line := range strings.Split(res.Output, "\n") {
		if strings.HasPrefix(line, "#define __BYTE_ORDER__ ") {
			return strings.Contains(line, "__ORDER_BIG_ENDIAN__"), nil
		}
	}
	return false, nil
}
