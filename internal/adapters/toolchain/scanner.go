package toolchain

import (
	"context"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.DepScanner = (*Scanner)(nil)

// Scanner enumerates header dependencies by running the preprocessor in
// dependency-emitting mode (-M) and parsing the emitted make rule.
type Scanner struct {
	executor ports.Executor
}

// NewScanner creates a new Scanner.
func NewScanner(executor ports.Executor) *Scanner {
	return &Scanner{executor: executor}
}

// ScanIncludes runs driver -M over source with the target's effective
// preprocessor flags and returns every prerequisite path except the source
// itself. System headers are still present; the discovery engine filters
// them against the probed search path.
func (s *Scanner) ScanIncludes(ctx context.Context, driver, source string, args []string) ([]string, error) {
	argv := make([]string, 0, len(args)+3)
	argv = append(argv, driver)
	argv = append(argv, args...)
	argv = append(argv, "-M", source)

	res, err := s.executor.Run(ctx, argv)
	if err != nil {
		detail := err.Error()
		if res != nil && res.Output != "" {
			detail = res.Output
		}
		return nil, zerr.With(zerr.Wrap(domain.ErrDiscoveryFailed, detail), "source", source)
	}

	prereqs, err := ParseDepRule(res.Output)
	if err != nil {
		return nil, zerr.With(err, "source", source)
	}

	deps := prereqs[:0]
	for _, p := range prereqs {
		if p != source {
			deps = append(deps, p)
		}
	}
	return deps, nil
}
