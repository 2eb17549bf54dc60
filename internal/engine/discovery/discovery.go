// Package discovery fills the header-dependency edges of the build graph by
// running the preprocessor over every compilable object source.
package discovery

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
)

// Discovery runs header scans across a bounded worker group. Each object is
// scanned at most once per invocation; results recorded in the cache are
// reused when the source fingerprint and options are unchanged.
type Discovery struct {
	scanner ports.DepScanner
	hasher  ports.Hasher
	logger  ports.Logger
}

// New creates a Discovery engine.
func New(scanner ports.DepScanner, hasher ports.Hasher, logger ports.Logger) *Discovery {
	return &Discovery{scanner: scanner, hasher: hasher, logger: logger}
}

// Run discovers header edges for every compilable Object in g. Failures are
// collected per object: the returned map carries one error per failed object
// and every other object is still scanned. The driver does not build around
// a failure: when a failed object lies in the requested closure, the whole
// build stops before any command runs. cached supplies each object's decoded
// record, nil when absent.
func (d *Discovery) Run(
	ctx context.Context,
	g *domain.Graph,
	global *domain.OptionGroup,
	tc *domain.Toolchain,
	cached map[domain.InternedString]*domain.CacheRecord,
	workers int,
) map[domain.InternedString]error {
	generated := generatedIndex(g)

	var (
		mu       sync.Mutex
		failures = make(map[domain.InternedString]error)
	)

	group, gctx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	group.SetLimit(workers)

	for t := range g.Targets() {
		if t.Kind != domain.TargetObject || t.NoHeaderDeps {
			continue
		}
		src := t.Source.String()
		if !domain.RunsPreprocessor(src) {
			continue
		}

		group.Go(func() error {
			headers, err := d.discoverOne(gctx, t, global, tc, cached[t.Out], generated)
			if err != nil {
				d.logger.Warn("header discovery failed for " + t.Out.String())
				mu.Lock()
				failures[t.Out] = err
				mu.Unlock()
				return nil
			}
			t.Headers = headers
			return nil
		})
	}

	_ = group.Wait()
	return failures
}

// discoverOne returns the object's header edges, reusing the cached list
// when the source fingerprint and the effective options are unchanged.
func (d *Discovery) discoverOne(
	ctx context.Context,
	t *domain.Target,
	global *domain.OptionGroup,
	tc *domain.Toolchain,
	rec *domain.CacheRecord,
	generated map[string]domain.InternedString,
) ([]domain.InternedString, error) {
	group := t.EffectiveOptions(global)

	if headers, ok := d.reusable(t, group, rec); ok {
		return headers, nil
	}

	args := group.Set(domain.ProcCPP).Args()
	paths, err := d.scanner.ScanIncludes(ctx, tc.Driver(t.Lang), t.Source.String(), args)
	if err != nil {
		return nil, err
	}

	headers := make([]domain.InternedString, 0, len(paths))
	for _, p := range paths {
		if tc.IsSystemHeader(p) {
			continue
		}
		// A header produced by a generated-source rule resolves to its
		// producer target, giving the generator a consumer edge.
		if id, ok := generated[p]; ok {
			headers = append(headers, id)
			continue
		}
		headers = append(headers, domain.Intern(p))
	}
	return headers, nil
}

// reusable checks whether the cached record's header list is still valid:
// same options, same source fingerprint.
func (d *Discovery) reusable(t *domain.Target, group *domain.OptionGroup, rec *domain.CacheRecord) ([]domain.InternedString, bool) {
	if rec == nil || len(rec.Deps) == 0 {
		return nil, false
	}
	if !equalEncoded(rec.Options, group.Encoded()) {
		return nil, false
	}

	src := t.Source.String()
	if rec.Deps[0].Path != src {
		return nil, false
	}
	current, err := d.hasher.Fingerprint(src)
	if err != nil || current != rec.Deps[0] {
		return nil, false
	}

	headers := make([]domain.InternedString, 0, len(rec.Deps)-1)
	for _, dep := range rec.Deps[1:] {
		headers = append(headers, domain.Intern(dep.Path))
	}
	return headers, true
}

func equalEncoded(a, b map[string][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
	}
	return true
}

// generatedIndex maps every generated-source output path to its target id.
func generatedIndex(g *domain.Graph) map[string]domain.InternedString {
	idx := make(map[string]domain.InternedString)
	for t := range g.Targets() {
		if t.Kind == domain.TargetGeneratedSource {
			idx[t.Out.String()] = t.Out
		}
	}
	return idx
}
