// Package app implements the driver: it wires probing, project evaluation,
// discovery, staleness, scheduling, and cache finalization.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	loadavg "github.com/mikoim/go-loadavg"

	"go.trai.ch/forge/internal/adapters/fs"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/discovery"
	"go.trai.ch/forge/internal/engine/oracle"
	"go.trai.ch/forge/internal/engine/scheduler"
	"go.trai.ch/forge/internal/ui/output"
	"go.trai.ch/zerr"
)

// BuildOptions carries the invocation's command-line surface.
type BuildOptions struct {
	ProjectPath string
	SrcRoot     string
	ObjRoot     string
	CC          string
	CXX         string

	Jobs    int
	MaxLoad float64

	Build   domain.BuildType
	Link    domain.LinkType
	Version string

	Targets   []string
	NoCache   bool
	DumpCache bool
}

// App is the single-threaded driver. Workers run only inside the
// scheduler; everything before and after happens on the calling goroutine,
// which is also the only writer of the store.
type App struct {
	loader    ports.ProjectLoader
	prober    ports.Prober
	discovery *discovery.Discovery
	sched     *scheduler.Scheduler
	hasher    ports.Hasher
	openStore ports.StoreOpener
	logger    ports.Logger
	printer   *output.Printer
}

// New creates an App.
func New(
	loader ports.ProjectLoader,
	prober ports.Prober,
	disc *discovery.Discovery,
	sched *scheduler.Scheduler,
	hasher ports.Hasher,
	openStore ports.StoreOpener,
	logger ports.Logger,
	printer *output.Printer,
) *App {
	return &App{
		loader:    loader,
		prober:    prober,
		discovery: disc,
		sched:     sched,
		hasher:    hasher,
		openStore: openStore,
		logger:    logger,
		printer:   printer,
	}
}

// Build runs one invocation end to end. Any error before scheduling aborts
// before a single build subprocess has run.
func (a *App) Build(ctx context.Context, opts BuildOptions) error {
	tc, err := a.prober.Probe(ctx, opts.CC, opts.CXX)
	if err != nil {
		return err
	}

	layout, err := makeLayout(opts)
	if err != nil {
		return err
	}

	proj, err := a.loader.Load(opts.ProjectPath)
	if err != nil {
		return err
	}

	builder := NewBuilder(layout, fs.NewResolver(layout.SrcRoot), a.logger)
	graph, group, defaults, err := builder.Evaluate(proj)
	if err != nil {
		return err
	}

	st, err := a.openStore(layout.StoreFile())
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck // best effort close in defer

	if opts.DumpCache {
		return dumpStore(st)
	}

	header := domain.NewGlobalHeader(layout.SrcRoot, layout.ObjRoot, tc.CCPath, tc.CXXPath, group)
	if err := a.validateGlobals(st, header, opts.NoCache); err != nil {
		return err
	}

	cached, corrupt := a.loadRecords(st, graph, opts.NoCache)

	workers := effectiveWorkers(opts.Jobs, tc.Cores, opts.MaxLoad)
	failures := a.discovery.Run(ctx, graph, group, tc, cached, workers)
	a.registerHeaderSources(graph)
	if err := graph.Validate(); err != nil {
		return err
	}

	wanted, err := requestedClosure(graph, opts.Targets, defaults)
	if err != nil {
		return err
	}

	for id := range wanted {
		if ferr, failed := failures[id]; failed {
			return ferr
		}
	}

	current := a.currentRecords(graph, group, tc)
	verdicts := a.decide(graph, cached, corrupt, current)

	items, upToDate, err := a.plan(graph, group, tc, wanted, verdicts)
	if err != nil {
		return err
	}

	a.sched.OnProgress = a.printer.Progress
	res, runErr := a.sched.Run(ctx, graph, items, workers)

	if perr := a.persist(st, graph, header, current, res.Built); perr != nil {
		if runErr == nil {
			return perr
		}
		a.logger.Error(perr)
	}

	if runErr != nil {
		a.reportFailure(res)
		return runErr
	}

	a.printer.Summary(len(res.Built), upToDate)
	return nil
}

func makeLayout(opts BuildOptions) (domain.Layout, error) {
	if err := domain.ValidateVersion(opts.Version); err != nil {
		return domain.Layout{}, err
	}
	srcRoot, err := filepath.Abs(opts.SrcRoot)
	if err != nil {
		return domain.Layout{}, zerr.Wrap(err, "failed to resolve source root")
	}
	objRoot, err := filepath.Abs(opts.ObjRoot)
	if err != nil {
		return domain.Layout{}, zerr.Wrap(err, "failed to resolve output root")
	}
	return domain.Layout{
		SrcRoot: srcRoot,
		ObjRoot: objRoot,
		Build:   opts.Build,
		Link:    opts.Link,
		Version: opts.Version,
	}, nil
}

// validateGlobals enforces the opening contract: any difference between the
// stored global header and the current one clears the whole store. Options
// changes are assumed to affect every artifact.
func (a *App) validateGlobals(st ports.Store, header *domain.GlobalHeader, noCache bool) error {
	if noCache {
		return st.Clear()
	}

	data, err := st.Get(domain.GlobalKey)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	stored, err := domain.DecodeHeader(data)
	if err != nil || !stored.Equal(header) {
		a.logger.Info("global configuration changed, invalidating cache")
		return st.Clear()
	}
	return nil
}

// loadRecords pulls every target's cache record. Corrupt records are
// flagged so the oracle treats the target as stale.
func (a *App) loadRecords(st ports.Store, g *domain.Graph, noCache bool) (map[domain.InternedString]*domain.CacheRecord, map[domain.InternedString]bool) {
	cached := make(map[domain.InternedString]*domain.CacheRecord)
	corrupt := make(map[domain.InternedString]bool)
	if noCache {
		return cached, corrupt
	}

	for t := range g.Targets() {
		if t.Terminal() {
			continue
		}
		data, err := st.Get(t.Out.String())
		if err != nil || data == nil {
			continue
		}
		rec, err := domain.DecodeRecord(data)
		if err != nil {
			corrupt[t.Out] = true
			continue
		}
		cached[t.Out] = rec
	}
	return cached, corrupt
}

// registerHeaderSources adds a terminal Source target for every discovered
// header that the graph does not know yet.
func (a *App) registerHeaderSources(g *domain.Graph) {
	var headers []domain.InternedString
	for t := range g.Targets() {
		if t.Kind == domain.TargetObject {
			headers = append(headers, t.Headers...)
		}
	}
	for _, h := range headers {
		if _, ok := g.Target(h); !ok {
			_ = g.AddTarget(&domain.Target{Out: h, Kind: domain.TargetSource})
		}
	}
}

// requestedClosure resolves the requested target names (or the project
// defaults) and expands over their transitive dependencies. An empty
// result violates the pre-build invariant.
func requestedClosure(g *domain.Graph, names, defaults []string) (map[domain.InternedString]bool, error) {
	if len(names) == 0 {
		names = defaults
	}
	if len(names) == 0 {
		return nil, domain.ErrNoTargets
	}

	wanted := make(map[domain.InternedString]bool)
	var visit func(id domain.InternedString)
	visit = func(id domain.InternedString) {
		if wanted[id] {
			return
		}
		wanted[id] = true
		t, _ := g.Target(id)
		for _, dep := range t.Deps() {
			visit(dep)
		}
	}

	for _, name := range names {
		t, ok := g.Lookup(name)
		if !ok {
			return nil, zerr.With(domain.ErrTargetNotFound, "name", name)
		}
		visit(t.Out)
	}
	return wanted, nil
}

// currentRecords computes, for every non-terminal target, the record that
// this invocation would persist: dependency paths, effective options, and
// the tool path. Fingerprints are filled in at persist time.
func (a *App) currentRecords(g *domain.Graph, group *domain.OptionGroup, tc *domain.Toolchain) map[domain.InternedString]*domain.CacheRecord {
	current := make(map[domain.InternedString]*domain.CacheRecord)
	for t := range g.Targets() {
		if t.Terminal() {
			continue
		}
		deps := t.Deps()
		fingerprints := make([]domain.DepFingerprint, len(deps))
		for i, dep := range deps {
			fingerprints[i] = domain.DepFingerprint{Path: dep.String()}
		}

		tool := ""
		if argv, err := domain.CommandFor(t, g, group, tc); err == nil && len(argv) > 0 {
			tool = argv[0]
		}

		current[t.Out] = &domain.CacheRecord{
			Version:      domain.CodecVersion,
			Out:          t.Out.String(),
			Deps:         fingerprints,
			Options:      t.EffectiveOptions(group).Encoded(),
			Tool:         tool,
			NoHeaderDeps: t.NoHeaderDeps,
		}
	}
	return current
}

// decide applies the oracle to every non-terminal target and propagates
// staleness to consumers.
func (a *App) decide(
	g *domain.Graph,
	cached map[domain.InternedString]*domain.CacheRecord,
	corrupt map[domain.InternedString]bool,
	current map[domain.InternedString]*domain.CacheRecord,
) map[domain.InternedString]oracle.Verdict {
	stat := func(path string) (int64, bool) {
		info, err := os.Stat(path)
		if err != nil {
			return 0, false
		}
		return info.ModTime().UnixNano(), true
	}

	verdicts := make(map[domain.InternedString]oracle.Verdict)
	for t := range g.Targets() {
		if t.Terminal() {
			continue
		}
		verdicts[t.Out] = oracle.Decide(oracle.Input{
			Target:         t,
			Current:        current[t.Out],
			Cached:         cached[t.Out],
			Corrupt:        corrupt[t.Out],
			Stat:           stat,
			OrderSensitive: t.Kind != domain.TargetObject,
		})
	}
	oracle.Propagate(g, verdicts)
	return verdicts
}

// plan narrows the stale set to the requested closure and attaches the
// command argv to each stale target. upToDate counts requested non-terminal
// targets that need nothing.
func (a *App) plan(
	g *domain.Graph,
	group *domain.OptionGroup,
	tc *domain.Toolchain,
	wanted map[domain.InternedString]bool,
	verdicts map[domain.InternedString]oracle.Verdict,
) ([]*scheduler.Item, int, error) {
	var items []*scheduler.Item
	upToDate := 0

	for _, id := range g.Order() {
		if !wanted[id] {
			continue
		}
		t, _ := g.Target(id)
		if t.Terminal() {
			continue
		}
		v := verdicts[id]
		if !v.Stale {
			upToDate++
			continue
		}

		a.printer.Stale(id.String(), string(v.Reason))
		argv, err := domain.CommandFor(t, g, group, tc)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, &scheduler.Item{Target: t, Argv: argv})
	}
	return items, upToDate, nil
}

// persist writes a fresh record for every rebuilt target, then the global
// header. Writes happen from the driver's goroutine only, after the pool
// has drained; targets whose predecessors failed never reach this list.
func (a *App) persist(
	st ports.Store,
	g *domain.Graph,
	header *domain.GlobalHeader,
	current map[domain.InternedString]*domain.CacheRecord,
	built []domain.InternedString,
) error {
	for _, id := range built {
		rec := current[id]
		if rec == nil {
			continue
		}
		for i := range rec.Deps {
			fp, err := a.hasher.Fingerprint(rec.Deps[i].Path)
			if err != nil {
				return err
			}
			rec.Deps[i] = fp
		}
		data, err := domain.EncodeRecord(rec)
		if err != nil {
			return err
		}
		if err := st.Put(id.String(), data); err != nil {
			return err
		}
	}

	data, err := domain.EncodeHeader(header)
	if err != nil {
		return err
	}
	return st.Put(domain.GlobalKey, data)
}

func (a *App) reportFailure(res *scheduler.Result) {
	if res.FailedResult == nil {
		return
	}
	tool := ""
	if len(res.FailedResult.Argv) > 0 {
		tool = res.FailedResult.Argv[0]
	}
	a.printer.BuildError(res.Failed.String(), tool, res.FailedResult.ExitCode, res.FailedResult.Output)
}

// effectiveWorkers sizes the pool: the explicit -j value, or the probed
// core count, optionally capped by the host's one-minute load average the
// way ninja's -l flag works.
func effectiveWorkers(jobs, cores int, maxLoad float64) int {
	n := jobs
	if n <= 0 {
		n = cores
	}
	if n < 1 {
		n = 1
	}
	if maxLoad > 0 {
		if la, err := loadavg.Parse(); err == nil {
			if capacity := int(maxLoad - la.LoadAverage1); capacity < n {
				n = capacity
			}
		}
		if n < 1 {
			n = 1
		}
	}
	return n
}

func dumpStore(st ports.Store) error {
	return st.Iterate(func(key string, value []byte) error {
		_, err := fmt.Fprintf(os.Stdout, "%s\t%s\n", key, value)
		return err
	})
}
