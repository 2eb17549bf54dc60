// Package oracle decides which targets are stale. The decision is a pure
// function of the target, its cache record, and filesystem facts supplied
// by the caller; the oracle itself never touches the disk.
package oracle

import (
	"slices"

	"go.trai.ch/forge/internal/core/domain"
)

// Reason attributes a single primary cause to a stale target.
type Reason string

const (
	ReasonFresh          Reason = ""
	ReasonMissingOutput  Reason = "output missing"
	ReasonNoRecord       Reason = "no cache record"
	ReasonCorruptRecord  Reason = "corrupt cache record"
	ReasonDepMissing     Reason = "dependency missing"
	ReasonDepNewer       Reason = "dependency newer than output"
	ReasonOptionsChanged Reason = "options changed"
	ReasonDepsChanged    Reason = "dependency set changed"
	ReasonToolChanged    Reason = "tool path changed"
	ReasonGeneratorNewer Reason = "generator newer than output"
	ReasonUpstreamStale  Reason = "depends on stale target"
)

// Verdict is the oracle's decision for one target.
type Verdict struct {
	Stale  bool
	Reason Reason
	Detail string
}

// StatFunc reports a path's mtime in nanoseconds. ok is false when the
// path does not exist.
type StatFunc func(path string) (mtimeNS int64, ok bool)

// Input bundles everything the decision needs. Cached is nil when the
// store had no record; Corrupt marks a record that failed to decode.
type Input struct {
	Target  *domain.Target
	Current *domain.CacheRecord
	Cached  *domain.CacheRecord
	Corrupt bool
	Stat    StatFunc

	// OrderSensitive compares the dependency lists positionally (linker
	// inputs); otherwise the comparison is set-wise (object header lists).
	OrderSensitive bool
}

// Decide applies the staleness clauses in their fixed priority order and
// attributes the first matching reason.
func Decide(in Input) Verdict {
	out := in.Target.Out.String()

	outMTime, outExists := in.Stat(out)
	if !outExists {
		return Verdict{Stale: true, Reason: ReasonMissingOutput, Detail: out}
	}

	if in.Corrupt {
		return Verdict{Stale: true, Reason: ReasonCorruptRecord}
	}
	if in.Cached == nil {
		return Verdict{Stale: true, Reason: ReasonNoRecord}
	}

	for _, dep := range in.Cached.Deps {
		mtime, ok := in.Stat(dep.Path)
		if !ok {
			return Verdict{Stale: true, Reason: ReasonDepMissing, Detail: dep.Path}
		}
		if mtime > outMTime {
			return Verdict{Stale: true, Reason: ReasonDepNewer, Detail: dep.Path}
		}
	}

	if !equalOptions(in.Current.Options, in.Cached.Options) {
		return Verdict{Stale: true, Reason: ReasonOptionsChanged}
	}

	if !equalDeps(in.Current.DepPaths(), in.Cached.DepPaths(), in.OrderSensitive) {
		return Verdict{Stale: true, Reason: ReasonDepsChanged}
	}

	if in.Current.Tool != in.Cached.Tool {
		return Verdict{Stale: true, Reason: ReasonToolChanged, Detail: in.Current.Tool}
	}

	if in.Target.Kind == domain.TargetGeneratedSource {
		script := in.Target.Script.String()
		mtime, ok := in.Stat(script)
		if !ok {
			return Verdict{Stale: true, Reason: ReasonDepMissing, Detail: script}
		}
		if mtime > outMTime {
			return Verdict{Stale: true, Reason: ReasonGeneratorNewer, Detail: script}
		}
	}

	return Verdict{}
}

func equalOptions(a, b map[string][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !slices.Equal(av, bv) {
			return false
		}
	}
	return true
}

func equalDeps(current, cached []string, orderSensitive bool) bool {
	if orderSensitive {
		return slices.Equal(current, cached)
	}
	a := slices.Clone(current)
	b := slices.Clone(cached)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// Propagate marks every transitive consumer of a stale target stale,
// preserving already-attributed reasons. The graph must be validated.
func Propagate(g *domain.Graph, verdicts map[domain.InternedString]Verdict) {
	// Topological order visits dependencies first, so one pass suffices.
	for _, id := range g.Order() {
		if verdicts[id].Stale {
			continue
		}
		t, _ := g.Target(id)
		for _, dep := range t.Deps() {
			if verdicts[dep].Stale {
				verdicts[id] = Verdict{
					Stale:  true,
					Reason: ReasonUpstreamStale,
					Detail: dep.String(),
				}
				break
			}
		}
	}
}
