package domain

import "github.com/cespare/xxhash/v2"

// OptionGroup maps every processor kind to its OptionSet for one build type.
// The global group describes the whole invocation; per-target overrides are
// lazily cloned copies with local additions and deletions applied.
type OptionGroup struct {
	build BuildType
	sets  map[ProcessorKind]*OptionSet
}

// NewOptionGroup creates a group with empty sets for all eight kinds.
func NewOptionGroup(build BuildType) *OptionGroup {
	g := &OptionGroup{
		build: build,
		sets:  make(map[ProcessorKind]*OptionSet, 8),
	}
	for _, kind := range ProcessorKinds() {
		g.sets[kind] = NewOptionSet(kind, build)
	}
	return g
}

// Build returns the group's build type.
func (g *OptionGroup) Build() BuildType { return g.build }

// Set returns the OptionSet for the given kind.
func (g *OptionGroup) Set(kind ProcessorKind) *OptionSet {
	return g.sets[kind]
}

// Clone deep-copies the group. Used to materialize per-target overrides.
func (g *OptionGroup) Clone() *OptionGroup {
	c := &OptionGroup{
		build: g.build,
		sets:  make(map[ProcessorKind]*OptionSet, len(g.sets)),
	}
	for kind, set := range g.sets {
		c.sets[kind] = set.Clone()
	}
	return c
}

// Equal reports whether both groups have the same build type and equal sets
// for every processor kind.
func (g *OptionGroup) Equal(o *OptionGroup) bool {
	if g == nil || o == nil {
		return g == o
	}
	if g.build != o.build {
		return false
	}
	for _, kind := range ProcessorKinds() {
		if !g.sets[kind].Equal(o.sets[kind]) {
			return false
		}
	}
	return true
}

// Hash folds the group into a stable 64-bit value, iterating kinds in
// canonical order.
func (g *OptionGroup) Hash() uint64 {
	d := xxhash.New()
	writeHashField(d, string(g.build))
	for _, kind := range ProcessorKinds() {
		writeHashUint64(d, g.sets[kind].Hash())
	}
	return d.Sum64()
}

// Encoded renders every set as argv under its persistence key. All eight
// keys are always present so the encoding is self-describing.
func (g *OptionGroup) Encoded() map[string][]string {
	out := make(map[string][]string, len(g.sets))
	for _, kind := range ProcessorKinds() {
		out[kind.StoreKey()] = g.sets[kind].Args()
	}
	return out
}
